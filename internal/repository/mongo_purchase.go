package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/mansoorceksport/mediakart/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoPurchaseRepository implements domain.PurchaseRepository. Purchases
// are insert-only; there is no update path.
type MongoPurchaseRepository struct {
	collection *mongo.Collection
}

func NewMongoPurchaseRepository(db *mongo.Database) *MongoPurchaseRepository {
	coll := db.Collection("purchases")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "order_id", Value: 1}}},
	})

	return &MongoPurchaseRepository{collection: coll}
}

func (r *MongoPurchaseRepository) Create(ctx context.Context, purchase *domain.Purchase) error {
	purchase.CreatedAt = time.Now().UTC()

	objID := primitive.NewObjectID()
	purchase.ID = objID.Hex()

	doc := bson.M{
		"_id":              objID,
		"user_id":          purchase.UserID,
		"items":            purchase.Items,
		"total_amount":     purchase.TotalAmount,
		"discount_applied": purchase.DiscountApplied,
		"payment_id":       purchase.PaymentID,
		"order_id":         purchase.OrderID,
		"created_at":       purchase.CreatedAt,
	}
	if purchase.CouponCode != "" {
		doc["coupon_code"] = purchase.CouponCode
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create purchase: %w", err)
	}
	return nil
}

func (r *MongoPurchaseRepository) GetByID(ctx context.Context, id string) (*domain.Purchase, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	var purchase domain.Purchase
	if err := r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&purchase); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get purchase: %w", err)
	}
	return &purchase, nil
}

// ListByUser returns a user's purchases, newest first.
func (r *MongoPurchaseRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Purchase, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	defer cursor.Close(ctx)

	var purchases []*domain.Purchase
	if err := cursor.All(ctx, &purchases); err != nil {
		return nil, err
	}
	return purchases, nil
}
