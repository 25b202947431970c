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

// MongoCouponRepository implements domain.CouponRepository
type MongoCouponRepository struct {
	collection *mongo.Collection
}

// NewMongoCouponRepository creates a new coupon repository with a unique
// index on the (already-uppercased) code.
func NewMongoCouponRepository(db *mongo.Database) *MongoCouponRepository {
	coll := db.Collection("coupons")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "code", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	return &MongoCouponRepository{collection: coll}
}

func (r *MongoCouponRepository) Create(ctx context.Context, coupon *domain.Coupon) error {
	now := time.Now().UTC()
	coupon.Code = domain.NormalizeCouponCode(coupon.Code)
	coupon.CreatedAt = now
	coupon.UpdatedAt = now

	objID := primitive.NewObjectID()
	coupon.ID = objID.Hex()

	doc := bson.M{
		"_id":             objID,
		"code":            coupon.Code,
		"discount_type":   coupon.DiscountType,
		"value":           coupon.Value,
		"min_order_value": coupon.MinOrderValue,
		"used_count":      coupon.UsedCount,
		"is_active":       coupon.IsActive,
		"created_at":      coupon.CreatedAt,
		"updated_at":      coupon.UpdatedAt,
	}
	if coupon.MaxDiscountAmount != nil {
		doc["max_discount_amount"] = *coupon.MaxDiscountAmount
	}
	if coupon.UsageLimit != nil {
		doc["usage_limit"] = *coupon.UsageLimit
	}
	if coupon.ExpiryDate != nil {
		doc["expiry_date"] = *coupon.ExpiryDate
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("failed to create coupon: %w", err)
	}
	return nil
}

// GetByCode looks a coupon up by code. The caller-supplied code is
// normalized to uppercase first, making lookups case-insensitive.
func (r *MongoCouponRepository) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	var coupon domain.Coupon
	err := r.collection.FindOne(ctx, bson.M{"code": domain.NormalizeCouponCode(code)}).Decode(&coupon)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get coupon: %w", err)
	}
	return &coupon, nil
}

func (r *MongoCouponRepository) List(ctx context.Context) ([]*domain.Coupon, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}
	defer cursor.Close(ctx)

	var coupons []*domain.Coupon
	if err := cursor.All(ctx, &coupons); err != nil {
		return nil, err
	}
	return coupons, nil
}

func (r *MongoCouponRepository) Update(ctx context.Context, coupon *domain.Coupon) error {
	objID, err := primitive.ObjectIDFromHex(coupon.ID)
	if err != nil {
		return domain.ErrNotFound
	}

	coupon.Code = domain.NormalizeCouponCode(coupon.Code)
	coupon.UpdatedAt = time.Now().UTC()

	set := bson.M{
		"code":            coupon.Code,
		"discount_type":   coupon.DiscountType,
		"value":           coupon.Value,
		"min_order_value": coupon.MinOrderValue,
		"is_active":       coupon.IsActive,
		"updated_at":      coupon.UpdatedAt,
	}
	unset := bson.M{}
	if coupon.MaxDiscountAmount != nil {
		set["max_discount_amount"] = *coupon.MaxDiscountAmount
	} else {
		unset["max_discount_amount"] = ""
	}
	if coupon.UsageLimit != nil {
		set["usage_limit"] = *coupon.UsageLimit
	} else {
		unset["usage_limit"] = ""
	}
	if coupon.ExpiryDate != nil {
		set["expiry_date"] = *coupon.ExpiryDate
	} else {
		unset["expiry_date"] = ""
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, update)
	if err != nil {
		return fmt.Errorf("failed to update coupon: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MongoCouponRepository) SetActive(ctx context.Context, id string, active bool) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID},
		bson.M{"$set": bson.M{"is_active": active, "updated_at": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("failed to set coupon active: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// IncrementUsage bumps used_count by one, guarded so a capped coupon can
// never be oversold: the filter only matches while used_count is below the
// limit (or no limit is set), making the check-and-increment a single
// atomic operation.
func (r *MongoCouponRepository) IncrementUsage(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}

	filter := bson.M{
		"_id": objID,
		"$or": []bson.M{
			{"usage_limit": bson.M{"$exists": false}},
			{"$expr": bson.M{"$lt": []string{"$used_count", "$usage_limit"}}},
		},
	}
	update := bson.M{
		"$inc": bson.M{"used_count": 1},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to increment coupon usage: %w", err)
	}
	if result.MatchedCount == 0 {
		// Either the coupon is gone or the cap was hit between validation
		// and accounting.
		return domain.ErrConflict
	}
	return nil
}
