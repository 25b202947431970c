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

// MongoGrantRepository implements domain.GrantRepository. The unique index
// on (user_id, access_type, target_id) is what makes concurrent grant
// issuance safe: the second writer gets a duplicate-key error, surfaced as
// domain.ErrConflict, and re-reads the winner's row.
type MongoGrantRepository struct {
	collection *mongo.Collection
}

func NewMongoGrantRepository(db *mongo.Database) *MongoGrantRepository {
	coll := db.Collection("access_grants")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "access_type", Value: 1}, {Key: "target_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "access_type", Value: 1}}},
	})

	return &MongoGrantRepository{collection: coll}
}

func (r *MongoGrantRepository) Insert(ctx context.Context, grant *domain.AccessGrant) error {
	grant.GrantedAt = time.Now().UTC()

	objID := primitive.NewObjectID()
	grant.ID = objID.Hex()

	doc := bson.M{
		"_id":         objID,
		"user_id":     grant.UserID,
		"access_type": grant.AccessType,
		"kind":        grant.Kind,
		"target_id":   grant.TargetID,
		"purchase_id": grant.PurchaseID,
		"granted_at":  grant.GrantedAt,
	}
	if len(grant.IncludedItemIDs) > 0 {
		doc["included_item_ids"] = grant.IncludedItemIDs
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("failed to insert grant: %w", err)
	}
	return nil
}

func (r *MongoGrantRepository) Get(ctx context.Context, userID, accessType, targetID string) (*domain.AccessGrant, error) {
	filter := bson.M{"user_id": userID, "access_type": accessType, "target_id": targetID}

	var grant domain.AccessGrant
	if err := r.collection.FindOne(ctx, filter).Decode(&grant); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get grant: %w", err)
	}
	return &grant, nil
}

func (r *MongoGrantRepository) ListByUser(ctx context.Context, userID string) ([]*domain.AccessGrant, error) {
	return r.list(ctx, bson.M{"user_id": userID})
}

func (r *MongoGrantRepository) ListFolderGrants(ctx context.Context, userID string) ([]*domain.AccessGrant, error) {
	return r.list(ctx, bson.M{"user_id": userID, "access_type": domain.AccessFolder})
}

func (r *MongoGrantRepository) list(ctx context.Context, filter bson.M) ([]*domain.AccessGrant, error) {
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	defer cursor.Close(ctx)

	var grants []*domain.AccessGrant
	if err := cursor.All(ctx, &grants); err != nil {
		return nil, err
	}
	return grants, nil
}
