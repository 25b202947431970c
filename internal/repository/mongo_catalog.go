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

// MongoCatalogRepository implements domain.CatalogRepository over two
// collections shared by all four content kinds; every query filters on the
// kind field so the trees stay parallel.
type MongoCatalogRepository struct {
	folders *mongo.Collection
	items   *mongo.Collection
}

// NewMongoCatalogRepository creates the catalog repository and its indexes
func NewMongoCatalogRepository(db *mongo.Database) *MongoCatalogRepository {
	folders := db.Collection("catalog_folders")
	items := db.Collection("catalog_items")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = folders.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "parent_id", Value: 1}, {Key: "created_at", Value: 1}}},
	})
	_, _ = items.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "folder_id", Value: 1}, {Key: "created_at", Value: 1}}},
	})

	return &MongoCatalogRepository{folders: folders, items: items}
}

func (r *MongoCatalogRepository) CreateFolder(ctx context.Context, folder *domain.Folder) error {
	now := time.Now().UTC()
	folder.CreatedAt = now
	folder.UpdatedAt = now

	objID := primitive.NewObjectID()
	folder.ID = objID.Hex()

	doc := bson.M{
		"_id":            objID,
		"kind":           folder.Kind,
		"name":           folder.Name,
		"base_price":     folder.BasePrice,
		"is_purchasable": folder.IsPurchasable,
		"item_count":     folder.ItemCount,
		"created_by":     folder.CreatedBy,
		"created_at":     folder.CreatedAt,
		"updated_at":     folder.UpdatedAt,
	}
	if folder.ParentID != nil {
		doc["parent_id"] = *folder.ParentID
	}
	if folder.DiscountPrice != nil {
		doc["discount_price"] = *folder.DiscountPrice
	}

	if _, err := r.folders.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}
	return nil
}

func (r *MongoCatalogRepository) FolderByID(ctx context.Context, kind domain.Kind, id string) (*domain.Folder, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	var raw bson.M
	if err := r.folders.FindOne(ctx, bson.M{"_id": objID, "kind": kind}).Decode(&raw); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}
	return mapBsonToFolder(raw), nil
}

// ChildFolders returns the direct child folders of parentID (nil = root),
// ordered by creation time ascending.
func (r *MongoCatalogRepository) ChildFolders(ctx context.Context, kind domain.Kind, parentID *string) ([]*domain.Folder, error) {
	filter := bson.M{"kind": kind}
	if parentID == nil {
		filter["parent_id"] = bson.M{"$exists": false}
	} else {
		filter["parent_id"] = *parentID
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.folders.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list child folders: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*domain.Folder
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, err
		}
		result = append(result, mapBsonToFolder(raw))
	}
	return result, cursor.Err()
}

func (r *MongoCatalogRepository) UpdateFolder(ctx context.Context, folder *domain.Folder) error {
	objID, err := primitive.ObjectIDFromHex(folder.ID)
	if err != nil {
		return domain.ErrNotFound
	}

	folder.UpdatedAt = time.Now().UTC()

	set := bson.M{
		"name":           folder.Name,
		"base_price":     folder.BasePrice,
		"is_purchasable": folder.IsPurchasable,
		"updated_at":     folder.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if folder.DiscountPrice != nil {
		set["discount_price"] = *folder.DiscountPrice
	} else {
		update["$unset"] = bson.M{"discount_price": ""}
	}

	result, err := r.folders.UpdateOne(ctx, bson.M{"_id": objID, "kind": folder.Kind}, update)
	if err != nil {
		return fmt.Errorf("failed to update folder: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MongoCatalogRepository) SetFolderParent(ctx context.Context, kind domain.Kind, id string, parentID *string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}

	update := bson.M{"$set": bson.M{"updated_at": time.Now().UTC()}}
	if parentID != nil {
		update["$set"].(bson.M)["parent_id"] = *parentID
	} else {
		update["$unset"] = bson.M{"parent_id": ""}
	}

	result, err := r.folders.UpdateOne(ctx, bson.M{"_id": objID, "kind": kind}, update)
	if err != nil {
		return fmt.Errorf("failed to move folder: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MongoCatalogRepository) SetFolderItemCount(ctx context.Context, kind domain.Kind, id string, count int64) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}
	_, err = r.folders.UpdateOne(ctx, bson.M{"_id": objID, "kind": kind},
		bson.M{"$set": bson.M{"item_count": count, "updated_at": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("failed to set item count: %w", err)
	}
	return nil
}

// DeleteFolders removes the given folders. Ids that are already gone are
// skipped silently so a retried cascade is not an error.
func (r *MongoCatalogRepository) DeleteFolders(ctx context.Context, kind domain.Kind, ids []string) (int64, error) {
	objIDs := hexToObjectIDs(ids)
	if len(objIDs) == 0 {
		return 0, nil
	}
	result, err := r.folders.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": objIDs}, "kind": kind})
	if err != nil {
		return 0, fmt.Errorf("failed to delete folders: %w", err)
	}
	return result.DeletedCount, nil
}

func (r *MongoCatalogRepository) CreateItem(ctx context.Context, item *domain.Item) error {
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	objID := primitive.NewObjectID()
	item.ID = objID.Hex()

	doc := bson.M{
		"_id":          objID,
		"kind":         item.Kind,
		"title":        item.Title,
		"base_price":   item.BasePrice,
		"preview_url":  item.PreviewURL,
		"download_url": item.DownloadURL,
		"media":        item.Media,
		"created_by":   item.CreatedBy,
		"created_at":   item.CreatedAt,
		"updated_at":   item.UpdatedAt,
	}
	if item.FolderID != nil {
		doc["folder_id"] = *item.FolderID
	}
	if item.DiscountPrice != nil {
		doc["discount_price"] = *item.DiscountPrice
	}

	if _, err := r.items.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	return nil
}

func (r *MongoCatalogRepository) ItemByID(ctx context.Context, kind domain.Kind, id string) (*domain.Item, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	var item domain.Item
	if err := r.items.FindOne(ctx, bson.M{"_id": objID, "kind": kind}).Decode(&item); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return &item, nil
}

func (r *MongoCatalogRepository) ItemsInFolder(ctx context.Context, kind domain.Kind, folderID *string, order domain.ItemOrder) ([]*domain.Item, error) {
	filter := bson.M{"kind": kind}
	if folderID == nil {
		filter["folder_id"] = bson.M{"$exists": false}
	} else {
		filter["folder_id"] = *folderID
	}

	sortDir := 1
	if order == domain.ItemOrderDesc {
		sortDir = -1
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: sortDir}})

	cursor, err := r.items.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*domain.Item
	for cursor.Next(ctx) {
		var item domain.Item
		if err := cursor.Decode(&item); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	return result, cursor.Err()
}

func (r *MongoCatalogRepository) CountItemsInFolder(ctx context.Context, kind domain.Kind, folderID string) (int64, error) {
	n, err := r.items.CountDocuments(ctx, bson.M{"kind": kind, "folder_id": folderID})
	if err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return n, nil
}

func (r *MongoCatalogRepository) UpdateItem(ctx context.Context, item *domain.Item) error {
	objID, err := primitive.ObjectIDFromHex(item.ID)
	if err != nil {
		return domain.ErrNotFound
	}

	item.UpdatedAt = time.Now().UTC()

	set := bson.M{
		"title":        item.Title,
		"base_price":   item.BasePrice,
		"preview_url":  item.PreviewURL,
		"download_url": item.DownloadURL,
		"media":        item.Media,
		"updated_at":   item.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if item.DiscountPrice != nil {
		set["discount_price"] = *item.DiscountPrice
	} else {
		update["$unset"] = bson.M{"discount_price": ""}
	}

	result, err := r.items.UpdateOne(ctx, bson.M{"_id": objID, "kind": item.Kind}, update)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MongoCatalogRepository) SetItemFolder(ctx context.Context, kind domain.Kind, id string, folderID *string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}

	update := bson.M{"$set": bson.M{"updated_at": time.Now().UTC()}}
	if folderID != nil {
		update["$set"].(bson.M)["folder_id"] = *folderID
	} else {
		update["$unset"] = bson.M{"folder_id": ""}
	}

	result, err := r.items.UpdateOne(ctx, bson.M{"_id": objID, "kind": kind}, update)
	if err != nil {
		return fmt.Errorf("failed to move item: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MongoCatalogRepository) DeleteItem(ctx context.Context, kind domain.Kind, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}
	result, err := r.items.DeleteOne(ctx, bson.M{"_id": objID, "kind": kind})
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MongoCatalogRepository) DeleteItemsInFolders(ctx context.Context, kind domain.Kind, folderIDs []string) (int64, error) {
	if len(folderIDs) == 0 {
		return 0, nil
	}
	result, err := r.items.DeleteMany(ctx, bson.M{"kind": kind, "folder_id": bson.M{"$in": folderIDs}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete items in folders: %w", err)
	}
	return result.DeletedCount, nil
}

func (r *MongoCatalogRepository) ItemIDsInFolders(ctx context.Context, kind domain.Kind, folderIDs []string) ([]string, error) {
	if len(folderIDs) == 0 {
		return nil, nil
	}

	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := r.items.Find(ctx, bson.M{"kind": kind, "folder_id": bson.M{"$in": folderIDs}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to collect item ids: %w", err)
	}
	defer cursor.Close(ctx)

	var ids []string
	for cursor.Next(ctx) {
		var raw struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cursor.Decode(&raw); err != nil {
			return nil, err
		}
		ids = append(ids, raw.ID.Hex())
	}
	return ids, cursor.Err()
}

func mapBsonToFolder(raw bson.M) *domain.Folder {
	folder := &domain.Folder{}

	if oid, ok := raw["_id"].(primitive.ObjectID); ok {
		folder.ID = oid.Hex()
	}
	if kind, ok := raw["kind"].(string); ok {
		folder.Kind = domain.Kind(kind)
	}
	if name, ok := raw["name"].(string); ok {
		folder.Name = name
	}
	if parent, ok := raw["parent_id"].(string); ok {
		folder.ParentID = &parent
	}
	if price, ok := asFloat64(raw["base_price"]); ok {
		folder.BasePrice = price
	}
	if price, ok := asFloat64(raw["discount_price"]); ok {
		folder.DiscountPrice = &price
	}
	if purchasable, ok := raw["is_purchasable"].(bool); ok {
		folder.IsPurchasable = purchasable
	}
	if n, ok := asInt64(raw["item_count"]); ok {
		folder.ItemCount = n
	}
	if createdBy, ok := raw["created_by"].(string); ok {
		folder.CreatedBy = createdBy
	}
	if created, ok := raw["created_at"].(primitive.DateTime); ok {
		folder.CreatedAt = created.Time()
	}
	if updated, ok := raw["updated_at"].(primitive.DateTime); ok {
		folder.UpdatedAt = updated.Time()
	}
	return folder
}

func asFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}

func hexToObjectIDs(ids []string) []primitive.ObjectID {
	objIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			objIDs = append(objIDs, oid)
		}
	}
	return objIDs
}
