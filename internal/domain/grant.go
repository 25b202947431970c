package domain

import (
	"context"
	"time"
)

// Access grant target types
const (
	AccessItem   = "item"
	AccessFolder = "folder"
)

// AccessGrant is durable proof that a user may access an item, or a
// purchased folder's frozen item set. At most one grant exists per
// (user, access type, target); re-granting returns the existing row.
type AccessGrant struct {
	ID              string    `bson:"_id,omitempty" json:"id"`
	UserID          string    `bson:"user_id" json:"user_id"`
	AccessType      string    `bson:"access_type" json:"access_type"` // item, folder
	Kind            Kind      `bson:"kind" json:"kind"`
	TargetID        string    `bson:"target_id" json:"target_id"`
	PurchaseID      string    `bson:"purchase_id" json:"purchase_id"`
	IncludedItemIDs []string  `bson:"included_item_ids,omitempty" json:"included_item_ids,omitempty"` // folder grants only
	GrantedAt       time.Time `bson:"granted_at" json:"granted_at"`
}

// GrantRepository defines storage operations for access grants. Uniqueness
// of (user_id, access_type, target_id) is enforced at the storage layer;
// Insert surfaces a violation as ErrConflict so callers can fetch and
// return the existing grant.
type GrantRepository interface {
	Insert(ctx context.Context, grant *AccessGrant) error
	Get(ctx context.Context, userID, accessType, targetID string) (*AccessGrant, error)
	ListByUser(ctx context.Context, userID string) ([]*AccessGrant, error)
	ListFolderGrants(ctx context.Context, userID string) ([]*AccessGrant, error)
}
