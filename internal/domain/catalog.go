package domain

import (
	"context"
	"time"
)

// Kind discriminates the four parallel catalog trees.
type Kind string

const (
	KindTemplate Kind = "template"
	KindPicture  Kind = "picture"
	KindAudio    Kind = "audio"
	KindVideo    Kind = "video"
)

// ParseKind validates a content kind coming in from a route or payload.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindTemplate, KindPicture, KindAudio, KindVideo:
		return Kind(s), nil
	}
	return "", ErrInvalidInput
}

// ItemOrder selects the creation-time ordering for item listings.
// Browse surfaces use ascending, admin "latest first" uses descending.
type ItemOrder string

const (
	ItemOrderAsc  ItemOrder = "asc"
	ItemOrderDesc ItemOrder = "desc"
)

// Folder is a hierarchical container of items within one content kind.
// The parent chain is acyclic; a nil ParentID means the folder sits at
// the catalog root of its kind.
type Folder struct {
	ID            string    `bson:"_id,omitempty" json:"id"`
	Kind          Kind      `bson:"kind" json:"kind"`
	Name          string    `bson:"name" json:"name"`
	ParentID      *string   `bson:"parent_id,omitempty" json:"parent_id,omitempty"`
	BasePrice     float64   `bson:"base_price" json:"base_price"`
	DiscountPrice *float64  `bson:"discount_price,omitempty" json:"discount_price,omitempty"`
	IsPurchasable bool      `bson:"is_purchasable" json:"is_purchasable"`
	ItemCount     int64     `bson:"item_count" json:"item_count"`
	CreatedBy     string    `bson:"created_by,omitempty" json:"created_by,omitempty"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`
}

// EffectivePrice returns the discount price when set, else the base price.
func (f *Folder) EffectivePrice() float64 {
	if f.DiscountPrice != nil {
		return *f.DiscountPrice
	}
	return f.BasePrice
}

// MediaMeta holds the media-specific attributes that differ across kinds.
// The core never interprets these beyond storing them.
type MediaMeta struct {
	Resolution  string `bson:"resolution,omitempty" json:"resolution,omitempty"`
	DurationSec int64  `bson:"duration_sec,omitempty" json:"duration_sec,omitempty"`
	Format      string `bson:"format,omitempty" json:"format,omitempty"`
	SizeBytes   int64  `bson:"size_bytes,omitempty" json:"size_bytes,omitempty"`
}

// Item is a leaf purchasable asset owned by exactly one folder (or the
// catalog root when FolderID is nil) of its kind.
type Item struct {
	ID            string    `bson:"_id,omitempty" json:"id"`
	Kind          Kind      `bson:"kind" json:"kind"`
	FolderID      *string   `bson:"folder_id,omitempty" json:"folder_id,omitempty"`
	Title         string    `bson:"title" json:"title"`
	BasePrice     float64   `bson:"base_price" json:"base_price"`
	DiscountPrice *float64  `bson:"discount_price,omitempty" json:"discount_price,omitempty"`
	PreviewURL    string    `bson:"preview_url,omitempty" json:"preview_url,omitempty"`
	DownloadURL   string    `bson:"download_url,omitempty" json:"download_url,omitempty"`
	Media         MediaMeta `bson:"media,omitempty" json:"media,omitempty"`
	CreatedBy     string    `bson:"created_by,omitempty" json:"created_by,omitempty"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`
}

// EffectivePrice returns the discount price when set, else the base price.
func (i *Item) EffectivePrice() float64 {
	if i.DiscountPrice != nil {
		return *i.DiscountPrice
	}
	return i.BasePrice
}

// PathSegment is one hop of a root-to-folder breadcrumb.
type PathSegment struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CatalogRepository defines storage operations for folders and items of all
// four kinds. Every query is scoped by kind; cross-kind references are never
// produced.
type CatalogRepository interface {
	CreateFolder(ctx context.Context, folder *Folder) error
	FolderByID(ctx context.Context, kind Kind, id string) (*Folder, error)
	ChildFolders(ctx context.Context, kind Kind, parentID *string) ([]*Folder, error)
	UpdateFolder(ctx context.Context, folder *Folder) error
	SetFolderParent(ctx context.Context, kind Kind, id string, parentID *string) error
	SetFolderItemCount(ctx context.Context, kind Kind, id string, count int64) error
	// DeleteFolders removes the given folders; already-missing ids are not an
	// error so an interrupted cascade can be retried.
	DeleteFolders(ctx context.Context, kind Kind, ids []string) (int64, error)

	CreateItem(ctx context.Context, item *Item) error
	ItemByID(ctx context.Context, kind Kind, id string) (*Item, error)
	ItemsInFolder(ctx context.Context, kind Kind, folderID *string, order ItemOrder) ([]*Item, error)
	CountItemsInFolder(ctx context.Context, kind Kind, folderID string) (int64, error)
	UpdateItem(ctx context.Context, item *Item) error
	SetItemFolder(ctx context.Context, kind Kind, id string, folderID *string) error
	DeleteItem(ctx context.Context, kind Kind, id string) error
	DeleteItemsInFolders(ctx context.Context, kind Kind, folderIDs []string) (int64, error)
	ItemIDsInFolders(ctx context.Context, kind Kind, folderIDs []string) ([]string, error)
}
