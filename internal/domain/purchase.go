package domain

import (
	"context"
	"time"
)

// Line item target types
const (
	LineItemTypeItem   = "item"
	LineItemTypeFolder = "folder"
)

// PurchaseLineItem is an immutable snapshot of one charged catalog
// reference. Titles, prices and media URLs are copied at confirmation time,
// never resolved live, so later catalog edits cannot change what the buyer
// sees as "what they bought".
type PurchaseLineItem struct {
	Type        string  `bson:"type" json:"type"` // item, folder
	Kind        Kind    `bson:"kind" json:"kind"`
	SourceID    string  `bson:"source_id" json:"source_id"`
	Title       string  `bson:"title" json:"title"`
	Price       float64 `bson:"price" json:"price"`
	PreviewURL  string  `bson:"preview_url,omitempty" json:"preview_url,omitempty"`
	DownloadURL string  `bson:"download_url,omitempty" json:"download_url,omitempty"`
}

// Purchase is the durable record of a confirmed payment. It is written
// exactly once and never mutated afterward.
type Purchase struct {
	ID              string             `bson:"_id,omitempty" json:"id"`
	UserID          string             `bson:"user_id" json:"user_id"`
	Items           []PurchaseLineItem `bson:"items" json:"items"`
	TotalAmount     float64            `bson:"total_amount" json:"total_amount"`
	DiscountApplied float64            `bson:"discount_applied" json:"discount_applied"`
	CouponCode      string             `bson:"coupon_code,omitempty" json:"coupon_code,omitempty"`
	PaymentID       string             `bson:"payment_id" json:"payment_id"`
	OrderID         string             `bson:"order_id" json:"order_id"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
}

// PurchaseRepository defines storage operations for purchases.
type PurchaseRepository interface {
	Create(ctx context.Context, purchase *Purchase) error
	GetByID(ctx context.Context, id string) (*Purchase, error)
	ListByUser(ctx context.Context, userID string) ([]*Purchase, error) // newest first
}
