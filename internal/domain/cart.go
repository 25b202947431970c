package domain

import (
	"context"
	"time"
)

// CartLine is one catalog reference in a customer's cart: either an item or
// a purchasable folder of some kind.
type CartLine struct {
	Type     string `json:"type"` // item, folder
	Kind     Kind   `json:"kind"`
	SourceID string `json:"source_id"`
}

// StashedCart is a priced checkout awaiting payment confirmation. It is
// keyed by a short-lived correlation id, not by the user alone, so a user
// can run concurrent checkouts from multiple devices.
type StashedCart struct {
	CorrelationID string     `json:"correlation_id"`
	UserID        string     `json:"user_id"`
	Lines         []CartLine `json:"lines"`
	CouponCode    string     `json:"coupon_code,omitempty"`
	Subtotal      float64    `json:"subtotal"`
	Discount      float64    `json:"discount"`
	Total         float64    `json:"total"`
	OrderToken    string     `json:"order_token"`
	CreatedAt     time.Time  `json:"created_at"`
}

// CartStash stores priced carts between checkout and confirmation. Entries
// expire lazily; Claim removes the entry atomically so a correlation id can
// be confirmed at most once.
type CartStash interface {
	Put(ctx context.Context, cart *StashedCart, ttl time.Duration) error
	// Claim returns the stashed cart and deletes it in one step. A missing
	// entry (expired or already confirmed) yields ErrStaleCart.
	Claim(ctx context.Context, correlationID string) (*StashedCart, error)
}
