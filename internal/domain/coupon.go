package domain

import (
	"context"
	"strings"
	"time"
)

// Discount type constants
const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// Coupon represents an admin-managed discount code. Codes are stored
// uppercase; lookups are case-insensitive via NormalizeCouponCode.
type Coupon struct {
	ID                string     `bson:"_id,omitempty" json:"id"`
	Code              string     `bson:"code" json:"code"`
	DiscountType      string     `bson:"discount_type" json:"discount_type"` // percentage, fixed
	Value             float64    `bson:"value" json:"value"`
	MinOrderValue     float64    `bson:"min_order_value" json:"min_order_value"`
	MaxDiscountAmount *float64   `bson:"max_discount_amount,omitempty" json:"max_discount_amount,omitempty"` // percentage coupons only
	UsageLimit        *int64     `bson:"usage_limit,omitempty" json:"usage_limit,omitempty"`                 // nil = unlimited
	UsedCount         int64      `bson:"used_count" json:"used_count"`
	ExpiryDate        *time.Time `bson:"expiry_date,omitempty" json:"expiry_date,omitempty"`
	IsActive          bool       `bson:"is_active" json:"is_active"`
	CreatedAt         time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `bson:"updated_at" json:"updated_at"`
}

// NormalizeCouponCode uppercases and trims a code for storage and lookup.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks the structural invariants of a coupon definition.
func (c *Coupon) Validate() error {
	if NormalizeCouponCode(c.Code) == "" {
		return ErrInvalidInput
	}
	switch c.DiscountType {
	case DiscountPercentage:
		if c.Value < 0 || c.Value > 100 {
			return ErrInvalidInput
		}
	case DiscountFixed:
		if c.Value < 0 {
			return ErrInvalidInput
		}
	default:
		return ErrInvalidInput
	}
	if c.MinOrderValue < 0 {
		return ErrInvalidInput
	}
	if c.UsageLimit != nil && *c.UsageLimit < 0 {
		return ErrInvalidInput
	}
	return nil
}

// CouponRepository defines storage operations for coupons.
type CouponRepository interface {
	Create(ctx context.Context, coupon *Coupon) error
	GetByCode(ctx context.Context, code string) (*Coupon, error)
	List(ctx context.Context) ([]*Coupon, error)
	Update(ctx context.Context, coupon *Coupon) error
	SetActive(ctx context.Context, id string, active bool) error
	// IncrementUsage atomically bumps used_count, but only while the usage
	// limit (if any) has not been reached. Returns ErrConflict when the
	// coupon is already exhausted.
	IncrementUsage(ctx context.Context, id string) error
}
