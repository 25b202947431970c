package service

import (
	"context"
	"testing"
	"time"

	"github.com/mansoorceksport/mediakart/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTotalsNoCoupon(t *testing.T) {
	svc := NewPricingService(newFakeCouponRepo())

	totals := svc.ComputeTotals([]float64{199.99, 300.01, 500}, nil)
	assert.Equal(t, 1000.0, totals.Subtotal)
	assert.Equal(t, 0.0, totals.Discount)
	assert.Equal(t, 1000.0, totals.Total)
}

func TestComputeTotalsPercentageCapped(t *testing.T) {
	svc := NewPricingService(newFakeCouponRepo())

	// 10% of 1000 is 100, capped at 50
	coupon := &domain.Coupon{
		Code:              "SAVE10",
		DiscountType:      domain.DiscountPercentage,
		Value:             10,
		MaxDiscountAmount: f64Ptr(50),
	}
	totals := svc.ComputeTotals([]float64{1000}, coupon)
	assert.Equal(t, 50.0, totals.Discount)
	assert.Equal(t, 950.0, totals.Total)

	// without the cap the full 10% applies
	coupon.MaxDiscountAmount = nil
	totals = svc.ComputeTotals([]float64{1000}, coupon)
	assert.Equal(t, 100.0, totals.Discount)
	assert.Equal(t, 900.0, totals.Total)
}

func TestComputeTotalsFixedClampedToSubtotal(t *testing.T) {
	svc := NewPricingService(newFakeCouponRepo())

	coupon := &domain.Coupon{
		Code:         "FLAT500",
		DiscountType: domain.DiscountFixed,
		Value:        500,
	}
	totals := svc.ComputeTotals([]float64{300}, coupon)
	assert.Equal(t, 300.0, totals.Discount)
	assert.Equal(t, 0.0, totals.Total)
}

func TestComputeTotalsRounding(t *testing.T) {
	svc := NewPricingService(newFakeCouponRepo())

	coupon := &domain.Coupon{
		Code:         "THIRD",
		DiscountType: domain.DiscountPercentage,
		Value:        33.33,
	}
	totals := svc.ComputeTotals([]float64{10.01, 19.99}, coupon)
	assert.Equal(t, 30.0, totals.Subtotal)
	assert.Equal(t, 10.0, totals.Discount) // 9.999 rounds half away from zero
	assert.Equal(t, 20.0, totals.Total)
	assert.GreaterOrEqual(t, totals.Total, 0.0)
}

func TestValidateCouponOrder(t *testing.T) {
	repo := newFakeCouponRepo()
	svc := NewPricingService(repo)
	ctx := context.Background()

	expired := time.Now().UTC().Add(-time.Hour)
	exhausted := int64(3)

	// A coupon failing every check at once: the earliest check must win.
	require.NoError(t, repo.Create(ctx, &domain.Coupon{
		Code:          "dead",
		DiscountType:  domain.DiscountFixed,
		Value:         10,
		MinOrderValue: 100,
		UsageLimit:    &exhausted,
		UsedCount:     3,
		ExpiryDate:    &expired,
		IsActive:      false,
	}))

	tests := []struct {
		name       string
		setup      func(c *domain.Coupon)
		wantReason string
	}{
		{"unknown code wins over everything", nil, domain.CouponNotFound},
		{"inactive before expiry", func(c *domain.Coupon) {}, domain.CouponInactive},
		{"expired before usage limit", func(c *domain.Coupon) { c.IsActive = true }, domain.CouponExpired},
		{"usage limit before min order", func(c *domain.Coupon) {
			c.IsActive = true
			c.ExpiryDate = nil
		}, domain.CouponUsageLimitReached},
		{"min order last", func(c *domain.Coupon) {
			c.IsActive = true
			c.ExpiryDate = nil
			c.UsedCount = 0
		}, domain.CouponBelowMinOrder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := "DEAD"
			if tt.setup == nil {
				code = "NOSUCH"
			} else {
				coupon, err := repo.GetByCode(ctx, "DEAD")
				require.NoError(t, err)
				tt.setup(coupon)
				require.NoError(t, repo.Update(ctx, coupon))
			}

			_, err := svc.ValidateCoupon(ctx, code, 50)
			cerr, ok := domain.AsCouponError(err)
			require.True(t, ok, "expected a coupon rejection, got %v", err)
			assert.Equal(t, tt.wantReason, cerr.Code)
		})
	}
}

func TestValidateCouponAccepts(t *testing.T) {
	repo := newFakeCouponRepo()
	svc := NewPricingService(repo)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.Coupon{
		Code:          "save10",
		DiscountType:  domain.DiscountPercentage,
		Value:         10,
		MinOrderValue: 100,
		IsActive:      true,
	}))

	// lookup is case-insensitive
	coupon, err := svc.ValidateCoupon(ctx, "  save10 ", 100)
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", coupon.Code)

	_, err = svc.ValidateCoupon(ctx, "SAVE10", 99.99)
	cerr, ok := domain.AsCouponError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CouponBelowMinOrder, cerr.Code)
}
