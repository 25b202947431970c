package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mansoorceksport/mediakart/internal/domain"
)

// Totals is the result of pricing a cart.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Discount float64 `json:"discount"`
	Total    float64 `json:"total"`
}

// PricingService computes cart totals and validates coupon eligibility.
type PricingService struct {
	couponRepo domain.CouponRepository
}

func NewPricingService(couponRepo domain.CouponRepository) *PricingService {
	return &PricingService{couponRepo: couponRepo}
}

// ComputeTotals prices a cart from already-resolved effective line prices.
// The coupon, when present, must have been validated by ValidateCoupon;
// this function trusts it. The total never goes negative: fixed discounts
// are clamped to the subtotal, percentage discounts to MaxDiscountAmount.
func (s *PricingService) ComputeTotals(prices []float64, coupon *domain.Coupon) Totals {
	var subtotal float64
	for _, p := range prices {
		subtotal += p
	}

	var discount float64
	if coupon != nil {
		switch coupon.DiscountType {
		case domain.DiscountPercentage:
			discount = subtotal * coupon.Value / 100
			if coupon.MaxDiscountAmount != nil && discount > *coupon.MaxDiscountAmount {
				discount = *coupon.MaxDiscountAmount
			}
		case domain.DiscountFixed:
			discount = math.Min(coupon.Value, subtotal)
		}
	}

	total := round2(subtotal - discount)
	if total < 0 {
		total = 0
	}
	return Totals{
		Subtotal: round2(subtotal),
		Discount: round2(discount),
		Total:    total,
	}
}

// ValidateCoupon checks a code against the order value. Checks run in a
// fixed order and the first failure wins: existence, active flag, expiry,
// usage limit, minimum order value. The minimum-order check runs last
// because it is the only one depending on caller input.
func (s *PricingService) ValidateCoupon(ctx context.Context, code string, orderValue float64) (*domain.Coupon, error) {
	coupon, err := s.couponRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.CouponError{Code: domain.CouponNotFound, Message: "coupon code does not exist"}
		}
		return nil, err
	}

	if !coupon.IsActive {
		return nil, &domain.CouponError{Code: domain.CouponInactive, Message: "coupon is not active"}
	}
	if coupon.ExpiryDate != nil && time.Now().UTC().After(*coupon.ExpiryDate) {
		return nil, &domain.CouponError{Code: domain.CouponExpired, Message: "coupon has expired"}
	}
	if coupon.UsageLimit != nil && coupon.UsedCount >= *coupon.UsageLimit {
		return nil, &domain.CouponError{Code: domain.CouponUsageLimitReached, Message: "coupon usage limit reached"}
	}
	if orderValue < coupon.MinOrderValue {
		return nil, &domain.CouponError{
			Code:    domain.CouponBelowMinOrder,
			Message: fmt.Sprintf("order value must be at least %.2f", coupon.MinOrderValue),
		}
	}
	return coupon, nil
}

// round2 rounds to 2 decimal places, half away from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
