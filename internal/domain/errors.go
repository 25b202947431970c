package domain

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrNotFound            = errors.New("record not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidMove         = errors.New("invalid folder move")
	ErrConflict            = errors.New("conflicting concurrent write")
	ErrPaymentNotAuthentic = errors.New("payment proof failed verification")
	ErrStaleCart           = errors.New("checkout session expired or already confirmed")
)

// Coupon rejection reasons, in the order they are checked.
const (
	CouponNotFound          = "not_found"
	CouponInactive          = "inactive"
	CouponExpired           = "expired"
	CouponUsageLimitReached = "usage_limit_reached"
	CouponBelowMinOrder     = "below_min_order"
)

// CouponError carries the first failing eligibility check for a coupon code.
type CouponError struct {
	Code    string
	Message string
}

func (e *CouponError) Error() string {
	return fmt.Sprintf("coupon rejected (%s): %s", e.Code, e.Message)
}

// AsCouponError unwraps err into a *CouponError if it is one.
func AsCouponError(err error) (*CouponError, bool) {
	var ce *CouponError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
