package domain

import (
	"testing"
)

func TestNormalizeCouponCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"save10", "SAVE10"},
		{"  Save10 ", "SAVE10"},
		{"FLAT500", "FLAT500"},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := NormalizeCouponCode(tt.in); got != tt.want {
			t.Errorf("NormalizeCouponCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCouponValidate(t *testing.T) {
	limit := int64(5)
	negLimit := int64(-1)

	tests := []struct {
		name    string
		coupon  Coupon
		wantErr bool
	}{
		{
			name:   "valid percentage",
			coupon: Coupon{Code: "SAVE10", DiscountType: DiscountPercentage, Value: 10},
		},
		{
			name:   "valid fixed with limit",
			coupon: Coupon{Code: "FLAT500", DiscountType: DiscountFixed, Value: 500, UsageLimit: &limit},
		},
		{
			name:    "empty code",
			coupon:  Coupon{Code: "  ", DiscountType: DiscountFixed, Value: 10},
			wantErr: true,
		},
		{
			name:    "unknown discount type",
			coupon:  Coupon{Code: "X", DiscountType: "bogus", Value: 10},
			wantErr: true,
		},
		{
			name:    "percentage above 100",
			coupon:  Coupon{Code: "X", DiscountType: DiscountPercentage, Value: 101},
			wantErr: true,
		},
		{
			name:    "negative fixed value",
			coupon:  Coupon{Code: "X", DiscountType: DiscountFixed, Value: -1},
			wantErr: true,
		},
		{
			name:    "negative min order",
			coupon:  Coupon{Code: "X", DiscountType: DiscountFixed, Value: 1, MinOrderValue: -5},
			wantErr: true,
		},
		{
			name:    "negative usage limit",
			coupon:  Coupon{Code: "X", DiscountType: DiscountFixed, Value: 1, UsageLimit: &negLimit},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.coupon.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
