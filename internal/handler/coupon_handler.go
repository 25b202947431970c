package handler

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/mediakart/internal/domain"
	"github.com/mansoorceksport/mediakart/internal/service"
)

// CouponHandler handles coupon administration and customer-side validation
type CouponHandler struct {
	coupons domain.CouponRepository
	pricing *service.PricingService
}

// NewCouponHandler creates a new CouponHandler
func NewCouponHandler(coupons domain.CouponRepository, pricing *service.PricingService) *CouponHandler {
	return &CouponHandler{coupons: coupons, pricing: pricing}
}

// CreateCouponRequest represents the request body for coupon creation
type CreateCouponRequest struct {
	Code              string     `json:"code"`
	DiscountType      string     `json:"discount_type"` // percentage, fixed
	Value             float64    `json:"value"`
	MinOrderValue     float64    `json:"min_order_value"`
	MaxDiscountAmount *float64   `json:"max_discount_amount"`
	UsageLimit        *int64     `json:"usage_limit"`
	ExpiryDate        *time.Time `json:"expiry_date"`
	IsActive          bool       `json:"is_active"`
}

// Create handles POST /v1/admin/coupons
func (h *CouponHandler) Create(c *fiber.Ctx) error {
	var req CreateCouponRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid request body",
		})
	}

	coupon := &domain.Coupon{
		Code:              domain.NormalizeCouponCode(req.Code),
		DiscountType:      req.DiscountType,
		Value:             req.Value,
		MinOrderValue:     req.MinOrderValue,
		MaxDiscountAmount: req.MaxDiscountAmount,
		UsageLimit:        req.UsageLimit,
		ExpiryDate:        req.ExpiryDate,
		IsActive:          req.IsActive,
	}
	if err := coupon.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid coupon definition",
		})
	}

	if err := h.coupons.Create(c.UserContext(), coupon); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"success": false,
				"error":   "coupon code already exists",
			})
		}
		log.Printf("[CreateCoupon] %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "failed to create coupon",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    coupon,
	})
}

// List handles GET /v1/admin/coupons
func (h *CouponHandler) List(c *fiber.Ctx) error {
	coupons, err := h.coupons.List(c.UserContext())
	if err != nil {
		log.Printf("[ListCoupons] %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "failed to list coupons",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    coupons,
	})
}

// UpdateCouponRequest represents a partial coupon update by code
type UpdateCouponRequest struct {
	Value             *float64   `json:"value"`
	MinOrderValue     *float64   `json:"min_order_value"`
	MaxDiscountAmount *float64   `json:"max_discount_amount"`
	UsageLimit        *int64     `json:"usage_limit"`
	ExpiryDate        *time.Time `json:"expiry_date"`
}

// Update handles PUT /v1/admin/coupons/:code
func (h *CouponHandler) Update(c *fiber.Ctx) error {
	ctx := c.UserContext()

	coupon, err := h.coupons.GetByCode(ctx, c.Params("code"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"error":   "coupon not found",
			})
		}
		log.Printf("[UpdateCoupon] %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "failed to fetch coupon",
		})
	}

	var req UpdateCouponRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid request body",
		})
	}

	if req.Value != nil {
		coupon.Value = *req.Value
	}
	if req.MinOrderValue != nil {
		coupon.MinOrderValue = *req.MinOrderValue
	}
	if req.MaxDiscountAmount != nil {
		coupon.MaxDiscountAmount = req.MaxDiscountAmount
	}
	if req.UsageLimit != nil {
		coupon.UsageLimit = req.UsageLimit
	}
	if req.ExpiryDate != nil {
		coupon.ExpiryDate = req.ExpiryDate
	}

	if err := coupon.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid coupon definition",
		})
	}

	if err := h.coupons.Update(ctx, coupon); err != nil {
		log.Printf("[UpdateCoupon] %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "failed to update coupon",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    coupon,
	})
}

// SetActive handles PUT /v1/admin/coupons/:id/activate and
// PUT /v1/admin/coupons/:id/deactivate
func (h *CouponHandler) SetActive(active bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := h.coupons.SetActive(c.UserContext(), c.Params("id"), active); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"success": false,
					"error":   "coupon not found",
				})
			}
			log.Printf("[SetCouponActive] %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"error":   "failed to update coupon",
			})
		}

		return c.JSON(fiber.Map{
			"success": true,
		})
	}
}

// ValidateCouponRequest represents the customer-side validation request
type ValidateCouponRequest struct {
	Code       string  `json:"code"`
	OrderValue float64 `json:"order_value"`
}

// Validate handles POST /v1/coupons/validate
// Checks a code against an order value and returns the discount it would
// produce. Rejections carry a machine-readable reason code.
func (h *CouponHandler) Validate(c *fiber.Ctx) error {
	var req ValidateCouponRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid request body",
		})
	}

	coupon, err := h.pricing.ValidateCoupon(c.UserContext(), req.Code, req.OrderValue)
	if err != nil {
		if cerr, ok := domain.AsCouponError(err); ok {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"success": false,
				"error":   cerr.Message,
				"code":    cerr.Code,
			})
		}
		log.Printf("[ValidateCoupon] %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "failed to validate coupon",
		})
	}

	totals := h.pricing.ComputeTotals([]float64{req.OrderValue}, coupon)
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"code":     coupon.Code,
			"discount": totals.Discount,
			"total":    totals.Total,
		},
	})
}
