package handler

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/mediakart/internal/domain"
	"github.com/mansoorceksport/mediakart/internal/middleware"
	"github.com/mansoorceksport/mediakart/internal/service"
)

// CheckoutHandler handles the purchase flow: pricing a cart into a pending
// order, and confirming it once the gateway reports payment
type CheckoutHandler struct {
	checkout *service.CheckoutService
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(checkout *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

// CheckoutRequest represents the request body for checkout
type CheckoutRequest struct {
	Lines      []domain.CartLine `json:"lines"`
	CouponCode string            `json:"coupon_code"`
}

// Checkout handles POST /v1/checkout
// Prices the cart, registers an order with the payment gateway, and stashes
// the priced cart until the customer confirms payment.
func (h *CheckoutHandler) Checkout(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "unauthorized",
		})
	}

	var req CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid request body",
		})
	}
	if len(req.Lines) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "cart is empty",
		})
	}

	result, err := h.checkout.Checkout(c.UserContext(), userID, req.Lines, req.CouponCode)
	if err != nil {
		if cerr, ok := domain.AsCouponError(err); ok {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"success": false,
				"error":   cerr.Message,
				"code":    cerr.Code,
			})
		}
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"error":   "cart references unknown catalog entries",
			})
		case errors.Is(err, domain.ErrInvalidInput):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		}
		log.Printf("[Checkout] %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "checkout failed, please try again later",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    result,
	})
}

// ConfirmRequest represents the payment confirmation callback body
type ConfirmRequest struct {
	CorrelationID string `json:"correlation_id"`
	OrderToken    string `json:"order_token"`
	PaymentID     string `json:"payment_id"`
	Signature     string `json:"signature"`
}

// Confirm handles POST /v1/checkout/confirm
// Verifies the payment proof, claims the stashed cart exactly once, records
// the purchase, and issues access grants.
func (h *CheckoutHandler) Confirm(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "unauthorized",
		})
	}

	var req ConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid request body",
		})
	}
	if req.CorrelationID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "correlation_id is required",
		})
	}

	purchase, err := h.checkout.ConfirmPayment(c.UserContext(), req.CorrelationID, service.PaymentProof{
		OrderToken: req.OrderToken,
		PaymentID:  req.PaymentID,
		Signature:  req.Signature,
	})

	// The purchase is durable even when some grants failed. Surface it as a
	// success and leave the failures to the logs and a later re-grant.
	if purchase != nil {
		if err != nil {
			log.Printf("[Confirm] Purchase %s recorded with grant failures: %v", purchase.ID, err)
		}
		return c.JSON(fiber.Map{
			"success": true,
			"data":    purchase,
		})
	}

	switch {
	case errors.Is(err, domain.ErrPaymentNotAuthentic):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "payment verification failed",
		})
	case errors.Is(err, domain.ErrStaleCart):
		return c.Status(fiber.StatusGone).JSON(fiber.Map{
			"success": false,
			"error":   "checkout session expired or already confirmed",
		})
	}
	log.Printf("[Confirm] %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"error":   "failed to confirm payment",
	})
}

// ListPurchases handles GET /v1/purchases
// Returns the caller's purchase history, newest first
func (h *CheckoutHandler) ListPurchases(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "unauthorized",
		})
	}

	purchases, err := h.checkout.ListPurchases(c.UserContext(), userID)
	if err != nil {
		log.Printf("[ListPurchases] %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "failed to fetch purchases",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    purchases,
	})
}
