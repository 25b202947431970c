package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mansoorceksport/mediakart/internal/domain"
	"github.com/oklog/ulid/v2"
)

// CheckoutResult is returned to the client after pricing a cart. The
// correlation id links the later confirmation back to this checkout.
type CheckoutResult struct {
	CorrelationID string  `json:"correlation_id"`
	OrderToken    string  `json:"order_token"`
	Subtotal      float64 `json:"subtotal"`
	Discount      float64 `json:"discount"`
	Total         float64 `json:"total"`
}

// CheckoutService sequences checkout, payment verification, purchase
// persistence, grant issuance, and coupon accounting.
type CheckoutService struct {
	catalog     *CatalogService
	pricing     *PricingService
	entitlement *EntitlementService
	purchases   domain.PurchaseRepository
	coupons     domain.CouponRepository
	stash       domain.CartStash
	provider    PaymentProvider
	mailer      Mailer
	stashTTL    time.Duration
	currency    string
}

func NewCheckoutService(
	catalog *CatalogService,
	pricing *PricingService,
	entitlement *EntitlementService,
	purchases domain.PurchaseRepository,
	coupons domain.CouponRepository,
	stash domain.CartStash,
	provider PaymentProvider,
	mailer Mailer,
	stashTTL time.Duration,
	currency string,
) *CheckoutService {
	if currency == "" {
		currency = "INR"
	}
	return &CheckoutService{
		catalog:     catalog,
		pricing:     pricing,
		entitlement: entitlement,
		purchases:   purchases,
		coupons:     coupons,
		stash:       stash,
		provider:    provider,
		mailer:      mailer,
		stashTTL:    stashTTL,
		currency:    currency,
	}
}

// Checkout prices the cart server-side, registers the total with the
// payment gateway, and stashes the priced cart under a fresh correlation id
// so the later confirmation can find it. The stash is keyed by correlation
// id, not by user, so concurrent carts from one user coexist.
func (s *CheckoutService) Checkout(ctx context.Context, userID string, lines []domain.CartLine, couponCode string) (*CheckoutResult, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", domain.ErrInvalidInput)
	}

	snapshots, err := s.resolveLines(ctx, lines)
	if err != nil {
		return nil, err
	}
	prices := make([]float64, len(snapshots))
	for i, snap := range snapshots {
		prices[i] = snap.Price
	}

	var coupon *domain.Coupon
	if couponCode != "" {
		subtotal := s.pricing.ComputeTotals(prices, nil).Subtotal
		coupon, err = s.pricing.ValidateCoupon(ctx, couponCode, subtotal)
		if err != nil {
			return nil, err
		}
	}
	totals := s.pricing.ComputeTotals(prices, coupon)

	correlationID := ulid.Make().String()
	orderToken, err := s.provider.CreateOrder(ctx, totals.Total, s.currency, correlationID)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment order: %w", err)
	}

	cart := &domain.StashedCart{
		CorrelationID: correlationID,
		UserID:        userID,
		Lines:         lines,
		Subtotal:      totals.Subtotal,
		Discount:      totals.Discount,
		Total:         totals.Total,
		OrderToken:    orderToken,
		CreatedAt:     time.Now().UTC(),
	}
	if coupon != nil {
		cart.CouponCode = coupon.Code
	}
	if err := s.stash.Put(ctx, cart, s.stashTTL); err != nil {
		return nil, fmt.Errorf("failed to stash cart: %w", err)
	}

	return &CheckoutResult{
		CorrelationID: correlationID,
		OrderToken:    orderToken,
		Subtotal:      totals.Subtotal,
		Discount:      totals.Discount,
		Total:         totals.Total,
	}, nil
}

// ConfirmPayment finishes a checkout. The proof is verified first; the
// stashed cart is then claimed exactly once; line items are re-resolved to
// fresh snapshots so a long checkout window cannot ship stale titles or
// URLs; the purchase is persisted; grants are issued; and finally the
// coupon is accounted. Grant failures are reported alongside the purchase
// but never undo it: money received implies a durable purchase record, and
// grants can be re-run from it. For the same reason, a failure after the
// claim but before the purchase is persisted restores the cart so the
// confirmation can be retried.
func (s *CheckoutService) ConfirmPayment(ctx context.Context, correlationID string, proof PaymentProof) (*domain.Purchase, error) {
	if !s.provider.Verify(proof) {
		return nil, domain.ErrPaymentNotAuthentic
	}

	cart, err := s.stash.Claim(ctx, correlationID)
	if err != nil {
		return nil, err
	}
	if cart.OrderToken != proof.OrderToken {
		s.restash(ctx, cart)
		return nil, domain.ErrPaymentNotAuthentic
	}

	snapshots, err := s.resolveLines(ctx, cart.Lines)
	if err != nil {
		s.restash(ctx, cart)
		return nil, fmt.Errorf("failed to re-resolve cart: %w", err)
	}

	purchase := &domain.Purchase{
		UserID:          cart.UserID,
		Items:           snapshots,
		TotalAmount:     cart.Total,
		DiscountApplied: cart.Discount,
		CouponCode:      cart.CouponCode,
		PaymentID:       proof.PaymentID,
		OrderID:         proof.OrderToken,
	}
	if err := s.purchases.Create(ctx, purchase); err != nil {
		s.restash(ctx, cart)
		return nil, fmt.Errorf("failed to persist purchase: %w", err)
	}

	var grantErrs []error
	for _, line := range purchase.Items {
		if _, err := s.entitlement.GrantForLineItem(ctx, cart.UserID, line, purchase.ID); err != nil {
			log.Printf("[Checkout] Grant failed for purchase=%s %s/%s: %v", purchase.ID, line.Type, line.SourceID, err)
			grantErrs = append(grantErrs, err)
		}
	}

	s.accountCoupon(ctx, cart)
	s.sendReceipt(cart.UserID, purchase)

	// The purchase stands even when some grants failed; the caller gets
	// both so the failure can be surfaced for operator remediation.
	return purchase, errors.Join(grantErrs...)
}

// restash puts a claimed cart back so the confirmation stays retryable. A
// verified payment must never strand the customer with a consumed cart and
// no purchase record. The TTL is whatever was left of the original window,
// with a small floor so a cart claimed right at expiry can still be retried.
func (s *CheckoutService) restash(ctx context.Context, cart *domain.StashedCart) {
	ttl := s.stashTTL - time.Since(cart.CreatedAt)
	if ttl < time.Minute {
		ttl = time.Minute
	}
	if err := s.stash.Put(ctx, cart, ttl); err != nil {
		log.Printf("[Checkout] Failed to restore cart %s after confirm error: %v", cart.CorrelationID, err)
	}
}

// resolveLines reads every cart line fresh from the catalog and snapshots
// title, effective price and media URLs.
func (s *CheckoutService) resolveLines(ctx context.Context, lines []domain.CartLine) ([]domain.PurchaseLineItem, error) {
	snapshots := make([]domain.PurchaseLineItem, 0, len(lines))
	for _, line := range lines {
		switch line.Type {
		case domain.LineItemTypeItem:
			item, err := s.catalog.GetItem(ctx, line.Kind, line.SourceID)
			if err != nil {
				return nil, err
			}
			snapshots = append(snapshots, domain.PurchaseLineItem{
				Type:        domain.LineItemTypeItem,
				Kind:        line.Kind,
				SourceID:    item.ID,
				Title:       item.Title,
				Price:       item.EffectivePrice(),
				PreviewURL:  item.PreviewURL,
				DownloadURL: item.DownloadURL,
			})
		case domain.LineItemTypeFolder:
			folder, err := s.catalog.GetFolder(ctx, line.Kind, line.SourceID)
			if err != nil {
				return nil, err
			}
			if !folder.IsPurchasable {
				return nil, fmt.Errorf("%w: folder %s is not purchasable", domain.ErrInvalidInput, folder.ID)
			}
			snapshots = append(snapshots, domain.PurchaseLineItem{
				Type:     domain.LineItemTypeFolder,
				Kind:     line.Kind,
				SourceID: folder.ID,
				Title:    folder.Name,
				Price:    folder.EffectivePrice(),
			})
		default:
			return nil, fmt.Errorf("%w: unknown line item type %q", domain.ErrInvalidInput, line.Type)
		}
	}
	return snapshots, nil
}

// accountCoupon increments usage only when a coupon actually discounted the
// order. The increment is conditional at the store, so a capped coupon
// cannot be oversold by concurrent confirmations.
func (s *CheckoutService) accountCoupon(ctx context.Context, cart *domain.StashedCart) {
	if cart.CouponCode == "" || cart.Discount <= 0 {
		return
	}
	coupon, err := s.coupons.GetByCode(ctx, cart.CouponCode)
	if err != nil {
		log.Printf("[Checkout] Coupon %s lookup failed during accounting: %v", cart.CouponCode, err)
		return
	}
	if err := s.coupons.IncrementUsage(ctx, coupon.ID); err != nil {
		log.Printf("[Checkout] Coupon %s usage increment failed: %v", cart.CouponCode, err)
	}
}

func (s *CheckoutService) sendReceipt(userID string, purchase *domain.Purchase) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := s.mailer.Send(ctx, userID, "purchase_receipt", map[string]string{
			"purchase_id": purchase.ID,
			"total":       fmt.Sprintf("%.2f", purchase.TotalAmount),
		})
		if err != nil {
			log.Printf("[Checkout] Receipt email failed for purchase=%s: %v", purchase.ID, err)
		}
	}()
}

// ListPurchases returns the user's purchase history, newest first.
func (s *CheckoutService) ListPurchases(ctx context.Context, userID string) ([]*domain.Purchase, error) {
	return s.purchases.ListByUser(ctx, userID)
}
