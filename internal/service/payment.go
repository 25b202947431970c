package service

import (
	"context"
	"log"

	"github.com/mansoorceksport/mediakart/internal/config"
	"github.com/mansoorceksport/mediakart/internal/infrastructure/razorpay"
	"github.com/oklog/ulid/v2"
)

// PaymentProof carries the fields a client presents after paying. The core
// never interprets the signature itself; verification is delegated to the
// gateway's scheme.
type PaymentProof struct {
	OrderToken string `json:"order_token"`
	PaymentID  string `json:"payment_id"`
	Signature  string `json:"signature"`
}

// PaymentProvider defines the interface for payment gateway integrations
type PaymentProvider interface {
	// CreateOrder registers the server-computed amount with the gateway and
	// returns an opaque order token.
	CreateOrder(ctx context.Context, amount float64, currency, receipt string) (string, error)
	// Verify reports whether the proof is authentic for its order token.
	Verify(proof PaymentProof) bool
}

// MockPaymentProvider is used in development when no gateway credentials
// are configured. Any proof whose signature equals "mock" verifies.
type MockPaymentProvider struct{}

// RazorpayAdapter adapts the razorpay.Client to PaymentProvider
type RazorpayAdapter struct {
	client *razorpay.Client
}

// NewPaymentProvider returns the gateway-backed provider, or the mock when
// credentials are not configured.
func NewPaymentProvider(cfg config.RazorpayConfig) PaymentProvider {
	if cfg.KeyID == "" || cfg.KeySecret == "" {
		log.Println("[Payment] Using mock payment provider (no credentials configured)")
		return &MockPaymentProvider{}
	}

	log.Printf("[Payment] Using Razorpay client (base: %s)", cfg.BaseURL)
	return &RazorpayAdapter{client: razorpay.NewClient(razorpay.Config{
		KeyID:     cfg.KeyID,
		KeySecret: cfg.KeySecret,
		BaseURL:   cfg.BaseURL,
	})}
}

func (m *MockPaymentProvider) CreateOrder(ctx context.Context, amount float64, currency, receipt string) (string, error) {
	return "order_MOCK" + ulid.Make().String(), nil
}

func (m *MockPaymentProvider) Verify(proof PaymentProof) bool {
	return proof.Signature == "mock"
}

func (a *RazorpayAdapter) CreateOrder(ctx context.Context, amount float64, currency, receipt string) (string, error) {
	order, err := a.client.CreateOrder(ctx, amount, currency, receipt)
	if err != nil {
		log.Printf("[Payment] Razorpay order creation failed: %v", err)
		return "", err
	}
	return order.ID, nil
}

func (a *RazorpayAdapter) Verify(proof PaymentProof) bool {
	return a.client.VerifyPaymentSignature(proof.OrderToken, proof.PaymentID, proof.Signature)
}
