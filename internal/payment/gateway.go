package payment

import (
	"context"
	"errors"
)

// ErrInvalidSignature is returned when a webhook body does not match its signature header.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Event types handled by the payment service.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventCheckoutExpired     = "checkout.session.expired"
	EventPaymentIntentFailed = "payment_intent.payment_failed"
)

type CheckoutRequest struct {
	ProductName   string
	AmountCents   int64
	Currency      string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// WebhookEvent is the provider-neutral part of a webhook notification the
// service acts on.
type WebhookEvent struct {
	ID              string
	Type            string
	SessionID       string
	PaymentIntentID string
	AmountTotal     int64
	Currency        string
	Metadata        map[string]string
}

// Gateway creates hosted checkout sessions and authenticates webhooks.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}
