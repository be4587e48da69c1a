// Package payment adapts the external payment provider.
package payment

import (
	"context"
	"errors"
)

var (
	ErrInvalidPayload   = errors.New("invalid payload")
	ErrInvalidSignature = errors.New("invalid signature")
)

// EventPaymentSucceeded is the only webhook event type that changes state
const EventPaymentSucceeded = "payment_intent.succeeded"

// IntentRequest asks the provider to start collecting a payment
type IntentRequest struct {
	AmountMinor int64
	Currency    string
	Metadata    map[string]string
}

// Intent is an open payment at the provider
type Intent struct {
	ID           string
	ClientSecret string
}

// WebhookEvent is a verified provider notification
type WebhookEvent struct {
	ID       string
	Type     string
	IntentID string
	Metadata map[string]string
}

// Gateway is what the checkout and payment services need from a provider
type Gateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}
