package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"

	"storefront/internal/util"
)

// StripeGateway creates PaymentIntents and verifies Stripe webhooks
type StripeGateway struct {
	api           *client.API
	webhookSecret string
	logger        *zap.Logger
}

// StripeOptions configures the Stripe client. APIURL is only set in tests.
type StripeOptions struct {
	SecretKey         string
	WebhookSecret     string
	APIURL            string
	MaxNetworkRetries int64
}

func NewStripeGateway(opts StripeOptions) *StripeGateway {
	logger := util.GetLogger()

	backendCfg := &stripe.BackendConfig{
		LeveledLogger:     logger.Named("stripe").Sugar(),
		MaxNetworkRetries: stripe.Int64(opts.MaxNetworkRetries),
	}
	if opts.APIURL != "" {
		backendCfg.URL = stripe.String(opts.APIURL)
	}

	return &StripeGateway{
		api:           client.New(opts.SecretKey, stripe.NewBackendsWithConfig(backendCfg)),
		webhookSecret: opts.WebhookSecret,
		logger:        logger,
	}
}

// CreateIntent creates a PaymentIntent for the given amount in minor units
func (g *StripeGateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	ctx, span := util.StartSpan(ctx, "StripeGateway.CreateIntent")
	defer span.End()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountMinor),
		Currency: stripe.String(strings.ToLower(req.Currency)),
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	start := time.Now()
	pi, err := g.api.PaymentIntents.New(params)
	util.PaymentIntentLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		util.PaymentIntentFailedTotal.Inc()
		util.RecordError(span, err)

		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			g.logger.Warn("Stripe rejected payment intent",
				zap.Int("http_status", stripeErr.HTTPStatusCode),
				zap.String("code", string(stripeErr.Code)),
				zap.String("message", stripeErr.Msg))
		}
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return &Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event.
// Only payment intent events carry an intent id and metadata.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	if !json.Valid(payload) {
		return nil, ErrInvalidPayload
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		if errors.Is(err, webhook.ErrNotSigned) || errors.Is(err, webhook.ErrNoValidSignature) ||
			errors.Is(err, webhook.ErrInvalidHeader) || errors.Is(err, webhook.ErrTooOld) {
			return nil, ErrInvalidSignature
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	out := &WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if strings.HasPrefix(out.Type, "payment_intent.") && event.Data != nil {
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		out.IntentID = pi.ID
		out.Metadata = pi.Metadata
	}
	return out, nil
}
