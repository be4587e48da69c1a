package service

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"storefront/internal/models"
	"storefront/internal/payment"
	"storefront/internal/util"
)

const webhookIdempotencyTTL = 72 * time.Hour

// PaymentService applies payment confirmations to orders
type PaymentService struct {
	orders        OrderLedger
	gateway       payment.Gateway
	publisher     EventPublisher
	idempotency   IdempotencyStore
	trustRedirect bool
	logger        *zap.Logger
}

// NewPaymentService creates a new payment service. When trustRedirect is set
// the browser redirect after payment confirms the order directly, which is
// only meant for local setups that cannot receive webhooks.
func NewPaymentService(
	orders OrderLedger,
	gateway payment.Gateway,
	publisher EventPublisher,
	idempotency IdempotencyStore,
	trustRedirect bool,
) *PaymentService {
	return &PaymentService{
		orders:        orders,
		gateway:       gateway,
		publisher:     publisher,
		idempotency:   idempotency,
		trustRedirect: trustRedirect,
		logger:        util.GetLogger(),
	}
}

// HandleWebhook verifies and applies a provider notification. Only a
// verification failure returns an error; every verified event is
// acknowledged, including ones that reference unknown orders.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ctx, span := util.StartSpan(ctx, "PaymentService.HandleWebhook")
	defer span.End()

	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		util.WebhookEventsTotal.WithLabelValues("unknown", "rejected").Inc()
		util.RecordError(span, err)
		s.logger.Warn("Rejected webhook", zap.Error(err))
		return err
	}

	span.SetAttributes(attribute.String("event_type", event.Type), attribute.String("event_id", event.ID))

	if event.Type != payment.EventPaymentSucceeded {
		util.WebhookEventsTotal.WithLabelValues(event.Type, "ignored").Inc()
		s.logger.Debug("Ignoring webhook event", zap.String("type", event.Type), zap.String("event_id", event.ID))
		return nil
	}

	outcome := s.handlePaymentSucceeded(ctx, event)
	util.WebhookEventsTotal.WithLabelValues(event.Type, outcome).Inc()
	return nil
}

func (s *PaymentService) handlePaymentSucceeded(ctx context.Context, event *payment.WebhookEvent) string {
	logger := s.logger.With(zap.String("event_id", event.ID), zap.String("payment_reference", event.IntentID))

	orderID, err := strconv.ParseInt(event.Metadata["order_id"], 10, 64)
	if err != nil || orderID <= 0 {
		logger.Warn("Payment succeeded without a usable order_id", zap.String("order_id", event.Metadata["order_id"]))
		return "no_order"
	}
	logger = logger.With(zap.Int64("order_id", orderID))

	key := "stripe:" + event.ID
	claimed := false
	if s.idempotency != nil && event.ID != "" {
		ok, err := s.idempotency.ClaimIdempotencyKey(ctx, key, webhookIdempotencyTTL)
		if err != nil {
			logger.Warn("Idempotency check failed, relying on the order transition", zap.Error(err))
		} else if !ok {
			logger.Info("Duplicate webhook delivery")
			return "duplicate"
		} else {
			claimed = true
		}
	}

	order, changed, err := s.orders.ConfirmOrder(ctx, orderID, event.IntentID)
	if err != nil {
		if claimed {
			if relErr := s.idempotency.ReleaseIdempotencyKey(ctx, key); relErr != nil {
				logger.Warn("Failed to release idempotency key", zap.Error(relErr))
			}
		}
		if isNotFound(err) {
			logger.Warn("Payment succeeded for unknown order")
			return "unknown_order"
		}
		logger.Error("Failed to confirm order", zap.Error(err))
		return "error"
	}

	if !changed {
		logger.Info("Order already past pending", zap.String("status", order.Status))
		return "unchanged"
	}

	util.OrdersConfirmedTotal.WithLabelValues("webhook").Inc()
	logger.Info("Order confirmed")
	s.publishConfirmed(ctx, order)
	return "confirmed"
}

func (s *PaymentService) publishConfirmed(ctx context.Context, order *models.Order) {
	if err := s.publisher.PublishOrderConfirmed(ctx, order); err != nil {
		s.logger.Error("Failed to publish OrderConfirmed event", zap.Int64("order_id", order.ID), zap.Error(err))
	}
}

// ConfirmFromRedirect serves the page the customer lands on after paying.
// It returns the caller's order as it stands; the webhook is what confirms
// it. With trustRedirect set the order is confirmed here instead.
func (s *PaymentService) ConfirmFromRedirect(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.ConfirmFromRedirect", attribute.Int64("order_id", orderID))
	defer span.End()

	order, err := s.orders.GetOrderForUser(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if !s.trustRedirect || order.Status != models.OrderStatusPending {
		return order, nil
	}

	confirmed, changed, err := s.orders.ConfirmOrder(ctx, orderID, "")
	if err != nil {
		util.RecordError(span, err)
		return nil, err
	}
	if changed {
		util.OrdersConfirmedTotal.WithLabelValues("redirect").Inc()
		s.logger.Info("Order confirmed from redirect", zap.Int64("order_id", orderID))
		s.publishConfirmed(ctx, confirmed)
	}
	return confirmed, nil
}
