package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"storefront/internal/models"
	"storefront/internal/util"
)

// EventPublisher handles publishing order lifecycle events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func orderKey(orderID int64) string {
	return fmt.Sprintf("order-%d", orderID)
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

func reference(order *models.Order) string {
	if order.PaymentReference == nil {
		return ""
	}
	return *order.PaymentReference
}

// PublishOrderCreated publishes ORDER_CREATED for an order awaiting payment
func (ep *EventPublisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	event := &models.OrderCreatedEvent{
		BaseEvent:        newBaseEvent(models.EventTypeOrderCreated),
		OrderID:          order.ID,
		UserID:           order.UserID,
		TotalPrice:       order.TotalPrice,
		PaymentReference: reference(order),
		Items:            models.ItemData(order.Items),
	}
	return ep.producer.PublishEvent(ctx, orderKey(order.ID), event)
}

// PublishOrderConfirmed publishes ORDER_CONFIRMED once payment is confirmed
func (ep *EventPublisher) PublishOrderConfirmed(ctx context.Context, order *models.Order) error {
	event := &models.OrderConfirmedEvent{
		BaseEvent:        newBaseEvent(models.EventTypeOrderConfirmed),
		OrderID:          order.ID,
		UserID:           order.UserID,
		TotalPrice:       order.TotalPrice,
		PaymentReference: reference(order),
		Items:            models.ItemData(order.Items),
	}
	return ep.producer.PublishEvent(ctx, orderKey(order.ID), event)
}

// ErrMalformedEvent marks a message that can never be decoded. Consumers
// commit past it instead of retrying.
var ErrMalformedEvent = errors.New("malformed event")

// EventHandler handles incoming events
type EventHandler struct {
	onOrderCreated   func(context.Context, *models.OrderCreatedEvent) error
	onOrderConfirmed func(context.Context, *models.OrderConfirmedEvent) error
	logger           *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnOrderCreated registers a handler for ORDER_CREATED events
func (eh *EventHandler) OnOrderCreated(handler func(context.Context, *models.OrderCreatedEvent) error) {
	eh.onOrderCreated = handler
}

// OnOrderConfirmed registers a handler for ORDER_CONFIRMED events
func (eh *EventHandler) OnOrderConfirmed(handler func(context.Context, *models.OrderConfirmedEvent) error) {
	eh.onOrderConfirmed = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("%w: base event: %v", ErrMalformedEvent, err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeOrderCreated:
		if eh.onOrderCreated != nil {
			var event models.OrderCreatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("%w: OrderCreated event: %v", ErrMalformedEvent, err)
			}
			return eh.onOrderCreated(ctx, &event)
		}

	case models.EventTypeOrderConfirmed:
		if eh.onOrderConfirmed != nil {
			var event models.OrderConfirmedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("%w: OrderConfirmed event: %v", ErrMalformedEvent, err)
			}
			return eh.onOrderConfirmed(ctx, &event)
		}

	default:
		eh.logger.Warn("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
