package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storefront/internal/models"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func testOrder() *models.Order {
	ref := "pi_1"
	return &models.Order{
		ID:               7,
		UserID:           3,
		TotalPrice:       decimal.RequireFromString("25.50"),
		Status:           models.OrderStatusConfirmed,
		PaymentReference: &ref,
		Items: []models.OrderItem{
			{ProductID: 1, Price: decimal.RequireFromString("10.00"), Quantity: 2},
			{ProductID: 2, Price: decimal.RequireFromString("5.50"), Quantity: 1},
		},
	}
}

func TestPublishOrderConfirmed(t *testing.T) {
	w := &recordingWriter{}
	pub := NewEventPublisher(&Producer{writer: w, logger: zap.NewNop()})

	require.NoError(t, pub.PublishOrderConfirmed(context.Background(), testOrder()))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "order-7", string(w.msgs[0].Key))

	var event models.OrderConfirmedEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &event))
	assert.Equal(t, models.EventTypeOrderConfirmed, event.EventType)
	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, int64(7), event.OrderID)
	assert.Equal(t, "pi_1", event.PaymentReference)
	assert.True(t, event.TotalPrice.Equal(decimal.RequireFromString("25.50")))
	require.Len(t, event.Items, 2)
	assert.Equal(t, 2, event.Items[0].Quantity)
}

func TestPublishPropagatesWriterError(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	pub := NewEventPublisher(&Producer{writer: w, logger: zap.NewNop()})

	assert.Error(t, pub.PublishOrderCreated(context.Background(), testOrder()))
}

func TestHandleMessageRoutesByType(t *testing.T) {
	w := &recordingWriter{}
	pub := NewEventPublisher(&Producer{writer: w, logger: zap.NewNop()})
	require.NoError(t, pub.PublishOrderCreated(context.Background(), testOrder()))
	require.NoError(t, pub.PublishOrderConfirmed(context.Background(), testOrder()))

	h := NewEventHandler()
	var created, confirmed int
	h.OnOrderCreated(func(_ context.Context, e *models.OrderCreatedEvent) error {
		created++
		assert.Equal(t, int64(7), e.OrderID)
		return nil
	})
	h.OnOrderConfirmed(func(_ context.Context, e *models.OrderConfirmedEvent) error {
		confirmed++
		assert.Equal(t, int64(3), e.UserID)
		return nil
	})

	for _, msg := range w.msgs {
		require.NoError(t, h.HandleMessage(context.Background(), msg))
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, confirmed)
}

func TestHandleMessageIgnoresUnknownAndRejectsGarbage(t *testing.T) {
	h := NewEventHandler()

	assert.NoError(t, h.HandleMessage(context.Background(), kafka.Message{Value: []byte(`{"event_type":"SOMETHING_ELSE"}`)}))
	assert.Error(t, h.HandleMessage(context.Background(), kafka.Message{Value: []byte(`{`)}))
}
