package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
	"storefront/internal/payment"
	"storefront/internal/store"
)

type paymentFixture struct {
	ledger      *memLedger
	gateway     *mockGateway
	publisher   *recordingPublisher
	idempotency *memIdempotency
	svc         *PaymentService
}

func newPaymentFixture(t *testing.T, trustRedirect bool) *paymentFixture {
	t.Helper()
	f := &paymentFixture{
		ledger:      newMemLedger(),
		gateway:     new(mockGateway),
		publisher:   &recordingPublisher{},
		idempotency: newMemIdempotency(),
	}
	f.svc = NewPaymentService(f.ledger, f.gateway, f.publisher, f.idempotency, trustRedirect)
	return f
}

func (f *paymentFixture) pendingOrder(t *testing.T, userID int64) *models.Order {
	t.Helper()
	order := &models.Order{
		UserID:     userID,
		TotalPrice: decimal.RequireFromString("25.50"),
		Status:     models.OrderStatusPending,
		Items: []models.OrderItem{
			{ProductID: 1, Price: decimal.RequireFromString("10"), Quantity: 2},
			{ProductID: 2, Price: decimal.RequireFromString("5.5"), Quantity: 1},
		},
	}
	require.NoError(t, f.ledger.CreateOrder(context.Background(), order))
	return order
}

func succeeded(eventID, intentID, orderID string) *payment.WebhookEvent {
	return &payment.WebhookEvent{
		ID:       eventID,
		Type:     payment.EventPaymentSucceeded,
		IntentID: intentID,
		Metadata: map[string]string{"order_id": orderID},
	}
}

func TestHandleWebhook_InvalidSignature(t *testing.T) {
	f := newPaymentFixture(t, false)
	order := f.pendingOrder(t, 1)
	f.gateway.On("ParseWebhook", []byte("{}"), "bad").Return(nil, payment.ErrInvalidSignature)

	err := f.svc.HandleWebhook(context.Background(), []byte("{}"), "bad")

	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Equal(t, models.OrderStatusPending, f.ledger.orders[order.ID].Status)
	assert.Empty(t, f.publisher.confirmed)
}

func TestHandleWebhook_InvalidPayload(t *testing.T) {
	f := newPaymentFixture(t, false)
	f.gateway.On("ParseWebhook", []byte("nope"), "sig").Return(nil, payment.ErrInvalidPayload)

	err := f.svc.HandleWebhook(context.Background(), []byte("nope"), "sig")
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestHandleWebhook_ConfirmsOrder(t *testing.T) {
	f := newPaymentFixture(t, false)
	order := f.pendingOrder(t, 1)
	f.gateway.On("ParseWebhook", mock.Anything, "sig").Return(succeeded("evt_1", "pi_9", "1"), nil)

	require.NoError(t, f.svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))

	stored := f.ledger.orders[order.ID]
	assert.Equal(t, models.OrderStatusConfirmed, stored.Status)
	require.NotNil(t, stored.PaymentReference)
	assert.Equal(t, "pi_9", *stored.PaymentReference)
	require.Len(t, f.publisher.confirmed, 1)
	assert.Equal(t, order.ID, f.publisher.confirmed[0].ID)
}

func TestHandleWebhook_DuplicateDelivery(t *testing.T) {
	f := newPaymentFixture(t, false)
	f.pendingOrder(t, 1)
	f.gateway.On("ParseWebhook", mock.Anything, "sig").Return(succeeded("evt_1", "pi_9", "1"), nil)

	require.NoError(t, f.svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))
	require.NoError(t, f.svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))

	assert.Equal(t, 1, f.ledger.transitions)
	assert.Len(t, f.publisher.confirmed, 1)
}

func TestHandleWebhook_RedeliveryWithNewEventID(t *testing.T) {
	f := newPaymentFixture(t, false)
	f.pendingOrder(t, 1)
	f.gateway.On("ParseWebhook", mock.Anything, "a").Return(succeeded("evt_1", "pi_9", "1"), nil)
	f.gateway.On("ParseWebhook", mock.Anything, "b").Return(succeeded("evt_2", "pi_9", "1"), nil)

	require.NoError(t, f.svc.HandleWebhook(context.Background(), []byte("{}"), "a"))
	require.NoError(t, f.svc.HandleWebhook(context.Background(), []byte("{}"), "b"))

	assert.Equal(t, 1, f.ledger.transitions)
	assert.Len(t, f.publisher.confirmed, 1)
}

func TestHandleWebhook_IdempotencyStoreDown(t *testing.T) {
	f := newPaymentFixture(t, false)
	order := f.pendingOrder(t, 1)
	f.idempotency.err = errors.New("redis down")
	f.gateway.On("ParseWebhook", mock.Anything, "sig").Return(succeeded("evt_1", "pi_9", "1"), nil)

	require.NoError(t, f.svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))
	assert.Equal(t, models.OrderStatusConfirmed, f.ledger.orders[order.ID].Status)
}

func TestHandleWebhook_UnknownOrderIsAcknowledged(t *testing.T) {
	f := newPaymentFixture(t, false)
	f.gateway.On("ParseWebhook", mock.Anything, "sig").Return(succeeded("evt_1", "pi_9", "404"), nil)

	assert.NoError(t, f.svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))
	assert.Empty(t, f.publisher.confirmed)
	assert.Empty(t, f.idempotency.keys)
}

func TestHandleWebhook_MissingOrderID(t *testing.T) {
	f := newPaymentFixture(t, false)
	f.gateway.On("ParseWebhook", mock.Anything, "sig").Return(succeeded("evt_1", "pi_9", ""), nil)

	assert.NoError(t, f.svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))
	assert.Zero(t, f.ledger.transitions)
}

func TestHandleWebhook_DatabaseErrorReleasesKey(t *testing.T) {
	f := newPaymentFixture(t, false)
	f.pendingOrder(t, 1)
	f.ledger.confirmErr = errors.New("deadlock")
	f.gateway.On("ParseWebhook", mock.Anything, "sig").Return(succeeded("evt_1", "pi_9", "1"), nil)

	assert.NoError(t, f.svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))
	assert.Empty(t, f.idempotency.keys)

	f.ledger.confirmErr = nil
	assert.NoError(t, f.svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))
	assert.Equal(t, 1, f.ledger.transitions)
}

func TestHandleWebhook_OtherEventTypesIgnored(t *testing.T) {
	f := newPaymentFixture(t, false)
	order := f.pendingOrder(t, 1)
	f.gateway.On("ParseWebhook", mock.Anything, "sig").Return(&payment.WebhookEvent{
		ID:       "evt_3",
		Type:     "payment_intent.payment_failed",
		IntentID: "pi_9",
		Metadata: map[string]string{"order_id": "1"},
	}, nil)

	assert.NoError(t, f.svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))
	assert.Equal(t, models.OrderStatusPending, f.ledger.orders[order.ID].Status)
}

func TestHandleWebhook_DoesNotReopenShippedOrder(t *testing.T) {
	f := newPaymentFixture(t, false)
	order := f.pendingOrder(t, 1)
	f.ledger.orders[order.ID].Status = models.OrderStatusShipped
	f.gateway.On("ParseWebhook", mock.Anything, "sig").Return(succeeded("evt_1", "pi_9", "1"), nil)

	assert.NoError(t, f.svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))
	assert.Equal(t, models.OrderStatusShipped, f.ledger.orders[order.ID].Status)
	assert.Empty(t, f.publisher.confirmed)
}

func TestConfirmFromRedirect_DoesNotConfirmByDefault(t *testing.T) {
	f := newPaymentFixture(t, false)
	order := f.pendingOrder(t, 7)

	got, err := f.svc.ConfirmFromRedirect(context.Background(), 7, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, got.Status)
	assert.Zero(t, f.ledger.transitions)
}

func TestConfirmFromRedirect_Trusted(t *testing.T) {
	f := newPaymentFixture(t, true)
	order := f.pendingOrder(t, 7)

	got, err := f.svc.ConfirmFromRedirect(context.Background(), 7, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, got.Status)
	assert.Len(t, f.publisher.confirmed, 1)

	_, err = f.svc.ConfirmFromRedirect(context.Background(), 7, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.ledger.transitions)
}

func TestConfirmFromRedirect_OtherUsersOrder(t *testing.T) {
	f := newPaymentFixture(t, true)
	order := f.pendingOrder(t, 7)

	_, err := f.svc.ConfirmFromRedirect(context.Background(), 8, order.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, models.OrderStatusPending, f.ledger.orders[order.ID].Status)
}
