package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront/internal/cart"
	"storefront/internal/models"
	"storefront/internal/payment"
	"storefront/internal/store"
)

type checkoutFixture struct {
	carts     *memCarts
	products  memProducts
	ledger    *memLedger
	gateway   *mockGateway
	publisher *recordingPublisher
	svc       *CheckoutService
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	f := &checkoutFixture{
		carts: newMemCarts(),
		products: memProducts{
			1: {ID: 1, Name: "Mug", Slug: "mug", Price: decimal.RequireFromString("10.00"), Available: true},
			2: {ID: 2, Name: "Pen", Slug: "pen", Price: decimal.RequireFromString("5.50"), Available: true},
		},
		ledger:    newMemLedger(),
		gateway:   new(mockGateway),
		publisher: &recordingPublisher{},
	}
	cartSvc := NewCartService(f.carts, f.products)
	f.svc = NewCheckoutService(f.carts, cartSvc, f.ledger, f.gateway, f.publisher, nil, CheckoutConfig{
		Currency:       "usd",
		PublishableKey: "pk_test_123",
	})
	return f
}

func (f *checkoutFixture) fillCart(t *testing.T, sessionID string) {
	t.Helper()
	crt := cart.New()
	crt.Add(f.products[1], 2, false)
	crt.Add(f.products[2], 1, false)
	require.NoError(t, f.carts.Save(context.Background(), sessionID, crt))
}

func shipping() models.ShippingDetails {
	return models.ShippingDetails{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      "ada@example.com",
		Address:    "1 Analytical Way",
		City:       "London",
		PostalCode: "N1",
		Country:    "UK",
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)

	result, err := f.svc.Checkout(context.Background(), 9, "sess-empty", shipping())

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, f.ledger.orders)
	assert.Empty(t, f.publisher.created)
	f.gateway.AssertNotCalled(t, "CreateIntent", mock.Anything, mock.Anything)
}

func TestCheckout_Success(t *testing.T) {
	f := newCheckoutFixture(t)
	f.fillCart(t, "sess-1")

	f.gateway.On("CreateIntent", mock.Anything, mock.MatchedBy(func(req payment.IntentRequest) bool {
		return req.AmountMinor == 2550 && req.Currency == "usd" && req.Metadata["order_id"] == "1"
	})).Return(&payment.Intent{ID: "pi_123", ClientSecret: "pi_123_secret"}, nil).Once()

	result, err := f.svc.Checkout(context.Background(), 9, "sess-1", shipping())
	require.NoError(t, err)

	assert.Equal(t, "pi_123_secret", result.ClientSecret)
	assert.Equal(t, "pk_test_123", result.PublishableKey)
	assert.Equal(t, int64(1), result.Order.ID)
	assert.Equal(t, models.OrderStatusPending, result.Order.Status)
	assert.True(t, result.Order.TotalPrice.Equal(decimal.RequireFromString("25.50")))

	stored := f.ledger.orders[1]
	require.NotNil(t, stored)
	require.Len(t, stored.Items, 2)
	assert.Equal(t, int64(1), stored.Items[0].ProductID)
	assert.Equal(t, 2, stored.Items[0].Quantity)
	assert.True(t, stored.Items[0].Price.Equal(decimal.RequireFromString("10")))
	assert.Equal(t, int64(2), stored.Items[1].ProductID)
	assert.Equal(t, 1, stored.Items[1].Quantity)
	require.NotNil(t, stored.PaymentReference)
	assert.Equal(t, "pi_123", *stored.PaymentReference)
	assert.Equal(t, "ada@example.com", stored.Email)

	crt, err := f.carts.Load(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.True(t, crt.IsEmpty())

	require.Len(t, f.publisher.created, 1)
	assert.Equal(t, int64(1), f.publisher.created[0].ID)
	f.gateway.AssertExpectations(t)
}

func TestCheckout_UsesFrozenCartPrice(t *testing.T) {
	f := newCheckoutFixture(t)
	f.fillCart(t, "sess-1")
	f.products[1].Price = decimal.RequireFromString("99.00")

	f.gateway.On("CreateIntent", mock.Anything, mock.MatchedBy(func(req payment.IntentRequest) bool {
		return req.AmountMinor == 2550
	})).Return(&payment.Intent{ID: "pi_1", ClientSecret: "s"}, nil).Once()

	result, err := f.svc.Checkout(context.Background(), 9, "sess-1", shipping())
	require.NoError(t, err)
	assert.Equal(t, "25.50", result.Order.TotalPrice.StringFixed(2))
}

func TestCheckout_GatewayFailureKeepsCartAndOrder(t *testing.T) {
	f := newCheckoutFixture(t)
	f.fillCart(t, "sess-1")

	f.gateway.On("CreateIntent", mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused")).Once()

	result, err := f.svc.Checkout(context.Background(), 9, "sess-1", shipping())
	assert.Nil(t, result)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGateway)

	var gwErr *GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, int64(1), gwErr.OrderID)

	stored := f.ledger.orders[1]
	require.NotNil(t, stored)
	assert.Equal(t, models.OrderStatusPending, stored.Status)
	assert.Nil(t, stored.PaymentReference)

	crt, err := f.carts.Load(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 3, crt.Count())
	assert.Empty(t, f.publisher.created)
}

func TestCheckout_OrderPersistFailure(t *testing.T) {
	f := newCheckoutFixture(t)
	f.fillCart(t, "sess-1")
	f.ledger.createErr = errors.New("db down")

	_, err := f.svc.Checkout(context.Background(), 9, "sess-1", shipping())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrGateway)
	f.gateway.AssertNotCalled(t, "CreateIntent", mock.Anything, mock.Anything)

	crt, _ := f.carts.Load(context.Background(), "sess-1")
	assert.False(t, crt.IsEmpty())
}

type stubLocker struct {
	held     map[string]string
	released []string
}

func (l *stubLocker) AcquireLock(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	if _, ok := l.held[key]; ok {
		return "", false, nil
	}
	token := fmt.Sprintf("tok-%d", len(l.released)+1)
	l.held[key] = token
	return token, true, nil
}

func (l *stubLocker) ReleaseLock(_ context.Context, key, token string) error {
	if l.held[key] != token {
		return errors.New("lock not held")
	}
	delete(l.held, key)
	l.released = append(l.released, token)
	return nil
}

func TestCheckout_InProgress(t *testing.T) {
	f := newCheckoutFixture(t)
	f.fillCart(t, "sess-1")
	locker := &stubLocker{held: map[string]string{"checkout:sess-1": "other"}}
	f.svc.locker = locker

	_, err := f.svc.Checkout(context.Background(), 9, "sess-1", shipping())
	assert.ErrorIs(t, err, ErrCheckoutInProgress)
	assert.Empty(t, f.ledger.orders)
	assert.Equal(t, "other", locker.held["checkout:sess-1"])
}

func TestCheckout_ReleasesLock(t *testing.T) {
	f := newCheckoutFixture(t)
	f.fillCart(t, "sess-1")
	locker := &stubLocker{held: map[string]string{}}
	f.svc.locker = locker
	f.gateway.On("CreateIntent", mock.Anything, mock.Anything).
		Return(&payment.Intent{ID: "pi_1", ClientSecret: "s"}, nil).Once()

	_, err := f.svc.Checkout(context.Background(), 9, "sess-1", shipping())
	require.NoError(t, err)
	assert.Empty(t, locker.held)
	assert.Equal(t, []string{"tok-1"}, locker.released)
}

func TestCheckoutSummary(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.svc.Summary(context.Background(), "sess-1")
	assert.ErrorIs(t, err, ErrEmptyCart)

	f.fillCart(t, "sess-1")
	view, err := f.svc.Summary(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Len(t, view.Items, 2)
	assert.Equal(t, "25.50", view.TotalPrice.StringFixed(2))
}

func TestToMinorUnits(t *testing.T) {
	cases := map[string]int64{
		"25.50":  2550,
		"0.01":   1,
		"999.99": 99999,
		"10":     1000,
		"1.005":  101,
	}
	for in, want := range cases {
		assert.Equal(t, want, ToMinorUnits(decimal.RequireFromString(in)), in)
	}
}

func TestCartService_AddAndRemove(t *testing.T) {
	carts := newMemCarts()
	products := memProducts{
		1: {ID: 1, Name: "Mug", Price: decimal.RequireFromString("10.00"), Available: true},
	}
	svc := NewCartService(carts, products)
	ctx := context.Background()

	view, err := svc.Add(ctx, "s", 1, 2, false)
	require.NoError(t, err)
	assert.Equal(t, 2, view.Count)
	assert.Equal(t, "20.00", view.TotalPrice.StringFixed(2))

	view, err = svc.Add(ctx, "s", 1, 5, true)
	require.NoError(t, err)
	assert.Equal(t, 5, view.Count)

	_, err = svc.Add(ctx, "s", 1, 0, false)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = svc.Add(ctx, "s", 1, cart.MaxLineQuantity, false)
	assert.ErrorAs(t, err, &verr)
	view, err = svc.View(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, 5, view.Count)

	_, err = svc.Add(ctx, "s", 42, 1, false)
	assert.ErrorIs(t, err, store.ErrNotFound)

	view, err = svc.Remove(ctx, "s", 1)
	require.NoError(t, err)
	assert.Equal(t, 0, view.Count)

	view, err = svc.Remove(ctx, "s", 1)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}
