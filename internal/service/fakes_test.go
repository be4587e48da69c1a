package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"storefront/internal/cart"
	"storefront/internal/models"
	"storefront/internal/payment"
	"storefront/internal/store"
)

type memCarts struct {
	carts map[string][]byte
}

func newMemCarts() *memCarts { return &memCarts{carts: map[string][]byte{}} }

func (m *memCarts) Load(_ context.Context, id string) (*cart.Cart, error) {
	crt := cart.New()
	if data, ok := m.carts[id]; ok {
		if err := json.Unmarshal(data, crt); err != nil {
			return nil, err
		}
	}
	return crt, nil
}

func (m *memCarts) Save(_ context.Context, id string, crt *cart.Cart) error {
	data, err := json.Marshal(crt)
	if err != nil {
		return err
	}
	m.carts[id] = data
	return nil
}

func (m *memCarts) Clear(_ context.Context, id string) error {
	delete(m.carts, id)
	return nil
}

type memProducts map[int64]*models.Product

func (m memProducts) GetProductByID(_ context.Context, id int64) (*models.Product, error) {
	if p, ok := m[id]; ok {
		return p, nil
	}
	return nil, store.ErrProductNotFound
}

func (m memProducts) GetProductsByIDs(_ context.Context, ids []int64) (map[int64]*models.Product, error) {
	out := map[int64]*models.Product{}
	for _, id := range ids {
		if p, ok := m[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type memLedger struct {
	mu          sync.Mutex
	orders      map[int64]*models.Order
	nextID      int64
	transitions int
	createErr   error
	confirmErr  error
}

func newMemLedger() *memLedger { return &memLedger{orders: map[int64]*models.Order{}} }

func (m *memLedger) CreateOrder(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	order.ID = m.nextID
	for i := range order.Items {
		order.Items[i].ID = int64(i + 1)
		order.Items[i].OrderID = order.ID
	}
	stored := *order
	stored.Items = append([]models.OrderItem(nil), order.Items...)
	m.orders[order.ID] = &stored
	return nil
}

func (m *memLedger) SetPaymentReference(_ context.Context, orderID int64, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return store.ErrOrderNotFound
	}
	o.PaymentReference = &ref
	return nil
}

func (m *memLedger) ConfirmOrder(_ context.Context, orderID int64, ref string) (*models.Order, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.confirmErr != nil {
		return nil, false, m.confirmErr
	}
	o, ok := m.orders[orderID]
	if !ok {
		return nil, false, store.ErrOrderNotFound
	}
	if o.Status != models.OrderStatusPending && o.Status != models.OrderStatusConfirmed {
		cp := *o
		return &cp, false, nil
	}
	changed := o.Status == models.OrderStatusPending
	o.Status = models.OrderStatusConfirmed
	if ref != "" {
		o.PaymentReference = &ref
	}
	if changed {
		m.transitions++
	}
	cp := *o
	return &cp, changed, nil
}

func (m *memLedger) GetOrderForUser(_ context.Context, userID, orderID int64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.UserID != userID {
		return nil, store.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memLedger) GetOrdersByUserID(_ context.Context, userID int64) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

type recordingPublisher struct {
	created   []*models.Order
	confirmed []*models.Order
	err       error
}

func (p *recordingPublisher) PublishOrderCreated(_ context.Context, o *models.Order) error {
	p.created = append(p.created, o)
	return p.err
}

func (p *recordingPublisher) PublishOrderConfirmed(_ context.Context, o *models.Order) error {
	p.confirmed = append(p.confirmed, o)
	return p.err
}

type memIdempotency struct {
	keys map[string]bool
	err  error
}

func newMemIdempotency() *memIdempotency { return &memIdempotency{keys: map[string]bool{}} }

func (m *memIdempotency) ClaimIdempotencyKey(_ context.Context, key string, _ time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memIdempotency) ReleaseIdempotencyKey(_ context.Context, key string) error {
	delete(m.keys, key)
	return nil
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	args := m.Called(ctx, req)
	intent, _ := args.Get(0).(*payment.Intent)
	return intent, args.Error(1)
}

func (m *mockGateway) ParseWebhook(payload []byte, signature string) (*payment.WebhookEvent, error) {
	args := m.Called(payload, signature)
	event, _ := args.Get(0).(*payment.WebhookEvent)
	return event, args.Error(1)
}
