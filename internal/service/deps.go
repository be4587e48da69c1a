package service

import (
	"context"
	"time"

	"storefront/internal/cart"
	"storefront/internal/models"
)

// CartStore loads and saves session carts
type CartStore interface {
	Load(ctx context.Context, sessionID string) (*cart.Cart, error)
	Save(ctx context.Context, sessionID string, crt *cart.Cart) error
	Clear(ctx context.Context, sessionID string) error
}

// ProductReader resolves products for the cart and checkout
type ProductReader interface {
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]*models.Product, error)
}

// OrderLedger persists orders and their payment state
type OrderLedger interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	SetPaymentReference(ctx context.Context, orderID int64, reference string) error
	ConfirmOrder(ctx context.Context, orderID int64, reference string) (*models.Order, bool, error)
	GetOrderForUser(ctx context.Context, userID, orderID int64) (*models.Order, error)
	GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error)
}

// EventPublisher emits order lifecycle events
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, order *models.Order) error
	PublishOrderConfirmed(ctx context.Context, order *models.Order) error
}

// IdempotencyStore remembers which external events were already handled
type IdempotencyStore interface {
	ClaimIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseIdempotencyKey(ctx context.Context, key string) error
}

// Locker guards against concurrent work on the same key
type Locker interface {
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (token string, acquired bool, err error)
	ReleaseLock(ctx context.Context, lockKey, token string) error
}
