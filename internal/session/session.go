// Package session ties an anonymous browser session to its cart.
package session

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storefront/internal/cart"
)

const contextKey = "session_id"

// Middleware makes sure every request carries a session id cookie. A
// missing or malformed cookie gets a fresh random id.
func Middleware(cookieName string, secure bool, maxAge time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(cookieName)
		if err != nil || !validID(id) {
			id = uuid.NewString()
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cookieName, id, int(maxAge.Seconds()), "/", "", secure, true)
		c.Set(contextKey, id)
		c.Next()
	}
}

// ID returns the session id set by Middleware
func ID(c *gin.Context) string {
	return c.GetString(contextKey)
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// CartBackend is the raw storage the cart store writes through
type CartBackend interface {
	LoadCart(ctx context.Context, sessionID string) (*cart.Cart, error)
	SaveCart(ctx context.Context, sessionID string, crt *cart.Cart, ttl time.Duration) error
	DeleteCart(ctx context.Context, sessionID string) error
}

// CartStore loads and saves session carts with a fixed TTL
type CartStore struct {
	backend CartBackend
	ttl     time.Duration
}

func NewCartStore(backend CartBackend, ttl time.Duration) *CartStore {
	return &CartStore{backend: backend, ttl: ttl}
}

// Load returns the session's cart, empty if none is stored
func (s *CartStore) Load(ctx context.Context, sessionID string) (*cart.Cart, error) {
	return s.backend.LoadCart(ctx, sessionID)
}

// Save persists the cart and slides its expiry
func (s *CartStore) Save(ctx context.Context, sessionID string, crt *cart.Cart) error {
	return s.backend.SaveCart(ctx, sessionID, crt, s.ttl)
}

// Clear discards the session's cart
func (s *CartStore) Clear(ctx context.Context, sessionID string) error {
	return s.backend.DeleteCart(ctx, sessionID)
}
