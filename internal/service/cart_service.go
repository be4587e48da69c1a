package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"storefront/internal/cart"
	"storefront/internal/util"
)

// CartService handles the session cart
type CartService struct {
	carts    CartStore
	products ProductReader
	logger   *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(carts CartStore, products ProductReader) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		logger:   util.GetLogger(),
	}
}

// CartView is the cart resolved against the catalog
type CartView struct {
	Items      []cart.Item     `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Count      int             `json:"count"`
}

// View returns the session's cart with live product data
func (s *CartService) View(ctx context.Context, sessionID string) (*CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.View")
	defer span.End()

	crt, err := s.carts.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return s.view(ctx, crt)
}

func (s *CartService) view(ctx context.Context, crt *cart.Cart) (*CartView, error) {
	products, err := s.products.GetProductsByIDs(ctx, crt.ProductIDs())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cart products: %w", err)
	}
	return &CartView{
		Items:      crt.Items(products),
		TotalPrice: crt.TotalPrice(),
		Count:      crt.Count(),
	}, nil
}

// Add puts a product into the cart. The resulting line quantity must stay
// within cart.MaxLineQuantity.
func (s *CartService) Add(ctx context.Context, sessionID string, productID int64, quantity int, override bool) (*CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.Add", attribute.Int64("product_id", productID))
	defer span.End()

	if quantity < 1 || quantity > cart.MaxLineQuantity {
		return nil, &ValidationError{Field: "quantity", Message: fmt.Sprintf("must be between 1 and %d", cart.MaxLineQuantity)}
	}

	product, err := s.products.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	crt, err := s.carts.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	if err := crt.Add(product, quantity, override); err != nil {
		return nil, &ValidationError{
			Field:   "quantity",
			Message: fmt.Sprintf("line quantity must stay between 1 and %d", cart.MaxLineQuantity),
		}
	}
	if err := s.carts.Save(ctx, sessionID, crt); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}

	util.CartMutationsTotal.WithLabelValues("add").Inc()
	s.logger.Debug("Cart updated",
		zap.Int64("product_id", productID),
		zap.Int("quantity", quantity),
		zap.Bool("override", override))

	return s.view(ctx, crt)
}

// Remove deletes a product from the cart. Removing an absent product succeeds.
func (s *CartService) Remove(ctx context.Context, sessionID string, productID int64) (*CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.Remove", attribute.Int64("product_id", productID))
	defer span.End()

	crt, err := s.carts.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	crt.Remove(productID)
	if err := s.carts.Save(ctx, sessionID, crt); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}

	util.CartMutationsTotal.WithLabelValues("remove").Inc()
	return s.view(ctx, crt)
}
