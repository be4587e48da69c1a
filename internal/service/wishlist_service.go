package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"storefront/internal/models"
	"storefront/internal/util"
)

// WishlistStore is the persistence WishlistService needs
type WishlistStore interface {
	ListWishlist(ctx context.Context, userID int64) ([]models.WishlistItem, error)
	ToggleWishlist(ctx context.Context, userID, productID int64) (bool, error)
	RemoveFromWishlist(ctx context.Context, userID, productID int64) error
}

// WishlistService handles saved products
type WishlistService struct {
	store  WishlistStore
	logger *zap.Logger
}

// NewWishlistService creates a new wishlist service
func NewWishlistService(store WishlistStore) *WishlistService {
	return &WishlistService{store: store, logger: util.GetLogger()}
}

// List returns the user's wishlist
func (s *WishlistService) List(ctx context.Context, userID int64) ([]models.WishlistItem, error) {
	ctx, span := util.StartSpan(ctx, "WishlistService.List")
	defer span.End()

	return s.store.ListWishlist(ctx, userID)
}

// Toggle adds the product if missing and removes it otherwise. It returns
// whether the product is on the wishlist afterwards.
func (s *WishlistService) Toggle(ctx context.Context, userID, productID int64) (bool, error) {
	ctx, span := util.StartSpan(ctx, "WishlistService.Toggle", attribute.Int64("product_id", productID))
	defer span.End()

	added, err := s.store.ToggleWishlist(ctx, userID, productID)
	if err != nil {
		return false, err
	}
	s.logger.Debug("Wishlist toggled",
		zap.Int64("user_id", userID),
		zap.Int64("product_id", productID),
		zap.Bool("added", added))
	return added, nil
}

// Remove deletes the product from the wishlist if present
func (s *WishlistService) Remove(ctx context.Context, userID, productID int64) error {
	ctx, span := util.StartSpan(ctx, "WishlistService.Remove", attribute.Int64("product_id", productID))
	defer span.End()

	return s.store.RemoveFromWishlist(ctx, userID, productID)
}
