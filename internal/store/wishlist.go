package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"storefront/internal/models"
)

// ListWishlist returns a user's wishlist with products, newest first
func (s *Store) ListWishlist(ctx context.Context, userID int64) ([]models.WishlistItem, error) {
	var items []models.WishlistItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM wishlist_items WHERE user_id = $1 ORDER BY created_at DESC, id DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}

	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.WishlistItem, 0, len(items))
	for _, it := range items {
		it.Product = products[it.ProductID]
		out = append(out, it)
	}
	return out, nil
}

// ToggleWishlist adds the product if absent and removes it otherwise. It
// returns whether the product is on the wishlist afterwards.
func (s *Store) ToggleWishlist(ctx context.Context, userID, productID int64) (bool, error) {
	var added bool
	err := s.WithRetry(ctx, DefaultTxOptions(), func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			"DELETE FROM wishlist_items WHERE user_id = $1 AND product_id = $2", userID, productID)
		if err != nil {
			return fmt.Errorf("remove wishlist item: %w", err)
		}
		removed, err := res.RowsAffected()
		if err != nil {
			return err
		}

		delta := -1
		added = removed == 0
		if added {
			_, err = tx.ExecContext(ctx,
				"INSERT INTO wishlist_items (user_id, product_id) VALUES ($1, $2)", userID, productID)
			if err != nil {
				return translate(err, ErrProductNotFound)
			}
			delta = 1
		}

		return adjustWishlistCount(ctx, tx, productID, delta)
	})
	if errors.Is(err, ErrInUse) {
		return false, ErrProductNotFound
	}
	return added, err
}

// RemoveFromWishlist deletes the product from the wishlist if present
func (s *Store) RemoveFromWishlist(ctx context.Context, userID, productID int64) error {
	return s.WithTransaction(ctx, DefaultTxOptions(), func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			"DELETE FROM wishlist_items WHERE user_id = $1 AND product_id = $2", userID, productID)
		if err != nil {
			return fmt.Errorf("remove wishlist item: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		return adjustWishlistCount(ctx, tx, productID, -1)
	})
}

func adjustWishlistCount(ctx context.Context, tx *sqlx.Tx, productID int64, delta int) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO product_stats (product_id, wishlist_count)
		VALUES ($1, GREATEST($2, 0))
		ON CONFLICT (product_id)
		DO UPDATE SET wishlist_count = GREATEST(product_stats.wishlist_count + $2, 0)`,
		productID, delta)
	if err != nil {
		return fmt.Errorf("adjust wishlist count: %w", err)
	}
	return nil
}
