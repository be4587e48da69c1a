package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"storefront/internal/models"
)

// Counts is the headline numbers on the admin dashboard
type Counts struct {
	Users      int64 `db:"users" json:"total_users"`
	Orders     int64 `db:"orders" json:"total_orders"`
	Products   int64 `db:"products" json:"total_products"`
	Categories int64 `db:"categories" json:"total_categories"`
}

// DashboardCounts counts the main tables in one round trip
func (s *Store) DashboardCounts(ctx context.Context) (*Counts, error) {
	var c Counts
	err := s.db.GetContext(ctx, &c, `
		SELECT
			(SELECT COUNT(*) FROM users)      AS users,
			(SELECT COUNT(*) FROM orders)     AS orders,
			(SELECT COUNT(*) FROM products)   AS products,
			(SELECT COUNT(*) FROM categories) AS categories`)
	if err != nil {
		return nil, fmt.Errorf("dashboard counts: %w", err)
	}
	return &c, nil
}

// GetProductStats retrieves the sales stats of a product
func (s *Store) GetProductStats(ctx context.Context, productID int64) (*models.ProductStats, error) {
	var stats models.ProductStats
	if err := s.db.GetContext(ctx, &stats, "SELECT * FROM product_stats WHERE product_id = $1", productID); err != nil {
		return nil, translate(err, ErrProductNotFound)
	}
	return &stats, nil
}

// ApplyOrderConfirmed folds a confirmed order into the product and user stats
// and decrements stock. The event id is recorded in the same transaction, so
// a redelivered event is a no-op. It returns false when the event was seen before.
func (s *Store) ApplyOrderConfirmed(ctx context.Context, eventID string, order *models.Order, at time.Time) (bool, error) {
	applied := false
	err := s.WithRetry(ctx, DefaultTxOptions(), func(tx *sqlx.Tx) error {
		applied = false
		res, err := tx.ExecContext(ctx,
			"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
			eventID, models.EventTypeOrderConfirmed)
		if err != nil {
			return fmt.Errorf("mark event processed: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}

		for _, item := range order.Items {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO product_stats (product_id, times_ordered, total_revenue, last_ordered)
				VALUES ($1, 1, $2, $3)
				ON CONFLICT (product_id) DO UPDATE
				SET times_ordered = product_stats.times_ordered + 1,
				    total_revenue = product_stats.total_revenue + EXCLUDED.total_revenue,
				    last_ordered  = EXCLUDED.last_ordered`,
				item.ProductID, item.Subtotal(), at)
			if err != nil {
				return fmt.Errorf("update product stats: %w", err)
			}

			_, err = tx.ExecContext(ctx,
				"UPDATE products SET stock = GREATEST(stock - $1, 0), updated_at = NOW() WHERE id = $2",
				item.Quantity, item.ProductID)
			if err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO user_stats (user_id, order_count, total_spent, last_order_date)
			VALUES ($1, 1, $2, $3)
			ON CONFLICT (user_id) DO UPDATE
			SET order_count     = user_stats.order_count + 1,
			    total_spent     = user_stats.total_spent + EXCLUDED.total_spent,
			    last_order_date = EXCLUDED.last_order_date`,
			order.UserID, order.TotalPrice, at)
		if err != nil {
			return fmt.Errorf("update user stats: %w", err)
		}

		applied = true
		return nil
	})
	return applied, err
}
