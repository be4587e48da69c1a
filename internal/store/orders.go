package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"storefront/internal/models"
)

// OrderFilter narrows the admin order listing
type OrderFilter struct {
	Status        string     `form:"status"`
	UserID        *int64     `form:"user_id"`
	CreatedAfter  *time.Time `form:"created_after" time_format:"2006-01-02"`
	CreatedBefore *time.Time `form:"created_before" time_format:"2006-01-02"`
	Page
}

// CreateOrder inserts the order and all of its items in one transaction.
// IDs and timestamps are written back into order and order.Items.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	return s.WithTransaction(ctx, DefaultTxOptions(), func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO orders (user_id, first_name, last_name, email, phone, address, city,
			                    postal_code, country, total_price, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id, created_at, updated_at`

		err := tx.QueryRowxContext(ctx, query,
			order.UserID, order.FirstName, order.LastName, order.Email, order.Phone,
			order.Address, order.City, order.PostalCode, order.Country,
			order.TotalPrice, order.Status,
		).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for i := range order.Items {
			item := &order.Items[i]
			item.OrderID = order.ID
			err := tx.QueryRowxContext(ctx,
				"INSERT INTO order_items (order_id, product_id, price, quantity) VALUES ($1, $2, $3, $4) RETURNING id",
				item.OrderID, item.ProductID, item.Price, item.Quantity,
			).Scan(&item.ID)
			if err != nil {
				return fmt.Errorf("insert order item: %w", translate(err, ErrProductNotFound))
			}
		}
		return nil
	})
}

// GetOrderByID retrieves an order by ID with its items
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	if err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id); err != nil {
		return nil, translate(err, ErrOrderNotFound)
	}
	if err := s.loadItems(ctx, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderForUser retrieves an order only if it belongs to userID
func (s *Store) GetOrderForUser(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1 AND user_id = $2", orderID, userID)
	if err != nil {
		return nil, translate(err, ErrOrderNotFound)
	}
	if err := s.loadItems(ctx, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Store) loadItems(ctx context.Context, order *models.Order) error {
	items, err := s.GetOrderItemsByOrderID(ctx, order.ID)
	if err != nil {
		return err
	}
	order.Items = items
	return nil
}

// GetOrderItemsByOrderID retrieves all items for an order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	items := []models.OrderItem{}
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	return items, nil
}

// GetOrdersByUserID retrieves orders for a user, newest first
func (s *Store) GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("get orders by user: %w", err)
	}
	return orders, nil
}

// RecentOrders returns the newest orders across all users
func (s *Store) RecentOrders(ctx context.Context, limit int) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders ORDER BY created_at DESC, id DESC LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("recent orders: %w", err)
	}
	return orders, nil
}

// ListOrders returns one page of orders matching the filter, newest first
func (s *Store) ListOrders(ctx context.Context, filter OrderFilter) (OffsetPage[models.Order], error) {
	var cond conditions
	if filter.Status != "" {
		cond.add("status = ?", filter.Status)
	}
	if filter.UserID != nil {
		cond.add("user_id = ?", *filter.UserID)
	}
	if filter.CreatedAfter != nil {
		cond.add("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		cond.add("created_at < ?", *filter.CreatedBefore)
	}

	var total int64
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM orders"+cond.where(), cond.args...); err != nil {
		return OffsetPage[models.Order]{}, fmt.Errorf("count orders: %w", err)
	}

	limit, args := cond.paginate(filter.Page)
	var orders []models.Order
	query := "SELECT * FROM orders" + cond.where() + " ORDER BY created_at DESC, id DESC" + limit
	if err := s.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return OffsetPage[models.Order]{}, fmt.Errorf("list orders: %w", err)
	}

	return newOffsetPage(orders, total, filter.Page), nil
}

// SetPaymentReference records the gateway intent id on an order
func (s *Store) SetPaymentReference(ctx context.Context, orderID int64, reference string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET payment_reference = $1, updated_at = NOW() WHERE id = $2",
		reference, orderID)
	return expectRow(res, err, ErrOrderNotFound)
}

// ConfirmOrder moves an order to confirmed and records the payment reference.
// Only pending or already confirmed orders are touched, so a late payment
// never reopens a shipped or cancelled order. changed is true only when the
// status actually moved from pending.
func (s *Store) ConfirmOrder(ctx context.Context, orderID int64, reference string) (order *models.Order, changed bool, err error) {
	err = s.WithTransaction(ctx, DefaultTxOptions(), func(tx *sqlx.Tx) error {
		var current models.Order
		if err := tx.GetContext(ctx, &current, "SELECT * FROM orders WHERE id = $1 FOR UPDATE", orderID); err != nil {
			return translate(err, ErrOrderNotFound)
		}

		if current.Status != models.OrderStatusPending && current.Status != models.OrderStatusConfirmed {
			order = &current
			return nil
		}

		ref := &reference
		if reference == "" {
			ref = current.PaymentReference
		}

		var updated models.Order
		err := tx.GetContext(ctx, &updated, `
			UPDATE orders
			SET status = $1, payment_reference = $2, updated_at = NOW()
			WHERE id = $3
			RETURNING *`,
			models.OrderStatusConfirmed, ref, orderID)
		if err != nil {
			return fmt.Errorf("confirm order: %w", err)
		}

		order = &updated
		changed = current.Status == models.OrderStatusPending
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if err := s.loadItems(ctx, order); err != nil {
		return nil, false, err
	}
	return order, changed, nil
}

// UpdateOrderStatus sets an arbitrary status, used by staff
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	return expectRow(res, err, ErrOrderNotFound)
}
