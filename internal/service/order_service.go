package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"storefront/internal/models"
	"storefront/internal/util"
)

// OrderService serves a customer's own order history
type OrderService struct {
	orders OrderLedger
	logger *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(orders OrderLedger) *OrderService {
	return &OrderService{orders: orders, logger: util.GetLogger()}
}

// ListOrders returns the user's orders, newest first
func (s *OrderService) ListOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListOrders", attribute.Int64("user_id", userID))
	defer span.End()

	return s.orders.GetOrdersByUserID(ctx, userID)
}

// GetOrder returns one of the user's orders with its items
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder", attribute.Int64("order_id", orderID))
	defer span.End()

	return s.orders.GetOrderForUser(ctx, userID, orderID)
}
