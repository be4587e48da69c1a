package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderCreated   = "ORDER_CREATED"
	EventTypeOrderConfirmed = "ORDER_CONFIRMED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent published once checkout has an open payment intent
type OrderCreatedEvent struct {
	BaseEvent
	OrderID          int64           `json:"order_id"`
	UserID           int64           `json:"user_id"`
	TotalPrice       decimal.Decimal `json:"total_price"`
	PaymentReference string          `json:"payment_reference"`
	Items            []OrderItemData `json:"items"`
}

// OrderConfirmedEvent published when a payment confirmation moved the order to confirmed
type OrderConfirmedEvent struct {
	BaseEvent
	OrderID          int64           `json:"order_id"`
	UserID           int64           `json:"user_id"`
	TotalPrice       decimal.Decimal `json:"total_price"`
	PaymentReference string          `json:"payment_reference"`
	Items            []OrderItemData `json:"items"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// ItemData converts order items into their event representation
func ItemData(items []OrderItem) []OrderItemData {
	out := make([]OrderItemData, 0, len(items))
	for _, it := range items {
		out = append(out, OrderItemData{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price})
	}
	return out
}
