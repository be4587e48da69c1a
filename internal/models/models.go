package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups products in the catalog
type Category struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Slug        string    `db:"slug" json:"slug"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Product represents a product in the catalog
type Product struct {
	ID          int64           `db:"id" json:"id"`
	CategoryID  int64           `db:"category_id" json:"category_id"`
	Name        string          `db:"name" json:"name"`
	Slug        string          `db:"slug" json:"slug"`
	Description string          `db:"description" json:"description"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Stock       int             `db:"stock" json:"stock"`
	Available   bool            `db:"available" json:"available"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// ShippingDetails is the contact and address snapshot copied onto an order
type ShippingDetails struct {
	FirstName  string `db:"first_name" json:"first_name" form:"first_name" binding:"required,max=100"`
	LastName   string `db:"last_name" json:"last_name" form:"last_name" binding:"required,max=100"`
	Email      string `db:"email" json:"email" form:"email" binding:"required,email"`
	Phone      string `db:"phone" json:"phone" form:"phone" binding:"max=20"`
	Address    string `db:"address" json:"address" form:"address" binding:"required,max=250"`
	City       string `db:"city" json:"city" form:"city" binding:"required,max=100"`
	PostalCode string `db:"postal_code" json:"postal_code" form:"postal_code" binding:"required,max=20"`
	Country    string `db:"country" json:"country" form:"country" binding:"required,max=100"`
}

// Order represents a customer order
type Order struct {
	ID     int64 `db:"id" json:"id"`
	UserID int64 `db:"user_id" json:"user_id"`
	ShippingDetails
	TotalPrice       decimal.Decimal `db:"total_price" json:"total_price"`
	Status           string          `db:"status" json:"status"`
	PaymentReference *string         `db:"payment_reference" json:"payment_reference,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
	Items            []OrderItem     `db:"-" json:"items,omitempty"`
}

// OrderItem is one line of an order. Immutable once written.
type OrderItem struct {
	ID        int64           `db:"id" json:"id"`
	OrderID   int64           `db:"order_id" json:"order_id"`
	ProductID int64           `db:"product_id" json:"product_id"`
	Price     decimal.Decimal `db:"price" json:"price"`
	Quantity  int             `db:"quantity" json:"quantity"`
}

// Subtotal returns price times quantity
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order statuses
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// ValidOrderStatus reports whether s is one of the known order statuses
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// User is a storefront account
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	IsStaff      bool      `db:"is_staff" json:"is_staff"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Profile holds the default contact details of a user
type Profile struct {
	UserID     int64     `db:"user_id" json:"user_id"`
	Phone      string    `db:"phone" json:"phone"`
	Address    string    `db:"address" json:"address"`
	City       string    `db:"city" json:"city"`
	PostalCode string    `db:"postal_code" json:"postal_code"`
	Country    string    `db:"country" json:"country"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Address types
const (
	AddressTypeShipping = "shipping"
	AddressTypeBilling  = "billing"
)

// Address is a saved shipping or billing address
type Address struct {
	ID          int64  `db:"id" json:"id"`
	UserID      int64  `db:"user_id" json:"user_id"`
	AddressType string `db:"address_type" json:"address_type"`
	Address     string `db:"address" json:"address"`
	City        string `db:"city" json:"city"`
	PostalCode  string `db:"postal_code" json:"postal_code"`
	Country     string `db:"country" json:"country"`
}

// WishlistItem links a user to a product they saved
type WishlistItem struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	ProductID int64     `db:"product_id" json:"product_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	Product   *Product  `db:"-" json:"product,omitempty"`
}

// FAQ languages
const (
	LanguageEnglish = "en"
	LanguageSpanish = "es"
	LanguageFrench  = "fr"
)

// FAQ is a question and answer shown on the help pages
type FAQ struct {
	ID          int64     `db:"id" json:"id"`
	CategoryID  int64     `db:"category_id" json:"category_id"`
	Question    string    `db:"question" json:"question"`
	Answer      string    `db:"answer" json:"answer"`
	Language    string    `db:"language" json:"language"`
	IsPublished bool      `db:"is_published" json:"is_published"`
	ViewCount   int       `db:"view_count" json:"view_count"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ProductStats aggregates sales data per product
type ProductStats struct {
	ProductID     int64           `db:"product_id" json:"product_id"`
	TimesOrdered  int             `db:"times_ordered" json:"times_ordered"`
	TotalRevenue  decimal.Decimal `db:"total_revenue" json:"total_revenue"`
	WishlistCount int             `db:"wishlist_count" json:"wishlist_count"`
	LastOrdered   *time.Time      `db:"last_ordered" json:"last_ordered,omitempty"`
}

// UserStats aggregates purchase data per user
type UserStats struct {
	UserID        int64           `db:"user_id" json:"user_id"`
	OrderCount    int             `db:"order_count" json:"order_count"`
	TotalSpent    decimal.Decimal `db:"total_spent" json:"total_spent"`
	LastOrderDate *time.Time      `db:"last_order_date" json:"last_order_date,omitempty"`
}
