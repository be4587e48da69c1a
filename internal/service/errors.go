package service

import (
	"errors"
	"fmt"

	"storefront/internal/auth"
	"storefront/internal/payment"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrGateway            = errors.New("payment gateway unavailable")
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	ErrInvalidSignature   = payment.ErrInvalidSignature
	ErrInvalidPayload     = payment.ErrInvalidPayload
	ErrInvalidCredentials = auth.ErrInvalidCredentials
	ErrAccountDisabled    = errors.New("account disabled")
	ErrForbidden          = errors.New("forbidden")
)

// GatewayError reports a failed intent creation. The order it names was
// persisted and is still pending, so the checkout can be retried.
type GatewayError struct {
	OrderID int64
	Err     error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway failed for order %d: %v", e.OrderID, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

func (e *GatewayError) Is(target error) bool { return target == ErrGateway }

// ValidationError is returned when input passes binding but breaks a domain rule
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
