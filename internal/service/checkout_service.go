package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"storefront/internal/models"
	"storefront/internal/payment"
	"storefront/internal/util"
)

const checkoutLockTTL = 30 * time.Second

// CheckoutConfig holds the payment settings checkout needs
type CheckoutConfig struct {
	Currency       string
	PublishableKey string
	PaymentTimeout time.Duration
}

// CheckoutService turns a session cart into a pending order with an open payment intent
type CheckoutService struct {
	carts     CartStore
	cartView  *CartService
	orders    OrderLedger
	gateway   payment.Gateway
	publisher EventPublisher
	locker    Locker
	cfg       CheckoutConfig
	logger    *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	carts CartStore,
	cartView *CartService,
	orders OrderLedger,
	gateway payment.Gateway,
	publisher EventPublisher,
	locker Locker,
	cfg CheckoutConfig,
) *CheckoutService {
	return &CheckoutService{
		carts:     carts,
		cartView:  cartView,
		orders:    orders,
		gateway:   gateway,
		publisher: publisher,
		locker:    locker,
		cfg:       cfg,
		logger:    util.GetLogger(),
	}
}

// CheckoutResult is what the client needs to confirm the payment
type CheckoutResult struct {
	Order          *models.Order `json:"order"`
	ClientSecret   string        `json:"client_secret"`
	PublishableKey string        `json:"publishable_key"`
}

// Summary returns the cart about to be checked out
func (s *CheckoutService) Summary(ctx context.Context, sessionID string) (*CartView, error) {
	view, err := s.cartView.View(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(view.Items) == 0 {
		return nil, ErrEmptyCart
	}
	return view, nil
}

// ToMinorUnits converts a decimal amount to cents
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Round(2).Shift(2).IntPart()
}

// Checkout creates a pending order from the session cart and opens a
// payment intent for it. When the gateway fails the order stays pending and
// the cart is kept, and a *GatewayError is returned.
func (s *CheckoutService) Checkout(ctx context.Context, userID int64, sessionID string, form models.ShippingDetails) (*CheckoutResult, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.Checkout", attribute.Int64("user_id", userID))
	defer span.End()

	lockKey := "checkout:" + sessionID
	if s.locker != nil {
		token, acquired, err := s.locker.AcquireLock(ctx, lockKey, checkoutLockTTL)
		switch {
		case err != nil:
			s.logger.Warn("Failed to acquire checkout lock, continuing without it", zap.Error(err))
		case !acquired:
			util.CheckoutsTotal.WithLabelValues("in_progress").Inc()
			return nil, ErrCheckoutInProgress
		default:
			defer func() {
				if err := s.locker.ReleaseLock(context.Background(), lockKey, token); err != nil {
					s.logger.Warn("Failed to release checkout lock", zap.Error(err))
				}
			}()
		}
	}

	crt, err := s.carts.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if crt.IsEmpty() {
		util.CheckoutsTotal.WithLabelValues("empty_cart").Inc()
		return nil, ErrEmptyCart
	}

	order := &models.Order{
		UserID:          userID,
		ShippingDetails: form,
		TotalPrice:      crt.TotalPrice(),
		Status:          models.OrderStatusPending,
	}
	for _, e := range crt.Entries() {
		order.Items = append(order.Items, models.OrderItem{
			ProductID: e.ProductID,
			Price:     e.Price,
			Quantity:  e.Quantity,
		})
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		util.CheckoutsTotal.WithLabelValues("db_error").Inc()
		util.RecordError(span, err)
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	util.OrdersCreatedTotal.Inc()
	span.SetAttributes(attribute.Int64("order_id", order.ID))
	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", userID),
		zap.String("total_price", order.TotalPrice.StringFixed(2)))

	intent, err := s.createIntent(ctx, order)
	if err != nil {
		util.CheckoutsTotal.WithLabelValues("gateway_error").Inc()
		util.RecordError(span, err)
		s.logger.Error("Payment intent creation failed, order left pending",
			zap.Int64("order_id", order.ID),
			zap.Error(err))
		return nil, &GatewayError{OrderID: order.ID, Err: err}
	}

	if err := s.orders.SetPaymentReference(ctx, order.ID, intent.ID); err != nil {
		// the webhook carries the intent id as well, so it can still confirm
		s.logger.Error("Failed to store payment reference",
			zap.Int64("order_id", order.ID),
			zap.String("payment_reference", intent.ID),
			zap.Error(err))
	} else {
		ref := intent.ID
		order.PaymentReference = &ref
	}

	if err := s.carts.Clear(ctx, sessionID); err != nil {
		s.logger.Error("Failed to clear cart after checkout", zap.String("session_id", sessionID), zap.Error(err))
	}

	if err := s.publisher.PublishOrderCreated(ctx, order); err != nil {
		s.logger.Error("Failed to publish OrderCreated event", zap.Int64("order_id", order.ID), zap.Error(err))
	}

	util.CheckoutsTotal.WithLabelValues("success").Inc()
	return &CheckoutResult{
		Order:          order,
		ClientSecret:   intent.ClientSecret,
		PublishableKey: s.cfg.PublishableKey,
	}, nil
}

func (s *CheckoutService) createIntent(ctx context.Context, order *models.Order) (*payment.Intent, error) {
	if s.cfg.PaymentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.PaymentTimeout)
		defer cancel()
	}

	intent, err := s.gateway.CreateIntent(ctx, payment.IntentRequest{
		AmountMinor: ToMinorUnits(order.TotalPrice),
		Currency:    s.cfg.Currency,
		Metadata:    map[string]string{"order_id": strconv.FormatInt(order.ID, 10)},
	})
	if err != nil {
		return nil, err
	}
	if intent == nil || intent.ID == "" {
		return nil, errors.New("gateway returned an empty intent")
	}
	return intent, nil
}
