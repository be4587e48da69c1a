package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/models"
	"storefront/internal/service"
	"storefront/internal/session"
)

const maxWebhookBody = 64 << 10

type formField struct {
	Name      string `json:"name"`
	Required  bool   `json:"required"`
	MaxLength int    `json:"max_length"`
}

var checkoutFields = []formField{
	{Name: "first_name", Required: true, MaxLength: 100},
	{Name: "last_name", Required: true, MaxLength: 100},
	{Name: "email", Required: true, MaxLength: 254},
	{Name: "phone", MaxLength: 20},
	{Name: "address", Required: true, MaxLength: 250},
	{Name: "city", Required: true, MaxLength: 100},
	{Name: "postal_code", Required: true, MaxLength: 20},
	{Name: "country", Required: true, MaxLength: 100},
}

// checkoutForm returns the shipping form and the cart being checked out
func (h *Handler) checkoutForm(c *gin.Context) {
	summary, err := h.svc.Checkout.Summary(c.Request.Context(), session.ID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"fields": checkoutFields,
		"cart":   summary,
	})
}

func (h *Handler) checkout(c *gin.Context) {
	var form models.ShippingDetails
	if err := c.ShouldBind(&form); err != nil {
		bindFailed(c, err)
		return
	}

	result, err := h.svc.Checkout.Checkout(c.Request.Context(), currentUserID(c), session.ID(c), form)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.svc.Orders.ListOrders(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) getOrder(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	order, err := h.svc.Orders.GetOrder(c.Request.Context(), currentUserID(c), orderID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// paymentSuccess is where the customer lands after paying. The order is
// reported as it stands and confirmation arrives through the webhook.
func (h *Handler) paymentSuccess(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Query("order_id"), 10, 64)
	if err != nil || orderID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order id"})
		return
	}

	order, err := h.svc.Payments.ConfirmFromRedirect(c.Request.Context(), currentUserID(c), orderID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order":    order,
		"redirect": "/api/v1/orders",
	})
}

// stripeWebhook verifies and applies a Stripe event. Every authenticated
// event is acknowledged so the provider stops retrying.
func (h *Handler) stripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.logger.Warn("Webhook body too large", zap.Int64("limit", tooLarge.Limit))
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Payload too large"})
		return
	}
	if err != nil {
		h.logger.Warn("Failed to read webhook body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	err = h.svc.Payments.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	case errors.Is(err, service.ErrInvalidSignature):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
	}
}
