package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"storefront/config"
	"storefront/internal/auth"
	"storefront/internal/service"
	"storefront/internal/session"
	"storefront/internal/util"
)

// Pinger is a dependency the readiness probe checks
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles everything the HTTP layer calls into
type Services struct {
	Catalog  *service.CatalogService
	Cart     *service.CartService
	Checkout *service.CheckoutService
	Payments *service.PaymentService
	Orders   *service.OrderService
	Accounts *service.AccountService
	Wishlist *service.WishlistService
	Admin    *service.AdminService
}

// Handler contains HTTP handlers
type Handler struct {
	svc       Services
	tokens    *auth.TokenManager
	session   config.SessionConfig
	readiness map[string]Pinger
	logger    *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(svc Services, tokens *auth.TokenManager, sess config.SessionConfig, readiness map[string]Pinger) *Handler {
	return &Handler{
		svc:       svc,
		tokens:    tokens,
		session:   sess,
		readiness: readiness,
		logger:    util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(requestLogger(h.logger))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Provider callbacks carry no session or token.
	router.POST("/payments/stripe/webhook/", h.stripeWebhook)

	v1 := router.Group("/api/v1")
	v1.Use(session.Middleware(h.session.CookieName, h.session.CookieSecure, h.session.CartTTL))
	{
		catalog := v1.Group("/catalog")
		catalog.GET("", h.home)
		catalog.GET("/products", h.listProducts)
		catalog.GET("/category/:slug", h.listCategoryProducts)
		catalog.GET("/product/:slug", h.productDetail)

		cart := v1.Group("/cart")
		cart.GET("", h.viewCart)
		cart.POST("/add/:product_id", h.addToCart)
		cart.POST("/remove/:product_id", h.removeFromCart)

		accounts := v1.Group("/accounts")
		accounts.POST("/signup", h.signup)
		accounts.POST("/login", h.login)

		private := accounts.Group("", AuthRequired(h.tokens, h.svc.Accounts))
		private.GET("/profile", h.getProfile)
		private.PUT("/profile", h.updateProfile)
		private.GET("/addresses", h.listAddresses)
		private.POST("/addresses", h.addAddress)
		private.PUT("/addresses/:id", h.updateAddress)

		orders := v1.Group("/orders", AuthRequired(h.tokens, h.svc.Accounts))
		orders.GET("/checkout", h.checkoutForm)
		orders.POST("/checkout", h.checkout)
		orders.GET("/payment-success", h.paymentSuccess)
		orders.GET("", h.listOrders)
		orders.GET("/:id", h.getOrder)

		wishlist := v1.Group("/wishlist", AuthRequired(h.tokens, h.svc.Accounts))
		wishlist.GET("", h.listWishlist)
		wishlist.POST("/toggle/:product_id", h.toggleWishlist)
		wishlist.POST("/remove/:product_id", h.removeFromWishlist)

		h.setupAdminRoutes(v1.Group("/admin", AuthRequired(h.tokens, h.svc.Accounts), AdminRequired()))
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready only when every dependency answers
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, dep := range h.readiness {
		if err := dep.Ping(ctx); err != nil {
			h.logger.Warn("Readiness check failed", zap.String("dependency", name), zap.Error(err))
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"failed": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}
