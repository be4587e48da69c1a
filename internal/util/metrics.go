package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CartMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_mutations_total",
		Help: "Total number of cart mutations",
	}, []string{"op"})

	CheckoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_checkouts_total",
		Help: "Checkout attempts by outcome",
	}, []string{"outcome"})

	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_orders_created_total",
		Help: "Total number of orders created",
	})

	OrdersConfirmedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_orders_confirmed_total",
		Help: "Total number of orders confirmed, by confirmation source",
	}, []string{"source"})

	PaymentIntentLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storefront_payment_intent_latency_seconds",
		Help:    "Latency of payment intent creation at the gateway",
		Buckets: prometheus.DefBuckets,
	})

	PaymentIntentFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_payment_intent_failed_total",
		Help: "Total number of failed payment intent creations",
	})

	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_webhook_events_total",
		Help: "Payment webhook deliveries by event type and outcome",
	}, []string{"type", "outcome"})

	StatsEventsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_stats_events_processed_total",
		Help: "Order events applied to the stats tables",
	}, []string{"outcome"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
