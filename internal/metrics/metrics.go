// Package metrics registers the Prometheus collectors of the API and exposes
// them on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kalam_http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kalam_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	OrderTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kalam_order_transitions_total",
			Help: "Order status changes by target status",
		},
		[]string{"status"},
	)

	PaymentCallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kalam_payment_callbacks_total",
			Help: "Gateway deliveries by source and result",
		},
		[]string{"source", "result"},
	)

	CatalogCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kalam_catalog_cache_total",
			Help: "Event catalog cache lookups by result",
		},
		[]string{"result"},
	)

	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kalam_notifications_total",
			Help: "Notifications published by type and result",
		},
		[]string{"type", "result"},
	)
)

// Middleware records request count and latency. The route label is the
// matched route pattern, so ids never reach the label set.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		route := c.Route().Path
		if route == "" || route == "/" {
			route = "unmatched"
		}

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		httpRequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
