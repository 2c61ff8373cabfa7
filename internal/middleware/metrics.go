package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RedisErrors counts Redis command failures by command name.
var RedisErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "citypulse_redis_errors_total",
		Help: "Total number of Redis command errors",
	},
	[]string{"command"},
)

// FeedEventsPublished counts feed change events by action.
var FeedEventsPublished = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "citypulse_feed_events_total",
		Help: "Total number of feed change events published",
	},
	[]string{"action"},
)

// AIRequests counts AI assistant calls by endpoint and outcome.
var AIRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "citypulse_ai_requests_total",
		Help: "Total number of AI assistant requests",
	},
	[]string{"endpoint", "outcome"},
)

var promMiddleware *fiberprometheus.FiberPrometheus

// InitMetrics registers the Prometheus HTTP middleware and its /metrics route.
func InitMetrics(app *fiber.App) {
	promMiddleware = fiberprometheus.New("citypulse")
	promMiddleware.RegisterAt(app, "/metrics")
}

// MetricsMiddleware returns the request-level Prometheus middleware.
func MetricsMiddleware() fiber.Handler {
	if promMiddleware == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return promMiddleware.Middleware
}
