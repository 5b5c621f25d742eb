package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/resilient-banking/pkg"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bank_api",
		Name:      "http_request_duration_seconds",
		Help:      "Latency of API requests by route and status.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "route", "status"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bank_api",
		Name:      "http_requests_total",
		Help:      "API requests by route, status and caller role.",
	}, []string{"method", "route", "status", "role"})

	httpInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bank_api",
		Name:      "http_requests_in_flight",
		Help:      "Requests currently being served.",
	})
)

// Metrics records latency and counts per route pattern. Requests that match
// no route share the "unmatched" label so random paths cannot blow up cardinality.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		httpInFlight.Inc()
		start := time.Now()

		c.Next()

		httpInFlight.Dec()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		role := "anonymous"
		if r, ok := c.Get(pkg.UserRole); ok {
			if r, ok := r.(pkg.Role); ok {
				role = string(r)
			}
		}
		status := strconv.Itoa(c.Writer.Status())
		httpRequestDuration.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(c.Request.Method, route, status, role).Inc()
	}
}
