// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the collectors the service records into.
type Metrics struct {
	paymentsTotal       *prometheus.CounterVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		paymentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payments_total",
				Help: "Payment gate outcomes by stage and rejection reason",
			},
			[]string{"outcome", "reason"},
		),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"path", "method", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),
	}
	reg.MustRegister(m.paymentsTotal, m.httpRequestsTotal, m.httpRequestDuration)
	return m
}

// PaymentObserved records a payment gate outcome. Reason is the error
// code for rejections and "none" otherwise.
func (m *Metrics) PaymentObserved(outcome, reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "none"
	}
	m.paymentsTotal.WithLabelValues(outcome, reason).Inc()
}

// GinMiddleware records per-request counters and latency. Uses the route
// template rather than the raw path to keep label cardinality bounded.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.httpRequestsTotal.WithLabelValues(path, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpRequestDuration.WithLabelValues(path, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
