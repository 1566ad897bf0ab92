package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics tracks inbound request volume and latency.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHTTPMetrics() *HTTPMetrics {
	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loomsite",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "loomsite",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
	prometheus.MustRegister(m.requests, m.duration)
	return m
}

// GinMiddleware records per-request metrics.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		m.requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// DomainMetrics tracks the custom-domain verification loop.
type DomainMetrics struct {
	verifyOutcomes *prometheus.CounterVec
	pollAttempts   prometheus.Histogram
}

func NewDomainMetrics() *DomainMetrics {
	m := &DomainMetrics{
		verifyOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loomsite",
			Subsystem: "domains",
			Name:      "verify_total",
			Help:      "Domain verification attempts by outcome reason.",
		}, []string{"outcome"}),
		pollAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "loomsite",
			Subsystem: "domains",
			Name:      "registrar_poll_attempts",
			Help:      "Registrar status polls consumed per verification.",
			Buckets:   []float64{1, 2, 3, 4, 6, 8, 10, 12},
		}),
	}
	prometheus.MustRegister(m.verifyOutcomes, m.pollAttempts)
	return m
}

// RecordVerify records one completed verification pass.
func (m *DomainMetrics) RecordVerify(outcome string, polls int) {
	if m == nil {
		return
	}
	m.verifyOutcomes.WithLabelValues(outcome).Inc()
	if polls > 0 {
		m.pollAttempts.Observe(float64(polls))
	}
}
