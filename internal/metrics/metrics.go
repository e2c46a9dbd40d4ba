// Package metrics exposes Prometheus counters for auth flows and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records auth outcomes and request latencies.
type Collector struct {
	authEvents      *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpLatency     *prometheus.HistogramVec
	rateLimitDenied *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lumina_auth_events_total",
			Help: "Auth flow outcomes by flow and result code.",
		}, []string{"flow", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lumina_http_requests_total",
			Help: "HTTP responses by route and status code.",
		}, []string{"route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lumina_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		rateLimitDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lumina_rate_limit_denied_total",
			Help: "Requests rejected by the per-client rate limiter.",
		}, []string{"route"}),
	}

	reg.MustRegister(
		c.authEvents,
		c.httpRequests,
		c.httpLatency,
		c.rateLimitDenied,
	)

	return c
}

// RecordAuthEvent counts one auth flow outcome.
func (c *Collector) RecordAuthEvent(flow, result string) {
	c.authEvents.WithLabelValues(flow, result).Inc()
}

// RecordHTTPRequest counts a response and observes its latency.
func (c *Collector) RecordHTTPRequest(route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(route, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordRateLimited counts a request rejected with 429.
func (c *Collector) RecordRateLimited(route string) {
	c.rateLimitDenied.WithLabelValues(route).Inc()
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
