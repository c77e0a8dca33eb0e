// Package observability provides the Prometheus metrics and the
// dedicated admin server exposing them next to the health probes.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// namespace prefixes every metric (flipper_...).
const namespace = "flipper"

var (
	// HTTPRequestDuration measures API request latency.
	// Metric: flipper_http_request_duration_seconds
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Time taken to handle API requests",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	// HTTPRequestsTotal counts API requests by status class.
	// Metric: flipper_http_requests_total
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total API requests",
	}, []string{"method", "path", "code"})
)

// ObserveHTTPRequest records one completed API request.
func ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	HTTPRequestsTotal.WithLabelValues(method, path, statusClass(status)).Inc()
}

// statusClass buckets status codes (2xx, 4xx, ...) to keep label
// cardinality flat.
func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
