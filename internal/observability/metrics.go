// Package observability holds the Prometheus collectors. They are registered
// on the default registry at init through promauto and served by /metrics.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts finished requests by method, chi route pattern
	// and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fragmenthub_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	// HTTPRequestDuration records request latency by method and route pattern.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fragmenthub_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// FragmentViews counts recorded fragment detail views.
	FragmentViews = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fragmenthub_fragment_views_total",
		Help: "Total number of fragment views recorded",
	})

	// Likes counts like state changes; action is "like" or "unlike".
	// No-op requests are not counted.
	Likes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fragmenthub_likes_total",
		Help: "Total number of likes added and removed",
	}, []string{"action"})
)

// RecordLike increments the like counter for action.
func RecordLike(action string) {
	Likes.WithLabelValues(action).Inc()
}

// DatabaseQueryLatency records store query latency by operation and table.
var DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "fragmenthub_database_query_latency_seconds",
	Help:    "Database query latency in seconds",
	Buckets: prometheus.DefBuckets,
}, []string{"operation", "table"})

// TrackQuery starts a latency measurement; call the returned func (usually
// with defer) when the query is done.
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
