package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/fragmenthub/internal/observability"
)

// unmatchedRoute labels requests that matched no route, so random 404 probes
// do not create a new time series per URL.
const unmatchedRoute = "unmatched"

// Metrics records request count and latency in Prometheus.
//
// ROUTE LABEL:
// The label is chi's route pattern ("/api/v1/fragments/{id}"), not the raw
// path. Raw paths contain IDs, and one label value per fragment would blow up
// the number of series. The pattern is only known after chi has routed the
// request, which is why it is read after next.ServeHTTP returns.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := newStatusRecorder(w)

		next.ServeHTTP(rec, r)

		route := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		observability.HTTPRequestsTotal.
			WithLabelValues(r.Method, route, strconv.Itoa(rec.statusCode)).
			Inc()
		observability.HTTPRequestDuration.
			WithLabelValues(r.Method, route).
			Observe(time.Since(start).Seconds())
	})
}
