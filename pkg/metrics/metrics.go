// Package metrics provides the Prometheus registry, the /metrics handler and
// the HTTP middleware of the nrs-views server.
// Domain metrics are defined in their respective packages (client, cache,
// ratelimit, properties) to keep them next to the code that updates them.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry.
// All metrics are registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nrs_http_requests_total",
		Help: "Total HTTP requests served by route and status",
	}, []string{"route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nrs_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

// Handler serves the default gatherer.
func Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
}

// Middleware records request count and duration labelled by the matched
// mux route template, so account ids do not explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := RouteName(r)
		httpRequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// RouteName returns the path template of the matched route or "unmatched".
func RouteName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Metrics Documentation
//
// Error Budget Metrics (pkg/ratelimit):
//   - nrs_node_errors_remaining (Gauge): Failures the current window still tolerates
//   - nrs_node_budget_blocks_total (Counter): Requests blocked by an exhausted budget
//   - nrs_node_budget_throttles_total (Counter): Requests delayed by a low budget
//
// Cache Metrics (pkg/cache):
//   - nrs_cache_hits_total (Counter): Cache hits
//   - nrs_cache_misses_total (Counter): Cache misses
//   - nrs_cache_stored_bytes_total (Counter): Bytes written to the cache
//   - nrs_cache_not_modified_total (Counter): 304 Not Modified responses
//   - nrs_cache_conditional_requests_total (Counter): Conditional requests sent
//   - nrs_cache_errors_total{operation} (Counter): Cache operation errors
//
// Node Request Metrics (pkg/client):
//   - nrs_node_requests_total{request_type, status} (Counter): Requests by requestType and status
//   - nrs_node_request_duration_seconds{request_type} (Histogram): Request duration
//   - nrs_node_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, node)
//   - nrs_node_retries_total{error_class} (Counter): Retry attempts
//   - nrs_node_retry_backoff_seconds{error_class} (Histogram): Backoff durations
//   - nrs_node_retry_exhausted_total{error_class} (Counter): Requests that exhausted retries
//
// View Metrics (pkg/properties, pkg/metrics):
//   - nrs_properties_fetch_total{direction, result} (Counter): Property page fetches
//   - nrs_properties_fetch_duration_seconds{direction} (Histogram): Property page fetch duration
//   - nrs_http_requests_total{route, status} (Counter): Served HTTP requests
//   - nrs_http_request_duration_seconds{route} (Histogram): Served HTTP request duration
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(nrs_cache_hits_total[5m])) /
//   (sum(rate(nrs_cache_hits_total[5m])) + sum(rate(nrs_cache_misses_total[5m])))
//
//   # Error Budget Status
//   nrs_node_errors_remaining < 20
//
//   # Node Error Rate
//   rate(nrs_node_errors_total[5m])
//
//   # P95 Property Page Latency
//   histogram_quantile(0.95, rate(nrs_properties_fetch_duration_seconds_bucket[5m]))
