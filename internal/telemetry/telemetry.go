// Package telemetry exposes Prometheus collectors for the counter service.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors register with the default registry at package load, so any
// package can record observations without a setup call.
var (
	fetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "counter_fetch_attempts_total",
			Help: "Total number of fetch attempts, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	cacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "counter_cache_lookups_total",
			Help: "Total number of response cache lookups, labeled by result.",
		},
		[]string{"result"},
	)

	fetchInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "counter_fetch_in_flight",
			Help: "Number of fetches currently holding a gate permit.",
		},
	)

	fetchBackoffSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "counter_fetch_backoff_seconds",
			Help:    "Histogram of backoff delays between retry attempts.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)
)

// Fetch attempt outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeRetryable = "retryable"
	OutcomeTerminal  = "terminal"
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetchAttempt increments the fetch attempt counter.
func ObserveFetchAttempt(outcome string) {
	fetchAttemptsTotal.WithLabelValues(outcome).Inc()
}

// ObserveCacheLookup records a cache hit or miss.
func ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookupsTotal.WithLabelValues(result).Inc()
}

// IncFetchInFlight increments the in-flight fetch gauge.
func IncFetchInFlight() {
	fetchInFlight.Inc()
}

// DecFetchInFlight decrements the in-flight fetch gauge.
func DecFetchInFlight() {
	fetchInFlight.Dec()
}

// ObserveBackoff records the delay slept before a retry attempt.
func ObserveBackoff(delay time.Duration) {
	fetchBackoffSeconds.Observe(delay.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
