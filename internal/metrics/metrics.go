// Package metrics holds the Prometheus collectors of the repclock server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Request metrics
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repclock_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "repclock_http_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// Session metrics
	SessionsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repclock_sessions_received_total",
			Help: "Session records pushed by clients",
		},
		[]string{"status"},
	)

	SessionVolume = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "repclock_session_volume",
			Help:    "Training volume of pushed completed sessions",
			Buckets: prometheus.ExponentialBuckets(500, 2, 8),
		},
	)

	SessionEntries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repclock_session_entries_total",
			Help: "Completed sets and round entries received",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		SessionsReceived,
		SessionVolume,
		SessionEntries,
	)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
