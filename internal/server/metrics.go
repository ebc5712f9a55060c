package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viafoto_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "viafoto_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	photosSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "viafoto_photos_submitted_total",
			Help: "Total number of photos submitted for classification",
		},
	)

	resultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viafoto_results_total",
			Help: "Classification results by outcome",
		},
		[]string{"outcome"}, // outcome: success, error, skipped
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "viafoto_run_duration_seconds",
			Help:    "Duration of complete classification runs",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	creditExhaustions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "viafoto_credit_exhaustions_total",
			Help: "Number of runs stopped by provider credit exhaustion",
		},
	)

	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "viafoto_upload_size_bytes",
			Help:    "Size of uploaded photos in bytes",
			Buckets: []float64{10 * 1024, 100 * 1024, 1024 * 1024, 5 * 1024 * 1024, 20 * 1024 * 1024},
		},
	)

	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "viafoto_websocket_active_connections",
			Help: "Number of active progress stream connections",
		},
	)
)
