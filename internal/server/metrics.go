package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfocr_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shelfocr_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Matching metrics
	matchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfocr_match_requests_total",
			Help: "Total number of product match requests",
		},
		[]string{"source", "status"}, // source: http, websocket
	)

	matchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shelfocr_match_duration_seconds",
			Help:    "Frame analysis duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2, 4, 8, 16},
		},
		[]string{"source"},
	)

	matchScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shelfocr_match_score",
			Help:    "Total score of the best catalog match",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	matchAccepted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfocr_match_decisions_total",
			Help: "Match decisions by outcome",
		},
		[]string{"accepted"},
	)

	// Rate limiting metrics
	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfocr_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"}, // type: minute, hour
	)

	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shelfocr_upload_size_bytes",
			Help:    "Size of uploaded frames in bytes",
			Buckets: []float64{10 * 1024, 100 * 1024, 512 * 1024, 1024 * 1024, 4 * 1024 * 1024, 16 * 1024 * 1024},
		},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shelfocr_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfocr_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)
)
