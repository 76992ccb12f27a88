package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platewarp_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "platewarp_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Plate processing metrics
	plateRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platewarp_plate_requests_total",
			Help: "Total number of plate processing requests",
		},
		[]string{"type", "status"}, // type: detect, image, video
	)

	plateProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "platewarp_plate_processing_duration_seconds",
			Help:    "Plate processing duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 25, 60, 120},
		},
		[]string{"type"},
	)

	videoFramesExamined = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "platewarp_video_frames_examined",
			Help:    "Number of frames examined per video sweep",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		},
	)

	// File upload metrics
	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "platewarp_upload_size_bytes",
			Help:    "Size of uploaded files in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024, 100 * 1024 * 1024},
		},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "platewarp_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platewarp_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)
)
