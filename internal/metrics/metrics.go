// Package metrics declares the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts handled requests by route template and status.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cliptag_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cliptag_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cliptag_sessions_created_total",
			Help: "Total number of sessions created",
		},
	)

	EventsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cliptag_events_recorded_total",
			Help: "Total number of events stored",
		},
	)

	// VideoRelayBytes counts bytes streamed from the upstream video to clients.
	VideoRelayBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cliptag_video_relay_bytes_total",
			Help: "Bytes relayed from the upstream video source",
		},
	)

	// VideoRelayFailures counts relay failures.
	// Labels:
	//   - reason: "unconfigured", "status", "html", "network"
	VideoRelayFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cliptag_video_relay_failures_total",
			Help: "Video relay failures by reason",
		},
		[]string{"reason"},
	)

	// ExportJobs counts asynchronous export jobs by outcome ("enqueued", "completed", "failed").
	ExportJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cliptag_export_jobs_total",
			Help: "Asynchronous CSV export jobs by outcome",
		},
		[]string{"outcome"},
	)
)
