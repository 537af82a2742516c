package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/camden-git/siteguard/detection"
)

var (
	PipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "siteguard",
		Name:      "pipeline_runs_total",
		Help:      "Detection pipeline invocations by outcome",
	}, []string{"pipeline", "outcome"})

	PipelineDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "siteguard",
		Name:      "pipeline_duration_seconds",
		Help:      "Duration of detection pipelines",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"pipeline"})

	FaceMatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "siteguard",
		Name:      "face_matches_total",
		Help:      "Face verification results by reason",
	}, []string{"reason"})

	PlateDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "siteguard",
		Name:      "plate_decisions_total",
		Help:      "Plate access decisions",
	}, []string{"authorized"})

	OccupiedSpaces = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "siteguard",
		Name:      "occupied_spaces",
		Help:      "Occupied spaces per organization after the last analysis",
	}, []string{"organization"})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "siteguard",
		Name:      "detection_queue_depth",
		Help:      "Number of detection jobs waiting in the queue",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "siteguard",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "siteguard",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)

// Outcome maps a pipeline error to a short label value.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if code := detection.Code(err); code != "" {
		return code
	}
	return "error"
}

// ObservePipeline records one run of a pipeline started at start.
func ObservePipeline(pipeline string, start time.Time, err error) {
	PipelineDuration.WithLabelValues(pipeline).Observe(time.Since(start).Seconds())
	PipelineRuns.WithLabelValues(pipeline, Outcome(err)).Inc()
}
