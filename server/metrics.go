package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/digijoe7/mezo-relayer/observability"
)

const (
	metricsNamespace = "mezo"
	metricsSubsystem = "http"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, route and status",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "request_latency_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   observability.FineGrainedLatencyBuckets,
		},
		[]string{"method", "path"},
	)
)
