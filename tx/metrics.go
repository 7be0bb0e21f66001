package tx

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/digijoe7/mezo-relayer/observability"
)

const (
	metricsNamespace = "mezo"
	metricsSubsystem = "tx"
)

var (
	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "submissions_total",
			Help:      "Total number of transaction submissions by result",
		},
		[]string{"result"},
	)

	submissionErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "submission_errors_total",
			Help:      "Total number of failed submissions by error classification",
		},
		[]string{"error_type"},
	)

	submissionLatencySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "submission_latency_seconds",
			Help:      "Transaction submission latency in seconds",
			Buckets:   observability.FineGrainedLatencyBuckets,
		},
	)
)
