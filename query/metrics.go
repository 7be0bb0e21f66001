package query

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/digijoe7/mezo-relayer/observability"
)

const (
	metricsNamespace = "mezo"
	metricsSubsystem = "query"
)

var (
	queriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "queries_total",
			Help:      "Total number of chain queries",
		},
		[]string{"method"},
	)

	queryErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "query_errors_total",
			Help:      "Total number of query errors",
		},
		[]string{"method"},
	)

	queryLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "query_latency_seconds",
			Help:      "Query latency in seconds",
			Buckets:   observability.FineGrainedLatencyBuckets,
		},
		[]string{"method"},
	)
)
