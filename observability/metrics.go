package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "mezo"
	metricsSubsystem = "observability"
)

// FineGrainedLatencyBuckets provides sub-millisecond to multi-second
// measurement. Use for relay latency, chain queries, and signing.
// Buckets: 1ms, 2ms, 5ms, 10ms, 25ms, 50ms, 100ms, 250ms, 500ms, 1s, 2.5s, 5s, 10s, 30s
var FineGrainedLatencyBuckets = []float64{0.001, 0.002, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

var (
	// StartupDurationSeconds tracks how long each component took to start.
	StartupDurationSeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "startup_duration_seconds",
			Help:      "Time taken for a component to start",
		},
		[]string{"component"},
	)
)
