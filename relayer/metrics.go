package relayer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/digijoe7/mezo-relayer/observability"
)

const (
	metricsNamespace = "mezo"
	metricsSubsystem = "relayer"
)

var (
	// Relay pipeline metrics
	relaysTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "relays_total",
			Help:      "Total number of relay requests by result",
		},
		[]string{"result"},
	)

	relayStageErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "relay_stage_errors_total",
			Help:      "Total number of relay failures by pipeline stage",
		},
		[]string{"stage"},
	)

	relayLatencySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "relay_latency_seconds",
			Help:      "End-to-end relay latency in seconds",
			Buckets:   observability.FineGrainedLatencyBuckets,
		},
	)

	// Gas and fee metrics
	relayGasEstimate = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "gas_estimate",
			Help:      "Node gas estimates for relayMove calls",
			Buckets:   []float64{50000, 100000, 150000, 200000, 250000, 300000, 400000, 500000},
		},
	)

	relayGasLimit = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "gas_limit",
			Help:      "Gas limits set on relay transactions",
			Buckets:   []float64{50000, 100000, 150000, 200000, 250000, 300000, 400000, 500000},
		},
	)

	gasEstimateFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "gas_estimate_fallbacks_total",
			Help:      "Total number of relays priced with the fallback gas limit",
		},
	)

	feeStrategiesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "fee_strategies_total",
			Help:      "Total number of relays priced by each fee strategy",
		},
		[]string{"strategy"},
	)

	// Balance monitor metrics
	relayerBalanceWei = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "balance_wei",
			Help:      "Current relayer account balance in wei",
		},
	)

	relayerBalanceHealthStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "balance_health_status",
			Help:      "Relayer balance health (0 = critical, 1 = warning, 2 = healthy)",
		},
	)

	relayerBalanceCheckErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "balance_check_errors_total",
			Help:      "Total number of failed balance checks",
		},
	)
)
