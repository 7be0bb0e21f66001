package wallet

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "mezo"
	metricsSubsystem = "wallet"
)

const (
	probeSupported   = "supported"
	probeUnsupported = "unsupported"
	probeError       = "error"
)

var capabilityProbesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "capability_probes_total",
		Help:      "Total number of authorizedRelayer capability probes by outcome",
	},
	[]string{"result"},
)
