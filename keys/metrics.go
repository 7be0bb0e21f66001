package keys

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "mezo"
	metricsSubsystem = "keys"
)

// Key source labels for the load error counter.
const (
	sourceEnv  = "env"
	sourceFile = "file"
	sourceNone = "none"
)

var (
	keyLoadErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "load_errors_total",
			Help:      "Total number of relayer key load errors",
		},
		[]string{"source"},
	)
)
