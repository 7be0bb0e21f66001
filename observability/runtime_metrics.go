package observability

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/digijoe7/mezo-relayer/logging"
)

// Runtime metrics are registered once at package init; the collector only
// updates them, so creating more than one collector is harmless.
var (
	runtimeGoroutines = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "runtime",
		Name:      "goroutines",
		Help:      "Number of goroutines",
	})

	runtimeHeapAlloc = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "runtime",
		Name:      "heap_alloc_bytes",
		Help:      "Bytes of allocated heap objects",
	})

	runtimeHeapSys = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "runtime",
		Name:      "heap_sys_bytes",
		Help:      "Bytes of heap memory obtained from the OS",
	})

	runtimeHeapObjects = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "runtime",
		Name:      "heap_objects",
		Help:      "Number of allocated heap objects",
	})

	runtimeStackInuse = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "runtime",
		Name:      "stack_inuse_bytes",
		Help:      "Bytes in stack spans",
	})

	runtimeGCCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "runtime",
		Name:      "gc_completed_total",
		Help:      "Number of completed GC cycles",
	})

	runtimeGCPauseTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "runtime",
		Name:      "gc_pause_total_nanoseconds",
		Help:      "Cumulative nanoseconds in GC stop-the-world pauses",
	})

	runtimeLastGC = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "runtime",
		Name:      "last_gc_timestamp_seconds",
		Help:      "Unix timestamp of the last completed GC cycle",
	})
)

// RuntimeMetricsCollectorConfig configures the runtime metrics collector.
type RuntimeMetricsCollectorConfig struct {
	// CollectInterval is how often runtime stats are sampled.
	// Default: 15s
	CollectInterval time.Duration
}

// DefaultRuntimeMetricsCollectorConfig returns sensible defaults.
func DefaultRuntimeMetricsCollectorConfig() RuntimeMetricsCollectorConfig {
	return RuntimeMetricsCollectorConfig{
		CollectInterval: 15 * time.Second,
	}
}

// RuntimeMetricsCollector periodically samples Go runtime statistics into
// Prometheus metrics.
type RuntimeMetricsCollector struct {
	logger   logging.Logger
	config   RuntimeMetricsCollectorConfig
	cancelFn context.CancelFunc
	wg       sync.WaitGroup

	// GC stats are cumulative in MemStats; deltas feed the counters.
	lastNumGC      uint32
	lastPauseTotal uint64

	mu      sync.Mutex
	running bool
}

// NewRuntimeMetricsCollector creates a new runtime metrics collector.
func NewRuntimeMetricsCollector(logger logging.Logger, config RuntimeMetricsCollectorConfig) *RuntimeMetricsCollector {
	if config.CollectInterval <= 0 {
		config.CollectInterval = 15 * time.Second
	}

	return &RuntimeMetricsCollector{
		logger: logging.ForComponent(logger, logging.ComponentRuntimeMetrics),
		config: config,
	}
}

// Start begins periodic collection.
func (c *RuntimeMetricsCollector) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	var collectCtx context.Context
	collectCtx, c.cancelFn = context.WithCancel(ctx)

	c.collect()

	c.wg.Add(1)
	go logging.RecoverGoRoutine(c.logger, logging.ComponentRuntimeMetrics, func(ctx context.Context) {
		defer c.wg.Done()

		ticker := time.NewTicker(c.config.CollectInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.collect()
			}
		}
	})(collectCtx)

	c.running = true
	c.logger.Debug().Dur(logging.FieldDuration, c.config.CollectInterval).Msg("runtime metrics collector started")

	return nil
}

// Stop halts collection and waits for the collector goroutine.
func (c *RuntimeMetricsCollector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}

	c.cancelFn()
	c.wg.Wait()
	c.running = false
}

// collect samples the runtime once.
func (c *RuntimeMetricsCollector) collect() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	runtimeGoroutines.Set(float64(runtime.NumGoroutine()))
	runtimeHeapAlloc.Set(float64(ms.HeapAlloc))
	runtimeHeapSys.Set(float64(ms.HeapSys))
	runtimeHeapObjects.Set(float64(ms.HeapObjects))
	runtimeStackInuse.Set(float64(ms.StackInuse))
	runtimeLastGC.Set(float64(ms.LastGC) / 1e9)

	if ms.NumGC > c.lastNumGC {
		runtimeGCCompleted.Add(float64(ms.NumGC - c.lastNumGC))
	}
	c.lastNumGC = ms.NumGC

	if ms.PauseTotalNs > c.lastPauseTotal {
		runtimeGCPauseTotal.Add(float64(ms.PauseTotalNs - c.lastPauseTotal))
	}
	c.lastPauseTotal = ms.PauseTotalNs
}
