package logging

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PanicRecoveriesTotal tracks panic recoveries by component.
	// Exported to allow other packages (e.g., HTTP middleware) to increment it.
	PanicRecoveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mezo",
			Name:      "panic_recoveries_total",
			Help:      "Total number of panic recoveries by component",
		},
		[]string{"component"},
	)
)

// RecoverGoRoutine wraps a goroutine with panic recovery and structured logging.
// Use this for all spawned goroutines to prevent crashes from propagating.
//
// Example usage:
//
//	go RecoverGoRoutine(logger, "balance_monitor", func(ctx context.Context) {
//	    doWork(ctx)
//	})(ctx)
//
// The returned function takes a context parameter, allowing you to pass context
// at the goroutine spawn site rather than capturing it in the closure.
func RecoverGoRoutine(logger Logger, component string, fn func(context.Context)) func(context.Context) {
	return func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				PanicRecoveriesTotal.WithLabelValues(component).Inc()

				logger.Error().
					Str(FieldComponent, component).
					Str("panic_value", fmt.Sprintf("%v", r)).
					Str("stack_trace", string(debug.Stack())).
					Msg("PANIC RECOVERED in goroutine")
			}
		}()

		fn(ctx)
	}
}

// RecoverWithLogger wraps arbitrary functions with panic recovery and logging.
// Use this for synchronous code paths that need panic protection without
// spawning a goroutine. It returns fn's error, or a new error if a panic
// occurred.
func RecoverWithLogger(logger Logger, component string, operation string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			PanicRecoveriesTotal.WithLabelValues(component).Inc()

			logger.Error().
				Str(FieldComponent, component).
				Str(FieldOperation, operation).
				Str("panic_value", fmt.Sprintf("%v", r)).
				Str("stack_trace", string(debug.Stack())).
				Msg("PANIC RECOVERED")

			err = fmt.Errorf("panic recovered: %v", r)
		}
	}()

	return fn()
}
