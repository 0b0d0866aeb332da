package tracearena

import "log/slog"

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures Core constructor behavior.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &tracearena.BasicMetricsCollector{}
//	core, _ := tracearena.New(cfg, tracearena.WithMetricsCollector(metrics))
//	// ... drive the simulation ...
//	stats := metrics.GetStats()
//	fmt.Printf("Appends: %d, Dropped: %d\n", stats.AppendCount, stats.AppendDropped)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := tracearena.NewJSONLogger(slog.LevelInfo)
//	core, _ := tracearena.New(cfg, tracearena.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
		if o.metricsCollector == nil {
			o.metricsCollector = NoopMetricsCollector{}
		}
		if o.logger == nil {
			o.logger = NoopLogger()
		}
	}
	return o
}
