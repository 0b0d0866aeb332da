package tracearena

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with tracearena-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithNeuron adds a neuron index field to the logger.
func (l *Logger) WithNeuron(neuron int) *Logger {
	return &Logger{
		Logger: l.Logger.With("neuron", neuron),
	}
}

// WithTick adds a simulation tick field to the logger.
func (l *Logger) WithTick(tick uint32) *Logger {
	return &Logger{
		Logger: l.Logger.With("tick", tick),
	}
}

// LogAppend logs a spike append outcome.
func (l *Logger) LogAppend(ctx context.Context, neuron int, time uint32, outcome Outcome) {
	switch outcome {
	case OutcomeDropped:
		l.WarnContext(ctx, "append dropped oldest event",
			"neuron", neuron,
			"time", time,
		)
	case OutcomeExtended:
		l.DebugContext(ctx, "append extended buffer",
			"neuron", neuron,
			"time", time,
		)
	default:
		l.DebugContext(ctx, "append completed",
			"neuron", neuron,
			"time", time,
		)
	}
}

// LogCompaction logs the result of one compaction fragment sweep.
func (l *Logger) LogCompaction(ctx context.Context, moved, bytes int, sweepDone bool) {
	l.DebugContext(ctx, "compaction fragment processed",
		"moved", moved,
		"bytes", bytes,
		"sweep_done", sweepDone,
	)
}

// LogScan logs a recycling pass.
func (l *Logger) LogScan(ctx context.Context, horizon uint32, recycled int) {
	l.DebugContext(ctx, "scan completed",
		"horizon", horizon,
		"events_recycled", recycled,
	)
}
