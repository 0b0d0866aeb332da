package tracearena

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    appendCounter    prometheus.Counter
//	    compactHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordAppend(outcome tracearena.Outcome) {
//	    p.appendCounter.Inc()
//	    // ... record outcome state, etc.
//	}
type MetricsCollector interface {
	// RecordAppend is called after each append operation with its outcome.
	RecordAppend(outcome Outcome)

	// RecordCompaction is called after each compaction fragment sweep.
	// moved is the number of buffers relocated, bytes the volume copied,
	// duration is the time taken including the transfer wait.
	RecordCompaction(moved, bytes int, duration time.Duration)

	// RecordScan is called after each recycling pass.
	// recycled is the number of expired events reclaimed.
	RecordScan(recycled int, duration time.Duration)

	// RecordWindow is called after each window lookup.
	// events is the number of in-window events found.
	RecordWindow(events int)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAppend(Outcome)                     {}
func (NoopMetricsCollector) RecordCompaction(int, int, time.Duration) {}
func (NoopMetricsCollector) RecordScan(int, time.Duration)            {}
func (NoopMetricsCollector) RecordWindow(int)                         {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AppendCount          atomic.Int64
	AppendExtended       atomic.Int64
	AppendDropped        atomic.Int64
	CompactionCount      atomic.Int64
	CompactionMoved      atomic.Int64
	CompactionBytes      atomic.Int64
	CompactionTotalNanos atomic.Int64
	ScanCount            atomic.Int64
	ScanRecycled         atomic.Int64
	ScanTotalNanos       atomic.Int64
	WindowCount          atomic.Int64
	WindowEvents         atomic.Int64
}

// RecordAppend implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAppend(outcome Outcome) {
	b.AppendCount.Add(1)
	switch outcome {
	case OutcomeExtended:
		b.AppendExtended.Add(1)
	case OutcomeDropped:
		b.AppendDropped.Add(1)
	}
}

// RecordCompaction implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCompaction(moved, bytes int, duration time.Duration) {
	b.CompactionCount.Add(1)
	b.CompactionMoved.Add(int64(moved))
	b.CompactionBytes.Add(int64(bytes))
	b.CompactionTotalNanos.Add(duration.Nanoseconds())
}

// RecordScan implements MetricsCollector.
func (b *BasicMetricsCollector) RecordScan(recycled int, duration time.Duration) {
	b.ScanCount.Add(1)
	b.ScanRecycled.Add(int64(recycled))
	b.ScanTotalNanos.Add(duration.Nanoseconds())
}

// RecordWindow implements MetricsCollector.
func (b *BasicMetricsCollector) RecordWindow(events int) {
	b.WindowCount.Add(1)
	b.WindowEvents.Add(int64(events))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AppendCount:        b.AppendCount.Load(),
		AppendExtended:     b.AppendExtended.Load(),
		AppendDropped:      b.AppendDropped.Load(),
		CompactionCount:    b.CompactionCount.Load(),
		CompactionMoved:    b.CompactionMoved.Load(),
		CompactionBytes:    b.CompactionBytes.Load(),
		CompactionAvgNanos: b.getAvgCompactionNanos(),
		ScanCount:          b.ScanCount.Load(),
		ScanRecycled:       b.ScanRecycled.Load(),
		ScanAvgNanos:       b.getAvgScanNanos(),
		WindowCount:        b.WindowCount.Load(),
		WindowEvents:       b.WindowEvents.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgCompactionNanos() int64 {
	count := b.CompactionCount.Load()
	if count == 0 {
		return 0
	}
	return b.CompactionTotalNanos.Load() / count
}

func (b *BasicMetricsCollector) getAvgScanNanos() int64 {
	count := b.ScanCount.Load()
	if count == 0 {
		return 0
	}
	return b.ScanTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AppendCount        int64
	AppendExtended     int64
	AppendDropped      int64
	CompactionCount    int64
	CompactionMoved    int64
	CompactionBytes    int64
	CompactionAvgNanos int64
	ScanCount          int64
	ScanRecycled       int64
	ScanAvgNanos       int64
	WindowCount        int64
	WindowEvents       int64
}
