package tracearena

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/synaptik/tracearena/internal/arena"
	"github.com/synaptik/tracearena/internal/dma"
	"github.com/synaptik/tracearena/internal/history"
	"github.com/synaptik/tracearena/internal/mmap"
)

// Outcome reports which append path ran. See history.Outcome.
type Outcome = history.Outcome

const (
	// OutcomeFast is the O(1) in-place append.
	OutcomeFast = history.OutcomeFast
	// OutcomeExtended means the buffer grew (possibly relocating) first.
	OutcomeExtended = history.OutcomeExtended
	// OutcomeDropped means extension failed and the oldest retained event
	// was discarded to make room.
	OutcomeDropped = history.OutcomeDropped
)

// Window iterates one neuron's events inside a time range: the newest
// event at or before the window start, then the in-window events in
// ascending order.
type Window = history.Window

// FragmentResult summarizes one compaction fragment sweep.
type FragmentResult = history.FragmentResult

// DefaultFragmentCount splits the arena into this many compaction
// fragments when Config.FragmentCount is zero.
const DefaultFragmentCount = 4

// DefaultGenerations is the bucket count of the scheduling-locality index
// when Config.Generations is zero.
const DefaultGenerations = 8

// Config sizes a Core at boot. All fields are fixed for the lifetime of
// the simulation.
type Config struct {
	// Neurons is the number of spike-history buffers.
	Neurons int

	// BaseCapacity is the initial per-buffer event capacity, placeholder
	// included. At least 2.
	BaseCapacity int

	// SlackEvents sizes the shared overflow pool, in events. Buffers that
	// saturate extend into this pool; when it runs out, appends fall back
	// to dropping their oldest retained event.
	SlackEvents int

	// TraceSize is the opaque per-event payload size in bytes.
	TraceSize int

	// InitialTrace is the payload of every buffer's time-0 placeholder.
	// Must be TraceSize bytes; nil means all zeroes.
	InitialTrace []byte

	// FragmentCount splits the arena address range for incremental
	// compaction. Zero selects DefaultFragmentCount.
	FragmentCount int

	// Generations configures the scheduling-locality index: that many
	// coarse buckets of GenerationWidth ticks each. Zero selects
	// DefaultGenerations; negative disables the index.
	Generations     int
	GenerationWidth uint32
}

func (c Config) validate() error {
	if c.Neurons <= 0 {
		return &ErrInvalidConfig{Field: "Neurons", Reason: "must be positive"}
	}
	if c.BaseCapacity < 2 {
		return &ErrInvalidConfig{Field: "BaseCapacity", Reason: "must be at least 2"}
	}
	if c.SlackEvents < 0 {
		return &ErrInvalidConfig{Field: "SlackEvents", Reason: "must not be negative"}
	}
	if c.TraceSize <= 0 {
		return &ErrInvalidConfig{Field: "TraceSize", Reason: "must be positive"}
	}
	if c.InitialTrace != nil && len(c.InitialTrace) != c.TraceSize {
		return &ErrInvalidConfig{Field: "InitialTrace",
			Reason: fmt.Sprintf("is %d bytes, want TraceSize (%d)", len(c.InitialTrace), c.TraceSize)}
	}
	if c.FragmentCount < 0 {
		return &ErrInvalidConfig{Field: "FragmentCount", Reason: "must not be negative"}
	}
	return nil
}

// Core is the spike-history engine: a compacting memory arena holding one
// append-only trace buffer per neuron, plus the staging region and transfer
// engine that back incremental defragmentation.
//
// Core is single-writer. All methods take an internal lock, mirroring the
// interrupt masking the algorithms assume; callers may share a Core across
// goroutines but get no internal parallelism.
type Core struct {
	mu sync.Mutex

	cfg     Config
	arena   *arena.Arena
	store   *history.Store
	staging *mmap.Mapping
	engine  *dma.Engine

	logger  *Logger
	metrics MetricsCollector

	closed bool
}

// ErrClosed is the panic value of operations invoked on a closed Core.
// Using a closed Core is a caller bug, handled like the other contract
// violations rather than returned.
var ErrClosed = errors.New("tracearena: core is closed")

// New reserves the arena and staging regions and lays out one placeholder
// buffer per neuron. The arena is sized for Neurons × BaseCapacity events
// plus SlackEvents of shared overflow; it never grows afterwards.
func New(cfg Config, optFns ...Option) (*Core, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	opts := applyOptions(optFns)

	if cfg.FragmentCount == 0 {
		cfg.FragmentCount = DefaultFragmentCount
	}
	gens := cfg.Generations
	switch {
	case gens == 0:
		gens = DefaultGenerations
	case gens < 0:
		gens = 0
	}

	traceStride := (uint32(cfg.TraceSize) + arena.Word - 1) &^ (arena.Word - 1)
	stride := int(arena.Word + traceStride)
	size := (cfg.Neurons*cfg.BaseCapacity + cfg.SlackEvents) * stride

	a, err := arena.New(size)
	if err != nil {
		return nil, err
	}

	staging, err := mmap.MapAnon(size)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("%w: staging: %s", ErrRegionReserve, err)
	}

	store, err := history.NewStore(a, history.Config{
		Neurons:         cfg.Neurons,
		BaseCapacity:    cfg.BaseCapacity,
		TraceSize:       cfg.TraceSize,
		InitialTrace:    cfg.InitialTrace,
		FragmentCount:   cfg.FragmentCount,
		Generations:     gens,
		GenerationWidth: cfg.GenerationWidth,
	})
	if err != nil {
		staging.Close()
		a.Close()
		return nil, err
	}

	c := &Core{
		cfg:     cfg,
		arena:   a,
		store:   store,
		staging: staging,
		engine:  dma.NewEngine(),
		logger:  opts.logger,
		metrics: opts.metricsCollector,
	}

	c.logger.Info("core initialized",
		"neurons", cfg.Neurons,
		"base_capacity", cfg.BaseCapacity,
		"slack_events", cfg.SlackEvents,
		"arena_bytes", size,
	)
	return c, nil
}

// Append records one spike for a neuron. time must be strictly newer than
// the neuron's newest stored event; trace must be TraceSize bytes. The
// returned Outcome says whether the append was in-place, forced a buffer
// extension, or dropped the oldest retained event.
func (c *Core) Append(neuron int, time uint32, trace []byte) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkOpen()
	c.checkNeuron(neuron)

	outcome := c.store.Append(neuron, time, trace)
	c.metrics.RecordAppend(outcome)
	if outcome == OutcomeDropped {
		c.logger.LogAppend(context.Background(), neuron, time, outcome)
	}
	return outcome
}

// Window returns an iterator over a neuron's events with time >= begin,
// positioned after the most recent pre-window event. The placeholder at
// time 0 guarantees a pre-window boundary always exists.
func (c *Core) Window(neuron int, begin uint32) Window {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkOpen()
	c.checkNeuron(neuron)

	w := c.store.Window(neuron, begin)
	c.metrics.RecordWindow(w.Remaining)
	return w
}

// WindowDelayed is Window with an inclusive upper bound: events newer than
// end are excluded, supporting delayed spike delivery.
func (c *Core) WindowDelayed(neuron int, begin, end uint32) Window {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkOpen()
	c.checkNeuron(neuron)

	w := c.store.WindowDelayed(neuron, begin, end)
	c.metrics.RecordWindow(w.Remaining)
	return w
}

// CompactOneFragment runs one bounded slice of the incremental compactor:
// every buffer starting inside the current address fragment is staged,
// packed, and transferred back in a single block move. After FragmentCount
// calls covering the whole live range the sweep completes, the frontier
// retreats past the reclaimed space, and SweepDone is reported.
func (c *Core) CompactOneFragment() FragmentResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkOpen()

	start := time.Now()
	res := c.store.CompactFragment(c.engine, c.staging.Bytes())
	c.metrics.RecordCompaction(res.Moved, int(res.Bytes), time.Since(start))
	c.logger.LogCompaction(context.Background(), res.Moved, int(res.Bytes), res.SweepDone)
	return res
}

// Compact runs fragment sweeps until the compactor reports a completed
// pass, then returns the total number of buffers moved. Convenience for
// callers without a tick budget to respect.
func (c *Core) Compact() int {
	moved := 0
	for {
		res := c.CompactOneFragment()
		moved += res.Moved
		if res.SweepDone {
			return moved
		}
	}
}

// Scan recycles expired history: every event strictly older than horizon
// (except each buffer's placeholder) is reclaimed in place by advancing
// the buffer's span start. Returns the number of events recycled. The
// freed space becomes fragmentation for the compactor to sweep up.
func (c *Core) Scan(horizon uint32) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkOpen()

	start := time.Now()
	n := c.store.Scan(horizon)
	c.metrics.RecordScan(n, time.Since(start))
	c.logger.LogScan(context.Background(), horizon, n)
	return n
}

// MaintenanceDue reports whether the scheduling-locality index has whole
// generations of events older than horizon, i.e. whether a Scan pass is
// likely to reclaim anything. Always true when the index is disabled.
func (c *Core) MaintenanceDue(horizon uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkOpen()

	gens := c.store.Generations()
	if gens == nil {
		return true
	}
	return gens.Due(horizon)
}

// EventCount returns a neuron's live event count, placeholder included.
func (c *Core) EventCount(neuron int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkOpen()
	c.checkNeuron(neuron)
	return c.store.Buffer(neuron).Count()
}

// Stats is a point-in-time view of arena occupancy.
type Stats struct {
	// ArenaBytes is the fixed region size.
	ArenaBytes int
	// FrontierBytes is the high-water mark of allocation.
	FrontierBytes int
	// LiveBytes is the sum of all live buffer spans.
	LiveBytes int
	// Moves counts block relocations since boot (extensions and compaction).
	Moves uint64
}

// Stats reports arena occupancy and movement counters.
func (c *Core) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkOpen()

	live := 0
	for _, sp := range c.store.Spans(nil) {
		live += int(sp.Len)
	}
	as := c.arena.Stats()
	return Stats{
		ArenaBytes:    int(as.Size),
		FrontierBytes: int(as.Frontier),
		LiveBytes:     live,
		Moves:         as.Moves,
	}
}

// DumpMemory writes a hex and ASCII dump of the arena range [from, to)
// to w. Diagnostic aid; offsets are arena-relative.
func (c *Core) DumpMemory(w io.Writer, from, to uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkOpen()
	return c.arena.Dump(w, from, to)
}

// DumpFreeSpans writes the gaps between live buffer spans to w, one line
// per free block. Diagnostic aid for observing fragmentation.
func (c *Core) DumpFreeSpans(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkOpen()
	return c.arena.DumpFreeSpans(w, c.store.Spans(nil))
}

// Close releases the arena and staging regions and stops the transfer
// engine. Safe to call more than once.
func (c *Core) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	c.engine.Close()
	err := c.staging.Close()
	if cerr := c.arena.Close(); err == nil {
		err = cerr
	}
	c.logger.Info("core closed")
	return err
}

func (c *Core) checkOpen() {
	if c.closed {
		panic(ErrClosed)
	}
}

func (c *Core) checkNeuron(neuron int) {
	if neuron < 0 || neuron >= c.cfg.Neurons {
		panic(fmt.Sprintf("tracearena: neuron %d out of range [0,%d)", neuron, c.cfg.Neurons))
	}
}
