package history

import (
	"fmt"
	"unsafe"

	"github.com/synaptik/tracearena/internal/arena"
	"github.com/synaptik/tracearena/internal/genindex"
)

const timeStride = arena.Word // one uint32 tick per event

// Config sizes the store at boot. All fields are fixed for the lifetime of
// the simulation.
type Config struct {
	// Neurons is the number of history buffers.
	Neurons int
	// BaseCapacity is the initial per-buffer event capacity. At least 2:
	// one slot for the permanent placeholder, one for a real event.
	BaseCapacity int
	// TraceSize is the opaque per-event payload size in bytes. Rounded up
	// to word alignment for the stored stride.
	TraceSize int
	// InitialTrace is the payload of every buffer's time-0 placeholder.
	// Must be TraceSize bytes; nil means all zeroes.
	InitialTrace []byte
	// FragmentCount splits the arena address range for incremental
	// compaction. One fragment is processed per CompactFragment call.
	FragmentCount int
	// Generations enables the scheduling-locality index with that many
	// coarse time buckets of GenerationWidth ticks each. 0 disables it.
	Generations     int
	GenerationWidth uint32
}

func (c Config) validate() error {
	if c.Neurons <= 0 {
		return fmt.Errorf("history: neuron count %d must be positive", c.Neurons)
	}
	if c.BaseCapacity < 2 {
		return fmt.Errorf("history: base capacity %d must be at least 2", c.BaseCapacity)
	}
	if c.TraceSize <= 0 {
		return fmt.Errorf("history: trace size %d must be positive", c.TraceSize)
	}
	if c.InitialTrace != nil && len(c.InitialTrace) != c.TraceSize {
		return fmt.Errorf("history: initial trace is %d bytes, want %d", len(c.InitialTrace), c.TraceSize)
	}
	if c.FragmentCount <= 0 {
		return fmt.Errorf("history: fragment count %d must be positive", c.FragmentCount)
	}
	return nil
}

// Buffer is one neuron's history header. It holds offsets, never memory:
// the span [off, off+cap*stride) lives in the arena as
// [times cap*4][traces cap*traceStride], so the traces segment always
// starts at off + cap*timeStride.
type Buffer struct {
	off   uint32 // span start in the arena
	cap   uint32 // allocated event slots
	count uint32 // live events, placeholder included; always >= 1
}

// Count returns the number of live events including the placeholder.
func (b *Buffer) Count() int { return int(b.count) }

// Capacity returns the allocated event slots.
func (b *Buffer) Capacity() int { return int(b.cap) }

// Outcome reports which append path ran.
type Outcome uint8

const (
	// OutcomeFast is the O(1) in-place append.
	OutcomeFast Outcome = iota
	// OutcomeExtended means the buffer grew (possibly relocating) first.
	OutcomeExtended
	// OutcomeDropped means extension failed and the oldest retained event
	// was discarded to make room. Deliberate lossy policy under memory
	// pressure, not an error.
	OutcomeDropped
)

// Store owns the buffer headers and all mutation of the arena contents.
type Store struct {
	cfg         Config
	arena       *arena.Arena
	bufs        []Buffer
	traceStride uint32
	stride      uint32
	gens        *genindex.Index
	cursor      compactionCursor
}

// NewStore lays every buffer out back-to-back from the arena start, each
// initialized to a single placeholder event at time 0 with the configured
// initial trace, and leaves the frontier after the last buffer. The arena
// must be freshly sized for at least Neurons × BaseCapacity events; the
// remaining tail is the shared slack pool.
func NewStore(a *arena.Arena, cfg Config) (*Store, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	traceStride := (uint32(cfg.TraceSize) + arena.Word - 1) &^ (arena.Word - 1)
	s := &Store{
		cfg:         cfg,
		arena:       a,
		bufs:        make([]Buffer, cfg.Neurons),
		traceStride: traceStride,
		stride:      timeStride + traceStride,
	}
	if cfg.Generations > 0 {
		s.gens = genindex.New(cfg.Generations, cfg.GenerationWidth)
	}

	span := uint32(cfg.BaseCapacity) * s.stride
	for i := range s.bufs {
		sp, ok := a.Alloc(span)
		if !ok {
			return nil, fmt.Errorf("%w: %d buffers of %d bytes exceed %d-byte region",
				arena.ErrRegionReserve, cfg.Neurons, span, a.Size())
		}
		b := &s.bufs[i]
		b.off = sp.Off
		b.cap = uint32(cfg.BaseCapacity)
		b.count = 1

		s.times(b)[0] = 0
		if cfg.InitialTrace != nil {
			copy(s.trace(b, 0), cfg.InitialTrace)
		}
	}
	return s, nil
}

// EventStride returns the aligned per-event footprint in bytes.
func (s *Store) EventStride() int { return int(s.stride) }

// Neurons returns the buffer count.
func (s *Store) Neurons() int { return len(s.bufs) }

// Buffer returns the header for a neuron. Read-only access for callers.
func (s *Store) Buffer(neuron int) *Buffer { return &s.bufs[neuron] }

// Spans appends every live span to dst and returns it. Debug support for
// the free-block lister and the overlap checks in tests.
func (s *Store) Spans(dst []arena.Span) []arena.Span {
	for i := range s.bufs {
		dst = append(dst, s.span(&s.bufs[i]))
	}
	return dst
}

// Generations returns the scheduling-locality index, or nil when disabled.
func (s *Store) Generations() *genindex.Index { return s.gens }

// Append stores one event in a neuron's buffer. The caller guarantees time
// is newer than everything already stored; violating that corrupts the
// ordering invariant, so it panics here instead.
//
// When the buffer is saturated, Append first tries to extend it into the
// shared slack pool; if the arena is exhausted it falls back to discarding
// the oldest retained event (never the placeholder at index 0).
func (s *Store) Append(neuron int, time uint32, trace []byte) Outcome {
	b := &s.bufs[neuron]
	if len(trace) != s.cfg.TraceSize {
		panic(fmt.Sprintf("history: trace payload is %d bytes, want %d", len(trace), s.cfg.TraceSize))
	}
	times := s.times(b)
	if time <= times[b.count-1] {
		panic(fmt.Sprintf("history: append time %d not after newest %d", time, times[b.count-1]))
	}

	outcome := OutcomeFast
	if b.count == b.cap {
		if s.extend(neuron) {
			outcome = OutcomeExtended
		} else {
			s.shiftAndDrop(b)
			outcome = OutcomeDropped
		}
	}

	// Views may have moved during extension.
	times = s.times(b)
	idx := b.count
	if outcome == OutcomeDropped {
		idx = b.count - 1 // shiftAndDrop freed the last slot
	} else {
		b.count++
	}
	times[idx] = time
	copy(s.trace(b, int(idx)), trace)

	if s.gens != nil && b.count == 2 {
		s.gens.Add(time, uint32(neuron))
	}
	return outcome
}

// shiftAndDrop discards the event at index 1 by shuffling every later entry
// down one slot. Index 0 is the permanent placeholder and is never evicted.
// The caller writes the new event into the freed last slot.
func (s *Store) shiftAndDrop(b *Buffer) {
	times := s.times(b)
	traces := s.traces(b)
	ts := int(s.traceStride)
	for e := 2; e < int(b.count); e++ {
		times[e-1] = times[e]
		copy(traces[(e-1)*ts:e*ts], traces[e*ts:(e+1)*ts])
	}
}

// span returns the buffer's current handle.
func (s *Store) span(b *Buffer) arena.Span {
	return arena.Span{Off: b.off, Len: b.cap * s.stride}
}

// times returns the full times segment as a word view.
func (s *Store) times(b *Buffer) []uint32 {
	raw := s.arena.Slice(b.off, b.cap*timeStride)
	return unsafe.Slice((*uint32)(unsafe.Pointer(&raw[0])), b.cap)
}

// traces returns the full traces segment.
func (s *Store) traces(b *Buffer) []byte {
	return s.arena.Slice(b.off+b.cap*timeStride, b.cap*s.traceStride)
}

// trace returns the payload slot for one event index.
func (s *Store) trace(b *Buffer, i int) []byte {
	tr := s.traces(b)
	return tr[i*int(s.traceStride) : (i+1)*int(s.traceStride)]
}
