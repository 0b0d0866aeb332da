package arena

import (
	"errors"
	"fmt"
	"sort"

	"github.com/synaptik/tracearena/internal/mmap"
)

// Word is the natural word size of the region in bytes. Every span length
// and every allocation is a multiple of Word.
const Word = 4

var (
	// ErrRegionReserve is returned when the backing region cannot be
	// reserved at boot. This is fatal: the simulation cannot start.
	ErrRegionReserve = errors.New("arena: cannot reserve backing region")
)

// Span is a non-owning handle to a byte range inside the arena.
// A zero Span is empty and refers to nothing.
type Span struct {
	Off uint32
	Len uint32
}

// End returns the offset one past the last byte of the span.
func (s Span) End() uint32 { return s.Off + s.Len }

// Stats reports arena occupancy. All values are bytes except Moves.
type Stats struct {
	Size     uint32
	Frontier uint32
	Moves    uint64 // spans relocated since boot
}

// Arena is the single fixed-size region holding all history buffer spans.
// It is not safe for concurrent use; the owner serializes access.
type Arena struct {
	mapping  *mmap.Mapping
	data     []byte
	size     uint32
	frontier uint32
	moves    uint64
}

// New reserves a region of the given size. Size is rounded up to a multiple
// of Word. Reservation failure is not recoverable at runtime.
func New(size int) (*Arena, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: invalid size %d", ErrRegionReserve, size)
	}
	size = (size + Word - 1) &^ (Word - 1)

	m, err := mmap.MapAnon(size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRegionReserve, err)
	}

	return &Arena{
		mapping: m,
		data:    m.Bytes(),
		size:    uint32(size),
	}, nil
}

// Size returns the total region size in bytes.
func (a *Arena) Size() uint32 { return a.size }

// Frontier returns the offset immediately after the highest live span.
// Everything in [Frontier, Size) is free.
func (a *Arena) Frontier() uint32 { return a.frontier }

// SetFrontier rewinds or advances the frontier. The compactor uses this when
// a sweep completes and the packed prefix has a new end.
func (a *Arena) SetFrontier(off uint32) {
	if off > a.size {
		panic("arena: frontier beyond region end")
	}
	a.frontier = off
}

// Alloc claims n bytes at the frontier and advances it. It reports false if
// the free tail is too small; the caller decides what that means (extension
// failure is a signaled condition, not an error).
func (a *Arena) Alloc(n uint32) (Span, bool) {
	n = (n + Word - 1) &^ (Word - 1)
	if a.frontier+n > a.size || a.frontier+n < a.frontier {
		return Span{}, false
	}
	s := Span{Off: a.frontier, Len: n}
	a.frontier += n
	return s, true
}

// Fits reports whether n more bytes can be claimed at the frontier without
// exceeding the region.
func (a *Arena) Fits(n uint32) bool {
	return a.frontier+n <= a.size && a.frontier+n >= a.frontier
}

// Bytes returns the live view of a span.
func (a *Arena) Bytes(s Span) []byte {
	return a.data[s.Off:s.End():s.End()]
}

// Slice returns the live view of an arbitrary range. Debug and segment
// helpers only; prefer Bytes with a real handle.
func (a *Arena) Slice(off, n uint32) []byte {
	return a.data[off : off+n : off+n]
}

// NoteMoves records n span relocations. The store performs the copies
// itself (segment re-layout on extension, staged bulk transfer on
// compaction) and reports them here so Stats can account for churn.
func (a *Arena) NoteMoves(n int) {
	a.moves += uint64(n)
}

// Stats returns a snapshot of arena occupancy.
func (a *Arena) Stats() Stats {
	return Stats{Size: a.size, Frontier: a.frontier, Moves: a.moves}
}

// FreeSpans returns the gaps between live spans in [0, frontier), lowest
// address first. The live slice is not retained. Debug only.
func (a *Arena) FreeSpans(live []Span) []Span {
	sorted := make([]Span, len(live))
	copy(sorted, live)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Off < sorted[j].Off })

	var free []Span
	var at uint32
	for _, s := range sorted {
		if s.Len == 0 {
			continue
		}
		if s.Off > at {
			free = append(free, Span{Off: at, Len: s.Off - at})
		}
		if s.End() > at {
			at = s.End()
		}
	}
	if at < a.frontier {
		free = append(free, Span{Off: at, Len: a.frontier - at})
	}
	return free
}

// Close releases the backing region. The arena must not be used afterwards.
func (a *Arena) Close() error {
	a.data = nil
	if a.mapping != nil {
		return a.mapping.Close()
	}
	return nil
}
