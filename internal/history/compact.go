package history

import (
	"sort"

	"github.com/synaptik/tracearena/internal/dma"
)

// compactionCursor carries defragmentation progress across invocations.
// One fragment of the arena's address range is repacked per call; a full
// sweep takes FragmentCount calls.
type compactionCursor struct {
	active    bool
	fragStart uint32
	fragEnd   uint32
	write     uint32 // end of the already-packed prefix
}

// FragmentResult reports one CompactFragment invocation.
type FragmentResult struct {
	// SweepDone is true when this fragment completed a full pass and the
	// arena frontier was rewound to the packed prefix.
	SweepDone bool
	// Moved is the number of buffers repacked by this call.
	Moved int
	// Bytes is the size of the bulk transfer issued, 0 if none.
	Bytes uint32
}

// CompactFragment repacks the buffers whose spans start inside the next
// address fragment. Their bytes are staged out to the slow-tier region,
// their handles are repointed to the packed prefix, and a single
// asynchronous bulk transfer copies the staged block back into place. The
// call blocks on the transfer's completion; the wait is bounded by the
// fragment size, and there is no way to cancel a transfer once issued.
//
// The owner must hold the core lock for the whole call so no append or
// extension observes a handle pointing at bytes still in flight.
func (s *Store) CompactFragment(engine *dma.Engine, staging []byte) FragmentResult {
	a := s.arena
	fragSize := a.Size() / uint32(s.cfg.FragmentCount)
	if fragSize == 0 {
		fragSize = a.Size()
	}

	cur := &s.cursor
	if !cur.active {
		if a.Frontier() == 0 {
			return FragmentResult{SweepDone: true}
		}
		cur.active = true
		cur.fragStart = 0
		cur.fragEnd = fragSize
		cur.write = 0
	}

	// Stage in ascending address order. Extensions relocate buffers out of
	// neuron order, and packing a high buffer before a lower one would push
	// the lower one upward past the fragment boundary, leaving a gap the
	// sweep never revisits. Ascending order keeps every destination at or
	// below its source.
	frag := make([]int, 0, len(s.bufs))
	for i := range s.bufs {
		if off := s.bufs[i].off; off >= cur.fragStart && off < cur.fragEnd {
			frag = append(frag, i)
		}
	}
	sort.Slice(frag, func(i, j int) bool {
		return s.bufs[frag[i]].off < s.bufs[frag[j]].off
	})

	var res FragmentResult
	var staged uint32
	for _, i := range frag {
		b := &s.bufs[i]
		span := s.span(b)
		copy(staging[staged:], a.Bytes(span))
		if dst := cur.write + staged; dst != b.off {
			b.off = dst
			res.Moved++
		}
		staged += span.Len
	}

	if staged > 0 {
		dst := a.Slice(cur.write, staged)
		engine.Transfer(dst, staging[:staged]).Wait()
		a.NoteMoves(res.Moved)
	}
	res.Bytes = staged

	cur.write += staged
	sweptTo := cur.fragEnd
	cur.fragStart = cur.fragEnd
	cur.fragEnd += fragSize

	if sweptTo >= a.Frontier() {
		// Full sweep: the packed prefix is the new live region.
		a.SetFrontier(cur.write)
		cur.active = false
		res.SweepDone = true
	}
	return res
}
