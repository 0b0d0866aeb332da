package history

// Scan drops every buffer's leading events that are strictly older than
// horizon, keeping the permanent time-0 placeholder. Nothing relocates:
// dropping k events advances the buffer's span start by k time-slots and
// gives back k trace-slots at the tail, leaving gaps for the compactor.
// It returns the number of events recycled across all buffers.
//
// The horizon comes from the learning rule's maximum lookback; events older
// than it can no longer pair with any incoming spike.
func (s *Store) Scan(horizon uint32) int {
	recycled := 0
	for i := range s.bufs {
		b := &s.bufs[i]

		times := s.times(b)
		k := 0
		for j := 1; j < int(b.count); j++ {
			if times[j] < horizon {
				k++
			} else {
				break
			}
		}
		if k == 0 {
			continue
		}

		s.recycle(b, k)
		recycled += k

		if s.gens != nil && b.count == 1 {
			s.gens.Drop(uint32(i))
		}
	}
	return recycled
}

// recycle removes the k events at indices 1..k. The span start advances by
// k time-slots while the traces base keeps its arena offset, so the
// placeholder's trace slot 0 survives untouched; only its time entry is
// re-seated at the advanced slot, and the surviving traces shuffle down to
// stay index-aligned with the advanced times.
func (s *Store) recycle(b *Buffer, k int) {
	times := s.times(b)
	traces := s.traces(b)
	ts := int(s.traceStride)

	// Old time slot k becomes the new slot 0; the dropped entry there
	// gives way to the placeholder.
	times[k] = times[0]

	newCount := int(b.count) - k
	for i := 1; i < newCount; i++ {
		copy(traces[i*ts:(i+1)*ts], traces[(i+k)*ts:(i+k+1)*ts])
	}

	b.off += uint32(k) * timeStride
	b.cap -= uint32(k)
	b.count -= uint32(k)
}
