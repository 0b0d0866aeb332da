package history

// extend grows one buffer's capacity by a single event slot, claiming space
// from the shared slack pool at the arena frontier. It reports false when
// the arena is exhausted; the caller falls back to shift-and-drop.
//
// The relocation leaves the buffer's handle transiently inconsistent, so
// the owner must hold the core lock for the whole call. That is the Go
// rendition of the firmware masking plasticity interrupts around the move.
func (s *Store) extend(neuron int) bool {
	b := &s.bufs[neuron]

	// The buffer ending highest in the arena can grow without moving.
	if s.frontierOwner() == neuron {
		return s.growInPlace(b)
	}

	newLen := (b.cap + 1) * s.stride
	dst, ok := s.arena.Alloc(newLen)
	if !ok {
		return false
	}

	// Re-lay the two segments out for the grown capacity: times first,
	// then traces one time-slot further in than before. Copying segment
	// by segment repoints the handle without the in-place shuffle the
	// hardware needed.
	oldTimes := s.arena.Slice(b.off, b.count*timeStride)
	oldTraces := s.arena.Slice(b.off+b.cap*timeStride, b.count*s.traceStride)
	newTimes := s.arena.Slice(dst.Off, b.count*timeStride)
	newTraces := s.arena.Slice(dst.Off+(b.cap+1)*timeStride, b.count*s.traceStride)
	copy(newTimes, oldTimes)
	copy(newTraces, oldTraces)

	b.off = dst.Off
	b.cap++
	s.arena.NoteMoves(1)
	return true
}

// growInPlace extends the frontier-owning buffer where it stands: the
// traces segment slides up one time-slot to make room for a new entry in
// the times segment, and the frontier advances past the grown span.
func (s *Store) growInPlace(b *Buffer) bool {
	newEnd := b.off + (b.cap+1)*s.stride
	if newEnd > s.arena.Size() {
		return false
	}

	tracesBase := b.off + b.cap*timeStride
	live := b.count * s.traceStride
	src := s.arena.Slice(tracesBase, live)
	dst := s.arena.Slice(tracesBase+timeStride, live)
	copy(dst, src) // overlapping, memmove semantics

	b.cap++
	if newEnd > s.arena.Frontier() {
		s.arena.SetFrontier(newEnd)
	}
	return true
}

// frontierOwner returns the index of the buffer at the highest address.
func (s *Store) frontierOwner() int {
	owner := 0
	for i := 1; i < len(s.bufs); i++ {
		if s.bufs[i].off > s.bufs[owner].off {
			owner = i
		}
	}
	return owner
}
