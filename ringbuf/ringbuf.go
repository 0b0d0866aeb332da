// Package ringbuf provides the lock-free spike input buffer sitting between
// the packet-receive path and the simulation loop.
//
// The buffer is single-producer single-consumer: the receive path calls Add,
// the tick loop calls Get. Neither side ever blocks. When the buffer is full
// the incoming spike is counted as an overflow and discarded, matching the
// lossy ingress policy of the rest of the pipeline.
package ringbuf

import "sync/atomic"

// Buffer is a fixed-capacity SPSC ring of spike keys.
type Buffer struct {
	items []uint32
	mask  uint32

	input     atomic.Uint32
	output    atomic.Uint32
	overflows atomic.Uint64
}

// New creates a buffer holding at least size spikes. The allocation is
// rounded up to a power of two; one slot is sacrificed to distinguish full
// from empty.
func New(size int) *Buffer {
	if size < 1 {
		size = 1
	}
	n := uint32(1)
	for int(n) <= size {
		n <<= 1
	}
	return &Buffer{
		items: make([]uint32, n),
		mask:  n - 1,
	}
}

// Capacity returns the number of spikes the buffer can hold.
func (b *Buffer) Capacity() int { return len(b.items) - 1 }

// Len returns the number of buffered spikes. Exact only when called from
// either endpoint; a momentary estimate otherwise.
func (b *Buffer) Len() int {
	in := b.input.Load()
	out := b.output.Load()
	return int((in - out) & b.mask)
}

// Add enqueues one spike. It reports false, and counts an overflow, when
// the buffer is full. Producer side only.
func (b *Buffer) Add(spike uint32) bool {
	in := b.input.Load()
	next := (in + 1) & b.mask
	if next == b.output.Load() {
		b.overflows.Add(1)
		return false
	}
	b.items[in] = spike
	b.input.Store(next)
	return true
}

// Get dequeues the oldest spike. It reports false when the buffer is empty.
// Consumer side only.
func (b *Buffer) Get() (uint32, bool) {
	out := b.output.Load()
	if out == b.input.Load() {
		return 0, false
	}
	spike := b.items[out]
	b.output.Store((out + 1) & b.mask)
	return spike, true
}

// Drain calls fn for every buffered spike until the buffer is empty or fn
// reports false. Returns the number of spikes consumed. Consumer side only.
func (b *Buffer) Drain(fn func(spike uint32) bool) int {
	n := 0
	for {
		spike, ok := b.Get()
		if !ok {
			return n
		}
		n++
		if !fn(spike) {
			return n
		}
	}
}

// Overflows returns the number of spikes discarded because the buffer was
// full.
func (b *Buffer) Overflows() uint64 {
	return b.overflows.Load()
}
