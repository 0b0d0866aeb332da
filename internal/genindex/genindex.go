// Package genindex maintains the coarse time-bucketed generation index.
//
// Each bucket holds the set of neurons whose buffer received its first real
// event during that bucket's time window. The maintenance scheduler consults
// it for sweep locality: a scan can be skipped while no bucket has aged past
// the retention horizon. The index is scheduling metadata only; scanning and
// compaction never depend on it for correctness.
package genindex

import "github.com/RoaringBitmap/roaring/v2"

// DefaultBuckets matches the generation count the original firmware used.
const DefaultBuckets = 8

type bucket struct {
	epoch uint32 // time / width of the registrations currently held
	set   *roaring.Bitmap
}

// Index is a wrapping ring of generation buckets. Not safe for concurrent
// use; the owner serializes access.
type Index struct {
	width   uint32
	buckets []bucket
}

// New creates an index of n buckets, each covering width ticks. n and width
// must be positive.
func New(n int, width uint32) *Index {
	if n <= 0 {
		n = DefaultBuckets
	}
	if width == 0 {
		width = 1
	}
	idx := &Index{width: width, buckets: make([]bucket, n)}
	for i := range idx.buckets {
		idx.buckets[i].set = roaring.New()
	}
	return idx
}

// Add registers a neuron under the bucket covering time. A bucket that has
// wrapped to a new epoch is cleared before reuse.
func (x *Index) Add(time uint32, neuron uint32) {
	epoch := time / x.width
	b := &x.buckets[int(epoch)%len(x.buckets)]
	if b.epoch != epoch {
		b.set.Clear()
		b.epoch = epoch
	}
	b.set.Add(neuron)
}

// Candidates returns the union of neurons in buckets that lie entirely
// before horizon, or nil if no bucket has aged out. The result is owned by
// the caller.
func (x *Index) Candidates(horizon uint32) *roaring.Bitmap {
	var out *roaring.Bitmap
	for i := range x.buckets {
		b := &x.buckets[i]
		if b.set.IsEmpty() {
			continue
		}
		if (b.epoch+1)*x.width <= horizon {
			if out == nil {
				out = roaring.New()
			}
			out.Or(b.set)
		}
	}
	return out
}

// Due reports whether any bucket has aged past horizon. Cheaper than
// Candidates when the caller only needs a yes/no.
func (x *Index) Due(horizon uint32) bool {
	for i := range x.buckets {
		b := &x.buckets[i]
		if !b.set.IsEmpty() && (b.epoch+1)*x.width <= horizon {
			return true
		}
	}
	return false
}

// Drop removes a neuron from every bucket. Called after its stale entries
// have been recycled.
func (x *Index) Drop(neuron uint32) {
	for i := range x.buckets {
		x.buckets[i].set.Remove(neuron)
	}
}
