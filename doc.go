// Package tracearena implements the plasticity memory core of a spiking
// neural simulation: a compacting, incrementally-defragmented arena that
// packs thousands of small, independently growing per-neuron spike-history
// buffers into one fixed-size region.
//
// Each neuron retains a short time-ordered history of its own firing events
// (tick + opaque trace payload). A spike-timing-dependent plasticity rule
// later reads that history through bounded time windows to pair it against
// incoming pre-synaptic spikes. Working memory is sized once at boot; there
// is no dynamic allocator at simulation time.
//
// # Operations
//
//   - Append: O(1) amortized event insert on the critical path. When a
//     buffer saturates it is extended into a shared slack pool; if the
//     arena is exhausted the oldest retained event is dropped instead
//     (a deliberate accuracy/availability trade, not an error).
//   - Window / WindowDelayed: read-only views over one buffer's events in
//     a time range, consumed by the learning-rule evaluator.
//   - CompactOneFragment: repacks one address fragment per call through an
//     asynchronous bulk-copy engine, bounding the stall per invocation.
//   - Scan: drops events older than the learning rule's lookback horizon
//     without relocating anything.
//
// # Quick start
//
//	core, err := tracearena.New(tracearena.Config{
//	    Neurons:      256,
//	    BaseCapacity: 4,
//	    SlackEvents:  512,
//	    TraceSize:    2,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer core.Close()
//
//	core.Append(17, tick, trace)
//
//	w := core.Window(17, tick-windowLen)
//	for w.Remaining > 0 {
//	    w.Next()
//	    // pair w.PrevTime / w.PrevTrace against the pre-synaptic event
//	}
//
//	// on a slower cadence, off the instantaneous critical path:
//	core.CompactOneFragment()
//	core.Scan(tick - maxLookback)
//
// The core is single-writer by design, mirroring the single-core,
// interrupt-driven target. An internal lock stands in for interrupt
// masking so that maintenance never observes a buffer mid-relocation.
package tracearena
