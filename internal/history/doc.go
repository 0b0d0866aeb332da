// Package history implements the per-neuron post-event history buffers and
// the operations that mutate them: append, extension, incremental
// compaction, and recycling of expired entries.
//
// Every buffer owns no memory. It holds a Span handle into the shared arena
// covering two parallel segments, the times array followed by the traces
// array, and relocations repoint the handle after the bytes have moved.
//
// The store is single-writer. The owning core serializes every call the way
// the firmware masked interrupts around plasticity state.
package history
