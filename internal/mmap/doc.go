// Package mmap reserves the memory regions backing the trace arena.
//
// # Overview
//
// Anonymous mappings back the fast-tier arena and the slow-tier staging
// region. Both are reserved once at boot and never grown, matching the
// fixed-memory model of the target hardware, and off-heap backing keeps the
// multi-megabyte regions out of the Go garbage collector's scan set.
//
// File mappings are read-only and used when replaying recorded segments.
//
// # Usage
//
//	region, err := mmap.MapAnon(size)
//	if err != nil { ... }
//	defer region.Close()
//	data := region.Bytes()
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with madvise(2) for access hints
//   - Windows: VirtualAlloc for anonymous regions, MapViewOfFile for files
//     (madvise is a no-op)
//
// # Thread Safety
//
// Mapping is safe for concurrent read access. Close() is idempotent and
// protected by atomic operations, but callers must ensure no goroutines
// access Bytes() after Close() returns.
package mmap
