// Package dma models the asynchronous bulk-copy engine the compactor uses
// to move staged bytes back into the arena.
//
// A transfer, once issued, always runs to completion: there is no
// cancellation path and Completion.Wait takes no context. The caller bounds
// the wait by bounding the transfer size (one compaction fragment), not by
// wall-clock time.
package dma
