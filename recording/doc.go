// Package recording captures spike events into compressed segments and
// archives them to a blobstore.
//
// A Builder accumulates one batch of events; Seal freezes it into a
// self-describing segment: a fixed header, one compressed block (LZ4 for
// hot paths, ZSTD for better ratio), and a CRC32C trailer over the whole
// frame. Decode verifies the trailer before decompressing.
//
// An Archiver uploads sealed segments in the background and maintains a
// provenance manifest naming every segment it has committed, so a run can
// be replayed or audited later from the store alone.
package recording
