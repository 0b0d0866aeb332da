// Package blobstore provides storage abstraction for archived recording
// segments.
//
// Store is the interface for writing and reading immutable segment blobs
// (compressed recording frames plus their provenance manifests).
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: Local filesystem with mmap reads
//   - MemoryStore: In-memory, for tests
//   - s3.Store: Amazon S3 with range reads and parallel uploads
//   - minio.Store: S3-compatible servers via the MinIO client
//
// # Custom Implementations
//
// Implement the Store interface to support custom archival backends:
//
//	type Store interface {
//	    Put(ctx, name, data) error         // Atomic write
//	    Open(ctx, name) (Blob, error)      // Open for reading
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
package blobstore
