package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a segment does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// Store is an abstraction for archiving immutable recording segments.
type Store interface {
	// Put writes a segment atomically. Overwriting an existing name
	// replaces it whole.
	Put(ctx context.Context, name string, data []byte) error

	// Open opens a segment for reading.
	Open(ctx context.Context, name string) (Blob, error)

	// Delete removes a segment. Deleting an absent name is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the names of all segments with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to an archived segment.
type Blob interface {
	io.ReaderAt
	io.Closer
	// Size returns the size of the segment in bytes.
	Size() int64
}

// Mappable is an optional interface for Blobs that support memory mapping.
type Mappable interface {
	// Bytes returns the underlying byte slice.
	// The slice is valid until the Blob is closed.
	// This is a zero-copy operation if supported.
	Bytes() ([]byte, error)
}

// ReadAll reads a whole segment into memory.
func ReadAll(ctx context.Context, s Store, name string) ([]byte, error) {
	b, err := s.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	if m, ok := b.(Mappable); ok {
		if raw, err := m.Bytes(); err == nil {
			out := make([]byte, len(raw))
			copy(out, raw)
			return out, nil
		}
	}

	out := make([]byte, b.Size())
	if _, err := b.ReadAt(out, 0); err != nil && err != io.EOF {
		return nil, err
	}
	return out, nil
}
