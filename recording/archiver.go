package recording

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/synaptik/tracearena/blobstore"
)

// Manifest is the provenance record of an archived run: which segments
// exist, what they contain, and how to verify them.
type Manifest struct {
	Run       string    `json:"run"`
	Created   time.Time `json:"created"`
	TraceSize int       `json:"trace_size"`
	Segments  []Meta    `json:"segments"`
}

// ManifestName returns the manifest's segment name for a run.
func ManifestName(run string) string {
	return run + "/manifest.json"
}

// Archiver uploads sealed segments in the background and tracks them in a
// manifest. Safe for one producer; uploads fan out internally.
type Archiver struct {
	store   blobstore.Store
	run     string
	uploads errgroup.Group

	mu       sync.Mutex
	manifest Manifest
	seq      int
	closed   bool
}

// NewArchiver creates an archiver for a run. concurrency bounds parallel
// uploads; values below 1 mean unbounded.
func NewArchiver(store blobstore.Store, run string, traceSize, concurrency int) *Archiver {
	a := &Archiver{
		store: store,
		run:   run,
		manifest: Manifest{
			Run:       run,
			Created:   time.Now().UTC(),
			TraceSize: traceSize,
		},
	}
	if concurrency > 0 {
		a.uploads.SetLimit(concurrency)
	}
	return a
}

// Archive schedules a sealed frame for upload and registers it in the
// manifest. The frame must not be reused by the caller afterwards.
func (a *Archiver) Archive(ctx context.Context, frame []byte, meta Meta) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return fmt.Errorf("recording: archiver closed")
	}
	meta.Name = fmt.Sprintf("%s/seg-%06d", a.run, a.seq)
	a.seq++
	a.manifest.Segments = append(a.manifest.Segments, meta)
	a.mu.Unlock()

	a.uploads.Go(func() error {
		if err := a.store.Put(ctx, meta.Name, frame); err != nil {
			return fmt.Errorf("recording: upload %s: %w", meta.Name, err)
		}
		return nil
	})
	return nil
}

// Close waits for outstanding uploads, then writes the manifest. The first
// upload error aborts the manifest write and is returned.
func (a *Archiver) Close(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	if err := a.uploads.Wait(); err != nil {
		return err
	}

	a.mu.Lock()
	data, err := json.MarshalIndent(&a.manifest, "", "  ")
	a.mu.Unlock()
	if err != nil {
		return err
	}
	return a.store.Put(ctx, ManifestName(a.run), data)
}

// LoadManifest reads a run's manifest back from the store.
func LoadManifest(ctx context.Context, store blobstore.Store, run string) (*Manifest, error) {
	data, err := blobstore.ReadAll(ctx, store, ManifestName(run))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("recording: decode manifest: %w", err)
	}
	return &m, nil
}

// Replay loads every segment named by a run's manifest, verifies it, and
// calls fn for each event in archive order.
func Replay(ctx context.Context, store blobstore.Store, run string, fn func(Event) error) error {
	m, err := LoadManifest(ctx, store, run)
	if err != nil {
		return err
	}
	for _, meta := range m.Segments {
		frame, err := blobstore.ReadAll(ctx, store, meta.Name)
		if err != nil {
			return err
		}
		events, err := Decode(frame)
		if err != nil {
			return fmt.Errorf("%s: %w", meta.Name, err)
		}
		for _, e := range events {
			if err := fn(e); err != nil {
				return err
			}
		}
	}
	return nil
}
