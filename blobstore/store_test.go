package blobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	local, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return map[string]Store{
		"memory": NewMemoryStore(),
		"local":  local,
	}
}

func TestStore_PutOpenRoundTrip(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			payload := []byte("segment-0001-payload")

			require.NoError(t, s.Put(ctx, "seg/0001", payload))

			b, err := s.Open(ctx, "seg/0001")
			require.NoError(t, err)
			defer b.Close()

			assert.Equal(t, int64(len(payload)), b.Size())

			buf := make([]byte, 7)
			n, err := b.ReadAt(buf, 5)
			require.NoError(t, err)
			assert.Equal(t, 7, n)
			assert.Equal(t, []byte("nt-0001"), buf)
		})
	}
}

func TestStore_OpenMissing(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Open(context.Background(), "absent")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_PutOverwrites(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Put(ctx, "seg", []byte("long original contents")))
			require.NoError(t, s.Put(ctx, "seg", []byte("short")))

			data, err := ReadAll(ctx, s, "seg")
			require.NoError(t, err)
			assert.Equal(t, []byte("short"), data)
		})
	}
}

func TestStore_DeleteAndList(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Put(ctx, "run1/seg-a", []byte("a")))
			require.NoError(t, s.Put(ctx, "run1/seg-b", []byte("b")))
			require.NoError(t, s.Put(ctx, "run2/seg-c", []byte("c")))

			names, err := s.List(ctx, "run1/")
			require.NoError(t, err)
			assert.Equal(t, []string{"run1/seg-a", "run1/seg-b"}, names)

			require.NoError(t, s.Delete(ctx, "run1/seg-a"))
			require.NoError(t, s.Delete(ctx, "run1/seg-a")) // idempotent

			names, err = s.List(ctx, "run1/")
			require.NoError(t, err)
			assert.Equal(t, []string{"run1/seg-b"}, names)
		})
	}
}

func TestLocalStore_MappableZeroCopy(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "seg", []byte("mapped contents")))

	b, err := s.Open(ctx, "seg")
	require.NoError(t, err)
	defer b.Close()

	m, ok := b.(Mappable)
	require.True(t, ok)
	raw, err := m.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("mapped contents"), raw)
}
