package blobstore

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStore exercises the BlobStore contract shared by every backend.
func testStore(t *testing.T, store BlobStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("PutOpen", func(t *testing.T) {
		data := []byte("hello world, this is a test blob")
		require.NoError(t, store.Put(ctx, "cols/label.bin", data))

		blob, err := store.Open(ctx, "cols/label.bin")
		require.NoError(t, err)
		defer blob.Close()
		assert.Equal(t, int64(len(data)), blob.Size())

		buf := make([]byte, 5)
		n, err := blob.ReadAt(ctx, buf, 6)
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.Equal(t, "world", string(buf))

		n, err = blob.ReadAt(ctx, make([]byte, 10), int64(len(data))-3)
		assert.Equal(t, 3, n)
		assert.ErrorIs(t, err, io.EOF)

		rc, err := blob.ReadRange(ctx, 0, 5)
		require.NoError(t, err)
		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		assert.Equal(t, "hello", string(got))
	})

	t.Run("CreateStreams", func(t *testing.T) {
		w, err := store.Create(ctx, "cols/values.bin")
		require.NoError(t, err)
		_, err = w.Write([]byte("abc"))
		require.NoError(t, err)
		_, err = w.Write([]byte("def"))
		require.NoError(t, err)
		require.NoError(t, w.Sync())
		require.NoError(t, w.Close())

		data, err := ReadAll(ctx, store, "cols/values.bin")
		require.NoError(t, err)
		assert.Equal(t, "abcdef", string(data))
	})

	t.Run("EmptyBlob", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "empty.bin", nil))
		data, err := ReadAll(ctx, store, "empty.bin")
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("Stat", func(t *testing.T) {
		info, err := Stat(ctx, store, "cols/values.bin")
		require.NoError(t, err)
		assert.Equal(t, Info{Name: "cols/values.bin", Size: 6}, info)

		_, err = Stat(ctx, store, "cols/missing.bin")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("List", func(t *testing.T) {
		names, err := store.List(ctx, "cols/")
		require.NoError(t, err)
		assert.Equal(t, []string{"cols/label.bin", "cols/values.bin"}, names)
	})

	t.Run("DeleteAndNotFound", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "cols/label.bin"))
		require.NoError(t, store.Delete(ctx, "cols/label.bin"))

		_, err := store.Open(ctx, "cols/label.bin")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = ReadAll(ctx, store, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestLocalStore(t *testing.T) {
	testStore(t, NewLocalStore(t.TempDir()))
}

func TestMemoryStore_PutCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	data := []byte("abc")
	require.NoError(t, store.Put(ctx, "x", data))
	data[0] = 'z'

	got, err := ReadAll(ctx, store, "x")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

// openOnly hides the Stater of the wrapped store.
type openOnly struct{ BlobStore }

func TestStat_FallsBackToOpen(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	require.NoError(t, mem.Put(ctx, "a", []byte("abcd")))

	info, err := Stat(ctx, openOnly{mem}, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(4), info.Size)
}

func TestSpan(t *testing.T) {
	tests := []struct {
		off, length, size int64
		last              int64
		ok                bool
	}{
		{0, 5, 10, 4, true},
		{8, 5, 10, 9, true},
		{10, 1, 10, 0, false},
		{0, 0, 10, 0, false},
		{-1, 3, 10, 0, false},
		{0, 1, 0, 0, false},
	}
	for _, tt := range tests {
		last, ok := Span(tt.off, tt.length, tt.size)
		assert.Equal(t, tt.ok, ok, "span(%d,%d,%d)", tt.off, tt.length, tt.size)
		if ok {
			assert.Equal(t, tt.last, last)
		}
	}
}
