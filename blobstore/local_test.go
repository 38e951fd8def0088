package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/colstage/internal/fs"
)

func TestLocalStore_NoPartialBlobs(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewLocalStore(tmpDir)
	ctx := context.Background()

	w, err := store.Create(ctx, "snap/manifest.json")
	require.NoError(t, err)
	_, err = w.Write([]byte("{}"))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(tmpDir, "snap", "manifest.json"))
	assert.True(t, os.IsNotExist(err), "blob must not be visible before Close")

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, names, "temporary files are hidden")

	require.NoError(t, w.Close())
	_, err = os.Stat(filepath.Join(tmpDir, "snap", "manifest.json"))
	require.NoError(t, err)
}

func TestLocalStore_MappedBytes(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "a.bin", []byte("mapped")))

	blob, err := store.Open(ctx, "a.bin")
	require.NoError(t, err)

	m, ok := blob.(Mappable)
	require.True(t, ok)
	data, err := m.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "mapped", string(data))

	require.NoError(t, blob.Close())
	_, err = m.Bytes()
	assert.Error(t, err)
}

func TestLocalStore_ListMissingRoot(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "nope"))
	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestLocalStore_ListPrefixAcrossDirs(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()
	for _, name := range []string{"a/MANIFEST", "a/label.col", "ab/label.col", "b/x/values.col"} {
		require.NoError(t, store.Put(ctx, name, []byte(name)))
	}

	names, err := store.List(ctx, "a/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/MANIFEST", "a/label.col"}, names)

	names, err = store.List(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, names, 3)

	names, err = store.List(ctx, "b/x/v")
	require.NoError(t, err)
	assert.Equal(t, []string{"b/x/values.col"}, names)
}

func TestLocalStore_FailedSyncAbortsWrite(t *testing.T) {
	dir := t.TempDir()
	ffs := fs.NewFaultyFS(nil)
	ffs.AddRule("broken", fs.Fault{FailAfterBytes: -1, FailOnSync: true})
	store := NewLocalStoreFS(ffs, dir)
	ctx := context.Background()

	require.ErrorIs(t, store.Put(ctx, "snap/broken.col", []byte("data")), fs.ErrInjected)
	require.NoError(t, store.Put(ctx, "snap/fine.col", []byte("data")))

	entries, err := os.ReadDir(filepath.Join(dir, "snap"))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary file removed")
	assert.Equal(t, "fine.col", entries[0].Name())
}

func TestLocalStore_AbortDiscards(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	w, err := store.Create(ctx, "x.col")
	require.NoError(t, err)
	_, err = w.Write([]byte("partial"))
	require.NoError(t, err)
	require.NoError(t, Abort(w))
	require.NoError(t, w.Close())

	_, err = store.Open(ctx, "x.col")
	assert.ErrorIs(t, err, ErrNotFound)
}
