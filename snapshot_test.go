package colstage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/colstage/blobstore"
	"github.com/hupe1980/colstage/codec"
	"github.com/hupe1980/colstage/internal/snapshot"
	"github.com/hupe1980/colstage/testutil"
)

func stageSparse(t *testing.T, opts ...Option) (*Dataset, [][]Row) {
	t.Helper()
	rng := testutil.NewRNG(21)
	rows := rng.SparseRows(120, 30, 0.2)
	for i := range rows {
		rows[i].InitScores = []float64{float64(i)}
	}
	parts := testutil.Split(rows, []int{40, 0, 80})

	stager, err := New(Schema{Layout: Sparse, NumCols: 30, HasWeight: true, HasInitScore: true, HasGroup: true}, opts...)
	require.NoError(t, err)
	ds, err := stager.Stage(t.Context(), partitionsOf(parts))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ds.Release() })
	return ds, parts
}

func TestDataset_SaveLoad(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			ctx := t.Context()
			ds, parts := stageSparse(t, WithMode(Sequential), WithIndptrRebase(true))
			store := blobstore.NewLocalStore(t.TempDir())
			metrics := &BasicMetricsCollector{}
			ds.opts.metricsCollector = metrics

			m, err := ds.Save(ctx, store, "train", WithCompression(c), WithCodec(codec.JSON{}), WithBlockSize(512))
			require.NoError(t, err)
			assert.Equal(t, "sparse", m.Layout)
			assert.True(t, m.RebasedIndptr)
			assert.Len(t, m.Columns, 7)
			assert.Equal(t, int64(1), metrics.GetStats().SnapshotCount)

			info, err := Inspect(ctx, store, "train")
			require.NoError(t, err)
			assert.Equal(t, int64(120), info.Rows)

			loaded, err := Load(ctx, store, "train")
			require.NoError(t, err)
			defer loaded.Release()

			assert.Equal(t, ds.Schema(), loaded.Schema())
			assert.Equal(t, ds.Labels(), loaded.Labels())
			assert.Equal(t, ds.Weights(), loaded.Weights())
			assert.Equal(t, ds.InitScores(), loaded.InitScores())
			assert.Equal(t, ds.Groups(), loaded.Groups())
			assert.Equal(t, ds.Indexes(), loaded.Indexes())
			assert.Equal(t, ds.Values(), loaded.Values())
			assert.Equal(t, ds.Indptr(), loaded.Indptr())
			assert.Equal(t, ds.Placements(), loaded.Placements())
			assert.True(t, loaded.IndptrRebased())
			assert.Equal(t, 3, loaded.NumPartitions())

			for _, p := range loaded.Placements() {
				for k, row := range parts[p.Partition] {
					idx, _, err := loaded.RowNonzeros(p.Rows.Start + k)
					require.NoError(t, err)
					assert.Len(t, idx, row.Sparse.Len())
				}
			}
		})
	}
}

func TestDataset_SaveLoadDenseOffHeap(t *testing.T) {
	ctx := t.Context()
	rows := testutil.NewRNG(3).DenseRows(64, 5)

	stager, err := New(Schema{Layout: Dense})
	require.NoError(t, err)
	ds, err := stager.Stage(ctx, partitionsOf(testutil.Split(rows, []int{30, 34})))
	require.NoError(t, err)
	defer ds.Release()

	store := blobstore.NewMemoryStore()
	_, err = ds.Save(ctx, store, "dense")
	require.NoError(t, err)

	loaded, err := Load(ctx, store, "dense", WithOffHeap(true))
	require.NoError(t, err)
	defer loaded.Release()

	assert.Equal(t, 5, loaded.NumCols())
	assert.Equal(t, ds.Features(), loaded.Features())
	assert.Nil(t, loaded.Weights())
	assert.Nil(t, loaded.Indptr())
}

func TestLoad_Errors(t *testing.T) {
	ctx := t.Context()
	store := blobstore.NewMemoryStore()

	_, err := Load(ctx, store, "absent")
	assert.ErrorIs(t, err, ErrNotFound)

	ds, _ := stageSparse(t)
	_, err = ds.Save(ctx, store, "s", WithCompression(CompressionNone))
	require.NoError(t, err)

	info, err := Inspect(ctx, store, "s")
	require.NoError(t, err)
	col, ok := info.Column("values")
	require.True(t, ok)

	stored, err := blobstore.ReadAll(ctx, store, col.Blob)
	require.NoError(t, err)
	stored[len(stored)-1] ^= 0x01
	require.NoError(t, store.Put(ctx, col.Blob, stored))

	_, err = Verify(ctx, store, "s")
	require.NoError(t, err, "same size, so only Load notices")

	_, err = Load(ctx, store, "s")
	assert.ErrorIs(t, err, ErrChecksum)

	require.NoError(t, store.Put(ctx, col.Blob, stored[:len(stored)/2]))
	_, err = Verify(ctx, store, "s")
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestLoad_ManifestDisagreesWithColumns(t *testing.T) {
	ctx := t.Context()
	store := blobstore.NewMemoryStore()

	stager, err := New(Schema{Layout: Dense, NumCols: 2})
	require.NoError(t, err)
	ds, err := stager.Stage(ctx, partitionsOf([][]Row{{
		NewRow(1).WithDense(1, 2).Build(),
		NewRow(0).WithDense(3, 4).Build(),
	}}))
	require.NoError(t, err)
	defer ds.Release()
	_, err = ds.Save(ctx, store, "s", WithCodec(codec.JSON{}))
	require.NoError(t, err)

	original, err := blobstore.ReadAll(ctx, store, snapshot.ManifestPath("s"))
	require.NoError(t, err)

	tests := []struct {
		name string
		from string
		to   string
	}{
		{"rows grown", `"rows":2`, `"rows":5`},
		{"cols grown", `"num_cols":2`, `"num_cols":3`},
		{"placement shifted", `"rows":{"start":0,"len":2}`, `"rows":{"start":1,"len":2}`},
		{"partition count", `"partitions":1`, `"partitions":2`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Contains(t, string(original), tc.from)
			edited := strings.Replace(string(original), tc.from, tc.to, 1)
			require.NoError(t, store.Put(ctx, snapshot.ManifestPath("s"), []byte(edited)))

			_, err := Load(ctx, store, "s")
			assert.ErrorIs(t, err, ErrInconsistent)
			_, err = Verify(ctx, store, "s")
			assert.ErrorIs(t, err, ErrInconsistent)
		})
	}

	require.NoError(t, store.Put(ctx, snapshot.ManifestPath("s"), original))
	loaded, err := Load(ctx, store, "s")
	require.NoError(t, err)
	defer loaded.Release()
	row, err := loaded.FeatureRow(1)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, row)
}

func TestDataset_SaveAfterRelease(t *testing.T) {
	ds, _ := stageSparse(t)
	require.NoError(t, ds.Release())

	_, err := ds.Save(t.Context(), blobstore.NewMemoryStore(), "x")
	assert.ErrorIs(t, err, ErrReleased)
	_, _, err = ds.RowNonzeros(0)
	assert.ErrorIs(t, err, ErrReleased)
}

func TestParseCompression(t *testing.T) {
	c, err := ParseCompression("zstd")
	require.NoError(t, err)
	assert.Equal(t, CompressionZSTD, c)
	_, err = ParseCompression("brotli")
	assert.Error(t, err)
}
