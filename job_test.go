package colstage

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJob_SparseScenario(t *testing.T) {
	job, err := NewJob(Schema{Layout: Sparse, NumCols: 3}, 2, WithChunkSize(2))
	require.NoError(t, err)
	defer job.Release()

	parts := [][]Row{
		{
			NewRow(1).WithSparse([]int32{0, 2}, []float64{1, 2}).Build(),
			NewRow(0).WithSparse([]int32{1}, []float64{3}).Build(),
		},
		{
			NewRow(1).WithSparse([]int32{1}, []float64{4}).Build(),
			NewRow(0).WithSparse([]int32{0}, []float64{5}).Build(),
		},
	}

	writers := make([]*PartitionWriter, len(parts))
	var wg sync.WaitGroup
	for i, rows := range parts {
		w, err := job.Partition(i)
		require.NoError(t, err)
		writers[i] = w

		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, row := range rows {
				assert.NoError(t, w.AddRow(row))
			}
			assert.NoError(t, w.Finish())
		}()
	}
	wg.Wait()

	for _, w := range writers {
		_, err := job.Merge(t.Context(), w)
		require.NoError(t, err)
	}

	ds, err := job.Dataset()
	require.NoError(t, err)
	defer ds.Release()

	assert.Equal(t, 4, ds.NumRows())
	assert.Equal(t, 5, ds.NumNonzeros())
	assert.Len(t, ds.Indptr(), 5)
	assert.Equal(t, []int32{0, 2, 1, 1, 0}, ds.Indexes())
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, ds.Values())
	assert.Equal(t, []int32{0, 2, 3, 1, 2}, ds.Indptr(), "partition-relative segments")

	idx, vals, err := ds.RowNonzeros(3)
	require.NoError(t, err)
	assert.Equal(t, []int32{0}, idx)
	assert.Equal(t, []float64{5}, vals)

	_, _, err = ds.RowNonzeros(4)
	assert.Error(t, err)
	_, err = ds.FeatureRow(0)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestJob_MergeBeforeAllFinished(t *testing.T) {
	job, err := NewJob(Schema{Layout: Dense}, 2)
	require.NoError(t, err)
	defer job.Release()

	w0, err := job.Partition(0)
	require.NoError(t, err)
	require.NoError(t, w0.AddRow(NewRow(1).WithDense(1, 2).Build()))
	require.NoError(t, w0.Finish())

	_, err = job.Merge(t.Context(), w0)
	assert.ErrorIs(t, err, ErrOrdering)

	w1, err := job.Partition(1)
	require.NoError(t, err)
	require.NoError(t, w1.Finish())

	_, err = job.Merge(t.Context(), w0)
	require.NoError(t, err)
	_, err = job.Merge(t.Context(), w0)
	assert.ErrorIs(t, err, ErrOrdering, "second merge of the same partition")
}

func TestJob_PartitionMisuse(t *testing.T) {
	job, err := NewJob(Schema{Layout: Dense}, 1)
	require.NoError(t, err)

	_, err = job.Partition(1)
	assert.ErrorIs(t, err, ErrOrdering)

	w, err := job.Partition(0)
	require.NoError(t, err)
	_, err = job.Partition(0)
	assert.ErrorIs(t, err, ErrOrdering)

	require.NoError(t, w.Finish())
	assert.ErrorIs(t, w.AddRow(NewRow(1).WithDense(1).Build()), ErrOrdering)
	assert.ErrorIs(t, w.Finish(), ErrOrdering)

	other, err := NewJob(Schema{Layout: Dense}, 1)
	require.NoError(t, err)
	defer other.Release()
	_, err = other.Merge(t.Context(), w)
	assert.ErrorIs(t, err, ErrOrdering)

	require.NoError(t, job.Release())
	require.NoError(t, job.Release())
	_, err = job.Partition(0)
	assert.ErrorIs(t, err, ErrOrdering)
	_, err = job.Dataset()
	assert.ErrorIs(t, err, ErrOrdering)

	_, err = NewJob(Schema{Layout: Dense}, -1)
	assert.ErrorIs(t, err, ErrInvalidSchema)
}

func TestJob_DatasetOutlivesJob(t *testing.T) {
	job, err := NewJob(Schema{Layout: Dense, HasGroup: true}, 1)
	require.NoError(t, err)

	w, err := job.Partition(0)
	require.NoError(t, err)
	require.NoError(t, w.AddRow(NewRow(2).WithDense(1, 2).WithGroup(GroupKey("q1")).Build()))
	require.NoError(t, w.Finish())
	_, err = job.Merge(t.Context(), w)
	require.NoError(t, err)

	ds, err := job.Dataset()
	require.NoError(t, err)
	again, err := job.Dataset()
	require.NoError(t, err)
	assert.Same(t, ds, again)

	require.NoError(t, job.Release())
	assert.Equal(t, []float64{1, 2}, ds.Features())
	assert.Equal(t, []int64{GroupKey("q1")}, ds.Groups())
	require.NoError(t, ds.Release())
}
