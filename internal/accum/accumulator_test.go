package accum

import (
	"sync"
	"testing"

	"github.com/hupe1980/colstage/internal/stageerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulator_ReportAndSeal(t *testing.T) {
	a := New(2)

	require.NoError(t, a.Report(0, Counts{Rows: 2, Indexes: 3, Indptr: 2}))
	_, err := a.Seal()
	require.ErrorIs(t, err, stageerr.ErrOrdering)
	assert.Equal(t, []int{1}, a.Missing())
	assert.False(t, a.Sealed())

	require.NoError(t, a.Report(1, Counts{Rows: 2, Indexes: 2, Indptr: 2}))
	totals, err := a.Seal()
	require.NoError(t, err)
	assert.Equal(t, int64(4), totals.Rows)
	assert.Equal(t, int64(5), totals.Indexes)
	assert.Equal(t, int64(4), totals.Indptr)
	assert.Equal(t, 2, totals.Partitions)
	assert.True(t, a.Sealed())

	again, err := a.Seal()
	require.NoError(t, err)
	assert.Equal(t, totals, again)
}

func TestAccumulator_ReportViolations(t *testing.T) {
	a := New(2)

	assert.ErrorIs(t, a.Report(2, Counts{}), stageerr.ErrOrdering)
	assert.ErrorIs(t, a.Report(-1, Counts{}), stageerr.ErrOrdering)

	require.NoError(t, a.Report(0, Counts{Rows: 1}))
	assert.ErrorIs(t, a.Report(0, Counts{Rows: 1}), stageerr.ErrOrdering)
	assert.Equal(t, int64(1), a.Snapshot().Rows, "duplicate report must not be counted")

	require.NoError(t, a.Report(1, Counts{}))
	_, err := a.Seal()
	require.NoError(t, err)
	assert.ErrorIs(t, a.Report(1, Counts{}), stageerr.ErrOrdering)
}

func TestAccumulator_EmptyJob(t *testing.T) {
	a := New(0)
	totals, err := a.Seal()
	require.NoError(t, err)
	assert.Equal(t, Totals{}, totals)
	assert.Empty(t, a.Missing())
}

func TestAccumulator_NumColsAgreement(t *testing.T) {
	a := New(3)
	assert.Equal(t, -1, a.NumCols())

	require.NoError(t, a.ObserveNumCols(0, 3))
	require.NoError(t, a.ObserveNumCols(1, 3))

	err := a.ObserveNumCols(2, 4)
	require.ErrorIs(t, err, stageerr.ErrConfiguration)
	var cfgErr *stageerr.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, 2, cfgErr.Partition)
	assert.Equal(t, 3, cfgErr.Expected)
	assert.Equal(t, 4, cfgErr.Actual)
}

func TestAccumulator_ConcurrentReports(t *testing.T) {
	const partitions = 200
	a := New(partitions)

	var wg sync.WaitGroup
	for p := range partitions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, a.Report(p, Counts{Rows: int64(p), InitScores: 1, Indexes: 2, Indptr: int64(p)}))
		}()
	}
	wg.Wait()

	totals, err := a.Seal()
	require.NoError(t, err)
	want := int64(partitions * (partitions - 1) / 2)
	assert.Equal(t, want, totals.Rows)
	assert.Equal(t, want, totals.Indptr)
	assert.Equal(t, int64(partitions), totals.InitScores)
	assert.Equal(t, int64(2*partitions), totals.Indexes)
	assert.Equal(t, partitions, a.Reported())
}

func TestAccumulator_IncrementCountsIsLockFree(t *testing.T) {
	a := New(1)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.IncrementCounts(Counts{Rows: 1, Indexes: 3})
		}()
	}
	wg.Wait()

	assert.Equal(t, Counts{Rows: 50, Indexes: 150}, a.Snapshot())
}
