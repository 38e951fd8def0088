package aggregate

import (
	"sort"
	"sync"
	"testing"

	"github.com/hupe1980/colstage/internal/stageerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounter_ReservationsTile(t *testing.T) {
	sizes := []int{0, 3, 7, 1, 0, 12, 5, 9, 2, 11}
	total := 0
	for _, n := range sizes {
		total += n
	}
	c := NewCounter("rows", total)

	var (
		mu     sync.Mutex
		ranges []Range
		wg     sync.WaitGroup
	)
	for _, n := range sizes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := c.Reserve(n)
			assert.NoError(t, err)
			mu.Lock()
			ranges = append(ranges, r)
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Slice(ranges, func(i, j int) bool {
		if ranges[i].Start != ranges[j].Start {
			return ranges[i].Start < ranges[j].Start
		}
		return ranges[i].Len < ranges[j].Len
	})
	next := 0
	for _, r := range ranges {
		assert.Equal(t, next, r.Start)
		next = r.End()
	}
	assert.Equal(t, total, next)
	assert.Equal(t, total, c.Reserved())
}

func TestCounter_Overrun(t *testing.T) {
	c := NewCounter("indexes", 5)

	r, err := c.Reserve(4)
	require.NoError(t, err)
	assert.Equal(t, Range{Start: 0, Len: 4}, r)

	_, err = c.Reserve(2)
	require.ErrorIs(t, err, stageerr.ErrCapacity)
	var capErr *stageerr.CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, "indexes", capErr.Buffer)
	assert.Equal(t, 4, capErr.Start)
	assert.Equal(t, 5, capErr.Limit)

	_, err = NewCounter("rows", 1).Reserve(-1)
	assert.ErrorIs(t, err, stageerr.ErrCapacity)
}

func TestRange_Contains(t *testing.T) {
	r := Range{Start: 2, Len: 3}
	assert.False(t, r.Contains(1))
	assert.True(t, r.Contains(2))
	assert.True(t, r.Contains(4))
	assert.False(t, r.Contains(5))
	assert.False(t, Range{Start: 2}.Contains(2))
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{Sequential, Concurrent} {
		got, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseMode("parallel")
	assert.Error(t, err)
}
