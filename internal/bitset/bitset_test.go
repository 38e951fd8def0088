package bitset

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitSet_TestAndSet(t *testing.T) {
	b := New(130)

	assert.False(t, b.TestAndSet(0))
	assert.False(t, b.TestAndSet(129))
	assert.True(t, b.TestAndSet(0))
	assert.False(t, b.TestAndSet(130), "out of range is ignored")

	assert.True(t, b.Test(0))
	assert.True(t, b.Test(129))
	assert.False(t, b.Test(64))
	assert.Equal(t, 2, b.Count())
	assert.Equal(t, 130, b.Len())
}

func TestBitSet_SetRange(t *testing.T) {
	tests := []struct {
		name  string
		size  int
		start int
		n     int
	}{
		{"within word", 64, 3, 10},
		{"whole word", 128, 64, 64},
		{"spanning words", 300, 60, 150},
		{"empty", 10, 4, 0},
		{"tail", 70, 65, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(tt.size)
			conflict, ok := b.SetRange(tt.start, tt.n)
			require.True(t, ok)
			assert.Equal(t, -1, conflict)
			assert.Equal(t, tt.n, b.Count())

			for i := range tt.size {
				want := i >= tt.start && i < tt.start+tt.n
				assert.Equal(t, want, b.Test(i), "bit %d", i)
			}
		})
	}
}

func TestBitSet_SetRangeConflict(t *testing.T) {
	b := New(200)
	_, ok := b.SetRange(100, 50)
	require.True(t, ok)

	conflict, ok := b.SetRange(20, 90)
	assert.False(t, ok)
	assert.Equal(t, 100, conflict)
	assert.Equal(t, 130, b.Count())
}

func TestBitSet_ConcurrentDisjointRanges(t *testing.T) {
	const workers = 16
	const span = 1000
	b := New(workers * span)

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := b.SetRange(w*span, span)
			assert.True(t, ok)
		}()
	}
	wg.Wait()

	assert.True(t, b.Full())
}
