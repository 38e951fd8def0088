package mem

import (
	"testing"
	"unsafe"

	"github.com/hupe1980/colstage/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocAligned(t *testing.T) {
	for _, size := range []int{1, 10, 63, 64, 65, 100, 1024} {
		buf := AllocAligned(size)
		assert.Len(t, buf, size)
		addr := uintptr(unsafe.Pointer(&buf[0]))
		assert.Equal(t, uintptr(0), addr%Alignment, "size %d", size)
	}

	assert.Nil(t, AllocAligned(0))
	assert.Nil(t, AllocAligned(-1))
}

func TestAllocator_HeapAndOffHeap(t *testing.T) {
	tests := []struct {
		name  string
		alloc *Allocator
	}{
		{"nil", nil},
		{"heap", NewHeap(nil)},
		{"offheap", NewOffHeap(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vals, blk, err := Slice[float64](tt.alloc, 100)
			require.NoError(t, err)
			require.Len(t, vals, 100)
			assert.Equal(t, 800, blk.Size())

			for i := range vals {
				vals[i] = float64(i) * 0.5
			}
			assert.InDelta(t, 49.5, vals[99], 1e-9)

			require.NoError(t, blk.Release())
			assert.True(t, blk.Released())
			assert.Nil(t, blk.Bytes())
			require.NoError(t, blk.Release())
		})
	}
}

func TestAllocator_ChargesController(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1024})
	a := NewHeap(rc)

	_, b1, err := Slice[int32](a, 128)
	require.NoError(t, err)
	assert.Equal(t, int64(512), rc.MemoryUsage())

	_, _, err = Slice[int64](a, 128)
	assert.ErrorIs(t, err, resource.ErrMemoryLimitExceeded)
	assert.Equal(t, int64(512), rc.MemoryUsage())

	require.NoError(t, b1.Release())
	require.NoError(t, b1.Release())
	assert.Equal(t, int64(0), rc.MemoryUsage())

	st := a.Stats()
	assert.Equal(t, int64(1), st.Allocs)
	assert.Equal(t, int64(1), st.Releases)
	assert.Equal(t, int64(0), st.LiveBytes)
	assert.Equal(t, int64(512), st.TotalBytes)
}

func TestAllocator_ZeroAndNegative(t *testing.T) {
	vals, blk, err := Slice[float32](NewHeap(nil), 0)
	require.NoError(t, err)
	assert.Empty(t, vals)
	require.NoError(t, blk.Release())

	_, _, err = Slice[float32](nil, -1)
	assert.Error(t, err)
}
