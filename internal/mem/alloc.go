package mem

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/hupe1980/colstage/internal/mmap"
	"github.com/hupe1980/colstage/resource"
)

// Alignment is the byte alignment of heap blocks.
const Alignment = 64

// Numeric is the set of element types staging buffers can hold.
type Numeric interface {
	~int32 | ~int64 | ~uint32 | ~uint64 | ~float32 | ~float64
}

// Stats describes an allocator's lifetime activity.
type Stats struct {
	Allocs     int64
	Releases   int64
	LiveBytes  int64
	TotalBytes int64
}

// Allocator produces Blocks. The zero value and a nil *Allocator allocate
// from the heap without accounting.
type Allocator struct {
	offHeap bool
	rc      *resource.Controller

	allocs     atomic.Int64
	releases   atomic.Int64
	liveBytes  atomic.Int64
	totalBytes atomic.Int64
}

// NewHeap returns an allocator backed by the Go heap.
func NewHeap(rc *resource.Controller) *Allocator {
	return &Allocator{rc: rc}
}

// NewOffHeap returns an allocator backed by anonymous mappings. On
// platforms without mmap it silently falls back to the heap.
func NewOffHeap(rc *resource.Controller) *Allocator {
	return &Allocator{offHeap: true, rc: rc}
}

// OffHeap reports whether blocks come from anonymous mappings.
func (a *Allocator) OffHeap() bool {
	return a != nil && a.offHeap
}

// Stats returns a snapshot of allocation counters.
func (a *Allocator) Stats() Stats {
	if a == nil {
		return Stats{}
	}
	return Stats{
		Allocs:     a.allocs.Load(),
		Releases:   a.releases.Load(),
		LiveBytes:  a.liveBytes.Load(),
		TotalBytes: a.totalBytes.Load(),
	}
}

// Alloc returns a zeroed block of size bytes.
func (a *Allocator) Alloc(size int) (*Block, error) {
	if size < 0 {
		return nil, fmt.Errorf("mem: negative allocation size %d", size)
	}
	if size == 0 {
		return &Block{}, nil
	}

	var rc *resource.Controller
	if a != nil {
		rc = a.rc
	}
	if err := rc.TryAcquireMemory(int64(size)); err != nil {
		return nil, fmt.Errorf("mem: allocate %d bytes: %w", size, err)
	}

	b := &Block{owner: a, size: int64(size)}
	if a.OffHeap() {
		m, err := mmap.MapAnon(size)
		switch {
		case err == nil:
			b.mapping = m
			b.data = m.Bytes()
		case errors.Is(err, mmap.ErrUnsupported):
			b.data = AllocAligned(size)
		default:
			rc.ReleaseMemory(int64(size))
			return nil, fmt.Errorf("mem: map %d bytes: %w", size, err)
		}
	} else {
		b.data = AllocAligned(size)
	}

	if a != nil {
		a.allocs.Add(1)
		a.liveBytes.Add(int64(size))
		a.totalBytes.Add(int64(size))
	}
	return b, nil
}

// Block is one allocation. Its memory is invalid after Release.
type Block struct {
	owner    *Allocator
	data     []byte
	mapping  *mmap.Mapping
	size     int64
	released atomic.Bool
}

// Bytes returns the block memory, or nil once released.
func (b *Block) Bytes() []byte {
	if b == nil || b.released.Load() {
		return nil
	}
	return b.data
}

// Size returns the block size in bytes.
func (b *Block) Size() int {
	if b == nil {
		return 0
	}
	return int(b.size)
}

// Released reports whether Release has been called.
func (b *Block) Released() bool {
	return b == nil || b.released.Load()
}

// Release returns the memory. Calling it more than once is a no-op.
func (b *Block) Release() error {
	if b == nil || b.released.Swap(true) {
		return nil
	}
	b.data = nil

	var err error
	if b.mapping != nil {
		err = b.mapping.Close()
	}
	if b.size > 0 {
		if b.owner != nil {
			b.owner.rc.ReleaseMemory(b.size)
			b.owner.releases.Add(1)
			b.owner.liveBytes.Add(-b.size)
		}
	}
	return err
}

// Slice allocates a block large enough for n elements of T and returns
// the typed view together with the owning block.
func Slice[T Numeric](a *Allocator, n int) ([]T, *Block, error) {
	if n < 0 {
		return nil, nil, fmt.Errorf("mem: negative element count %d", n)
	}
	var zero T
	size := int(unsafe.Sizeof(zero))
	b, err := a.Alloc(n * size)
	if err != nil {
		return nil, nil, err
	}
	return View[T](b, n), b, nil
}

// View reinterprets the first n elements of a block as []T.
func View[T Numeric](b *Block, n int) []T {
	data := b.Bytes()
	if n == 0 || len(data) == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&data[0])), n) //nolint:gosec // block is sized and aligned for T
}

// AllocAligned allocates size bytes from the heap starting on an
// Alignment boundary.
func AllocAligned(size int) []byte {
	if size <= 0 {
		return nil
	}

	buf := make([]byte, size+Alignment)
	addr := uintptr(unsafe.Pointer(&buf[0])) //nolint:gosec // alignment arithmetic only
	offset := (Alignment - (addr & (Alignment - 1))) & (Alignment - 1)

	return buf[offset : offset+uintptr(size)]
}
