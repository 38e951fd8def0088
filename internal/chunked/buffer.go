package chunked

import (
	"fmt"

	"github.com/hupe1980/colstage/internal/mem"
	"github.com/hupe1980/colstage/internal/stageerr"
)

// DefaultChunkCapacity is the chunk capacity used when none is given.
const DefaultChunkCapacity = 1000

type chunk[T mem.Numeric] struct {
	items []T
	block *mem.Block
}

// Buffer is an append-only sequence of T backed by fixed-size chunks.
type Buffer[T mem.Numeric] struct {
	capacity int
	alloc    *mem.Allocator
	chunks   []chunk[T]
	fill     int // elements in the last chunk
	total    int
	released bool
}

// New creates an empty buffer with the given chunk capacity. A non-positive
// capacity selects DefaultChunkCapacity. alloc may be nil.
func New[T mem.Numeric](capacity int, alloc *mem.Allocator) *Buffer[T] {
	if capacity <= 0 {
		capacity = DefaultChunkCapacity
	}
	return &Buffer[T]{capacity: capacity, alloc: alloc}
}

// ChunkCapacity returns C.
func (b *Buffer[T]) ChunkCapacity() int {
	return b.capacity
}

// Append adds v at the end of the buffer.
func (b *Buffer[T]) Append(v T) error {
	if b.released {
		return stageerr.ErrReleased
	}
	if len(b.chunks) == 0 || b.fill == b.capacity {
		if err := b.grow(); err != nil {
			return err
		}
	}
	b.chunks[len(b.chunks)-1].items[b.fill] = v
	b.fill++
	b.total++
	return nil
}

// AppendSlice appends vs in order, spilling across chunk boundaries.
func (b *Buffer[T]) AppendSlice(vs []T) error {
	if b.released {
		return stageerr.ErrReleased
	}
	for len(vs) > 0 {
		if len(b.chunks) == 0 || b.fill == b.capacity {
			if err := b.grow(); err != nil {
				return err
			}
		}
		last := b.chunks[len(b.chunks)-1].items
		n := copy(last[b.fill:], vs)
		b.fill += n
		b.total += n
		vs = vs[n:]
	}
	return nil
}

func (b *Buffer[T]) grow() error {
	items, block, err := mem.Slice[T](b.alloc, b.capacity)
	if err != nil {
		return fmt.Errorf("chunked: grow to chunk %d: %w", len(b.chunks), err)
	}
	b.chunks = append(b.chunks, chunk[T]{items: items, block: block})
	b.fill = 0
	return nil
}

// Get returns the element at (chunkIndex, offset), or def if that
// position has not been populated.
func (b *Buffer[T]) Get(chunkIndex, offset int, def T) T {
	if chunkIndex < 0 || chunkIndex >= len(b.chunks) || offset < 0 {
		return def
	}
	limit := b.capacity
	if chunkIndex == len(b.chunks)-1 {
		limit = b.fill
	}
	if offset >= limit {
		return def
	}
	return b.chunks[chunkIndex].items[offset]
}

// At returns the element at logical index i, or def if out of range.
func (b *Buffer[T]) At(i int, def T) T {
	if i < 0 {
		return def
	}
	return b.Get(i/b.capacity, i%b.capacity, def)
}

// ChunkCount returns the number of allocated chunks.
func (b *Buffer[T]) ChunkCount() int {
	return len(b.chunks)
}

// LastChunkFillCount returns the number of elements in the last chunk.
// It equals the chunk capacity when the last chunk is full and 0 when the
// buffer is empty.
func (b *Buffer[T]) LastChunkFillCount() int {
	return b.fill
}

// Len returns the total number of appended elements.
func (b *Buffer[T]) Len() int {
	return b.total
}

// Chunk returns the populated prefix of chunk i. The view must not be
// modified and is invalid after Release.
func (b *Buffer[T]) Chunk(i int) []T {
	if i < 0 || i >= len(b.chunks) {
		return nil
	}
	if i == len(b.chunks)-1 {
		return b.chunks[i].items[:b.fill]
	}
	return b.chunks[i].items
}

// Released reports whether Release has been called.
func (b *Buffer[T]) Released() bool {
	return b.released
}

// Release frees every chunk. It is safe to call more than once.
func (b *Buffer[T]) Release() error {
	if b.released {
		return nil
	}
	b.released = true

	var firstErr error
	for i := range b.chunks {
		if err := b.chunks[i].block.Release(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	b.chunks = nil
	b.fill = 0
	b.total = 0
	return firstErr
}
