package flat

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/colstage/internal/bitset"
	"github.com/hupe1980/colstage/internal/mem"
	"github.com/hupe1980/colstage/internal/stageerr"
)

// Buffer is a fixed-length contiguous buffer of T.
type Buffer[T mem.Numeric] struct {
	name     string
	items    []T
	block    *mem.Block
	written  *bitset.BitSet
	released atomic.Bool

	// mu is held shared by writers and exclusively by Release.
	mu sync.RWMutex
}

// New allocates a buffer of length elements. name identifies the column in
// errors.
func New[T mem.Numeric](name string, length int, alloc *mem.Allocator) (*Buffer[T], error) {
	if length < 0 {
		return nil, fmt.Errorf("flat: %s: negative length %d", name, length)
	}
	items, block, err := mem.Slice[T](alloc, length)
	if err != nil {
		return nil, fmt.Errorf("flat: allocate %s[%d]: %w", name, length, err)
	}
	return &Buffer[T]{
		name:    name,
		items:   items,
		block:   block,
		written: bitset.New(length),
	}, nil
}

// Name returns the column name.
func (b *Buffer[T]) Name() string {
	return b.name
}

// Len returns the fixed length L.
func (b *Buffer[T]) Len() int {
	return b.written.Len()
}

// Set writes v to slot i.
func (b *Buffer[T]) Set(i int, v T) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.released.Load() {
		return stageerr.ErrReleased
	}
	if i < 0 || i >= b.Len() {
		return stageerr.Overrun(b.name, i, 1, b.Len())
	}
	if b.written.TestAndSet(i) {
		return &stageerr.CapacityError{Buffer: b.name, Start: i, Len: 1, Limit: b.Len(), Reason: "slot already written"}
	}
	b.items[i] = v
	return nil
}

// Write copies vs into [start, start+len(vs)).
func (b *Buffer[T]) Write(start int, vs []T) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.released.Load() {
		return stageerr.ErrReleased
	}
	if len(vs) == 0 {
		return nil
	}
	if start < 0 || start+len(vs) > b.Len() {
		return stageerr.Overrun(b.name, start, len(vs), b.Len())
	}
	if dup, ok := b.written.SetRange(start, len(vs)); !ok {
		return &stageerr.CapacityError{Buffer: b.name, Start: dup, Len: 1, Limit: b.Len(), Reason: "slot already written"}
	}
	copy(b.items[start:], vs)
	return nil
}

// Get returns slot i. Reading a slot before it is written yields the zero
// value; reading out of range panics like a slice index. Get must not race
// Release.
func (b *Buffer[T]) Get(i int) T {
	return b.items[i]
}

// Written returns how many slots have been written.
func (b *Buffer[T]) Written() int {
	return b.written.Count()
}

// Complete reports whether every slot has been written.
func (b *Buffer[T]) Complete() bool {
	return b.written.Full()
}

// Slice exposes the underlying storage for the bulk consumer. The slice is
// invalid after Release.
func (b *Buffer[T]) Slice() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.released.Load() {
		return nil
	}
	return b.items
}

// Released reports whether Release has been called.
func (b *Buffer[T]) Released() bool {
	return b.released.Load()
}

// Release frees the storage. It is safe to call more than once.
func (b *Buffer[T]) Release() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released.Swap(true) {
		return nil
	}
	b.items = nil
	return b.block.Release()
}
