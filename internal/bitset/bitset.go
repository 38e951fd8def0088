package bitset

import (
	"math/bits"
	"sync/atomic"
)

// BitSet is a fixed-size set of bits safe for concurrent marking.
type BitSet struct {
	words []atomic.Uint64
	size  int
	count atomic.Int64
}

// New creates a BitSet holding size bits, all clear.
func New(size int) *BitSet {
	if size < 0 {
		size = 0
	}
	return &BitSet{
		words: make([]atomic.Uint64, (size+63)/64),
		size:  size,
	}
}

// Len returns the number of bits.
func (b *BitSet) Len() int {
	return b.size
}

// Count returns the number of set bits.
func (b *BitSet) Count() int {
	return int(b.count.Load())
}

// Full reports whether every bit is set.
func (b *BitSet) Full() bool {
	return b.Count() == b.size
}

// Test reports whether bit i is set. Out-of-range bits read as clear.
func (b *BitSet) Test(i int) bool {
	if i < 0 || i >= b.size {
		return false
	}
	return b.words[i>>6].Load()&(1<<(uint(i)&63)) != 0
}

// TestAndSet sets bit i and reports whether it was already set.
// Out-of-range bits are ignored and reported as not set.
func (b *BitSet) TestAndSet(i int) bool {
	if i < 0 || i >= b.size {
		return false
	}
	mask := uint64(1) << (uint(i) & 63)
	old := b.words[i>>6].Or(mask)
	if old&mask != 0 {
		return true
	}
	b.count.Add(1)
	return false
}

// SetRange sets bits [start, start+n). If any bit in the range was already
// set, it returns the index of the lowest such bit and false. The caller
// must ensure the range is within bounds.
func (b *BitSet) SetRange(start, n int) (int, bool) {
	conflict := -1
	end := start + n
	for i := start; i < end; {
		w := i >> 6
		lo := uint(i) & 63
		hi := uint(64)
		if (w+1)<<6 > end {
			hi = uint(end - w<<6)
		}

		var mask uint64
		if hi-lo == 64 {
			mask = ^uint64(0)
		} else {
			mask = ((uint64(1) << (hi - lo)) - 1) << lo
		}

		old := b.words[w].Or(mask)
		if dup := old & mask; dup != 0 && conflict < 0 {
			conflict = w<<6 + bits.TrailingZeros64(dup)
		}
		b.count.Add(int64(bits.OnesCount64(mask &^ old)))

		i = w<<6 + int(hi)
	}
	return conflict, conflict < 0
}
