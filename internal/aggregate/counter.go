package aggregate

import (
	"sync/atomic"

	"github.com/hupe1980/colstage/internal/stageerr"
)

// Range is a reserved [Start, Start+Len) slice of a flat buffer.
type Range struct {
	Start int `json:"start"`
	Len   int `json:"len"`
}

// End returns Start+Len.
func (r Range) End() int {
	return r.Start + r.Len
}

// Contains reports whether i falls inside the range.
func (r Range) Contains(i int) bool {
	return i >= r.Start && i < r.End()
}

// Counter hands out disjoint ranges of a buffer of fixed length.
type Counter struct {
	name  string
	limit int64
	next  atomic.Int64
}

// NewCounter creates a counter for a buffer of length limit.
func NewCounter(name string, limit int) *Counter {
	return &Counter{name: name, limit: int64(limit)}
}

// Reserve atomically claims the next n slots. A reservation that would end
// past the limit fails with a *stageerr.CapacityError; the job is then
// unusable.
func (c *Counter) Reserve(n int) (Range, error) {
	if n < 0 {
		return Range{}, stageerr.Overrun(c.name, int(c.next.Load()), n, int(c.limit))
	}
	end := c.next.Add(int64(n))
	start := end - int64(n)
	if end > c.limit {
		return Range{}, stageerr.Overrun(c.name, int(start), n, int(c.limit))
	}
	return Range{Start: int(start), Len: n}, nil
}

// Reserved returns the number of slots claimed so far.
func (c *Counter) Reserved() int {
	return int(c.next.Load())
}

// Limit returns the buffer length.
func (c *Counter) Limit() int {
	return int(c.limit)
}
