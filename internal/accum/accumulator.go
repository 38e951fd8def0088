package accum

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/colstage/internal/stageerr"
)

// Counts are one collector's local totals.
type Counts struct {
	Rows       int64
	InitScores int64
	Indexes    int64 // sparse only
	Indptr     int64 // sparse only, leading zero excluded
}

// Totals are the sealed job-wide sizes used for allocation.
type Totals struct {
	Counts
	NumCols    int
	Partitions int
}

// Accumulator sums Counts across partitions.
type Accumulator struct {
	rows       atomic.Int64
	initScores atomic.Int64
	indexes    atomic.Int64
	indptr     atomic.Int64
	numCols    atomic.Int64

	expected int

	mu       sync.Mutex
	reported *roaring.Bitmap
	sealed   atomic.Bool
	totals   Totals
}

// New creates an accumulator for a job with the given number of
// partitions, identified as 0..expected-1.
func New(expected int) *Accumulator {
	a := &Accumulator{
		expected: expected,
		reported: roaring.New(),
	}
	a.numCols.Store(-1)
	return a
}

// Expected returns the number of partitions the job was created with.
func (a *Accumulator) Expected() int {
	return a.expected
}

// IncrementCounts atomically adds c to the running totals.
func (a *Accumulator) IncrementCounts(c Counts) {
	a.rows.Add(c.Rows)
	a.initScores.Add(c.InitScores)
	a.indexes.Add(c.Indexes)
	a.indptr.Add(c.Indptr)
}

// Report records that partition has finished counting and adds its totals.
// Each partition may report once, and only before Seal.
func (a *Accumulator) Report(partition int, c Counts) error {
	if partition < 0 || partition >= a.expected {
		return stageerr.Ordering(fmt.Sprintf("report of partition %d", partition),
			fmt.Sprintf("job with %d partitions", a.expected))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sealed.Load() {
		return stageerr.Ordering("report", "sealed")
	}
	if !a.reported.CheckedAdd(uint32(partition)) {
		return stageerr.Ordering(fmt.Sprintf("second report of partition %d", partition), "counted")
	}

	a.IncrementCounts(c)
	return nil
}

// ObserveNumCols agrees the feature dimension across partitions. The first
// observation wins; later ones must match it.
func (a *Accumulator) ObserveNumCols(partition, n int) error {
	if a.numCols.CompareAndSwap(-1, int64(n)) {
		return nil
	}
	if have := int(a.numCols.Load()); have != n {
		return &stageerr.ConfigurationError{
			Partition: partition,
			Expected:  have,
			Actual:    n,
			Reason:    "feature dimension differs across partitions",
		}
	}
	return nil
}

// NumCols returns the agreed feature dimension, or -1 if none was observed.
func (a *Accumulator) NumCols() int {
	return int(a.numCols.Load())
}

// Snapshot returns the current counter values. They are only meaningful
// for allocation once Seal has succeeded.
func (a *Accumulator) Snapshot() Counts {
	return Counts{
		Rows:       a.rows.Load(),
		InitScores: a.initScores.Load(),
		Indexes:    a.indexes.Load(),
		Indptr:     a.indptr.Load(),
	}
}

// Reported returns how many partitions have reported.
func (a *Accumulator) Reported() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return int(a.reported.GetCardinality())
}

// Missing returns the partitions that have not reported yet, ascending.
func (a *Accumulator) Missing() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.missingLocked()
}

func (a *Accumulator) missingLocked() []int {
	if a.expected == 0 {
		return nil
	}
	gaps := roaring.Flip(a.reported, 0, uint64(a.expected))
	out := make([]int, 0, gaps.GetCardinality())
	it := gaps.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}
	return out
}

// Seal closes the count phase. It fails with an ordering violation while
// any expected partition has not reported. Once sealed, every call returns
// the same totals.
func (a *Accumulator) Seal() (Totals, error) {
	if a.sealed.Load() {
		return a.totals, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sealed.Load() {
		return a.totals, nil
	}

	if missing := a.missingLocked(); len(missing) > 0 {
		return Totals{}, stageerr.Ordering("seal",
			fmt.Sprintf("count phase incomplete: %d of %d partitions missing (first %d)",
				len(missing), a.expected, missing[0]))
	}

	numCols := a.NumCols()
	if numCols < 0 {
		numCols = 0
	}
	a.totals = Totals{Counts: a.Snapshot(), NumCols: numCols, Partitions: a.expected}
	a.sealed.Store(true)
	return a.totals, nil
}

// Sealed reports whether Seal has succeeded.
func (a *Accumulator) Sealed() bool {
	return a.sealed.Load()
}
