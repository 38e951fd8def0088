package testutil

import (
	"iter"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/hupe1980/colstage/model"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// DenseRows generates n rows with numCols features each. Row i carries
// label i, so rows stay identifiable after merging.
func (r *RNG) DenseRows(n, numCols int) []model.Row {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float64, n*numCols)
	rows := make([]model.Row, n)
	for i := range n {
		vec := data[i*numCols : (i+1)*numCols]
		for j := range vec {
			vec[j] = r.rand.Float64()
		}
		rows[i] = model.Row{
			Label:      float32(i),
			Weight:     r.rand.Float32() + 0.5,
			InitScores: []float64{r.rand.NormFloat64()},
			Dense:      vec,
			Group:      int64(i / 10),
		}
	}
	return rows
}

// SparseRows generates n rows over numCols features where each feature is
// present with probability density. Indices ascend within a row; some rows
// end up empty.
func (r *RNG) SparseRows(n, numCols int, density float64) []model.Row {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := make([]model.Row, n)
	for i := range n {
		var v model.SparseVector
		for j := range numCols {
			if r.rand.Float64() < density {
				v.Indices = append(v.Indices, int32(j))
				v.Values = append(v.Values, r.rand.NormFloat64())
			}
		}
		rows[i] = model.Row{
			Label:  float32(i),
			Weight: 1,
			Sparse: v,
			Group:  int64(i / 10),
		}
	}
	return rows
}

// PartitionSizes splits total rows into parts sizes drawn from a Zipfian
// distribution with skew s, so a few partitions are large and some may be
// empty. The sizes sum to total.
func (r *RNG) PartitionSizes(total, parts int, s float64) []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	sizes := make([]int, parts)
	if parts == 0 {
		return sizes
	}
	for range total {
		sizes[r.zipfLocked(parts, s)]++
	}
	r.rand.Shuffle(parts, func(i, j int) { sizes[i], sizes[j] = sizes[j], sizes[i] })
	return sizes
}

// zipfLocked returns a Zipfian-distributed value in [0, n) (caller must
// hold lock).
func (r *RNG) zipfLocked(n int, s float64) int {
	if n <= 1 {
		return 0
	}

	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1
		}
	}

	return n - 1
}

// Split cuts rows into consecutive partitions of the given sizes.
func Split(rows []model.Row, sizes []int) [][]model.Row {
	parts := make([][]model.Row, len(sizes))
	offset := 0
	for i, n := range sizes {
		parts[i] = rows[offset : offset+n]
		offset += n
	}
	return parts
}

// Seq yields rows as a partition source.
func Seq(rows []model.Row) iter.Seq2[model.Row, error] {
	return func(yield func(model.Row, error) bool) {
		for _, row := range rows {
			if !yield(row, nil) {
				return
			}
		}
	}
}

// FailingSeq yields n rows and then err.
func FailingSeq(rows []model.Row, n int, err error) iter.Seq2[model.Row, error] {
	return func(yield func(model.Row, error) bool) {
		for _, row := range rows[:n] {
			if !yield(row, nil) {
				return
			}
		}
		yield(model.Row{}, err)
	}
}

// Labels returns the labels of rows sorted ascending. Merged output places
// partitions in unspecified order, so tests compare label multisets.
func Labels(rows []model.Row) []float32 {
	out := make([]float32, len(rows))
	for i, row := range rows {
		out[i] = row.Label
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
