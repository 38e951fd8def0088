package colstage

import (
	"iter"

	"github.com/hupe1980/colstage/internal/aggregate"
	"github.com/hupe1980/colstage/model"
)

type (
	// Row is one training example.
	Row = model.Row
	// SparseVector holds the stored entries of a sparse row.
	SparseVector = model.SparseVector
	// Schema selects the layout and the optional columns.
	Schema = model.Schema
	// Layout is Dense or Sparse.
	Layout = model.Layout
	// Mode selects how merges are scheduled.
	Mode = aggregate.Mode
	// Range is a reserved [Start, Start+Len) span of a column.
	Range = aggregate.Range
	// Placement records where one partition's rows landed.
	Placement = aggregate.Placement
)

const (
	Dense  = model.Dense
	Sparse = model.Sparse

	// Sequential merges one partition at a time in arrival order.
	Sequential = aggregate.Sequential
	// Concurrent merges partitions in parallel.
	Concurrent = aggregate.Concurrent
)

// Partition yields one partition's rows. A non-nil error aborts the job.
type Partition = iter.Seq2[Row, error]

// NewRow starts building a row with the given label.
func NewRow(label float32) *model.RowBuilder {
	return model.NewRow(label)
}

// GroupKey derives a group token from a string key.
func GroupKey(key string) int64 {
	return model.GroupKey(key)
}

// ParseLayout parses "dense" or "sparse".
func ParseLayout(s string) (Layout, error) {
	return model.ParseLayout(s)
}

// ParseMode parses "sequential" or "concurrent".
func ParseMode(s string) (Mode, error) {
	return aggregate.ParseMode(s)
}
