package colstage

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/colstage/internal/aggregate"
	"github.com/hupe1980/colstage/internal/flat"
	"github.com/hupe1980/colstage/internal/mem"
	"github.com/hupe1980/colstage/internal/stageerr"
)

// Dataset owns the merged columns of a finished job. Slices returned by its
// accessors alias the underlying buffers and are invalid after Release.
type Dataset struct {
	schema     Schema
	rows       int
	partitions int
	cols       aggregate.Columns
	placements []Placement
	rebased    bool
	release    func() error
	opts       options

	locatorOnce sync.Once
	locator     *aggregate.Locator

	released atomic.Bool
}

// Schema returns the schema with NumCols resolved.
func (d *Dataset) Schema() Schema { return d.schema }

// Layout returns the feature layout.
func (d *Dataset) Layout() Layout { return d.schema.Layout }

// NumRows returns the number of rows.
func (d *Dataset) NumRows() int { return d.rows }

// NumCols returns the feature dimension.
func (d *Dataset) NumCols() int { return d.schema.NumCols }

// NumPartitions returns how many partitions were merged.
func (d *Dataset) NumPartitions() int { return d.partitions }

// NumNonzeros returns the number of stored sparse entries, or 0 for dense
// datasets.
func (d *Dataset) NumNonzeros() int {
	if d.cols.Indexes == nil {
		return 0
	}
	return d.cols.Indexes.Len()
}

// Labels returns the label column.
func (d *Dataset) Labels() []float32 { return slice(d.cols.Labels) }

// Weights returns the weight column, or nil if the schema has none.
func (d *Dataset) Weights() []float32 { return slice(d.cols.Weights) }

// InitScores returns the init-score column, or nil if the schema has none.
// Its length is the total number of init scores, which need not equal
// NumRows.
func (d *Dataset) InitScores() []float64 { return slice(d.cols.InitScores) }

// Groups returns the group column, or nil if the schema has none.
func (d *Dataset) Groups() []int64 { return slice(d.cols.Groups) }

// Features returns the row-major dense feature column.
func (d *Dataset) Features() []float64 { return slice(d.cols.Features) }

// Indexes returns the sparse index column.
func (d *Dataset) Indexes() []int32 { return slice(d.cols.Indexes) }

// Values returns the sparse value column.
func (d *Dataset) Values() []float64 { return slice(d.cols.Values) }

// Indptr returns the sparse row pointer column of length NumRows+1. Unless
// IndptrRebased reports true its segments are partition-relative; use
// RowNonzeros to resolve rows.
func (d *Dataset) Indptr() []int32 { return slice(d.cols.Indptr) }

// IndptrRebased reports whether Indptr is a global CSR pointer array.
func (d *Dataset) IndptrRebased() bool { return d.rebased }

// Placements returns where each partition's rows landed, by partition id.
func (d *Dataset) Placements() []Placement {
	return append([]Placement(nil), d.placements...)
}

// FeatureRow returns the dense features of row r.
func (d *Dataset) FeatureRow(r int) ([]float64, error) {
	if d.released.Load() {
		return nil, stageerr.ErrReleased
	}
	if d.schema.Layout != Dense {
		return nil, &stageerr.ConfigurationError{Partition: -1, Reason: "feature rows require the dense layout"}
	}
	if r < 0 || r >= d.rows {
		return nil, fmt.Errorf("colstage: row %d outside [0,%d)", r, d.rows)
	}
	n := d.schema.NumCols
	return d.Features()[r*n : (r+1)*n], nil
}

// RowNonzeros returns the sparse entries of row r.
func (d *Dataset) RowNonzeros(r int) ([]int32, []float64, error) {
	if d.released.Load() {
		return nil, nil, stageerr.ErrReleased
	}
	if d.schema.Layout != Sparse {
		return nil, nil, &stageerr.ConfigurationError{Partition: -1, Reason: "row nonzeros require the sparse layout"}
	}
	d.locatorOnce.Do(func() {
		d.locator = aggregate.NewLocator(d.placements, d.rebased)
	})

	start, end, ok := d.locator.Span(d.Indptr(), r)
	if !ok {
		return nil, nil, fmt.Errorf("colstage: row %d outside [0,%d)", r, d.rows)
	}
	return d.Indexes()[start:end], d.Values()[start:end], nil
}

// Release frees every column. It is idempotent.
func (d *Dataset) Release() error {
	if d.released.Swap(true) {
		return nil
	}
	err := d.release()
	d.opts.logger.LogRelease(context.Background(), "dataset", err)
	return err
}

func slice[T mem.Numeric](b *flat.Buffer[T]) []T {
	if b == nil {
		return nil
	}
	return b.Slice()
}
