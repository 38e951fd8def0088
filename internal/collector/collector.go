package collector

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/hupe1980/colstage/internal/accum"
	"github.com/hupe1980/colstage/internal/chunked"
	"github.com/hupe1980/colstage/internal/mem"
	"github.com/hupe1980/colstage/internal/stageerr"
	"github.com/hupe1980/colstage/model"
)

// State is a collector lifecycle state.
type State uint32

const (
	Collecting State = iota
	Counted
	Merged
	Released
)

func (s State) String() string {
	switch s {
	case Collecting:
		return "collecting"
	case Counted:
		return "counted"
	case Merged:
		return "merged"
	case Released:
		return "released"
	default:
		return fmt.Sprintf("State(%d)", uint32(s))
	}
}

// Config configures a Collector.
type Config struct {
	Partition int
	Schema    model.Schema
	// ChunkSize is the number of rows per chunk. Dense feature chunks hold
	// NumCols*ChunkSize values.
	ChunkSize int
	Alloc     *mem.Allocator
	// Accumulator, when set, lets the collector agree the feature
	// dimension with other partitions as soon as its first row arrives.
	Accumulator *accum.Accumulator
}

// Collector buffers one partition's rows column by column.
type Collector struct {
	cfg     Config
	state   atomic.Uint32
	numCols int
	rows    int64
	nnz     int64

	labels     *chunked.Buffer[float32]
	weights    *chunked.Buffer[float32]
	initScores *chunked.Buffer[float64]
	groups     *chunked.Buffer[int64]

	features *chunked.Buffer[float64]

	indexes *chunked.Buffer[int32]
	values  *chunked.Buffer[float64]
	indptr  *chunked.Buffer[int32]
}

// New creates a collector in the Collecting state.
func New(cfg Config) (*Collector, error) {
	if err := cfg.Schema.Validate(); err != nil {
		return nil, err
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = chunked.DefaultChunkCapacity
	}

	c := &Collector{
		cfg:     cfg,
		numCols: cfg.Schema.NumCols,
		labels:  chunked.New[float32](cfg.ChunkSize, cfg.Alloc),
	}
	if cfg.Schema.HasWeight {
		c.weights = chunked.New[float32](cfg.ChunkSize, cfg.Alloc)
	}
	if cfg.Schema.HasInitScore {
		c.initScores = chunked.New[float64](cfg.ChunkSize, cfg.Alloc)
	}
	if cfg.Schema.HasGroup {
		c.groups = chunked.New[int64](cfg.ChunkSize, cfg.Alloc)
	}

	switch cfg.Schema.Layout {
	case model.Dense:
		if c.numCols > 0 {
			n, err := featureChunk(cfg.Partition, c.numCols, cfg.ChunkSize)
			if err != nil {
				return nil, err
			}
			c.features = chunked.New[float64](n, cfg.Alloc)
		}
	case model.Sparse:
		c.indexes = chunked.New[int32](cfg.ChunkSize, cfg.Alloc)
		c.values = chunked.New[float64](cfg.ChunkSize, cfg.Alloc)
		c.indptr = chunked.New[int32](cfg.ChunkSize, cfg.Alloc)
	}
	return c, nil
}

// NewDense creates a dense collector for partition id. numCols may be 0 to
// learn the dimension from the first row.
func NewDense(id, numCols int, schema model.Schema, chunkSize int, alloc *mem.Allocator) (*Collector, error) {
	schema.Layout = model.Dense
	schema.NumCols = numCols
	return New(Config{Partition: id, Schema: schema, ChunkSize: chunkSize, Alloc: alloc})
}

// NewSparse creates a sparse collector for partition id.
func NewSparse(id, numCols int, schema model.Schema, chunkSize int, alloc *mem.Allocator) (*Collector, error) {
	schema.Layout = model.Sparse
	schema.NumCols = numCols
	return New(Config{Partition: id, Schema: schema, ChunkSize: chunkSize, Alloc: alloc})
}

// Partition returns the partition id.
func (c *Collector) Partition() int {
	return c.cfg.Partition
}

// Layout returns the feature layout.
func (c *Collector) Layout() model.Layout {
	return c.cfg.Schema.Layout
}

// State returns the current lifecycle state.
func (c *Collector) State() State {
	return State(c.state.Load())
}

// NumCols returns the feature dimension, or 0 if not yet known.
func (c *Collector) NumCols() int {
	return c.numCols
}

// Rows returns the number of rows added.
func (c *Collector) Rows() int64 {
	return c.rows
}

// AddRow appends one row to every enabled column.
func (c *Collector) AddRow(r model.Row) error {
	if s := c.State(); s != Collecting {
		return stageerr.Ordering("add row", s.String())
	}

	switch c.cfg.Schema.Layout {
	case model.Dense:
		if err := c.addDense(r.Dense); err != nil {
			return err
		}
	case model.Sparse:
		if err := c.addSparse(r.Sparse); err != nil {
			return err
		}
	}

	if err := c.labels.Append(r.Label); err != nil {
		return err
	}
	if c.weights != nil {
		if err := c.weights.Append(r.Weight); err != nil {
			return err
		}
	}
	if c.initScores != nil && len(r.InitScores) > 0 {
		if err := c.initScores.AppendSlice(r.InitScores); err != nil {
			return err
		}
	}
	if c.groups != nil {
		if err := c.groups.Append(r.Group); err != nil {
			return err
		}
	}

	c.rows++
	return nil
}

func (c *Collector) addDense(values []float64) error {
	if c.features == nil {
		c.numCols = len(values)
		if c.cfg.Accumulator != nil {
			if err := c.cfg.Accumulator.ObserveNumCols(c.cfg.Partition, c.numCols); err != nil {
				return err
			}
		}
		n, err := featureChunk(c.cfg.Partition, max(c.numCols, 1), c.cfg.ChunkSize)
		if err != nil {
			return err
		}
		c.features = chunked.New[float64](n, c.cfg.Alloc)
	}
	if len(values) != c.numCols {
		return &stageerr.ConfigurationError{
			Partition: c.cfg.Partition,
			Expected:  c.numCols,
			Actual:    len(values),
			Reason:    fmt.Sprintf("row %d dimension differs", c.rows),
		}
	}
	return c.features.AppendSlice(values)
}

func (c *Collector) addSparse(v model.SparseVector) error {
	if len(v.Indices) != len(v.Values) {
		return &stageerr.ConfigurationError{
			Partition: c.cfg.Partition,
			Expected:  len(v.Indices),
			Actual:    len(v.Values),
			Reason:    fmt.Sprintf("row %d sparse indices and values differ in length", c.rows),
		}
	}
	for _, idx := range v.Indices {
		if idx < 0 || int(idx) >= c.numCols {
			return &stageerr.ConfigurationError{
				Partition: c.cfg.Partition,
				Expected:  c.numCols,
				Actual:    c.numCols,
				Reason:    fmt.Sprintf("row %d sparse index %d outside [0,%d)", c.rows, idx, c.numCols),
			}
		}
	}
	if c.nnz+int64(len(v.Indices)) > math.MaxInt32 {
		return &stageerr.ConfigurationError{
			Partition: c.cfg.Partition,
			Reason:    "partition nonzero count exceeds int32 indptr range",
		}
	}

	if err := c.indexes.AppendSlice(v.Indices); err != nil {
		return err
	}
	if err := c.values.AppendSlice(v.Values); err != nil {
		return err
	}
	c.nnz += int64(len(v.Indices))
	return c.indptr.Append(int32(c.nnz))
}

// featureChunk returns the capacity of one dense feature chunk.
func featureChunk(partition, numCols, chunkSize int) (int, error) {
	if numCols > math.MaxInt/chunkSize {
		return 0, &stageerr.ConfigurationError{
			Partition: partition,
			Expected:  numCols,
			Actual:    numCols,
			Reason:    fmt.Sprintf("%d features per row overflow a %d-row chunk", numCols, chunkSize),
		}
	}
	return numCols * chunkSize, nil
}

// Counts returns the collector's local totals.
func (c *Collector) Counts() accum.Counts {
	counts := accum.Counts{Rows: c.rows}
	if c.initScores != nil {
		counts.InitScores = int64(c.initScores.Len())
	}
	if c.cfg.Schema.Layout == model.Sparse {
		counts.Indexes = c.nnz
		counts.Indptr = c.rows
	}
	return counts
}

// ReportCounts ends the collecting phase and adds the local totals to acc
// exactly once.
func (c *Collector) ReportCounts(acc *accum.Accumulator) error {
	if s := c.State(); s != Collecting {
		return stageerr.Ordering("report counts", s.String())
	}
	if c.rows > 0 || c.cfg.Schema.NumCols > 0 {
		if err := acc.ObserveNumCols(c.cfg.Partition, c.numCols); err != nil {
			return err
		}
	}
	if err := acc.Report(c.cfg.Partition, c.Counts()); err != nil {
		return err
	}
	c.state.Store(uint32(Counted))
	return nil
}

// MarkMerged records that the collector's data has been copied out.
func (c *Collector) MarkMerged() error {
	if !c.state.CompareAndSwap(uint32(Counted), uint32(Merged)) {
		return stageerr.Ordering("merge", c.State().String())
	}
	return nil
}

// Labels returns the label column.
func (c *Collector) Labels() *chunked.Buffer[float32] { return c.labels }

// Weights returns the weight column, or nil if disabled.
func (c *Collector) Weights() *chunked.Buffer[float32] { return c.weights }

// InitScores returns the init-score column, or nil if disabled.
func (c *Collector) InitScores() *chunked.Buffer[float64] { return c.initScores }

// Groups returns the group column, or nil if disabled.
func (c *Collector) Groups() *chunked.Buffer[int64] { return c.groups }

// Features returns the dense feature column. It is nil for sparse
// collectors and for dense collectors that have not seen a row.
func (c *Collector) Features() *chunked.Buffer[float64] { return c.features }

// Indexes returns the sparse index column.
func (c *Collector) Indexes() *chunked.Buffer[int32] { return c.indexes }

// Values returns the sparse value column.
func (c *Collector) Values() *chunked.Buffer[float64] { return c.values }

// Indptr returns the per-row cumulative nonzero ends. The leading zero of
// the partition-local indptr is implicit and not stored.
func (c *Collector) Indptr() *chunked.Buffer[int32] { return c.indptr }

// Release frees every buffer. It is valid in any state and idempotent.
func (c *Collector) Release() error {
	if State(c.state.Swap(uint32(Released))) == Released {
		return nil
	}

	var firstErr error
	for _, release := range []func() error{
		releaseOf(c.labels), releaseOf(c.weights), releaseOf(c.initScores), releaseOf(c.groups),
		releaseOf(c.features), releaseOf(c.indexes), releaseOf(c.values), releaseOf(c.indptr),
	} {
		if err := release(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func releaseOf[T mem.Numeric](b *chunked.Buffer[T]) func() error {
	return func() error {
		if b == nil {
			return nil
		}
		return b.Release()
	}
}
