package aggregate

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/colstage/internal/accum"
	"github.com/hupe1980/colstage/internal/coalesce"
	"github.com/hupe1980/colstage/internal/collector"
	"github.com/hupe1980/colstage/internal/flat"
	"github.com/hupe1980/colstage/internal/mem"
	"github.com/hupe1980/colstage/internal/stageerr"
	"github.com/hupe1980/colstage/model"
)

// Aggregator is implemented by Dense and Sparse.
type Aggregator interface {
	// Initialize seals the count phase and allocates the destination
	// buffers. Only the first successful call allocates.
	Initialize() error
	// Merge copies a counted collector into freshly reserved ranges.
	Merge(c *collector.Collector) (Placement, error)
	// Columns returns the filled buffers.
	Columns() (Columns, error)
	// Placements returns where each merged partition landed, by partition id.
	Placements() []Placement
	// Totals returns the sealed sizes. Zero before Initialize.
	Totals() accum.Totals
	State() State
	Release() error
}

// Config configures an aggregator.
type Config struct {
	Mode   Mode
	Alloc  *mem.Allocator
	Logger *slog.Logger
	// RebaseIndptr shifts each sparse partition's indptr by the start of its
	// nonzero range so the shared indptr is a single global CSR pointer
	// array. Only valid in Sequential mode.
	RebaseIndptr bool
}

// Placement records the ranges a partition occupies. Sparse indptr slots
// are Rows shifted by the one leading slot.
type Placement struct {
	Partition  int   `json:"partition"`
	Rows       Range `json:"rows"`
	InitScores Range `json:"init_scores"`
	Indexes    Range `json:"indexes"`
}

// Columns are the flat output buffers. Fields disabled by the schema or
// belonging to the other layout are nil.
type Columns struct {
	Labels     *flat.Buffer[float32]
	Weights    *flat.Buffer[float32]
	InitScores *flat.Buffer[float64]
	Groups     *flat.Buffer[int64]

	Features *flat.Buffer[float64]

	Indexes *flat.Buffer[int32]
	Values  *flat.Buffer[float64]
	Indptr  *flat.Buffer[int32]
}

func (c *Columns) each(fn func(name string, complete bool, release func() error)) {
	visit(c.Labels, fn)
	visit(c.Weights, fn)
	visit(c.InitScores, fn)
	visit(c.Groups, fn)
	visit(c.Features, fn)
	visit(c.Indexes, fn)
	visit(c.Values, fn)
	visit(c.Indptr, fn)
}

func visit[T mem.Numeric](b *flat.Buffer[T], fn func(string, bool, func() error)) {
	if b != nil {
		fn(b.Name(), b.Complete(), b.Release)
	}
}

// Release frees every non-nil buffer.
func (c *Columns) Release() error {
	var firstErr error
	c.each(func(_ string, _ bool, release func() error) {
		if err := release(); err != nil && firstErr == nil {
			firstErr = err
		}
	})
	return firstErr
}

// New returns the aggregator for schema.Layout.
func New(schema model.Schema, acc *accum.Accumulator, cfg Config) (Aggregator, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if cfg.RebaseIndptr && cfg.Mode != Sequential {
		return nil, &stageerr.ConfigurationError{
			Partition: -1,
			Reason:    "indptr rebasing requires sequential mode",
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	if schema.Layout == model.Sparse {
		return NewSparse(schema, acc, cfg), nil
	}
	return NewDense(schema, acc, cfg), nil
}

// base holds the layout-independent state and the shared label, weight,
// init-score and group columns.
type base struct {
	schema model.Schema
	acc    *accum.Accumulator
	cfg    Config
	logger *slog.Logger

	state atomic.Uint32
	mu    sync.Mutex

	totals     accum.Totals
	cols       Columns
	rows       *Counter
	initScores *Counter

	merged atomic.Int64

	placeMu    sync.Mutex
	placements []Placement
	placed     []bool
}

func (b *base) init(schema model.Schema, acc *accum.Accumulator, cfg Config) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	b.schema = schema
	b.acc = acc
	b.cfg = cfg
	b.logger = cfg.Logger.With(
		slog.String("layout", schema.Layout.String()),
		slog.String("mode", cfg.Mode.String()))
}

// State returns the current lifecycle state.
func (b *base) State() State {
	return State(b.state.Load())
}

// Totals returns the sealed sizes.
func (b *base) Totals() accum.Totals {
	if b.State() < Sized {
		return accum.Totals{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.totals
}

// initialize runs allocate exactly once. The flag is checked outside the
// lock and re-checked inside it.
func (b *base) initialize(allocate func(accum.Totals) error) error {
	switch b.State() {
	case Allocated, Filled:
		return nil
	case Released:
		return stageerr.Ordering("initialize", Released.String())
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.State() {
	case Allocated, Filled:
		return nil
	case Released:
		return stageerr.Ordering("initialize", Released.String())
	}

	totals, err := b.acc.Seal()
	if err != nil {
		return err
	}
	if totals.Rows > math.MaxInt || totals.InitScores > math.MaxInt || totals.Indexes > math.MaxInt {
		return &stageerr.ConfigurationError{Partition: -1, Reason: "job totals exceed addressable length"}
	}
	if b.schema.Layout == model.Dense && totals.NumCols > 0 && totals.Rows > int64(math.MaxInt/totals.NumCols) {
		return &stageerr.ConfigurationError{
			Partition: -1,
			Expected:  totals.NumCols,
			Reason:    fmt.Sprintf("%d rows of %d features exceed addressable length", totals.Rows, totals.NumCols),
		}
	}
	b.totals = totals
	b.state.Store(uint32(Sized))

	if err := b.allocateCommon(totals); err != nil {
		_ = b.cols.Release()
		b.cols = Columns{}
		return err
	}
	if err := allocate(totals); err != nil {
		_ = b.cols.Release()
		b.cols = Columns{}
		return err
	}

	b.placements = make([]Placement, totals.Partitions)
	b.placed = make([]bool, totals.Partitions)

	next := Allocated
	if totals.Partitions == 0 {
		next = Filled
	}
	b.state.Store(uint32(next))

	b.logger.Debug("allocated columns",
		slog.Int64("rows", totals.Rows),
		slog.Int("num_cols", totals.NumCols),
		slog.Int64("init_scores", totals.InitScores),
		slog.Int64("indexes", totals.Indexes),
		slog.Int("partitions", totals.Partitions))
	return nil
}

func (b *base) allocateCommon(t accum.Totals) error {
	rows := int(t.Rows)
	b.rows = NewCounter("rows", rows)
	b.initScores = NewCounter("init_score", int(t.InitScores))

	var err error
	if b.cols.Labels, err = flat.New[float32]("label", rows, b.cfg.Alloc); err != nil {
		return err
	}
	if b.schema.HasWeight {
		if b.cols.Weights, err = flat.New[float32]("weight", rows, b.cfg.Alloc); err != nil {
			return err
		}
	}
	if b.schema.HasInitScore {
		if b.cols.InitScores, err = flat.New[float64]("init_score", int(t.InitScores), b.cfg.Alloc); err != nil {
			return err
		}
	}
	if b.schema.HasGroup {
		if b.cols.Groups, err = flat.New[int64]("group", rows, b.cfg.Alloc); err != nil {
			return err
		}
	}
	return nil
}

// begin validates a collector and claims it for merging.
func (b *base) begin(c *collector.Collector) error {
	if s := b.State(); s != Allocated {
		return stageerr.Ordering(fmt.Sprintf("merge of partition %d", c.Partition()), s.String())
	}
	if c.Layout() != b.schema.Layout {
		return &stageerr.ConfigurationError{
			Partition: c.Partition(),
			Reason:    fmt.Sprintf("%s collector merged into %s aggregator", c.Layout(), b.schema.Layout),
		}
	}
	if c.Partition() < 0 || c.Partition() >= len(b.placements) {
		return stageerr.Ordering(fmt.Sprintf("merge of partition %d", c.Partition()),
			fmt.Sprintf("job with %d partitions", len(b.placements)))
	}
	return c.MarkMerged()
}

// reserveCommon claims the row and init-score ranges.
func (b *base) reserveCommon(c *collector.Collector) (Placement, error) {
	counts := c.Counts()
	p := Placement{Partition: c.Partition()}

	var err error
	if p.Rows, err = b.rows.Reserve(int(counts.Rows)); err != nil {
		return Placement{}, err
	}
	if p.InitScores, err = b.initScores.Reserve(int(counts.InitScores)); err != nil {
		return Placement{}, err
	}
	return p, nil
}

// copyCommon coalesces the per-row columns.
func (b *base) copyCommon(c *collector.Collector, p Placement) error {
	if p.Rows.Len == 0 && p.InitScores.Len == 0 {
		return nil
	}
	if err := coalesce.Coalesce(c.Labels(), b.cols.Labels, p.Rows.Start); err != nil {
		return err
	}
	if b.cols.Weights != nil {
		if err := coalesce.Coalesce(c.Weights(), b.cols.Weights, p.Rows.Start); err != nil {
			return err
		}
	}
	if b.cols.InitScores != nil {
		if err := coalesce.Coalesce(c.InitScores(), b.cols.InitScores, p.InitScores.Start); err != nil {
			return err
		}
	}
	if b.cols.Groups != nil {
		if err := coalesce.Coalesce(c.Groups(), b.cols.Groups, p.Rows.Start); err != nil {
			return err
		}
	}
	return nil
}

// finish records the placement and moves to Filled after the last merge.
func (b *base) finish(p Placement) {
	b.placeMu.Lock()
	b.placements[p.Partition] = p
	b.placed[p.Partition] = true
	b.placeMu.Unlock()

	b.logger.Debug("merged partition",
		slog.Int("partition", p.Partition),
		slog.Int("row_start", p.Rows.Start),
		slog.Int("rows", p.Rows.Len),
		slog.Int("index_start", p.Indexes.Start),
		slog.Int("indexes", p.Indexes.Len))

	if b.merged.Add(1) == int64(len(b.placements)) {
		b.state.CompareAndSwap(uint32(Allocated), uint32(Filled))
	}
}

// Placements returns the recorded placements ordered by partition id.
func (b *base) Placements() []Placement {
	b.placeMu.Lock()
	defer b.placeMu.Unlock()

	out := make([]Placement, 0, len(b.placements))
	for i, ok := range b.placed {
		if ok {
			out = append(out, b.placements[i])
		}
	}
	return out
}

// Columns hands out the buffers once every one of them is complete.
func (b *base) Columns() (Columns, error) {
	if s := b.State(); s != Filled {
		return Columns{}, stageerr.Ordering("columns", s.String())
	}
	var incomplete []string
	b.cols.each(func(name string, complete bool, _ func() error) {
		if !complete {
			incomplete = append(incomplete, name)
		}
	})
	if len(incomplete) > 0 {
		sort.Strings(incomplete)
		return Columns{}, stageerr.Ordering("columns", fmt.Sprintf("filled with incomplete %v", incomplete))
	}
	return b.cols, nil
}

// Release frees every destination buffer. It is idempotent.
func (b *base) Release() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if State(b.state.Swap(uint32(Released))) == Released {
		return nil
	}
	err := b.cols.Release()
	b.logger.Debug("released columns")
	return err
}
