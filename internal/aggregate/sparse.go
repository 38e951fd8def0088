package aggregate

import (
	"math"

	"github.com/hupe1980/colstage/internal/accum"
	"github.com/hupe1980/colstage/internal/coalesce"
	"github.com/hupe1980/colstage/internal/collector"
	"github.com/hupe1980/colstage/internal/flat"
	"github.com/hupe1980/colstage/internal/stageerr"
	"github.com/hupe1980/colstage/model"
)

// Sparse aggregates CSR features: indexes and values of length nnz and an
// indptr of length rows+1 whose slot 0 is zero.
//
// Unless RebaseIndptr is set, each partition's indptr segment holds
// partition-relative cumulative ends. Use the placements to resolve them.
type Sparse struct {
	base
	indexes *Counter
}

// NewSparse creates a sparse aggregator over acc.
func NewSparse(schema model.Schema, acc *accum.Accumulator, cfg Config) *Sparse {
	s := &Sparse{}
	s.init(schema, acc, cfg)
	return s
}

// Rebased reports whether indptr segments are shifted to global offsets.
func (s *Sparse) Rebased() bool {
	return s.cfg.RebaseIndptr
}

// Initialize seals acc and allocates the columns exactly once.
func (s *Sparse) Initialize() error {
	return s.initialize(s.allocate)
}

func (s *Sparse) allocate(t accum.Totals) error {
	if s.cfg.RebaseIndptr && t.Indexes > math.MaxInt32 {
		return &stageerr.ConfigurationError{Partition: -1, Reason: "job nonzero count exceeds int32 indptr range"}
	}

	nnz := int(t.Indexes)
	s.indexes = NewCounter("indexes", nnz)

	var err error
	if s.cols.Indexes, err = flat.New[int32]("indexes", nnz, s.cfg.Alloc); err != nil {
		return err
	}
	if s.cols.Values, err = flat.New[float64]("values", nnz, s.cfg.Alloc); err != nil {
		return err
	}
	if s.cols.Indptr, err = flat.New[int32]("indptr", int(t.Indptr)+1, s.cfg.Alloc); err != nil {
		return err
	}
	return s.cols.Indptr.Set(0, 0)
}

// Merge reserves c's row, init-score and nonzero ranges and copies its
// columns. The indptr segment starts one slot after the row start.
func (s *Sparse) Merge(c *collector.Collector) (Placement, error) {
	if err := s.Initialize(); err != nil {
		return Placement{}, err
	}
	if s.cfg.Mode == Sequential {
		s.mu.Lock()
		defer s.mu.Unlock()
	}

	if err := s.begin(c); err != nil {
		return Placement{}, err
	}

	p, err := s.reserveCommon(c)
	if err != nil {
		return Placement{}, err
	}
	if p.Indexes, err = s.indexes.Reserve(int(c.Counts().Indexes)); err != nil {
		return Placement{}, err
	}

	if err := s.copyCommon(c, p); err != nil {
		return Placement{}, err
	}
	if p.Indexes.Len > 0 {
		if err := coalesce.Coalesce(c.Indexes(), s.cols.Indexes, p.Indexes.Start); err != nil {
			return Placement{}, err
		}
		if err := coalesce.Coalesce(c.Values(), s.cols.Values, p.Indexes.Start); err != nil {
			return Placement{}, err
		}
	}
	if p.Rows.Len > 0 {
		if s.cfg.RebaseIndptr {
			err = coalesce.Rebased(c.Indptr(), s.cols.Indptr, 1+p.Rows.Start, int32(p.Indexes.Start))
		} else {
			err = coalesce.Coalesce(c.Indptr(), s.cols.Indptr, 1+p.Rows.Start)
		}
		if err != nil {
			return Placement{}, err
		}
	}

	s.finish(p)
	return p, nil
}
