package aggregate

import (
	"github.com/hupe1980/colstage/internal/accum"
	"github.com/hupe1980/colstage/internal/coalesce"
	"github.com/hupe1980/colstage/internal/collector"
	"github.com/hupe1980/colstage/internal/flat"
	"github.com/hupe1980/colstage/internal/stageerr"
	"github.com/hupe1980/colstage/model"
)

// Dense aggregates row-major dense features into one buffer of length
// rows*numCols.
type Dense struct {
	base
}

// NewDense creates a dense aggregator over acc.
func NewDense(schema model.Schema, acc *accum.Accumulator, cfg Config) *Dense {
	d := &Dense{}
	d.init(schema, acc, cfg)
	return d
}

// Initialize seals acc and allocates the columns exactly once.
func (d *Dense) Initialize() error {
	return d.initialize(d.allocate)
}

func (d *Dense) allocate(t accum.Totals) error {
	features, err := flat.New[float64]("features", int(t.Rows)*t.NumCols, d.cfg.Alloc)
	if err != nil {
		return err
	}
	d.cols.Features = features
	return nil
}

// Merge reserves c's rows and copies its columns. A zero-row collector gets
// zero-length ranges and copies nothing.
func (d *Dense) Merge(c *collector.Collector) (Placement, error) {
	if err := d.Initialize(); err != nil {
		return Placement{}, err
	}
	if d.cfg.Mode == Sequential {
		d.mu.Lock()
		defer d.mu.Unlock()
	}

	if err := d.begin(c); err != nil {
		return Placement{}, err
	}
	numCols := d.totals.NumCols
	if c.Rows() > 0 && c.NumCols() != numCols {
		return Placement{}, &stageerr.ConfigurationError{
			Partition: c.Partition(),
			Expected:  numCols,
			Actual:    c.NumCols(),
			Reason:    "feature dimension differs across partitions",
		}
	}

	p, err := d.reserveCommon(c)
	if err != nil {
		return Placement{}, err
	}
	if err := d.copyCommon(c, p); err != nil {
		return Placement{}, err
	}
	if p.Rows.Len > 0 && numCols > 0 {
		if err := coalesce.Coalesce(c.Features(), d.cols.Features, p.Rows.Start*numCols); err != nil {
			return Placement{}, err
		}
	}

	d.finish(p)
	return p, nil
}
