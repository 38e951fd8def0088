package colstage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/colstage/internal/accum"
	"github.com/hupe1980/colstage/internal/aggregate"
	"github.com/hupe1980/colstage/internal/collector"
	"github.com/hupe1980/colstage/internal/mem"
	"github.com/hupe1980/colstage/internal/stageerr"
)

// Job is one staging run over a fixed set of partitions. Stager drives a
// Job for the common case; use it directly when the caller owns the
// goroutines.
//
// Every partition must Finish before any Merge, which fails with an
// OrderingViolation until then. A Job that fails or is abandoned must be
// released as a whole; a reservation cannot be rolled back.
type Job struct {
	schema Schema
	opts   options
	alloc  *mem.Allocator
	acc    *accum.Accumulator
	agg    aggregate.Aggregator
	logger *Logger

	mu       sync.Mutex
	writers  []*PartitionWriter
	handedTo *Dataset

	allocated atomic.Bool
	released  atomic.Bool
}

// NewJob creates a job for numPartitions partitions identified as
// 0..numPartitions-1.
func NewJob(schema Schema, numPartitions int, optFns ...Option) (*Job, error) {
	if numPartitions < 0 {
		return nil, fmt.Errorf("%w: negative partition count %d", ErrInvalidSchema, numPartitions)
	}
	opts := applyOptions(optFns)
	logger := opts.logger.WithLayout(schema.Layout, opts.mode)
	acc := accum.New(numPartitions)
	alloc := opts.allocator()

	agg, err := aggregate.New(schema, acc, aggregate.Config{
		Mode:         opts.mode,
		Alloc:        alloc,
		Logger:       logger.Logger,
		RebaseIndptr: opts.rebaseIndptr,
	})
	if err != nil {
		return nil, err
	}

	return &Job{
		schema:  schema,
		opts:    opts,
		alloc:   alloc,
		acc:     acc,
		agg:     agg,
		logger:  logger,
		writers: make([]*PartitionWriter, numPartitions),
	}, nil
}

// NumPartitions returns the number of partitions the job expects.
func (j *Job) NumPartitions() int {
	return j.acc.Expected()
}

// Partition returns the writer for partition id. Each partition can be
// opened once.
func (j *Job) Partition(id int) (*PartitionWriter, error) {
	if j.released.Load() {
		return nil, stageerr.Ordering("partition", "released")
	}
	if id < 0 || id >= len(j.writers) {
		return nil, stageerr.Ordering(fmt.Sprintf("partition %d", id),
			fmt.Sprintf("job with %d partitions", len(j.writers)))
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.writers[id] != nil {
		return nil, stageerr.Ordering(fmt.Sprintf("second open of partition %d", id), "collecting")
	}
	c, err := collector.New(collector.Config{
		Partition:   id,
		Schema:      j.schema,
		ChunkSize:   j.opts.chunkSize,
		Alloc:       j.alloc,
		Accumulator: j.acc,
	})
	if err != nil {
		return nil, err
	}
	w := &PartitionWriter{job: j, c: c, start: time.Now()}
	j.writers[id] = w
	return w, nil
}

// Initialize allocates the destination columns once every partition has
// finished. Merge calls it lazily; calling it up front surfaces allocation
// failures before any partition is merged.
func (j *Job) Initialize(ctx context.Context) error {
	if j.allocated.Load() {
		return nil
	}
	start := time.Now()
	if err := j.agg.Initialize(); err != nil {
		j.opts.metricsCollector.RecordAllocate(0, time.Since(start), err)
		j.logger.LogAllocate(ctx, 0, 0, 0, err)
		return err
	}
	if j.allocated.CompareAndSwap(false, true) {
		t := j.agg.Totals()
		j.opts.metricsCollector.RecordAllocate(t.Rows, time.Since(start), nil)
		j.logger.LogAllocate(ctx, t.Rows, t.Indexes, t.NumCols, nil)
	}
	return nil
}

// Merge copies a finished partition into the shared columns and releases
// its buffers.
func (j *Job) Merge(ctx context.Context, w *PartitionWriter) (Placement, error) {
	if w == nil || w.job != j {
		return Placement{}, stageerr.Ordering("merge of foreign partition writer", "unknown")
	}
	if err := ctx.Err(); err != nil {
		return Placement{}, err
	}
	if err := j.Initialize(ctx); err != nil {
		return Placement{}, err
	}

	start := time.Now()
	p, err := j.agg.Merge(w.c)
	j.opts.metricsCollector.RecordMerge(p.Rows.Len, time.Since(start), err)
	if err != nil {
		p.Partition = w.c.Partition()
		j.logger.LogMerge(ctx, p, err)
		return Placement{}, err
	}
	j.logger.LogMerge(ctx, p, nil)

	if err := w.c.Release(); err != nil {
		return p, err
	}
	return p, nil
}

// Dataset hands the filled columns over to a Dataset. Releasing the
// Dataset frees them; Job.Release no longer does.
func (j *Job) Dataset() (*Dataset, error) {
	if j.released.Load() {
		return nil, stageerr.Ordering("dataset", "released")
	}
	if err := j.Initialize(context.Background()); err != nil {
		return nil, err
	}
	cols, err := j.agg.Columns()
	if err != nil {
		return nil, err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.handedTo != nil {
		return j.handedTo, nil
	}

	t := j.agg.Totals()
	schema := j.schema
	schema.NumCols = t.NumCols
	rebased := false
	if s, ok := j.agg.(*aggregate.Sparse); ok {
		rebased = s.Rebased()
	}
	j.handedTo = &Dataset{
		schema:     schema,
		rows:       int(t.Rows),
		partitions: t.Partitions,
		cols:       cols,
		placements: j.agg.Placements(),
		rebased:    rebased,
		release:    j.agg.Release,
		opts:       j.opts,
	}
	return j.handedTo, nil
}

// Release frees every partition buffer and, unless a Dataset took them
// over, the merged columns. It is idempotent.
func (j *Job) Release() error {
	if j.released.Swap(true) {
		return nil
	}

	j.mu.Lock()
	writers := j.writers
	handed := j.handedTo != nil
	j.mu.Unlock()

	var errs []error
	for _, w := range writers {
		if w != nil {
			errs = append(errs, w.c.Release())
		}
	}
	if !handed {
		errs = append(errs, j.agg.Release())
	}
	err := errors.Join(errs...)
	j.logger.LogRelease(context.Background(), "job", err)
	return err
}

// PartitionWriter collects one partition's rows. It must be used by a
// single goroutine.
type PartitionWriter struct {
	job   *Job
	c     *collector.Collector
	start time.Time
}

// ID returns the partition id.
func (w *PartitionWriter) ID() int {
	return w.c.Partition()
}

// Rows returns how many rows were added.
func (w *PartitionWriter) Rows() int64 {
	return w.c.Rows()
}

// AddRow buffers one row.
func (w *PartitionWriter) AddRow(r Row) error {
	return w.c.AddRow(r)
}

// Finish ends the partition's ingestion pass and reports its sizes to the
// job. It must be called exactly once.
func (w *PartitionWriter) Finish() error {
	return w.finish(context.Background(), nil)
}

func (w *PartitionWriter) finish(ctx context.Context, ingestErr error) error {
	err := ingestErr
	if err == nil {
		err = w.c.ReportCounts(w.job.acc)
	}
	w.job.opts.metricsCollector.RecordIngest(w.c.Rows(), time.Since(w.start), err)
	w.job.logger.LogIngest(ctx, w.c.Partition(), w.c.Rows(), err)
	return err
}
