package colstage

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/colstage/internal/stageerr"
)

// Stager stages sets of partitions into Datasets with fixed options.
type Stager struct {
	schema Schema
	optFns []Option
	opts   options
}

// New validates schema and options and returns a Stager.
func New(schema Schema, optFns ...Option) (*Stager, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	opts := applyOptions(optFns)
	if opts.rebaseIndptr && opts.mode != Sequential {
		return nil, &stageerr.ConfigurationError{Partition: -1, Reason: "indptr rebasing requires sequential mode"}
	}
	if opts.workers < 0 {
		return nil, &stageerr.ConfigurationError{Partition: -1, Reason: fmt.Sprintf("negative worker count %d", opts.workers)}
	}
	return &Stager{schema: schema, optFns: optFns, opts: opts}, nil
}

// Schema returns the schema the Stager was created with.
func (s *Stager) Schema() Schema {
	return s.schema
}

// Stage ingests every partition in parallel, allocates the columns once all
// of them have been counted, merges them in parallel and returns the
// Dataset. Partition i is identified as i in placements and errors.
//
// ctx is checked between rows and before each merge. On any failure every
// buffer is released and the first error is returned.
func (s *Stager) Stage(ctx context.Context, partitions []Partition) (*Dataset, error) {
	job, err := NewJob(s.schema, len(partitions), s.optFns...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = job.Release() }()

	writers, err := s.ingest(ctx, job, partitions)
	if err != nil {
		return nil, err
	}
	if err := job.Initialize(ctx); err != nil {
		return nil, err
	}
	if err := s.merge(ctx, job, writers); err != nil {
		return nil, err
	}
	return job.Dataset()
}

func (s *Stager) limit(n int) int {
	limit := n
	if s.opts.workers > 0 {
		limit = min(limit, s.opts.workers)
	}
	if rc := s.opts.resources.MaxWorkers(); rc > 0 {
		limit = min(limit, rc)
	}
	return max(limit, 1)
}

// ingest runs the count phase: one goroutine per partition.
func (s *Stager) ingest(ctx context.Context, job *Job, partitions []Partition) ([]*PartitionWriter, error) {
	writers := make([]*PartitionWriter, len(partitions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit(len(partitions)))
	for i, part := range partitions {
		w, err := job.Partition(i)
		if err != nil {
			return nil, err
		}
		writers[i] = w

		g.Go(func() error {
			if err := s.opts.resources.AcquireWorker(gctx); err != nil {
				return err
			}
			defer s.opts.resources.ReleaseWorker()

			err := fill(gctx, w, part)
			if err := w.finish(gctx, err); err != nil {
				return &PartitionError{Partition: i, cause: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return writers, nil
}

func fill(ctx context.Context, w *PartitionWriter, part Partition) error {
	if part == nil {
		return nil
	}
	for row, err := range part {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.AddRow(row); err != nil {
			return err
		}
	}
	return nil
}

// merge runs the reserve-and-copy phase.
func (s *Stager) merge(ctx context.Context, job *Job, writers []*PartitionWriter) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit(len(writers)))
	for _, w := range writers {
		g.Go(func() error {
			_, err := job.Merge(gctx, w)
			return err
		})
	}
	return g.Wait()
}
