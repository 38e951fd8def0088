package colstage

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting staging metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus.
type MetricsCollector interface {
	// RecordIngest is called after each partition's ingestion pass.
	RecordIngest(rows int64, duration time.Duration, err error)

	// RecordAllocate is called after the one-time column allocation.
	RecordAllocate(rows int64, duration time.Duration, err error)

	// RecordMerge is called after each partition merge.
	RecordMerge(rows int, duration time.Duration, err error)

	// RecordSnapshot is called after each snapshot save.
	RecordSnapshot(bytes int64, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordIngest(int64, time.Duration, error)   {}
func (NoopMetricsCollector) RecordAllocate(int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordMerge(int, time.Duration, error)      {}
func (NoopMetricsCollector) RecordSnapshot(int64, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	IngestCount      atomic.Int64
	IngestRows       atomic.Int64
	IngestErrors     atomic.Int64
	IngestTotalNanos atomic.Int64
	AllocateCount    atomic.Int64
	AllocateErrors   atomic.Int64
	AllocateNanos    atomic.Int64
	MergeCount       atomic.Int64
	MergeRows        atomic.Int64
	MergeErrors      atomic.Int64
	MergeTotalNanos  atomic.Int64
	SnapshotCount    atomic.Int64
	SnapshotBytes    atomic.Int64
	SnapshotErrors   atomic.Int64
}

// RecordIngest implements MetricsCollector.
func (b *BasicMetricsCollector) RecordIngest(rows int64, duration time.Duration, err error) {
	b.IngestCount.Add(1)
	b.IngestRows.Add(rows)
	b.IngestTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.IngestErrors.Add(1)
	}
}

// RecordAllocate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAllocate(_ int64, duration time.Duration, err error) {
	b.AllocateCount.Add(1)
	b.AllocateNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AllocateErrors.Add(1)
	}
}

// RecordMerge implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMerge(rows int, duration time.Duration, err error) {
	b.MergeCount.Add(1)
	b.MergeTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.MergeErrors.Add(1)
		return
	}
	b.MergeRows.Add(int64(rows))
}

// RecordSnapshot implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshot(bytes int64, _ time.Duration, err error) {
	b.SnapshotCount.Add(1)
	if err != nil {
		b.SnapshotErrors.Add(1)
		return
	}
	b.SnapshotBytes.Add(bytes)
}

// Stats is a point-in-time copy of BasicMetricsCollector.
type Stats struct {
	IngestCount    int64
	IngestRows     int64
	IngestErrors   int64
	IngestAvgNanos int64
	AllocateCount  int64
	AllocateErrors int64
	MergeCount     int64
	MergeRows      int64
	MergeErrors    int64
	MergeAvgNanos  int64
	SnapshotCount  int64
	SnapshotBytes  int64
	SnapshotErrors int64
}

// GetStats returns a snapshot of the collected metrics.
func (b *BasicMetricsCollector) GetStats() Stats {
	s := Stats{
		IngestCount:    b.IngestCount.Load(),
		IngestRows:     b.IngestRows.Load(),
		IngestErrors:   b.IngestErrors.Load(),
		AllocateCount:  b.AllocateCount.Load(),
		AllocateErrors: b.AllocateErrors.Load(),
		MergeCount:     b.MergeCount.Load(),
		MergeRows:      b.MergeRows.Load(),
		MergeErrors:    b.MergeErrors.Load(),
		SnapshotCount:  b.SnapshotCount.Load(),
		SnapshotBytes:  b.SnapshotBytes.Load(),
		SnapshotErrors: b.SnapshotErrors.Load(),
	}
	if s.IngestCount > 0 {
		s.IngestAvgNanos = b.IngestTotalNanos.Load() / s.IngestCount
	}
	if s.MergeCount > 0 {
		s.MergeAvgNanos = b.MergeTotalNanos.Load() / s.MergeCount
	}
	return s
}
