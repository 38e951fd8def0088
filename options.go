package colstage

import (
	"log/slog"

	"github.com/hupe1980/colstage/internal/chunked"
	"github.com/hupe1980/colstage/internal/mem"
	"github.com/hupe1980/colstage/resource"
)

type options struct {
	chunkSize        int
	workers          int
	mode             Mode
	rebaseIndptr     bool
	offHeap          bool
	resources        *resource.Controller
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures a Stager, a Job or Load.
type Option func(*options)

// WithChunkSize sets the number of rows per chunk in partition buffers.
// Dense feature chunks hold chunkSize*NumCols values.
func WithChunkSize(rows int) Option {
	return func(o *options) {
		o.chunkSize = rows
	}
}

// WithWorkers bounds the number of partitions ingested or merged at once.
// Zero means one worker per partition.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithMode selects Sequential or Concurrent merging. The default is
// Concurrent.
func WithMode(m Mode) Option {
	return func(o *options) {
		o.mode = m
	}
}

// WithIndptrRebase makes sparse jobs produce a global CSR indptr by
// shifting each partition's segment by the nonzeros merged before it.
// It requires WithMode(Sequential); a Concurrent job rejects it with a
// ConfigurationError.
func WithIndptrRebase(enabled bool) Option {
	return func(o *options) {
		o.rebaseIndptr = enabled
	}
}

// WithOffHeap backs every buffer with anonymous memory mappings instead of
// the Go heap, so staged columns do not add GC pressure.
func WithOffHeap(enabled bool) Option {
	return func(o *options) {
		o.offHeap = enabled
	}
}

// WithResourceController charges buffer memory against rc's budget, caps
// concurrent partition workers at its worker limit and throttles snapshot
// uploads through its IO limit.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

// WithMetricsCollector configures a metrics collector.
// Pass nil to disable metrics collection.
//
//	metrics := &colstage.BasicMetricsCollector{}
//	stager, _ := colstage.New(schema, colstage.WithMetricsCollector(metrics))
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		chunkSize:        chunked.DefaultChunkCapacity,
		mode:             Concurrent,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.chunkSize <= 0 {
		o.chunkSize = chunked.DefaultChunkCapacity
	}
	return o
}

func (o *options) allocator() *mem.Allocator {
	if o.offHeap {
		return mem.NewOffHeap(o.resources)
	}
	return mem.NewHeap(o.resources)
}
