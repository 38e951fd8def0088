package colstage

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/colstage/blobstore"
	"github.com/hupe1980/colstage/codec"
	"github.com/hupe1980/colstage/internal/aggregate"
	"github.com/hupe1980/colstage/internal/compress"
	"github.com/hupe1980/colstage/internal/flat"
	"github.com/hupe1980/colstage/internal/mem"
	"github.com/hupe1980/colstage/internal/snapshot"
	"github.com/hupe1980/colstage/internal/stageerr"
)

// Compression selects the column block codec of a snapshot.
type Compression = compress.Type

const (
	CompressionNone = compress.None
	CompressionLZ4  = compress.LZ4
	CompressionZSTD = compress.ZSTD
)

// ParseCompression parses "none", "lz4" or "zstd".
func ParseCompression(s string) (Compression, error) {
	return compress.ParseType(s)
}

// Manifest describes a saved snapshot.
type Manifest = snapshot.Manifest

type saveOptions struct {
	compression Compression
	blockSize   int
	codec       codec.Codec
	concurrency int
}

// SaveOption configures Dataset.Save.
type SaveOption func(*saveOptions)

// WithCompression sets the column codec. The default is LZ4.
func WithCompression(c Compression) SaveOption {
	return func(o *saveOptions) { o.compression = c }
}

// WithBlockSize sets the uncompressed size of one compression block.
func WithBlockSize(n int) SaveOption {
	return func(o *saveOptions) { o.blockSize = n }
}

// WithCodec sets the manifest codec. If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) SaveOption {
	return func(o *saveOptions) { o.codec = c }
}

// WithSaveConcurrency bounds parallel column uploads.
func WithSaveConcurrency(n int) SaveOption {
	return func(o *saveOptions) { o.concurrency = n }
}

// Save writes the dataset to store under name. The manifest is written
// last, so a failed save never leaves a loadable snapshot behind.
func (d *Dataset) Save(ctx context.Context, store blobstore.BlobStore, name string, optFns ...SaveOption) (*Manifest, error) {
	if d.released.Load() {
		return nil, stageerr.ErrReleased
	}
	so := saveOptions{compression: CompressionLZ4}
	for _, fn := range optFns {
		if fn != nil {
			fn(&so)
		}
	}

	m := snapshot.Manifest{
		Layout:        d.schema.Layout.String(),
		NumCols:       d.schema.NumCols,
		HasWeight:     d.schema.HasWeight,
		HasInitScore:  d.schema.HasInitScore,
		HasGroup:      d.schema.HasGroup,
		Rows:          int64(d.rows),
		InitScores:    int64(len(d.InitScores())),
		Indexes:       int64(d.NumNonzeros()),
		Partitions:    d.partitions,
		RebasedIndptr: d.rebased,
		Placements:    d.Placements(),
	}

	var cols []snapshot.Data
	cols = appendColumn(cols, d.cols.Labels)
	cols = appendColumn(cols, d.cols.Weights)
	cols = appendColumn(cols, d.cols.InitScores)
	cols = appendColumn(cols, d.cols.Groups)
	cols = appendColumn(cols, d.cols.Features)
	cols = appendColumn(cols, d.cols.Indexes)
	cols = appendColumn(cols, d.cols.Values)
	cols = appendColumn(cols, d.cols.Indptr)

	start := time.Now()
	saved, err := snapshot.Save(ctx, store, name, m, cols, snapshot.Options{
		Compression: so.compression,
		BlockSize:   so.blockSize,
		Codec:       so.codec,
		Resources:   d.opts.resources,
		Concurrency: so.concurrency,
		Logger:      d.opts.logger.Logger,
	})
	var stored int64
	if saved != nil {
		stored = saved.StoredBytes()
	}
	d.opts.metricsCollector.RecordSnapshot(stored, time.Since(start), err)
	d.opts.logger.LogSnapshot(ctx, "save", name, stored, err)
	return saved, err
}

func appendColumn[T mem.Numeric](cols []snapshot.Data, b *flat.Buffer[T]) []snapshot.Data {
	if b == nil {
		return cols
	}
	return append(cols, snapshot.ColumnData(b.Name(), b.Slice()))
}

// Inspect reads a snapshot's manifest without loading any column.
func Inspect(ctx context.Context, store blobstore.BlobStore, name string) (*Manifest, error) {
	return snapshot.Load(ctx, store, name)
}

// Verify reads the manifest of name and checks that every column blob is
// present with its recorded size. Errors match ErrIncomplete.
func Verify(ctx context.Context, store blobstore.BlobStore, name string) (*Manifest, error) {
	m, err := snapshot.Load(ctx, store, name)
	if err != nil {
		return nil, err
	}
	if err := m.CheckShape(); err != nil {
		return m, err
	}
	return m, snapshot.Verify(ctx, store, m)
}

// Load reads a snapshot back into a Dataset. WithOffHeap and
// WithResourceController control where the columns are allocated.
func Load(ctx context.Context, store blobstore.BlobStore, name string, optFns ...Option) (*Dataset, error) {
	opts := applyOptions(optFns)
	m, err := snapshot.Load(ctx, store, name)
	if err != nil {
		opts.logger.LogSnapshot(ctx, "load", name, 0, err)
		return nil, err
	}
	schema, err := m.Schema()
	if err == nil {
		err = m.CheckShape()
	}
	if err != nil {
		opts.logger.LogSnapshot(ctx, "load", name, 0, err)
		return nil, err
	}

	alloc := opts.allocator()
	var cols aggregate.Columns
	release := func() error { return cols.Release() }

	err = errors.Join(
		loadColumn(ctx, store, m, "label", true, alloc, &cols.Labels),
		loadColumn(ctx, store, m, "weight", schema.HasWeight, alloc, &cols.Weights),
		loadColumn(ctx, store, m, "init_score", schema.HasInitScore, alloc, &cols.InitScores),
		loadColumn(ctx, store, m, "group", schema.HasGroup, alloc, &cols.Groups),
		loadColumn(ctx, store, m, "features", schema.Layout == Dense, alloc, &cols.Features),
		loadColumn(ctx, store, m, "indexes", schema.Layout == Sparse, alloc, &cols.Indexes),
		loadColumn(ctx, store, m, "values", schema.Layout == Sparse, alloc, &cols.Values),
		loadColumn(ctx, store, m, "indptr", schema.Layout == Sparse, alloc, &cols.Indptr),
	)
	if err == nil && cols.Indptr != nil {
		err = m.CheckIndptr(cols.Indptr.Slice())
	}
	if err != nil {
		_ = release()
		opts.logger.LogSnapshot(ctx, "load", name, 0, err)
		return nil, err
	}

	opts.logger.LogSnapshot(ctx, "load", name, m.StoredBytes(), nil)
	return &Dataset{
		schema:     schema,
		rows:       int(m.Rows),
		partitions: m.Partitions,
		cols:       cols,
		placements: m.Placements,
		rebased:    m.RebasedIndptr,
		release:    release,
		opts:       opts,
	}, nil
}

func loadColumn[T mem.Numeric](ctx context.Context, store blobstore.BlobStore, m *Manifest, name string,
	required bool, alloc *mem.Allocator, dst **flat.Buffer[T],
) error {
	col, ok := m.Column(name)
	if !ok {
		if required {
			return &stageerr.ConfigurationError{Partition: -1, Reason: "snapshot is missing column " + name}
		}
		return nil
	}
	buf, err := snapshot.ReadColumn[T](ctx, store, col, alloc)
	if err != nil {
		return err
	}
	*dst = buf
	return nil
}
