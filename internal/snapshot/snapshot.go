package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/colstage/blobstore"
	"github.com/hupe1980/colstage/codec"
	"github.com/hupe1980/colstage/internal/compress"
	"github.com/hupe1980/colstage/internal/flat"
	"github.com/hupe1980/colstage/internal/hash"
	"github.com/hupe1980/colstage/internal/mem"
	"github.com/hupe1980/colstage/resource"
)

// Options configures Save.
type Options struct {
	Compression compress.Type
	// BlockSize is the uncompressed size of one compression block.
	BlockSize int
	// Codec encodes the manifest. Defaults to codec.Default.
	Codec codec.Codec
	// Resources throttles column uploads through its IO budget.
	Resources *resource.Controller
	// Concurrency bounds parallel column uploads. Defaults to 4.
	Concurrency int
	Logger      *slog.Logger
}

func (o *Options) defaults() {
	if o.Codec == nil {
		o.Codec = codec.Default
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
}

// ManifestPath returns the manifest blob name of snapshot name.
func ManifestPath(name string) string {
	return path.Join(name, ManifestFileName)
}

func columnPath(name, column string) string {
	return path.Join(name, column+".col")
}

// Save writes every column and then the manifest. m supplies the dataset
// description; Version, CreatedAt and Columns are filled in by Save. A
// snapshot already saved under name is unloadable from the moment Save
// starts.
func Save(ctx context.Context, store blobstore.BlobStore, name string, m Manifest, cols []Data, opts Options) (*Manifest, error) {
	opts.defaults()
	start := time.Now()

	m.Version = CurrentVersion
	m.CreatedAt = start.UTC()
	m.Columns = make([]Column, len(cols))

	// An older snapshot under name must stop being loadable before its
	// columns are overwritten.
	if err := store.Delete(ctx, ManifestPath(name)); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
		return nil, fmt.Errorf("snapshot: remove previous manifest: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, d := range cols {
		g.Go(func() error {
			col, err := writeColumn(gctx, store, name, d, opts)
			if err != nil {
				return fmt.Errorf("snapshot: write column %s: %w", d.Name, err)
			}
			m.Columns[i] = col
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, d := range cols {
			_ = store.Delete(context.WithoutCancel(ctx), columnPath(name, d.Name))
		}
		return nil, err
	}

	data, err := encodeManifest(opts.Codec, &m)
	if err != nil {
		return nil, err
	}
	if err := store.Put(ctx, ManifestPath(name), data); err != nil {
		return nil, fmt.Errorf("snapshot: write manifest: %w", err)
	}

	opts.Logger.Info("saved snapshot",
		slog.String("name", name),
		slog.Int("columns", len(m.Columns)),
		slog.Int64("stored_bytes", m.StoredBytes()),
		slog.String("compression", opts.Compression.String()),
		slog.Duration("duration", time.Since(start)))
	return &m, nil
}

func writeColumn(ctx context.Context, store blobstore.BlobStore, name string, d Data, opts Options) (Column, error) {
	blob := columnPath(name, d.Name)
	w, err := store.Create(ctx, blob)
	if err != nil {
		return Column{}, err
	}

	cw := compress.NewWriter(resource.NewRateLimitedWriter(ctx, w, opts.Resources), opts.Compression, opts.BlockSize)
	if _, err := cw.Write(d.Bytes); err != nil {
		_ = blobstore.Abort(w)
		return Column{}, err
	}
	if err := cw.Flush(); err != nil {
		_ = blobstore.Abort(w)
		return Column{}, err
	}
	if err := w.Sync(); err != nil {
		_ = blobstore.Abort(w)
		return Column{}, err
	}
	if err := w.Close(); err != nil {
		return Column{}, err
	}

	return Column{
		Name:        d.Name,
		DType:       d.DType,
		Length:      d.Length,
		Blob:        blob,
		Compression: opts.Compression.String(),
		StoredBytes: cw.BytesWritten(),
		Checksum:    hash.Sum64(d.Bytes),
	}, nil
}

// Load reads the manifest of snapshot name.
func Load(ctx context.Context, store blobstore.BlobStore, name string) (*Manifest, error) {
	data, err := blobstore.ReadAll(ctx, store, ManifestPath(name))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	return decodeManifest(data)
}

// ReadColumn decodes and verifies one column into a new flat buffer.
func ReadColumn[T mem.Numeric](ctx context.Context, store blobstore.BlobStore, col Column, alloc *mem.Allocator) (*flat.Buffer[T], error) {
	t, err := compress.ParseType(col.Compression)
	if err != nil {
		return nil, err
	}
	stored, err := blobstore.ReadAll(ctx, store, col.Blob)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read column %s: %w", col.Name, err)
	}

	size := col.Length * elemSize[T]()
	raw, err := compress.Decode(mem.AllocAligned(size)[:0], stored, t)
	if err != nil {
		return nil, fmt.Errorf("snapshot: column %s: %w", col.Name, err)
	}
	if sum := hash.Sum64(raw); sum != col.Checksum {
		return nil, fmt.Errorf("%w: column %s has %x, manifest %x", ErrChecksum, col.Name, sum, col.Checksum)
	}
	return fill[T](col, raw, alloc)
}

// Verify checks that every column blob of m exists with its recorded
// stored size. It reads no column data.
func Verify(ctx context.Context, store blobstore.BlobStore, m *Manifest) error {
	var errs []error
	for _, col := range m.Columns {
		info, err := blobstore.Stat(ctx, store, col.Blob)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("%w: column %s: %w", ErrIncomplete, col.Name, err))
		case info.Size != col.StoredBytes:
			errs = append(errs, fmt.Errorf("%w: column %s has %d bytes, manifest %d",
				ErrIncomplete, col.Name, info.Size, col.StoredBytes))
		}
	}
	return errors.Join(errs...)
}

// Delete removes every blob of snapshot name, manifest first.
func Delete(ctx context.Context, store blobstore.BlobStore, name string) error {
	if err := store.Delete(ctx, ManifestPath(name)); err != nil {
		return err
	}
	names, err := store.List(ctx, name+"/")
	if err != nil {
		return err
	}
	for _, n := range names {
		if err := store.Delete(ctx, n); err != nil {
			return err
		}
	}
	return nil
}
