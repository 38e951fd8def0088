package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/colstage"
	"github.com/hupe1980/colstage/codec"
	"github.com/hupe1980/colstage/internal/config"
	"github.com/hupe1980/colstage/internal/rowfmt"
	"github.com/hupe1980/colstage/resource"
)

func newStageCommand(a *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "stage --name NAME FILE...",
		Short: "Stage row files into a snapshot",
		Long: `
Reads every FILE as one partition, merges the partitions into flat columns
and saves them as snapshot NAME in the configured blob store.
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.stage(cmd.Context(), name, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&name, "name", "n", "", "snapshot name")
	_ = cmd.MarkFlagRequired("name")
	flags.String("layout", "", "feature layout: dense or sparse")
	flags.Int("num-cols", 0, "feature dimension; required for sparse input")
	flags.String("mode", "", "merge mode: sequential or concurrent")
	flags.Int("chunk-size", 0, "rows per partition buffer chunk")
	flags.Int("workers", 0, "partitions processed at once; 0 means all")
	flags.Bool("off-heap", false, "keep columns in anonymous memory mappings")
	flags.Bool("rebase-indptr", false, "emit a global CSR indptr (sequential mode only)")
	flags.Bool("weight", false, "stage per-row weights")
	flags.Bool("group", false, "stage per-row group ids")
	flags.String("format", "", "input format: csv or libsvm")
	flags.Bool("header", false, "skip the first CSV record")
	flags.Bool("zero-based", false, "LibSVM feature indexes start at 0")
	flags.String("compression", "", "column compression: none, lz4 or zstd")
	flags.String("codec", "", "manifest codec: json or go-json")
	flags.Int64("memory-limit", 0, "buffer memory budget in bytes; 0 is unlimited")
	flags.Int64("io-limit", 0, "upload throughput in bytes per second; 0 is unlimited")
	return cmd
}

func (a *app) stage(ctx context.Context, name string, files []string) error {
	cfg := a.cfg

	schema, opts, err := stageSettings(cfg, a.logger)
	if err != nil {
		return err
	}
	saveOpts, err := saveSettings(cfg.Snapshot)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	stager, err := colstage.New(schema, opts...)
	if err != nil {
		return err
	}

	parts := make([]colstage.Partition, len(files))
	for i, path := range files {
		parts[i] = fileSource(path, cfg.Input)
	}

	ds, err := stager.Stage(ctx, parts)
	if err != nil {
		return err
	}
	defer ds.Release()

	m, err := ds.Save(ctx, store, name, saveOpts...)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(a.stdout, "staged %s: %d rows, %d cols, %d partitions, %d nonzeros, %d bytes stored\n",
		name, ds.NumRows(), ds.NumCols(), ds.NumPartitions(), ds.NumNonzeros(), m.StoredBytes())
	return err
}

// stageSettings translates cfg into a schema and stager options.
func stageSettings(cfg *config.Config, logger *colstage.Logger) (colstage.Schema, []colstage.Option, error) {
	layout, err := colstage.ParseLayout(cfg.Stage.Layout)
	if err != nil {
		return colstage.Schema{}, nil, err
	}
	mode, err := colstage.ParseMode(cfg.Stage.Mode)
	if err != nil {
		return colstage.Schema{}, nil, err
	}

	schema := colstage.Schema{
		Layout:    layout,
		NumCols:   cfg.Stage.NumCols,
		HasWeight: cfg.Stage.HasWeight || (cfg.Input.Format == "csv" && cfg.Input.WeightColumn >= 0),
		HasGroup:  cfg.Stage.HasGroup || (cfg.Input.Format == "csv" && cfg.Input.GroupColumn >= 0),
	}

	opts := []colstage.Option{
		colstage.WithMode(mode),
		colstage.WithChunkSize(cfg.Stage.ChunkSize),
		colstage.WithWorkers(cfg.Stage.Workers),
		colstage.WithOffHeap(cfg.Stage.OffHeap),
		colstage.WithIndptrRebase(cfg.Stage.RebaseIndptr),
		colstage.WithLogger(logger),
	}

	l := cfg.Limits
	if l.MemoryBytes > 0 || l.IOBytesPerSec > 0 || l.MaxWorkerSlots > 0 {
		opts = append(opts, colstage.WithResourceController(resource.NewController(resource.Config{
			MemoryLimitBytes:   l.MemoryBytes,
			MaxWorkers:         l.MaxWorkerSlots,
			IOLimitBytesPerSec: l.IOBytesPerSec,
		})))
	}
	return schema, opts, nil
}

func saveSettings(cfg config.SnapshotConfig) ([]colstage.SaveOption, error) {
	compression, err := colstage.ParseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}
	c, ok := codec.ByName(cfg.Codec)
	if !ok {
		return nil, fmt.Errorf("unsupported codec: %s", cfg.Codec)
	}
	return []colstage.SaveOption{
		colstage.WithCompression(compression),
		colstage.WithCodec(c),
		colstage.WithSaveConcurrency(cfg.Concurrency),
	}, nil
}

// fileSource yields the rows of path. The file is opened when iteration
// starts and closed when it ends.
func fileSource(path string, in config.InputConfig) colstage.Partition {
	return func(yield func(colstage.Row, error) bool) {
		f, err := os.Open(path)
		if err != nil {
			yield(colstage.Row{}, err)
			return
		}
		defer f.Close()

		var rows colstage.Partition
		if in.Format == "libsvm" {
			rows = rowfmt.LibSVM(f, rowfmt.LibSVMOptions{ZeroBased: in.ZeroBased})
		} else {
			rows = rowfmt.CSV(f, rowfmt.CSVOptions{
				LabelColumn:  in.LabelColumn,
				WeightColumn: in.WeightColumn,
				GroupColumn:  in.GroupColumn,
				Header:       in.Header,
			})
		}

		for row, err := range rows {
			if err != nil {
				yield(colstage.Row{}, fmt.Errorf("%s: %w", path, err))
				return
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}
