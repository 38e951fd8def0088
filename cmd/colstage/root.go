package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/hupe1980/colstage"
	"github.com/hupe1980/colstage/internal/config"
)

// app carries the resolved configuration into subcommands.
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	logger *colstage.Logger
	stdout io.Writer
	stderr io.Writer
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{v: config.Viper(), stdout: stdout, stderr: stderr}

	rc := &cobra.Command{
		Use:   "colstage",
		Short: "Stage partitioned row files into columnar snapshots.",
		Long: `colstage reads partitioned row files (CSV or LibSVM), merges them into
flat label, weight, group and feature columns, and writes the result as a
compressed snapshot to local disk, S3 or MinIO.

Settings are read from flags, COLSTAGE_* environment variables and an
optional YAML config file, in that priority order.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd.Flags())
		},
	}
	rc.PersistentFlags().StringP("config", "c", "", "Configuration file to read from.")
	rc.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error.")
	rc.PersistentFlags().String("log-format", "", "Log format: text or json.")
	rc.PersistentFlags().String("storage", "", "Blob store: local, memory, s3 or minio.")
	rc.PersistentFlags().String("path", "", "Root directory of the local store.")
	rc.PersistentFlags().String("bucket", "", "Bucket of the s3 or minio store.")
	rc.PersistentFlags().String("prefix", "", "Key prefix inside the bucket.")

	rc.AddCommand(newStageCommand(a))
	rc.AddCommand(newInspectCommand(a))
	rc.AddCommand(newVersionCommand(a))

	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"log-level":     "log.level",
	"log-format":    "log.format",
	"storage":       "storage.type",
	"path":          "storage.local_path",
	"bucket":        "storage.bucket",
	"prefix":        "storage.prefix",
	"layout":        "stage.layout",
	"num-cols":      "stage.num_cols",
	"mode":          "stage.mode",
	"chunk-size":    "stage.chunk_size",
	"workers":       "stage.workers",
	"off-heap":      "stage.off_heap",
	"rebase-indptr": "stage.rebase_indptr",
	"weight":        "stage.has_weight",
	"group":         "stage.has_group",
	"format":        "input.format",
	"header":        "input.header",
	"zero-based":    "input.zero_based",
	"compression":   "snapshot.compression",
	"codec":         "snapshot.codec",
	"memory-limit":  "limits.memory_bytes",
	"io-limit":      "limits.io_bytes_per_sec",
}

// load binds the changed flags over the config file and environment, then
// decodes and validates the result.
func (a *app) load(flags *pflag.FlagSet) error {
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || !f.Changed || bindErr != nil {
			return
		}
		bindErr = a.v.BindPFlag(key, f)
	})
	if bindErr != nil {
		return bindErr
	}

	if path, _ := flags.GetString("config"); path != "" {
		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading configuration file '%s': %w", path, err)
		}
	}

	cfg, err := config.FromViper(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.logger, err = newLogger(cfg.Log, a.stderr)
	return err
}

func newLogger(cfg config.LogConfig, w io.Writer) (*colstage.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return colstage.NewLogger(slog.NewJSONHandler(w, opts)), nil
	}
	return colstage.NewLogger(slog.NewTextHandler(w, opts)), nil
}
