// Package config provides configuration management for the colstage CLI.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. COLSTAGE_STAGE_WORKERS.
const EnvPrefix = "COLSTAGE"

// Config holds all configuration for the CLI.
type Config struct {
	Stage    StageConfig    `mapstructure:"stage"`
	Input    InputConfig    `mapstructure:"input"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Limits   LimitsConfig   `mapstructure:"limits"`
	Log      LogConfig      `mapstructure:"log"`
}

// StageConfig holds staging engine settings.
type StageConfig struct {
	Layout       string `mapstructure:"layout"` // dense or sparse
	NumCols      int    `mapstructure:"num_cols"`
	Mode         string `mapstructure:"mode"` // sequential or concurrent
	ChunkSize    int    `mapstructure:"chunk_size"`
	Workers      int    `mapstructure:"workers"`
	OffHeap      bool   `mapstructure:"off_heap"`
	RebaseIndptr bool   `mapstructure:"rebase_indptr"`
	HasWeight    bool   `mapstructure:"has_weight"`
	HasGroup     bool   `mapstructure:"has_group"`
}

// InputConfig describes how input files are parsed.
type InputConfig struct {
	Format       string `mapstructure:"format"` // csv or libsvm
	Header       bool   `mapstructure:"header"`
	LabelColumn  int    `mapstructure:"label_column"`
	WeightColumn int    `mapstructure:"weight_column"`
	GroupColumn  int    `mapstructure:"group_column"`
	ZeroBased    bool   `mapstructure:"zero_based"`
}

// SnapshotConfig holds snapshot output settings.
type SnapshotConfig struct {
	Compression string `mapstructure:"compression"` // none, lz4 or zstd
	Codec       string `mapstructure:"codec"`
	Concurrency int    `mapstructure:"concurrency"`
}

// StorageConfig selects the blob store.
type StorageConfig struct {
	Type      string `mapstructure:"type"` // local, memory, s3 or minio
	LocalPath string `mapstructure:"local_path"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// LimitsConfig bounds resource usage.
type LimitsConfig struct {
	MemoryBytes    int64 `mapstructure:"memory_bytes"`
	IOBytesPerSec  int64 `mapstructure:"io_bytes_per_sec"`
	MaxWorkerSlots int64 `mapstructure:"max_worker_slots"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

// Load reads configuration from configPath, or from the standard locations
// when configPath is empty. A missing file leaves the defaults in place.
// Environment variables override both.
func Load(configPath string) (*Config, error) {
	v := newViper()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("colstage")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/colstage")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return unmarshal(v)
}

// LoadFromReader loads configuration from raw content (useful for testing).
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := newViper()
	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return unmarshal(v)
}

// Viper returns a viper instance with defaults and environment binding, for
// callers that bind command-line flags on top.
func Viper() *viper.Viper {
	return newViper()
}

// FromViper decodes and validates v.
func FromViper(v *viper.Viper) (*Config, error) {
	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("stage.layout", "dense")
	v.SetDefault("stage.num_cols", 0)
	v.SetDefault("stage.mode", "concurrent")
	v.SetDefault("stage.chunk_size", 4096)
	v.SetDefault("stage.workers", 0)
	v.SetDefault("stage.off_heap", false)
	v.SetDefault("stage.rebase_indptr", false)
	v.SetDefault("stage.has_weight", false)
	v.SetDefault("stage.has_group", false)

	v.SetDefault("input.format", "csv")
	v.SetDefault("input.header", false)
	v.SetDefault("input.label_column", 0)
	v.SetDefault("input.weight_column", -1)
	v.SetDefault("input.group_column", -1)
	v.SetDefault("input.zero_based", false)

	v.SetDefault("snapshot.compression", "lz4")
	v.SetDefault("snapshot.codec", "go-json")
	v.SetDefault("snapshot.concurrency", 4)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./snapshots")
	v.SetDefault("storage.use_ssl", true)

	v.SetDefault("limits.memory_bytes", 0)
	v.SetDefault("limits.io_bytes_per_sec", 0)
	v.SetDefault("limits.max_worker_slots", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Stage.Layout {
	case "dense", "sparse":
	default:
		return fmt.Errorf("unsupported layout: %s", c.Stage.Layout)
	}
	if c.Stage.Layout == "sparse" && c.Stage.NumCols <= 0 {
		return fmt.Errorf("sparse layout requires stage.num_cols")
	}
	switch c.Stage.Mode {
	case "sequential", "concurrent":
	default:
		return fmt.Errorf("unsupported mode: %s", c.Stage.Mode)
	}
	if c.Stage.RebaseIndptr && c.Stage.Mode != "sequential" {
		return fmt.Errorf("stage.rebase_indptr requires sequential mode")
	}
	if c.Stage.ChunkSize < 1 {
		return fmt.Errorf("chunk size must be at least 1")
	}

	switch c.Input.Format {
	case "csv":
		if c.Stage.Layout != "dense" {
			return fmt.Errorf("csv input requires the dense layout")
		}
	case "libsvm":
		if c.Stage.Layout != "sparse" {
			return fmt.Errorf("libsvm input requires the sparse layout")
		}
	default:
		return fmt.Errorf("unsupported input format: %s", c.Input.Format)
	}

	switch c.Storage.Type {
	case "local":
		if c.Storage.LocalPath == "" {
			return fmt.Errorf("storage.local_path is required")
		}
	case "memory":
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for s3")
		}
	case "minio":
		if c.Storage.Bucket == "" || c.Storage.Endpoint == "" {
			return fmt.Errorf("storage.bucket and storage.endpoint are required for minio")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("unsupported log format: %s", c.Log.Format)
	}
	return nil
}
