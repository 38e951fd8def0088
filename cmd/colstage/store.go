package main

import (
	"context"
	"fmt"

	"github.com/hupe1980/colstage/blobstore"
	"github.com/hupe1980/colstage/blobstore/minio"
	"github.com/hupe1980/colstage/blobstore/s3"
	"github.com/hupe1980/colstage/internal/config"
)

// openStore builds the blob store selected by cfg.Type.
func openStore(ctx context.Context, cfg config.StorageConfig) (blobstore.BlobStore, error) {
	switch cfg.Type {
	case "local":
		return blobstore.NewLocalStore(cfg.LocalPath), nil
	case "memory":
		return blobstore.NewMemoryStore(), nil
	case "s3":
		opts := []s3.Option{s3.WithPrefix(cfg.Prefix)}
		if cfg.Region != "" {
			opts = append(opts, s3.WithRegion(cfg.Region))
		}
		if cfg.Endpoint != "" {
			opts = append(opts, s3.WithEndpoint(cfg.Endpoint))
		}
		return s3.New(ctx, cfg.Bucket, opts...)
	case "minio":
		return minio.Dial(ctx, minio.Config{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Secure:    cfg.UseSSL,
			Region:    cfg.Region,
		}, cfg.Bucket, cfg.Prefix)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
