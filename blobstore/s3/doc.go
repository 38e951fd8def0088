// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("datasets/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	err = dataset.Save(ctx, store, "train-2024-06", colstage.SaveOptions{})
//
// # Features
//
//   - Range reads for efficient partial fetches
//   - Multipart uploads for large columns
//   - CRC32C integrity checks on Put
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
