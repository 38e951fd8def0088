// Package minio provides a BlobStore implementation using the MinIO client.
//
// MinIO is an S3-compatible object store. The official MinIO Go client also
// works against Ceph, SeaweedFS and Garage, and needs no AWS SDK.
//
// # Basic Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "my-bucket", "datasets/")
//	err = dataset.Save(ctx, store, "train", colstage.SaveOptions{})
package minio
