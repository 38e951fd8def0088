// Package colstage stages row-oriented training data from many parallel
// partitions into exactly-sized contiguous columns.
//
// Staging runs in two phases. Every partition first buffers its rows in
// chunked column buffers and reports its sizes. Once every partition has
// reported, the flat destination columns are allocated exactly once and
// each partition reserves a disjoint range in them and copies its rows in.
// The result is a Dataset whose slices can be handed to a native consumer
// in a single call.
//
// # Quick Start
//
//	stager, _ := colstage.New(colstage.Schema{Layout: colstage.Dense, HasWeight: true})
//	ds, err := stager.Stage(ctx, []colstage.Partition{part0, part1, part2})
//	if err != nil {
//	    return err
//	}
//	defer ds.Release()
//
//	train(ds.Features(), ds.Labels(), ds.Weights(), ds.NumRows(), ds.NumCols())
//
// # Layouts
//
//   - Dense: Features() is row-major with NumRows()*NumCols() values.
//   - Sparse: Indexes(), Values() and Indptr() form a CSR-like matrix.
//
// # Sparse indptr
//
// By default each partition's indptr segment is copied verbatim, so its
// values count from zero within the partition. Use RowNonzeros to resolve a
// row, or stage with WithMode(Sequential) and WithIndptrRebase(true) to get
// a single global CSR pointer array.
//
// # Manual Jobs
//
// Callers that own their goroutines drive a Job directly:
//
//	job, _ := colstage.NewJob(schema, 2)
//	defer job.Release()
//	w0, _ := job.Partition(0) // per goroutine: AddRow..., Finish()
//	...
//	job.Merge(w0)
//	ds, _ := job.Dataset()
//
// # Snapshots
//
// A Dataset can be saved to any blobstore.BlobStore (memory, local, S3,
// MinIO) and loaded back with Load.
package colstage
