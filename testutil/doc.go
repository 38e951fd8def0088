// Package testutil provides testing utilities for colstage.
//
// This package is intended for use in tests and benchmarks only. It
// generates reproducible dense, sparse and grouped rows and splits them
// into partitions of uneven size.
//
// # Row Generation
//
//	rng := testutil.NewRNG(seed)
//	rows := rng.DenseRows(1000, 16)
//	parts := testutil.Split(rows, rng.PartitionSizes(len(rows), 8, 1.5))
package testutil
