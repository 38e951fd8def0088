package colstage_test

import (
	"context"
	"fmt"
	"log"
	"slices"

	"github.com/hupe1980/colstage"
	"github.com/hupe1980/colstage/blobstore"
)

func rowsOf(rows ...colstage.Row) colstage.Partition {
	return func(yield func(colstage.Row, error) bool) {
		for _, r := range rows {
			if !yield(r, nil) {
				return
			}
		}
	}
}

// Example_stageDense stages two dense partitions and reads one row back.
func Example_stageDense() {
	stager, err := colstage.New(colstage.Schema{Layout: colstage.Dense, HasWeight: true})
	if err != nil {
		log.Fatal(err)
	}

	ds, err := stager.Stage(context.Background(), []colstage.Partition{
		rowsOf(
			colstage.NewRow(1).WithWeight(2).WithDense(0.1, 0.2, 0.3).Build(),
			colstage.NewRow(0).WithWeight(1).WithDense(0.4, 0.5, 0.6).Build(),
		),
		rowsOf(colstage.NewRow(1).WithWeight(1).WithDense(0.7, 0.8, 0.9).Build()),
	})
	if err != nil {
		log.Fatal(err)
	}
	defer ds.Release()

	fmt.Println(ds.NumRows(), ds.NumCols(), ds.NumPartitions())
	// Output: 3 3 2
}

// Example_job drives a sparse job by hand: partitions are filled, the
// sizes are sealed, and each partition is merged into its reserved range.
func Example_job() {
	ctx := context.Background()
	job, err := colstage.NewJob(colstage.Schema{Layout: colstage.Sparse, NumCols: 4}, 2,
		colstage.WithMode(colstage.Sequential), colstage.WithIndptrRebase(true))
	if err != nil {
		log.Fatal(err)
	}
	defer job.Release()

	parts := [][]colstage.Row{
		{colstage.NewRow(1).WithSparse([]int32{0, 3}, []float64{1, 2}).Build()},
		{
			colstage.NewRow(0).WithSparse([]int32{1}, []float64{3}).Build(),
			colstage.NewRow(1).Build(),
		},
	}
	writers := make([]*colstage.PartitionWriter, len(parts))
	for id, rows := range parts {
		w, err := job.Partition(id)
		if err != nil {
			log.Fatal(err)
		}
		for _, r := range rows {
			if err := w.AddRow(r); err != nil {
				log.Fatal(err)
			}
		}
		if err := w.Finish(); err != nil {
			log.Fatal(err)
		}
		writers[id] = w
	}

	for _, w := range writers {
		if _, err := job.Merge(ctx, w); err != nil {
			log.Fatal(err)
		}
	}

	ds, err := job.Dataset()
	if err != nil {
		log.Fatal(err)
	}
	defer ds.Release()

	fmt.Println(ds.Indptr(), ds.Indexes(), ds.Values())
	idx, vals, _ := ds.RowNonzeros(1)
	fmt.Println(idx, vals)
	// Output:
	// [0 2 3 3] [0 3 1] [1 2 3]
	// [1] [3]
}

// ExampleDataset_Save writes a snapshot and loads it back.
func ExampleDataset_Save() {
	ctx := context.Background()
	stager, _ := colstage.New(colstage.Schema{Layout: colstage.Dense})
	ds, err := stager.Stage(ctx, []colstage.Partition{
		rowsOf(colstage.NewRow(1).WithDense(1, 2).Build(), colstage.NewRow(0).WithDense(3, 4).Build()),
	})
	if err != nil {
		log.Fatal(err)
	}
	defer ds.Release()

	store := blobstore.NewMemoryStore()
	if _, err := ds.Save(ctx, store, "train", colstage.WithCompression(colstage.CompressionZSTD)); err != nil {
		log.Fatal(err)
	}

	loaded, err := colstage.Load(ctx, store, "train")
	if err != nil {
		log.Fatal(err)
	}
	defer loaded.Release()

	fmt.Println(slices.Equal(ds.Features(), loaded.Features()), loaded.Labels())
	// Output: true [1 0]
}
