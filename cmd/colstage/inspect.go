package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/colstage"
)

func newInspectCommand(a *app) *cobra.Command {
	var verify bool
	cmd := &cobra.Command{
		Use:   "inspect NAME",
		Short: "Describe a saved snapshot",
		Long: `
Prints the manifest of snapshot NAME: its schema, row counts and the stored
size and compression of every column. No column data is read.

With --verify every column blob is also checked for presence and size.
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.inspect(cmd.Context(), args[0], verify)
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, "check that every column blob exists with its recorded size")
	return cmd
}

func (a *app) inspect(ctx context.Context, name string, verify bool) error {
	store, err := openStore(ctx, a.cfg.Storage)
	if err != nil {
		return err
	}
	m, err := colstage.Inspect(ctx, store, name)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "snapshot:    %s (format v%d, created %s)\n", name, m.Version, m.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(a.stdout, "layout:      %s, %d cols\n", m.Layout, m.NumCols)
	fmt.Fprintf(a.stdout, "rows:        %d in %d partitions\n", m.Rows, m.Partitions)
	if m.Layout == "sparse" {
		fmt.Fprintf(a.stdout, "nonzeros:    %d (indptr rebased: %t)\n", m.Indexes, m.RebasedIndptr)
	}
	fmt.Fprintf(a.stdout, "stored:      %d bytes\n\n", m.StoredBytes())

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tDTYPE\tLENGTH\tCOMPRESSION\tSTORED")
	for _, c := range m.Columns {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\n", c.Name, c.DType, c.Length, c.Compression, c.StoredBytes)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if !verify {
		return nil
	}
	if _, err := colstage.Verify(ctx, store, name); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "\nverified %d columns\n", len(m.Columns))
	return nil
}
