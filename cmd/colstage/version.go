package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/hupe1980/colstage/internal/snapshot"
)

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(a.stdout, "colstage %s (snapshot format v%d, %s %s/%s)\n",
				version, snapshot.CurrentVersion, runtime.Version(), runtime.GOOS, runtime.GOARCH)
			return err
		},
	}
}
