package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/itsneelabh/autowire"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "autowire %s (commit %s, built %s, %s)\n",
				autowire.Version, autowire.GitCommit, autowire.BuildDate, runtime.Version())
		},
	}
}
