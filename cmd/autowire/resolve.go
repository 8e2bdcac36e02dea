package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/itsneelabh/autowire/resolver"
)

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve NAME...",
		Short: "Resolve module names against the modules present in this binary",
		Long: `Resolve each name the way the framework does at wiring time. A name may
carry a version suffix (name@1.2.0); the highest present build that
satisfies it wins.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			var misses int
			for _, name := range args {
				m, err := resolver.Default().Resolve(name, nil)
				if err != nil {
					misses++
					fmt.Fprintf(w, "%s: %v\n", name, err)
					continue
				}
				fmt.Fprintf(w, "%s: %s (%s)\n", name, m.String(), m.Origin)
			}
			if misses > 0 {
				return fmt.Errorf("%d of %d names did not resolve", misses, len(args))
			}
			return nil
		},
	}
}
