package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/itsneelabh/autowire"
)

func newRunCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Compose and run the host until interrupted",
		Long: `Compose a host from every present capability, build it and run its
background tasks until SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.config()
			if err != nil {
				return err
			}
			c, err := autowire.ComposeConfig(cfg)
			if err != nil {
				return err
			}
			c.Logger.Info("Composed host", map[string]interface{}{
				"activated": c.Report.Activated(),
				"duration":  c.Report.Duration.String(),
			})

			ctx := cmd.Context()
			h, err := c.Builder.Build(ctx)
			if err != nil {
				return fmt.Errorf("failed to build host: %w", err)
			}
			return h.Run(ctx)
		},
	}
}
