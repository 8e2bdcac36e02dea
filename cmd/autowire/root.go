package main

import (
	"github.com/spf13/cobra"

	"github.com/itsneelabh/autowire/core"
)

// rootFlags holds the persistent flags shared by every subcommand.
type rootFlags struct {
	name       string
	profile    string
	exclude    []string
	settings   string
	configFile string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "autowire",
		Short: "Detect capability modules and wire them into a service host",
		Long: `autowire detects which capability modules are linked into the binary
and wires each present one into a service host: configuration sources,
services, background tasks and health contributors.

Examples:
  autowire inspect                    Show detected tokens and rule decisions
  autowire run --config app.yaml      Run the composed host until interrupted
  autowire resolve configserver       Resolve a module name

  Exclusions take full tokens, as printed by inspect:
  autowire inspect --exclude github.com/itsneelabh/autowire/modules/tracing`,
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.name, "name", "", "application name")
	pf.StringVar(&flags.profile, "profile", "", "configuration profile")
	pf.StringArrayVar(&flags.exclude, "exclude", nil, "capability token to hide from detection (repeatable)")
	pf.StringVar(&flags.settings, "config", "", "application settings file (json, yaml or toml)")
	pf.StringVar(&flags.configFile, "framework-config", "", "framework configuration file")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&flags.logFormat, "log-format", "", "log format (json or text)")

	cmd.AddCommand(
		newInspectCmd(flags),
		newRunCmd(flags),
		newResolveCmd(),
		newVersionCmd(),
	)
	return cmd
}

// options turns set flags into framework options. Unset flags leave the
// defaults and environment in place.
func (f *rootFlags) options() []core.Option {
	var opts []core.Option
	if f.configFile != "" {
		opts = append(opts, core.WithConfigFile(f.configFile))
	}
	if f.name != "" {
		opts = append(opts, core.WithName(f.name))
	}
	if f.profile != "" {
		opts = append(opts, core.WithProfile(f.profile))
	}
	if len(f.exclude) > 0 {
		opts = append(opts, core.WithExclusions(f.exclude...))
	}
	if f.settings != "" {
		opts = append(opts, core.WithSettingsFile(f.settings))
	}
	if f.logLevel != "" {
		opts = append(opts, core.WithLogLevel(f.logLevel))
	}
	if f.logFormat != "" {
		opts = append(opts, core.WithLogFormat(f.logFormat))
	}
	return opts
}

func (f *rootFlags) config() (*core.Config, error) {
	return core.NewConfig(f.options()...)
}
