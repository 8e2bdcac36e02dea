package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/itsneelabh/autowire"
	"github.com/itsneelabh/autowire/capability"
	"github.com/itsneelabh/autowire/core"
	"github.com/itsneelabh/autowire/host"
	"github.com/itsneelabh/autowire/probe"
	"github.com/itsneelabh/autowire/wiring"
)

// inspection is the dry run result printed by inspect.
type inspection struct {
	Name      string         `json:"name"`
	Present   []presentToken `json:"present"`
	Excluded  []string       `json:"excluded,omitempty"`
	Decisions []decisionView `json:"decisions"`
	Mutations []mutationView `json:"mutations"`
	Error     string         `json:"error,omitempty"`
}

type presentToken struct {
	Token   string `json:"token"`
	Version string `json:"version,omitempty"`
}

type decisionView struct {
	Rule       string   `json:"rule"`
	Capability string   `json:"capability"`
	Group      string   `json:"group,omitempty"`
	Outcome    string   `json:"outcome"`
	Present    []string `json:"present,omitempty"`
}

type mutationView struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
}

func newInspectCmd(flags *rootFlags) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show detected capabilities and the wiring decisions without running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output != "text" && output != "json" {
				return fmt.Errorf("unsupported output %q (use text or json)", output)
			}
			cfg, err := flags.config()
			if err != nil {
				return err
			}
			for _, token := range unknownExclusions(cfg.Exclusions) {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: --exclude %q matches no known capability token\n", token)
			}
			result, composeErr := inspect(cfg)

			w := cmd.OutOrStdout()
			if output == "json" {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return err
				}
			} else {
				printInspection(w, result)
			}
			return composeErr
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format (text or json)")
	return cmd
}

// inspect runs the wiring pass against a recording builder. Nothing is
// built; the mutations show what a real run would register.
func inspect(cfg *core.Config) (*inspection, error) {
	// Keep stdout for the report.
	cfg.Logging.Output = "stderr"
	logger := core.NewProductionLogger(cfg)

	excluded := autowire.Exclusions(cfg.Exclusions)
	rec := host.NewRecorder(host.NewHostBuilder(host.WithConfig(cfg), host.WithLogger(logger)))
	report, err := wiring.New().Compose(rec, excluded, nil)

	result := &inspection{Name: cfg.Name}
	registry := capability.Default()
	for _, id := range probe.New(registry).Present(capability.All(), probe.NewExclusions(excluded...)) {
		tok := presentToken{Token: string(id)}
		if builds := registry.Builds(id); len(builds) > 0 {
			tok.Version = builds[0].Version
		}
		result.Present = append(result.Present, tok)
	}
	for _, id := range excluded {
		result.Excluded = append(result.Excluded, string(id))
	}
	if report != nil {
		for _, d := range report.Decisions {
			dv := decisionView{
				Rule:       d.Rule,
				Capability: d.Capability,
				Group:      d.Group,
				Outcome:    string(d.Outcome),
			}
			for _, id := range d.Present {
				dv.Present = append(dv.Present, string(id))
			}
			result.Decisions = append(result.Decisions, dv)
		}
	}
	for _, m := range rec.Mutations() {
		result.Mutations = append(result.Mutations, mutationView{Kind: string(m.Kind), Name: m.Name})
	}
	if err != nil {
		result.Error = err.Error()
	}
	return result, err
}

// unknownExclusions returns the exclusion tokens that match no token the
// wiring table consults. Such tokens are usually short names and hide
// nothing.
func unknownExclusions(tokens []string) []string {
	known := make(map[capability.ID]bool)
	for _, id := range capability.All() {
		known[id] = true
	}
	var unknown []string
	for _, token := range tokens {
		id := capability.Normalize(token)
		if id != "" && !known[id] {
			unknown = append(unknown, token)
		}
	}
	return unknown
}

func printInspection(w io.Writer, r *inspection) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintf(tw, "Application: %s\n\n", r.Name)

	fmt.Fprintln(tw, "PRESENT\tVERSION")
	for _, t := range r.Present {
		fmt.Fprintf(tw, "%s\t%s\n", t.Token, t.Version)
	}
	if len(r.Excluded) > 0 {
		fmt.Fprintf(tw, "\nExcluded: %s\n", strings.Join(r.Excluded, ", "))
	}

	fmt.Fprintln(tw, "\nRULE\tCAPABILITY\tGROUP\tOUTCOME")
	for _, d := range r.Decisions {
		group := d.Group
		if group == "" {
			group = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Rule, d.Capability, group, d.Outcome)
	}

	fmt.Fprintln(tw, "\nKIND\tNAME")
	for _, m := range r.Mutations {
		fmt.Fprintf(tw, "%s\t%s\n", m.Kind, m.Name)
	}
	if r.Error != "" {
		fmt.Fprintf(tw, "\nError: %s\n", r.Error)
	}
}
