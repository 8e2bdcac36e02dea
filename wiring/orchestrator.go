// Package wiring evaluates the capability wiring table against the modules
// present in the process and activates each applicable capability on a host
// builder.
//
// The table is evaluated once, top to bottom, on the calling goroutine.
// Standalone rules are independent, exclusive groups fire at most one member
// and gates fire their children only after the parent. Every activation is
// paired with exactly one diagnostic record. An activation that fails stops
// the pass and is returned as an *ActivationError.
package wiring

import (
	"time"

	"github.com/itsneelabh/autowire/capability"
	"github.com/itsneelabh/autowire/core"
	"github.com/itsneelabh/autowire/host"
	"github.com/itsneelabh/autowire/probe"
	"github.com/itsneelabh/autowire/resolver"
)

// DiagnosticSink receives one informational record per activation.
// core.Logger satisfies it.
type DiagnosticSink interface {
	Info(msg string, fields map[string]interface{})
}

type discardSink struct{}

func (discardSink) Info(string, map[string]interface{}) {}

// Outcome is what happened to a rule during a pass.
type Outcome string

const (
	OutcomeActivated  Outcome = "activated"
	OutcomeAbsent     Outcome = "absent"
	OutcomeSuppressed Outcome = "suppressed" // an earlier group member fired
	OutcomeGated      Outcome = "gated"      // the gate parent did not fire
	OutcomeFailed     Outcome = "failed"
)

// Decision records the outcome of one rule.
type Decision struct {
	Rule       string
	Capability string
	Group      string
	Outcome    Outcome
	Present    []capability.ID
}

// Report summarizes a pass.
type Report struct {
	Decisions []Decision
	Duration  time.Duration
}

// Activated returns the names of rules that fired, in order.
func (r *Report) Activated() []string {
	var names []string
	for _, d := range r.Decisions {
		if d.Outcome == OutcomeActivated {
			names = append(names, d.Rule)
		}
	}
	return names
}

// Orchestrator evaluates a wiring table.
type Orchestrator struct {
	prober     *probe.Prober
	resolver   *resolver.Resolver
	activators *Activators
	table      Table
}

// Option configures an Orchestrator.
type Option func(*orchestratorOptions)

type orchestratorOptions struct {
	registry   *capability.Registry
	resolver   *resolver.Resolver
	activators *Activators
	table      Table
	signal     func() bool
}

// WithRegistry probes registry instead of capability.Default(). Unless a
// resolver is also given, a fresh resolver over registry is used.
func WithRegistry(registry *capability.Registry) Option {
	return func(o *orchestratorOptions) { o.registry = registry }
}

// WithResolver sets the resolver activations use for Require.
func WithResolver(r *resolver.Resolver) Option {
	return func(o *orchestratorOptions) { o.resolver = r }
}

// WithActivators uses a instead of DefaultActivators().
func WithActivators(a *Activators) Option {
	return func(o *orchestratorOptions) { o.activators = a }
}

// WithTable replaces the wiring table.
func WithTable(t Table) Option {
	return func(o *orchestratorOptions) { o.table = t }
}

// WithClusterSignal replaces the cluster orchestration signal of the
// default table. It has no effect together with WithTable.
func WithClusterSignal(signal func() bool) Option {
	return func(o *orchestratorOptions) { o.signal = signal }
}

// New creates an orchestrator. Without options it probes the process
// registry with the process activators and the default table.
func New(opts ...Option) *Orchestrator {
	o := &orchestratorOptions{signal: core.IsKubernetes}
	for _, opt := range opts {
		opt(o)
	}

	if o.registry == nil {
		o.registry = capability.Default()
		if o.resolver == nil {
			o.resolver = resolver.Default()
		}
	}
	if o.resolver == nil {
		o.resolver = resolver.New(o.registry)
	}
	if o.activators == nil {
		o.activators = DefaultActivators()
	}
	if o.table == nil {
		o.table = DefaultTable(o.signal)
	}

	return &Orchestrator{
		prober:     probe.New(o.registry),
		resolver:   o.resolver,
		activators: o.activators,
		table:      o.table,
	}
}

// Table returns the table the orchestrator evaluates.
func (o *Orchestrator) Table() Table {
	return o.table
}

// Compose runs one pass over the table. exclusions hide modules from
// detection for this pass only. A nil sink discards diagnostics.
func (o *Orchestrator) Compose(b host.Builder, exclusions []capability.ID, sink DiagnosticSink) (*Report, error) {
	if sink == nil {
		sink = discardSink{}
	}

	start := time.Now()
	p := &pass{
		orchestrator: o,
		builder:      b,
		exclusions:   probe.NewExclusions(exclusions...),
		sink:         sink,
		report:       &Report{},
	}

	var err error
	for _, step := range o.table {
		if err = step.evaluate(p); err != nil {
			break
		}
	}

	p.report.Duration = time.Since(start)
	passDuration.Observe(p.report.Duration.Seconds())
	return p.report, err
}

// AddAutowire activates every capability whose modules are present in the
// process on b, using the process registry and activators. It returns b for
// chaining. A capability that is present but fails to activate is returned
// as an *ActivationError; absent capabilities are not an error.
func AddAutowire(b host.Builder, exclusions []capability.ID, sink DiagnosticSink) (host.Builder, error) {
	if _, err := New().Compose(b, exclusions, sink); err != nil {
		return b, err
	}
	return b, nil
}

// pass is the state of one evaluation.
type pass struct {
	orchestrator *Orchestrator
	builder      host.Builder
	exclusions   probe.Exclusions
	sink         DiagnosticSink
	report       *Report
}

// try evaluates rule and activates it when its predicate holds. Follow-ups
// are evaluated after the rule fired.
func (p *pass) try(rule Rule, group string) (bool, error) {
	o := p.orchestrator
	if !rule.When.holds(o.prober, p.exclusions) {
		p.record(rule, group, OutcomeAbsent)
		return false, nil
	}

	present := o.prober.Present(rule.When.identities(), p.exclusions)
	if err := p.activate(rule, present); err != nil {
		p.report.Decisions = append(p.report.Decisions, Decision{
			Rule: rule.Name, Capability: rule.Capability, Group: group,
			Outcome: OutcomeFailed, Present: present,
		})
		activationErrorsTotal.WithLabelValues(rule.Name).Inc()
		return false, err
	}

	p.report.Decisions = append(p.report.Decisions, Decision{
		Rule: rule.Name, Capability: rule.Capability, Group: group,
		Outcome: OutcomeActivated, Present: present,
	})
	activationsTotal.WithLabelValues(rule.Name).Inc()
	p.sink.Info(rule.Message, map[string]interface{}{
		"rule":       rule.Name,
		"capability": rule.Capability,
		"modules":    idStrings(present),
	})

	for _, follow := range rule.FollowUps {
		if _, err := p.try(follow, ""); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (p *pass) activate(rule Rule, present []capability.ID) error {
	o := p.orchestrator
	activator, ok := o.activators.Lookup(rule.Activation)
	if !ok {
		return &ActivationError{
			Rule:       rule.Name,
			Capability: rule.Capability,
			Err: &core.FrameworkError{
				Op:   "wiring.activate",
				Kind: "wiring",
				ID:   rule.Activation,
				Err:  core.ErrActivatorMissing,
			},
		}
	}

	err := activator(&Activation{
		Rule:       rule.Name,
		Capability: rule.Capability,
		Builder:    p.builder,
		Present:    present,
		resolver:   o.resolver,
	})
	if err != nil {
		return &ActivationError{Rule: rule.Name, Capability: rule.Capability, Err: err}
	}
	return nil
}

// record notes a rule that did not fire, along with its follow-ups.
func (p *pass) record(rule Rule, group string, outcome Outcome) {
	p.report.Decisions = append(p.report.Decisions, Decision{
		Rule: rule.Name, Capability: rule.Capability, Group: group, Outcome: outcome,
	})
	for _, follow := range rule.FollowUps {
		p.record(follow, "", outcome)
	}
}

func idStrings(ids []capability.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
