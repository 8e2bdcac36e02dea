package wiring

import (
	"strings"

	"github.com/itsneelabh/autowire/capability"
	"github.com/itsneelabh/autowire/probe"
)

// Mode selects how a predicate combines its identities.
type Mode int

const (
	// ModeAll requires every identity to be present.
	ModeAll Mode = iota
	// ModeAny requires at least one identity to be present.
	ModeAny
)

func (m Mode) String() string {
	if m == ModeAny {
		return "any"
	}
	return "all"
}

// Predicate decides whether a rule applies.
type Predicate struct {
	Mode Mode
	IDs  []capability.ID

	// Required must all be present in addition to IDs.
	Required []capability.ID

	// Guard is an extra environment condition evaluated after presence.
	Guard func() bool
}

// AllOf builds a predicate satisfied when every id is present.
func AllOf(ids ...capability.ID) Predicate {
	return Predicate{Mode: ModeAll, IDs: ids}
}

// AnyOf builds a predicate satisfied when any id is present.
func AnyOf(ids ...capability.ID) Predicate {
	return Predicate{Mode: ModeAny, IDs: ids}
}

// Requires adds identities that must all be present whatever the mode.
func (p Predicate) Requires(ids ...capability.ID) Predicate {
	p.Required = append(append([]capability.ID(nil), p.Required...), ids...)
	return p
}

// identities returns IDs followed by Required.
func (p Predicate) identities() []capability.ID {
	ids := make([]capability.ID, 0, len(p.IDs)+len(p.Required))
	return append(append(ids, p.IDs...), p.Required...)
}

// When adds an environment guard to the predicate.
func (p Predicate) When(guard func() bool) Predicate {
	p.Guard = guard
	return p
}

func (p Predicate) holds(prober *probe.Prober, exclusions probe.Exclusions) bool {
	var present bool
	if p.Mode == ModeAny {
		present = prober.AnyLoaded(p.IDs, exclusions)
	} else {
		present = prober.AllLoaded(p.IDs, exclusions)
	}
	if !present {
		return false
	}
	if len(p.Required) > 0 && !prober.AllLoaded(p.Required, exclusions) {
		return false
	}
	return p.Guard == nil || p.Guard()
}

func (p Predicate) String() string {
	ids := make([]string, len(p.IDs))
	for i, id := range p.IDs {
		ids[i] = string(id)
	}
	s := p.Mode.String() + "(" + strings.Join(ids, ", ") + ")"
	if len(p.Required) > 0 {
		s += " requires " + AllOf(p.Required...).String()
	}
	return s
}

// Rule pairs a predicate with an activation.
type Rule struct {
	// Name identifies the rule in diagnostics and errors.
	Name string

	// Capability is the human readable capability the rule activates.
	Capability string

	When Predicate

	// Activation is the activator key invoked when the rule fires.
	Activation string

	// Message is recorded once on the diagnostic sink when the rule fires.
	Message string

	// FollowUps are evaluated, independently, only after this rule fired.
	FollowUps []Rule
}

// Step is one entry of the wiring table: a standalone rule, an exclusive
// group or a gate.
type Step interface {
	evaluate(p *pass) error
}

// Standalone wraps a rule evaluated on its own.
type Standalone struct {
	Rule Rule
}

func (s Standalone) evaluate(p *pass) error {
	_, err := p.try(s.Rule, "")
	return err
}

// Group is an exclusivity group: members are tried in order and the first
// whose predicate holds fires. Later members are never tried once one fired.
type Group struct {
	Name    string
	Members []Rule
}

func (g Group) evaluate(p *pass) error {
	for i, member := range g.Members {
		fired, err := p.try(member, g.Name)
		if err != nil {
			return err
		}
		if fired {
			for _, rest := range g.Members[i+1:] {
				p.record(rest, g.Name, OutcomeSuppressed)
			}
			return nil
		}
	}
	return nil
}

// Gate fires its children only after the parent fired. Each child is
// evaluated independently.
type Gate struct {
	Parent   Rule
	Children []Rule
}

func (g Gate) evaluate(p *pass) error {
	fired, err := p.try(g.Parent, "")
	if err != nil {
		return err
	}
	if !fired {
		for _, child := range g.Children {
			p.record(child, "", OutcomeGated)
		}
		return nil
	}
	for _, child := range g.Children {
		if _, err := p.try(child, ""); err != nil {
			return err
		}
	}
	return nil
}

// Table is the ordered list of wiring steps.
type Table []Step

// Rules returns every rule in the table in evaluation order, follow-ups
// after their parent.
func (t Table) Rules() []Rule {
	var rules []Rule
	var add func(r Rule)
	add = func(r Rule) {
		rules = append(rules, r)
		for _, f := range r.FollowUps {
			add(f)
		}
	}
	for _, step := range t {
		switch s := step.(type) {
		case Standalone:
			add(s.Rule)
		case Group:
			for _, m := range s.Members {
				add(m)
			}
		case Gate:
			add(s.Parent)
			for _, c := range s.Children {
				add(c)
			}
		}
	}
	return rules
}

// IDs returns every identity the table consults, without duplicates.
func (t Table) IDs() []capability.ID {
	seen := make(map[capability.ID]struct{})
	var ids []capability.ID
	for _, r := range t.Rules() {
		for _, id := range r.When.identities() {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}
