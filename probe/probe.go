// Package probe answers module presence queries for one composition pass.
package probe

import "github.com/itsneelabh/autowire/capability"

// Exclusions are identities treated as absent regardless of presence.
// A set is built once per run and never changes afterwards.
type Exclusions struct {
	ids map[capability.ID]struct{}
}

// NewExclusions builds an exclusion set from ids.
func NewExclusions(ids ...capability.ID) Exclusions {
	set := make(map[capability.ID]struct{}, len(ids))
	for _, id := range ids {
		set[capability.Normalize(string(id))] = struct{}{}
	}
	return Exclusions{ids: set}
}

// Contains reports whether id is excluded.
func (e Exclusions) Contains(id capability.ID) bool {
	_, ok := e.ids[id]
	return ok
}

// Len returns the number of excluded identities.
func (e Exclusions) Len() int {
	return len(e.ids)
}

// Prober checks presence against a registry. It keeps no state between
// queries: every call re-reads the registry.
type Prober struct {
	registry *capability.Registry
}

// New creates a prober over registry.
func New(registry *capability.Registry) *Prober {
	return &Prober{registry: registry}
}

// IsLoaded is false for excluded ids, otherwise reports presence now.
func (p *Prober) IsLoaded(id capability.ID, exclusions Exclusions) bool {
	if exclusions.Contains(id) {
		return false
	}
	return p.registry.Loaded(id)
}

// AnyLoaded reports whether at least one of ids is loaded.
func (p *Prober) AnyLoaded(ids []capability.ID, exclusions Exclusions) bool {
	for _, id := range ids {
		if p.IsLoaded(id, exclusions) {
			return true
		}
	}
	return false
}

// AllLoaded reports whether every one of ids is loaded. An empty list is
// never loaded.
func (p *Prober) AllLoaded(ids []capability.ID, exclusions Exclusions) bool {
	if len(ids) == 0 {
		return false
	}
	for _, id := range ids {
		if !p.IsLoaded(id, exclusions) {
			return false
		}
	}
	return true
}

// Present returns the ids among candidates that are loaded, in order.
func (p *Prober) Present(candidates []capability.ID, exclusions Exclusions) []capability.ID {
	var present []capability.ID
	for _, id := range candidates {
		if p.IsLoaded(id, exclusions) {
			present = append(present, id)
		}
	}
	return present
}
