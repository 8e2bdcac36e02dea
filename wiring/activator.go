package wiring

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/itsneelabh/autowire/capability"
	"github.com/itsneelabh/autowire/core"
	"github.com/itsneelabh/autowire/host"
	"github.com/itsneelabh/autowire/resolver"
)

// Activator applies one capability to a builder. It returns an error when
// the capability is present but cannot be activated, for example because
// its settings are malformed.
type Activator func(a *Activation) error

// Activation is what an activator sees of the rule that fired.
type Activation struct {
	Rule       string
	Capability string
	Builder    host.Builder

	// Present lists the identities of the predicate that were present.
	Present []capability.ID

	resolver *resolver.Resolver
}

// Settings returns the merge of the builder's sources so far.
func (a *Activation) Settings() (*host.Settings, error) {
	return a.Builder.Settings(context.Background())
}

// Logger returns the builder's logger.
func (a *Activation) Logger() core.Logger {
	return a.Builder.Logger()
}

// Require resolves a module the activation depends on, tolerating version
// mismatches. It may load a lazily provided module, which then becomes
// present for the rest of the pass.
func (a *Activation) Require(name string) (*capability.Module, error) {
	var requester *capability.Module
	if len(a.Present) > 0 {
		requester = &capability.Module{ID: a.Present[0]}
	}
	return a.resolver.Resolve(name, requester)
}

// Activators maps activation keys to activators.
type Activators struct {
	mu sync.RWMutex
	m  map[string]Activator
}

// NewActivators creates an empty activator set.
func NewActivators() *Activators {
	return &Activators{m: make(map[string]Activator)}
}

// Register adds fn under key.
func (a *Activators) Register(key string, fn Activator) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.m[key]; exists {
		return &core.FrameworkError{
			Op:   "wiring.Activators.Register",
			Kind: "wiring",
			ID:   key,
			Err:  core.ErrAlreadyRegistered,
		}
	}
	a.m[key] = fn
	return nil
}

// Lookup returns the activator registered under key.
func (a *Activators) Lookup(key string) (Activator, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	fn, ok := a.m[key]
	return fn, ok
}

// Keys returns registered keys, sorted.
func (a *Activators) Keys() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	keys := make([]string, 0, len(a.m))
	for k := range a.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var defaultActivators = NewActivators()

// DefaultActivators returns the process activator set module packages
// register into.
func DefaultActivators() *Activators {
	return defaultActivators
}

// RegisterActivator registers fn under key in the process activator set.
// Module packages call it from init(); a duplicate key panics, as with
// database/sql drivers.
func RegisterActivator(key string, fn Activator) {
	if err := defaultActivators.Register(key, fn); err != nil {
		panic(fmt.Sprintf("wiring: %v", err))
	}
}
