package host

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/itsneelabh/autowire/core"
)

// ServiceFactory creates a service on first use. It may resolve other
// services from sp.
type ServiceFactory func(ctx context.Context, sp *ServiceProvider) (interface{}, error)

type serviceEntry struct {
	factory  ServiceFactory
	mu       sync.Mutex
	created  bool
	instance interface{}
}

// ServiceProvider holds lazily created singleton services.
type ServiceProvider struct {
	host *Host

	mu      sync.Mutex
	entries map[string]*serviceEntry
	order   []string // creation order, for Close
}

func newServiceProvider(h *Host, factories map[string]ServiceFactory) *ServiceProvider {
	sp := &ServiceProvider{
		host:    h,
		entries: make(map[string]*serviceEntry, len(factories)),
	}
	for name, f := range factories {
		sp.entries[name] = &serviceEntry{factory: f}
	}
	return sp
}

type resolvingKey struct{}

// Get returns the service registered under name, creating it on first use.
// A failed creation is not cached.
func (sp *ServiceProvider) Get(ctx context.Context, name string) (interface{}, error) {
	chain, _ := ctx.Value(resolvingKey{}).([]string)
	for _, n := range chain {
		if n == name {
			return nil, &core.FrameworkError{
				Op:      "host.ServiceProvider.Get",
				Kind:    "service",
				ID:      name,
				Message: fmt.Sprintf("service dependency cycle: %v", append(chain, name)),
				Err:     core.ErrCyclicResolution,
			}
		}
	}

	sp.mu.Lock()
	entry, ok := sp.entries[name]
	sp.mu.Unlock()
	if !ok {
		return nil, &core.FrameworkError{
			Op:   "host.ServiceProvider.Get",
			Kind: "service",
			ID:   name,
			Err:  core.ErrServiceNotFound,
		}
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.created {
		return entry.instance, nil
	}

	next := make([]string, len(chain), len(chain)+1)
	copy(next, chain)
	instance, err := entry.factory(context.WithValue(ctx, resolvingKey{}, append(next, name)), sp)
	if err != nil {
		return nil, fmt.Errorf("create service %s: %w", name, err)
	}
	entry.instance = instance
	entry.created = true

	sp.mu.Lock()
	sp.order = append(sp.order, name)
	sp.mu.Unlock()

	return instance, nil
}

// Has reports whether a service is registered under name.
func (sp *ServiceProvider) Has(name string) bool {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	_, ok := sp.entries[name]
	return ok
}

// Names returns registered service names, sorted.
func (sp *ServiceProvider) Names() []string {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	names := make([]string, 0, len(sp.entries))
	for name := range sp.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Settings returns the host's current settings.
func (sp *ServiceProvider) Settings() *Settings {
	return sp.host.Settings()
}

// Logger returns the host logger.
func (sp *ServiceProvider) Logger() core.Logger {
	return sp.host.Logger()
}

// Close closes created services implementing io.Closer, newest first.
func (sp *ServiceProvider) Close() error {
	sp.mu.Lock()
	order := sp.order
	sp.order = nil
	sp.mu.Unlock()

	var firstErr error
	for i := len(order) - 1; i >= 0; i-- {
		sp.mu.Lock()
		entry := sp.entries[order[i]]
		sp.mu.Unlock()

		entry.mu.Lock()
		instance := entry.instance
		entry.created = false
		entry.instance = nil
		entry.mu.Unlock()

		if c, ok := instance.(io.Closer); ok {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("close service %s: %w", order[i], err)
			}
		}
	}
	return firstErr
}

// Resolve fetches a service and asserts its type.
func Resolve[T any](ctx context.Context, sp *ServiceProvider, name string) (T, error) {
	var zero T
	instance, err := sp.Get(ctx, name)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, &core.FrameworkError{
			Op:      "host.Resolve",
			Kind:    "service",
			ID:      name,
			Message: fmt.Sprintf("service %s has unexpected type %T", name, instance),
			Err:     core.ErrServiceUnavailable,
		}
	}
	return typed, nil
}
