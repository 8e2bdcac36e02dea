package host

import (
	"context"
	"sync"

	"github.com/itsneelabh/autowire/core"
)

// MutationKind names a Builder mutation.
type MutationKind string

const (
	MutationConfigSource      MutationKind = "config_source"
	MutationService           MutationKind = "service"
	MutationBackgroundTask    MutationKind = "background_task"
	MutationHealthContributor MutationKind = "health_contributor"
)

// Mutation is one recorded Builder call.
type Mutation struct {
	Kind MutationKind
	Name string
}

// Recorder is a Builder that records every mutation before forwarding it.
// It backs dry runs and composition tests.
type Recorder struct {
	inner Builder

	mu        sync.Mutex
	mutations []Mutation
}

// NewRecorder wraps inner. A nil inner records into a fresh HostBuilder.
func NewRecorder(inner Builder) *Recorder {
	if inner == nil {
		inner = NewHostBuilder()
	}
	return &Recorder{inner: inner}
}

func (r *Recorder) record(kind MutationKind, name string) {
	r.mu.Lock()
	r.mutations = append(r.mutations, Mutation{Kind: kind, Name: name})
	r.mu.Unlock()
}

func (r *Recorder) AddConfigSource(src ConfigSource) Builder {
	r.record(MutationConfigSource, src.Name())
	r.inner.AddConfigSource(src)
	return r
}

func (r *Recorder) RegisterService(name string, factory ServiceFactory) Builder {
	r.record(MutationService, name)
	r.inner.RegisterService(name, factory)
	return r
}

func (r *Recorder) AddBackgroundTask(task BackgroundTask) Builder {
	r.record(MutationBackgroundTask, task.Name())
	r.inner.AddBackgroundTask(task)
	return r
}

func (r *Recorder) AddHealthContributor(c HealthContributor) Builder {
	r.record(MutationHealthContributor, c.ID())
	r.inner.AddHealthContributor(c)
	return r
}

func (r *Recorder) Settings(ctx context.Context) (*Settings, error) {
	return r.inner.Settings(ctx)
}

func (r *Recorder) Logger() core.Logger {
	return r.inner.Logger()
}

// Inner returns the wrapped builder.
func (r *Recorder) Inner() Builder {
	return r.inner
}

// Mutations returns every recorded call in order.
func (r *Recorder) Mutations() []Mutation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Mutation(nil), r.mutations...)
}

// Named returns the names recorded for kind in order.
func (r *Recorder) Named(kind MutationKind) []string {
	var names []string
	for _, m := range r.Mutations() {
		if m.Kind == kind {
			names = append(names, m.Name)
		}
	}
	return names
}
