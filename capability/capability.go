// Package capability tracks which optional modules are present in the running
// process.
//
// Presence is observed, never snapshotted: every query re-reads the
// registry's presence sources, so a module that becomes loadable during a
// composition pass is visible to the next query. A module is present when
//   - its package registered its token from init() (blank-import to enable),
//   - the Go module is linked into the binary (runtime/debug build info),
//   - a database/sql driver with that name is registered ("database/sql:<name>"),
//   - or a lazily loadable module was loaded by the fallback resolver.
package capability

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/itsneelabh/autowire/core"
)

// ID identifies an optional module. It is a bare module name with version
// and locale qualifiers removed; equality is exact string match.
type ID string

func (id ID) String() string { return string(id) }

// Qualifier separators. Everything from the first one on is a version,
// locale or key qualifier.
const qualifierSeparators = ",@"

// Normalize strips qualifiers from a requested module name.
//
//	"github.com/redis/go-redis/v9@v9.5.1"            -> "github.com/redis/go-redis/v9"
//	"Foo.Bar, Version=1.0.0, Culture=neutral"        -> "Foo.Bar"
func Normalize(name string) ID {
	if i := strings.IndexAny(name, qualifierSeparators); i >= 0 {
		name = name[:i]
	}
	return ID(strings.TrimSpace(name))
}

// Module is one build of a module present in the process.
type Module struct {
	ID      ID
	Version string
	Origin  Origin
}

func (m Module) String() string {
	if m.Version == "" {
		return string(m.ID)
	}
	return fmt.Sprintf("%s@%s", m.ID, m.Version)
}

// Origin records how a module became present.
type Origin string

const (
	OriginRegistered Origin = "registered"
	OriginBuildInfo  Origin = "buildinfo"
	OriginSQLDriver  Origin = "sql"
	OriginLoaded     Origin = "loaded"
)

// LoadFunc brings a lazily provided module into the process.
// It runs outside of any registry or resolver lock and may itself trigger
// further resolutions.
type LoadFunc func() (Module, error)

// Source reports modules present in the process right now.
type Source interface {
	Modules() []Module
}

// SourceFunc adapts a function to Source.
type SourceFunc func() []Module

func (f SourceFunc) Modules() []Module { return f() }

// Registry is the process-scoped set of present modules.
// It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	registered []Module
	loaders    map[ID]LoadFunc
	sources    []Source
}

// NewRegistry creates a registry observing the given presence sources in
// addition to explicit registrations.
func NewRegistry(sources ...Source) *Registry {
	return &Registry{
		loaders: make(map[ID]LoadFunc),
		sources: sources,
	}
}

// Register records a module as present. Registering the same build twice
// is a no-op.
func (r *Registry) Register(id ID, version string) {
	r.add(Module{ID: id, Version: version, Origin: OriginRegistered})
}

// MarkLoaded records a module brought in by a loader.
func (r *Registry) MarkLoaded(m Module) {
	m.Origin = OriginLoaded
	r.add(m)
}

func (r *Registry) add(m Module) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.registered {
		if existing.ID == m.ID && existing.Version == m.Version {
			return
		}
	}
	r.registered = append(r.registered, m)
}

// Provide makes id loadable on demand. The module is not present until a
// resolution loads it.
func (r *Registry) Provide(id ID, load LoadFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.loaders[id]; exists {
		return &core.FrameworkError{
			Op:   "capability.Provide",
			Kind: "module",
			ID:   string(id),
			Err:  core.ErrAlreadyRegistered,
		}
	}
	r.loaders[id] = load
	return nil
}

// Loader returns the load function provided for id.
func (r *Registry) Loader(id ID) (LoadFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	load, ok := r.loaders[id]
	return load, ok
}

// Modules returns every module build present right now, explicit
// registrations first, then each source in order.
func (r *Registry) Modules() []Module {
	r.mu.RLock()
	modules := make([]Module, len(r.registered))
	copy(modules, r.registered)
	sources := r.sources
	r.mu.RUnlock()

	for _, src := range sources {
		modules = append(modules, src.Modules()...)
	}
	return modules
}

// Builds returns the present builds of id in observation order.
func (r *Registry) Builds(id ID) []Module {
	var builds []Module
	for _, m := range r.Modules() {
		if m.ID == id {
			builds = append(builds, m)
		}
	}
	return builds
}

// Loaded reports whether id is present right now.
func (r *Registry) Loaded(id ID) bool {
	r.mu.RLock()
	for _, m := range r.registered {
		if m.ID == id {
			r.mu.RUnlock()
			return true
		}
	}
	sources := r.sources
	r.mu.RUnlock()

	for _, src := range sources {
		for _, m := range src.Modules() {
			if m.ID == id {
				return true
			}
		}
	}
	return false
}

// IDs returns the sorted, de-duplicated identities present right now.
func (r *Registry) IDs() []ID {
	seen := make(map[ID]struct{})
	var ids []ID
	for _, m := range r.Modules() {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		ids = append(ids, m.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

var defaultRegistry = NewRegistry(BuildInfoSource(), SQLDriverSource())

// Default returns the process registry that module packages register into.
func Default() *Registry {
	return defaultRegistry
}

// Register records a module as present in the process registry.
// Module packages call it from init().
func Register(id ID, version string) {
	defaultRegistry.Register(id, version)
}

// Provide makes id loadable on demand in the process registry.
func Provide(id ID, load LoadFunc) error {
	return defaultRegistry.Provide(id, load)
}
