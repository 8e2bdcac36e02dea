// Package resolver implements version-tolerant fallback resolution of
// module names against the modules present in the process.
//
// A Resolver is the hook a host calls when it cannot satisfy a module
// reference by its exact qualified name. Confirmed misses are remembered for
// the life of the resolver, successful resolutions return the same reference
// on every later call, and a name that is requested again while it is being
// loaded resolves to not found instead of recursing.
package resolver

import (
	"strings"
	"sync"

	"github.com/itsneelabh/autowire/capability"
	"github.com/itsneelabh/autowire/core"
	"github.com/itsneelabh/autowire/internal/semver"
)

// Stats counts resolver outcomes.
type Stats struct {
	Hits      int64 // answered from the positive cache
	Matches   int64 // answered by a build already present
	Loads     int64 // answered by a fresh load
	Satellite int64 // resource-only requests routed back to the requester
	Misses    int64 // not found, including negative cache hits
	Cycles    int64 // short-circuited by the in-flight guard
}

// Resolver resolves requested module names. It is safe for concurrent and
// reentrant use.
type Resolver struct {
	registry *capability.Registry
	logger   core.Logger

	mu       sync.Mutex
	resolved map[capability.ID]*capability.Module
	missing  map[capability.ID]struct{}
	inFlight map[capability.ID]struct{}
	stats    Stats
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger for resolution debug records.
func WithLogger(logger core.Logger) Option {
	return func(r *Resolver) {
		r.logger = core.LoggerOrNoOp(logger)
	}
}

// New creates a resolver over registry.
func New(registry *capability.Registry, opts ...Option) *Resolver {
	r := &Resolver{
		registry: registry,
		logger:   &core.NoOpLogger{},
		resolved: make(map[capability.ID]*capability.Module),
		missing:  make(map[capability.ID]struct{}),
		inFlight: make(map[capability.ID]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var (
	defaultResolver     *Resolver
	defaultResolverOnce sync.Once
)

// Default returns the process resolver over capability.Default().
func Default() *Resolver {
	defaultResolverOnce.Do(func() {
		defaultResolver = New(capability.Default())
	})
	return defaultResolver
}

// Resolve resolves requested to a present module. requester is the module
// asking for it and may be nil. A miss returns an error satisfying
// core.IsNotFound.
func (r *Resolver) Resolve(requested string, requester *capability.Module) (*capability.Module, error) {
	name := capability.Normalize(requested)

	r.mu.Lock()
	if _, miss := r.missing[name]; miss {
		r.stats.Misses++
		r.mu.Unlock()
		observe(resultNegative)
		return nil, notFound(name, core.ErrModuleNotFound)
	}
	if m, ok := r.resolved[name]; ok {
		r.stats.Hits++
		r.mu.Unlock()
		observe(resultCached)
		return m, nil
	}
	r.mu.Unlock()

	if build, ok := r.bestBuild(name, requestedVersion(requested)); ok {
		r.mu.Lock()
		m := r.remember(name, build)
		r.stats.Matches++
		r.mu.Unlock()
		observe(resultMatched)
		r.logger.Debug("Resolved module to present build", map[string]interface{}{
			"requested": requested,
			"build":     m.String(),
		})
		return m, nil
	}

	if isSatellite(requested, name) {
		r.mu.Lock()
		r.stats.Satellite++
		r.mu.Unlock()
		observe(resultSatellite)
		if requester == nil {
			return nil, notFound(name, core.ErrModuleNotFound)
		}
		return requester, nil
	}

	return r.load(name)
}

// load performs the guarded fresh load of name.
func (r *Resolver) load(name capability.ID) (*capability.Module, error) {
	r.mu.Lock()
	if m, ok := r.resolved[name]; ok {
		// Another caller finished loading name since the first check.
		r.stats.Hits++
		r.mu.Unlock()
		observe(resultCached)
		return m, nil
	}
	if _, busy := r.inFlight[name]; busy {
		r.stats.Cycles++
		r.mu.Unlock()
		observe(resultCycle)
		return nil, notFound(name, core.ErrCyclicResolution)
	}
	r.inFlight[name] = struct{}{}
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.inFlight, name)
		r.mu.Unlock()
	}()

	loaded, err := r.invokeLoader(name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.missing[name] = struct{}{}
		r.stats.Misses++
		observe(resultMiss)
		r.logger.Debug("Module confirmed missing", map[string]interface{}{
			"module": string(name),
			"error":  err.Error(),
		})
		return nil, notFound(name, core.ErrModuleNotFound)
	}

	m := r.remember(name, loaded)
	r.stats.Loads++
	observe(resultLoaded)
	return m, nil
}

// invokeLoader runs the provided loader for name without holding the lock.
// A panicking loader counts as a failed load.
func (r *Resolver) invokeLoader(name capability.ID) (m capability.Module, err error) {
	load, ok := r.registry.Loader(name)
	if !ok {
		return capability.Module{}, core.ErrModuleNotFound
	}

	defer func() {
		if p := recover(); p != nil {
			err = &core.FrameworkError{
				Op:      "resolver.load",
				Kind:    "module",
				ID:      string(name),
				Message: "module loader panicked",
				Err:     core.ErrModuleNotFound,
			}
		}
	}()

	m, err = load()
	if err != nil {
		return capability.Module{}, err
	}
	if m.ID == "" {
		m.ID = name
	}
	r.registry.MarkLoaded(m)
	return m, nil
}

// remember caches build under name; the first cached reference wins.
// Caller holds r.mu.
func (r *Resolver) remember(name capability.ID, build capability.Module) *capability.Module {
	if m, ok := r.resolved[name]; ok {
		return m
	}
	m := &build
	r.resolved[name] = m
	return m
}

// bestBuild picks among present builds of name: the highest compatible with
// the requested version, else the highest parseable, else the first seen.
func (r *Resolver) bestBuild(name capability.ID, requested string) (capability.Module, bool) {
	builds := r.registry.Builds(name)
	if len(builds) == 0 {
		return capability.Module{}, false
	}

	versions := make([]semver.Version, len(builds))
	for i, b := range builds {
		versions[i], _ = semver.ParseVersion(b.Version)
	}

	if want, err := semver.ParseVersion(requested); err == nil {
		if best, ok := semver.MaxSatisfying(semver.Compatible(want), versions); ok {
			for i, v := range versions {
				if semver.Compare(v, best) == 0 {
					return builds[i], true
				}
			}
		}
	}

	best := 0
	for i := 1; i < len(versions); i++ {
		if semver.Compare(versions[i], versions[best]) > 0 {
			best = i
		}
	}
	return builds[best], true
}

// Stats returns a snapshot of resolution counters.
func (r *Resolver) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// InFlight reports whether name is currently being loaded.
func (r *Resolver) InFlight(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, busy := r.inFlight[capability.Normalize(name)]
	return busy
}

func notFound(name capability.ID, err error) error {
	return &core.FrameworkError{
		Op:   "resolver.Resolve",
		Kind: "module",
		ID:   string(name),
		Err:  err,
	}
}

// requestedVersion extracts the version qualifier from a requested name:
// "path@v1.2.3" or "Name, Version=1.2.3.0, ...".
func requestedVersion(requested string) string {
	if i := strings.IndexByte(requested, '@'); i >= 0 {
		v := requested[i+1:]
		if j := strings.IndexByte(v, ','); j >= 0 {
			v = v[:j]
		}
		return strings.TrimSpace(v)
	}
	v, _ := qualifier(requested, "version")
	return v
}

// qualifier returns the value of a comma-separated key=value qualifier.
func qualifier(requested, key string) (string, bool) {
	parts := strings.Split(requested, ",")
	for _, part := range parts[1:] {
		k, v, ok := strings.Cut(part, "=")
		if ok && strings.EqualFold(strings.TrimSpace(k), key) {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}
