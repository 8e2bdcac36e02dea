// Package host defines the composition contract capability modules wire
// into and a default implementation built on viper settings, lazily created
// singleton services and errgroup-supervised background tasks.
package host

import (
	"context"
	"sync"

	"github.com/itsneelabh/autowire/core"
)

// Builder is the mutable composition capability modules wire into. Every
// mutation is idempotent: a second source, task or contributor with the same
// name is ignored, and the first service registered under a name wins.
type Builder interface {
	AddConfigSource(src ConfigSource) Builder
	RegisterService(name string, factory ServiceFactory) Builder
	AddBackgroundTask(task BackgroundTask) Builder
	AddHealthContributor(c HealthContributor) Builder

	// Settings returns the merge of the sources added so far.
	Settings(ctx context.Context) (*Settings, error)
	Logger() core.Logger
}

// BuilderOption configures a HostBuilder.
type BuilderOption func(*HostBuilder)

// WithName sets the application name. It is also published as the
// application.name setting underneath every other source.
func WithName(name string) BuilderOption {
	return func(b *HostBuilder) {
		b.name = name
	}
}

// WithLogger sets the host logger.
func WithLogger(logger core.Logger) BuilderOption {
	return func(b *HostBuilder) {
		b.logger = core.LoggerOrNoOp(logger)
	}
}

// WithConfig applies framework configuration: name, profile, logger
// defaults and the optional settings file and environment sources.
func WithConfig(cfg *core.Config) BuilderOption {
	return func(b *HostBuilder) {
		b.name = cfg.Name
		b.profile = cfg.Profile
		b.defaults = map[string]interface{}{
			"management.port":      cfg.Management.Port,
			"management.base_path": cfg.Management.BasePath,
		}
		if cfg.SettingsFile != "" {
			b.AddConfigSource(NewFileSource(cfg.SettingsFile, false))
		}
		b.AddConfigSource(NewEnvSource(core.AppSettingsEnvPrefix))
	}
}

// HostBuilder is the default Builder.
type HostBuilder struct {
	name     string
	profile  string
	logger   core.Logger
	defaults map[string]interface{}

	mu           sync.Mutex
	sources      []ConfigSource
	services     map[string]ServiceFactory
	serviceOrder []string
	tasks        []BackgroundTask
	contributors []HealthContributor

	// settings caches the merge of the first settingsN sources.
	settings  *Settings
	settingsN int
}

// NewHostBuilder creates an empty builder.
func NewHostBuilder(opts ...BuilderOption) *HostBuilder {
	b := &HostBuilder{
		name:     "autowire-app",
		profile:  "default",
		logger:   &core.NoOpLogger{},
		services: make(map[string]ServiceFactory),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *HostBuilder) AddConfigSource(src ConfigSource) Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, existing := range b.sources {
		if existing.Name() == src.Name() {
			return b
		}
	}
	b.sources = append(b.sources, src)
	return b
}

func (b *HostBuilder) RegisterService(name string, factory ServiceFactory) Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.services[name]; exists {
		return b
	}
	b.services[name] = factory
	b.serviceOrder = append(b.serviceOrder, name)
	return b
}

func (b *HostBuilder) AddBackgroundTask(task BackgroundTask) Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, existing := range b.tasks {
		if existing.Name() == task.Name() {
			return b
		}
	}
	b.tasks = append(b.tasks, task)
	return b
}

func (b *HostBuilder) AddHealthContributor(c HealthContributor) Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, existing := range b.contributors {
		if existing.ID() == c.ID() {
			return b
		}
	}
	b.contributors = append(b.contributors, c)
	return b
}

func (b *HostBuilder) Logger() core.Logger {
	return b.logger
}

// Settings merges the sources added so far. The result is cached until
// another source is added.
func (b *HostBuilder) Settings(ctx context.Context) (*Settings, error) {
	b.mu.Lock()
	if b.settings != nil && b.settingsN == len(b.sources) {
		s := b.settings
		b.mu.Unlock()
		return s, nil
	}
	sources := b.allSources()
	n := len(b.sources)
	b.mu.Unlock()

	settings, err := loadSources(ctx, sources)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.settings, b.settingsN = settings, n
	b.mu.Unlock()
	return settings, nil
}

// allSources prepends the application identity and framework defaults to
// the added sources.
// Caller holds b.mu.
func (b *HostBuilder) allSources() []ConfigSource {
	values := map[string]interface{}{
		core.KeyApplicationName:    b.name,
		core.KeyApplicationProfile: b.profile,
	}
	for k, v := range b.defaults {
		values[k] = v
	}
	identity := NewMapSource("application", values)
	sources := make([]ConfigSource, 0, len(b.sources)+1)
	sources = append(sources, identity)
	return append(sources, b.sources...)
}

// Build materializes settings and creates the host.
func (b *HostBuilder) Build(ctx context.Context) (*Host, error) {
	b.mu.Lock()
	sources := b.allSources()
	factories := make(map[string]ServiceFactory, len(b.services))
	for name, f := range b.services {
		factories[name] = f
	}
	tasks := append([]BackgroundTask(nil), b.tasks...)
	contributors := append([]HealthContributor(nil), b.contributors...)
	b.mu.Unlock()

	settings, err := loadSources(ctx, sources)
	if err != nil {
		return nil, core.NewFrameworkError("host.Build", "host", err)
	}

	h := &Host{
		name:         settings.GetStringOr(core.KeyApplicationName, b.name),
		logger:       b.logger,
		sources:      sources,
		tasks:        tasks,
		contributors: contributors,
		settings:     settings,
	}
	h.services = newServiceProvider(h, factories)

	b.logger.Info("Host built", map[string]interface{}{
		"name":                h.name,
		"config_sources":      len(sources),
		"services":            len(factories),
		"background_tasks":    len(tasks),
		"health_contributors": len(contributors),
	})
	return h, nil
}

// Sources returns config source names in load order.
func (b *HostBuilder) Sources() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, len(b.sources))
	for i, s := range b.sources {
		names[i] = s.Name()
	}
	return names
}

// Services returns service names in registration order.
func (b *HostBuilder) Services() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.serviceOrder...)
}

// Tasks returns background task names in registration order.
func (b *HostBuilder) Tasks() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, len(b.tasks))
	for i, t := range b.tasks {
		names[i] = t.Name()
	}
	return names
}

// HealthContributors returns contributor IDs, sorted.
func (b *HostBuilder) HealthContributors() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return sortedIDs(b.contributors)
}
