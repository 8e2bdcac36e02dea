// Package configserver adds a remote configuration source backed by a
// Spring Cloud Config compatible server.
//
// Settings:
//
//	config.server.uri            http://localhost:8888
//	config.server.name           application.name
//	config.server.profile        application.profile
//	config.server.label
//	config.server.username
//	config.server.password
//	config.server.fail_fast      false
//	config.server.timeout        6s
//	config.server.poll_interval  0 (no refresh)
package configserver

import (
	"context"
	"sync"
	"time"

	"github.com/itsneelabh/autowire/capability"
	"github.com/itsneelabh/autowire/core"
	"github.com/itsneelabh/autowire/host"
	"github.com/itsneelabh/autowire/wiring"
)

const (
	SourceName  = "configserver"
	ServiceName = "configserver.client"
	TaskName    = "configserver.refresh"
	HealthID    = "configserver"

	DefaultURI     = "http://localhost:8888"
	DefaultTimeout = 6 * time.Second
)

func init() {
	capability.Register(capability.ConfigServerBase, core.Version)
	wiring.RegisterActivator(wiring.KeyConfigServer, Activate)
}

// OptionsFromSettings reads the config.server settings.
func OptionsFromSettings(s *host.Settings) Options {
	return Options{
		URI:          s.GetStringOr("config.server.uri", DefaultURI),
		Label:        s.GetString("config.server.label"),
		Username:     s.GetString("config.server.username"),
		Password:     s.GetString("config.server.password"),
		FailFast:     s.GetBool("config.server.fail_fast"),
		Timeout:      s.GetDurationOr("config.server.timeout", DefaultTimeout),
		PollInterval: s.GetDuration("config.server.poll_interval"),
	}
}

// Source loads the application's environment from the server. Without
// fail-fast an unreachable server logs a warning and the last fetched
// values stay in effect.
type Source struct {
	client   *Client
	failFast bool
	logger   core.Logger

	mu      sync.Mutex
	last    map[string]interface{}
	version string
}

// NewSource creates a source over client.
func NewSource(client *Client, failFast bool, logger core.Logger) *Source {
	return &Source{client: client, failFast: failFast, logger: core.LoggerOrNoOp(logger)}
}

func (s *Source) Name() string { return SourceName }

func (s *Source) Load(ctx context.Context, prior *host.Settings) (map[string]interface{}, error) {
	name := prior.GetStringOr("config.server.name", prior.GetString(core.KeyApplicationName))
	profile := prior.GetStringOr("config.server.profile", prior.GetString(core.KeyApplicationProfile))

	env, err := s.client.Fetch(ctx, name, profile)
	if err != nil {
		if s.failFast {
			return nil, core.NewFrameworkError("configserver.Load", "config", err)
		}
		s.logger.Warn("Config server unavailable, keeping previous values", map[string]interface{}{
			"uri":   s.client.URI(),
			"error": err.Error(),
		})
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.last, nil
	}

	values := env.Flatten()
	s.mu.Lock()
	changed := s.version != env.Version
	s.last, s.version = values, env.Version
	s.mu.Unlock()

	if changed {
		s.logger.Debug("Loaded configuration from config server", map[string]interface{}{
			"uri":              s.client.URI(),
			"name":             name,
			"profile":          profile,
			"version":          env.Version,
			"property_sources": len(env.PropertySources),
		})
	}
	return values, nil
}

// Version returns the version of the last successful fetch.
func (s *Source) Version() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Activate wires the config server source, its client service, a health
// contributor and, with a poll interval, a refresh task.
func Activate(a *wiring.Activation) error {
	settings, err := a.Settings()
	if err != nil {
		return err
	}
	opts := OptionsFromSettings(settings)

	client, err := NewClient(opts.URI, opts)
	if err != nil {
		return core.ConfigError("configserver.Activate", "config.server.uri", "malformed config server uri", core.ErrInvalidConfiguration)
	}
	if opts.PollInterval < 0 {
		return core.ConfigError("configserver.Activate", "config.server.poll_interval", "poll interval must not be negative", core.ErrInvalidConfiguration)
	}

	b := a.Builder
	b.AddConfigSource(NewSource(client, opts.FailFast, a.Logger()))
	b.RegisterService(ServiceName, func(context.Context, *host.ServiceProvider) (interface{}, error) {
		return client, nil
	})
	b.AddHealthContributor(host.NewHealthContributor(HealthID, func(ctx context.Context, h *host.Host) host.HealthResult {
		s := h.Settings()
		env, err := client.Fetch(ctx,
			s.GetStringOr("config.server.name", s.GetString(core.KeyApplicationName)),
			s.GetStringOr("config.server.profile", s.GetString(core.KeyApplicationProfile)))
		if err != nil {
			return host.Unhealthy(err)
		}
		return host.Healthy(map[string]interface{}{
			"uri":              client.URI(),
			"version":          env.Version,
			"property_sources": len(env.PropertySources),
		})
	}))
	if opts.PollInterval > 0 {
		b.AddBackgroundTask(host.NewPeriodicTask(TaskName, opts.PollInterval, func(ctx context.Context, h *host.Host) error {
			return h.Reload(ctx)
		}))
	}
	return nil
}
