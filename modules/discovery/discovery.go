// Package discovery registers the application in a Redis backed service
// registry and keeps the registration alive while the host runs.
//
// Importing the package makes the discovery client present. Importing
// modules/discovery/web also makes the net/http integrated variant present,
// which adds a registry health contributor.
//
// Settings:
//
//	discovery.redis.url          redis://localhost:6379
//	discovery.namespace          autowire
//	discovery.ttl                30s
//	discovery.instance.host      os.Hostname()
//	discovery.instance.port      8080
//	discovery.instance.tags      []
//	discovery.instance.metadata  {}
package discovery

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/itsneelabh/autowire/capability"
	"github.com/itsneelabh/autowire/core"
	"github.com/itsneelabh/autowire/host"
	"github.com/itsneelabh/autowire/wiring"
)

const (
	// ServiceName is the service holding the *Registry.
	ServiceName = "discovery.client"
	// TaskName is the registration and heartbeat task.
	TaskName = "discovery.heartbeat"
	// HealthID identifies the registry health contributor.
	HealthID = "discovery"

	DefaultURL       = "redis://localhost:6379"
	DefaultNamespace = "autowire"
	DefaultTTL       = 30 * time.Second
	DefaultPort      = 8080
)

func init() {
	capability.Register(capability.DiscoveryClientBase, core.Version)
	wiring.RegisterActivator(wiring.KeyDiscoveryCore, Activate(true))
	wiring.RegisterActivator(wiring.KeyDiscoveryBase, Activate(false))
}

// Options is the validated discovery configuration.
type Options struct {
	URL       string
	Namespace string
	TTL       time.Duration
	Instance  Instance
}

// OptionsFromSettings reads and validates the discovery settings.
func OptionsFromSettings(s *host.Settings) (Options, error) {
	const op = "discovery.OptionsFromSettings"

	opts := Options{
		URL:       s.GetStringOr("discovery.redis.url", DefaultURL),
		Namespace: s.GetStringOr("discovery.namespace", DefaultNamespace),
		TTL:       DefaultTTL,
	}
	if _, err := redis.ParseURL(opts.URL); err != nil {
		return opts, core.ConfigError(op, "discovery.redis.url", "malformed Redis URL", core.ErrInvalidConfiguration)
	}
	if s.IsSet("discovery.ttl") {
		opts.TTL = s.GetDuration("discovery.ttl")
		if opts.TTL < time.Second {
			return opts, core.ConfigError(op, "discovery.ttl", "ttl must be at least 1s", core.ErrInvalidConfiguration)
		}
	}

	name := s.GetString(core.KeyApplicationName)
	if name == "" {
		return opts, core.ConfigError(op, core.KeyApplicationName, "application name is required for registration", core.ErrMissingConfiguration)
	}

	hostname := s.GetString("discovery.instance.host")
	if hostname == "" {
		hostname, _ = os.Hostname()
	}
	port := DefaultPort
	if s.IsSet("discovery.instance.port") {
		port = s.GetInt("discovery.instance.port")
		if port <= 0 || port > 65535 {
			return opts, core.ConfigError(op, "discovery.instance.port", fmt.Sprintf("invalid port %d", port), core.ErrInvalidConfiguration)
		}
	}

	metadata := make(map[string]string)
	for k, v := range s.Sub("discovery.instance.metadata").Flat() {
		metadata[k] = fmt.Sprint(v)
	}

	opts.Instance = Instance{
		ID:       name + "-" + uuid.NewString(),
		Name:     name,
		Host:     hostname,
		Port:     port,
		Tags:     s.GetStringSlice("discovery.instance.tags"),
		Metadata: metadata,
	}
	return opts, nil
}

// Activate returns the activator for the discovery rules. The integrated
// variant also reports registry health.
func Activate(withHealth bool) wiring.Activator {
	return func(a *wiring.Activation) error {
		settings, err := a.Settings()
		if err != nil {
			return err
		}
		opts, err := OptionsFromSettings(settings)
		if err != nil {
			return err
		}

		b := a.Builder
		b.RegisterService(ServiceName, func(ctx context.Context, sp *host.ServiceProvider) (interface{}, error) {
			client, err := Connect(ctx, opts.URL)
			if err != nil {
				return nil, err
			}
			return NewRegistry(client, opts.Namespace, opts.TTL, sp.Logger()), nil
		})
		b.AddBackgroundTask(host.NewTask(TaskName, func(ctx context.Context, h *host.Host) error {
			return maintain(ctx, h, opts.Instance)
		}))
		if withHealth {
			b.AddHealthContributor(host.NewHealthContributor(HealthID, checkHealth))
		}

		a.Logger().Debug("Discovery client configured", map[string]interface{}{
			"instance_id": opts.Instance.ID,
			"namespace":   opts.Namespace,
			"ttl":         opts.TTL.String(),
		})
		return nil
	}
}

// maintain registers inst, heartbeats at half the TTL and deregisters when
// ctx ends.
func maintain(ctx context.Context, h *host.Host, inst Instance) error {
	registry, err := host.Resolve[*Registry](ctx, h.Services(), ServiceName)
	if err != nil {
		return err
	}
	if err := registry.Register(ctx, &inst); err != nil {
		return err
	}

	ticker := time.NewTicker(registry.TTL() / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := registry.Deregister(shutdownCtx, inst.ID); err != nil {
				h.Logger().Warn("Failed to deregister on shutdown", map[string]interface{}{
					"instance_id": inst.ID,
					"error":       err.Error(),
				})
			}
			return nil
		case <-ticker.C:
			if err := registry.Heartbeat(ctx, inst.ID); err != nil && ctx.Err() == nil {
				h.Logger().Warn("Discovery heartbeat failed", map[string]interface{}{
					"instance_id": inst.ID,
					"error":       err.Error(),
				})
			}
		}
	}
}

func checkHealth(ctx context.Context, h *host.Host) host.HealthResult {
	registry, err := host.Resolve[*Registry](ctx, h.Services(), ServiceName)
	if err != nil {
		return host.Unhealthy(err)
	}
	if err := registry.Ping(ctx); err != nil {
		return host.Unhealthy(err)
	}
	return host.Healthy(map[string]interface{}{"namespace": registry.namespace})
}
