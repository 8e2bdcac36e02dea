// Package redis adds the Redis connector and the Redis distributed cache to
// the connector module. Importing it links go-redis and makes both present:
//
//	connector.redis       *redis.Client
//	connector.rediscache  *Cache (core.Memory), wired when go-redis/cache
//	                      is linked as well
//
// Both read the redis.client settings. The cache prefixes keys with
// rediscache.namespace, by default the application name.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/itsneelabh/autowire/capability"
	"github.com/itsneelabh/autowire/core"
	"github.com/itsneelabh/autowire/host"
	"github.com/itsneelabh/autowire/modules/connector"
	"github.com/itsneelabh/autowire/wiring"
)

// CacheName is the service and health ID of the Redis cache.
const CacheName = "connector.rediscache"

func init() {
	capability.Register(capability.ConnectorRedis, core.Version)
	wiring.RegisterActivator(wiring.KeyRedis, Activate)
	wiring.RegisterActivator(wiring.KeyRedisCache, ActivateCache)
}

// Options converts info to client options, validating the URL the same way
// the client does.
func Options(info *connector.Info) (*goredis.Options, error) {
	opt, err := goredis.ParseURL(info.URL())
	if err != nil {
		return nil, fmt.Errorf("invalid Redis connection: %v: %w", err, core.ErrInvalidConfiguration)
	}
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second
	return opt, nil
}

func parse(op string, settings *host.Settings) (*connector.Info, *goredis.Options, error) {
	info, err := connector.ParseInfo(connector.Redis, settings)
	if err != nil {
		return nil, nil, err
	}
	opt, err := Options(info)
	if err != nil {
		return nil, nil, core.ConfigError(op, "redis.client.url", err.Error(), core.ErrInvalidConfiguration)
	}
	return info, opt, nil
}

// Activate wires the Redis client. Malformed settings fail the activation;
// connecting is deferred to first use.
func Activate(a *wiring.Activation) error {
	settings, err := a.Settings()
	if err != nil {
		return err
	}
	info, opt, err := parse("redis.Activate", settings)
	if err != nil {
		return err
	}

	name := connector.ServiceName(connector.Redis)
	connector.Wire(a.Builder, info,
		func(context.Context, *host.ServiceProvider) (interface{}, error) {
			return goredis.NewClient(opt), nil
		},
		func(ctx context.Context, h *host.Host) host.HealthResult {
			client, err := host.Resolve[*goredis.Client](ctx, h.Services(), name)
			if err != nil {
				return host.Unhealthy(err)
			}
			if err := client.Ping(ctx).Err(); err != nil {
				return host.Unhealthy(err)
			}
			return host.Healthy(map[string]interface{}{"url": info.Redacted()})
		})

	a.Logger().Debug("Connector configured", map[string]interface{}{
		"connector": string(connector.Redis),
		"url":       info.Redacted(),
	})
	return nil
}

// ActivateCache wires the Redis cache.
func ActivateCache(a *wiring.Activation) error {
	settings, err := a.Settings()
	if err != nil {
		return err
	}
	_, opt, err := parse("redis.ActivateCache", settings)
	if err != nil {
		return err
	}
	namespace := settings.GetStringOr("rediscache.namespace", settings.GetString(core.KeyApplicationName))

	b := a.Builder
	b.RegisterService(CacheName, func(context.Context, *host.ServiceProvider) (interface{}, error) {
		return NewCache(goredis.NewClient(opt), namespace), nil
	})
	b.AddHealthContributor(host.NewHealthContributor(CacheName, func(ctx context.Context, h *host.Host) host.HealthResult {
		cache, err := host.Resolve[*Cache](ctx, h.Services(), CacheName)
		if err != nil {
			return host.Unhealthy(err)
		}
		if err := cache.Ping(ctx); err != nil {
			return host.Unhealthy(err)
		}
		return host.Healthy(map[string]interface{}{"namespace": namespace})
	}))
	return nil
}
