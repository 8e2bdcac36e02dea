package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/autowire/capability"
	"github.com/itsneelabh/autowire/core"
	"github.com/itsneelabh/autowire/host"
	"github.com/itsneelabh/autowire/modules/connector"
	"github.com/itsneelabh/autowire/wiring"
)

func newBuilder(values map[string]interface{}) *host.HostBuilder {
	b := host.NewHostBuilder(host.WithName("orders"))
	b.AddConfigSource(host.NewMapSource("defaults", values))
	return b
}

func run(t *testing.T, b *host.HostBuilder, fn wiring.Activator) *host.Host {
	t.Helper()
	require.NoError(t, fn(&wiring.Activation{Builder: b}))
	h, err := b.Build(context.Background())
	require.NoError(t, err)
	return h
}

var redisName = connector.ServiceName(connector.Redis)

func TestRedisConnector(t *testing.T) {
	mr := miniredis.RunT(t)
	b := newBuilder(map[string]interface{}{"redis.client.url": "redis://" + mr.Addr()})
	h := run(t, b, Activate)
	assert.Equal(t, []string{connector.InfoName(connector.Redis), redisName}, b.Services())

	client, err := host.Resolve[*goredis.Client](context.Background(), h.Services(), redisName)
	require.NoError(t, err)
	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	v, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	assert.Equal(t, core.HealthHealthy, h.Health(context.Background()).Components[redisName].Status)
	mr.Close()
	assert.Equal(t, core.HealthUnhealthy, h.Health(context.Background()).Components[redisName].Status)
}

func TestRedisConnectorRejectsForeignScheme(t *testing.T) {
	b := newBuilder(map[string]interface{}{"redis.client.url": "http://cache:6379"})
	err := Activate(&wiring.Activation{Builder: b})
	require.Error(t, err)
	assert.True(t, core.IsConfigurationError(err))
	assert.Empty(t, b.Services())
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	b := newBuilder(map[string]interface{}{"redis.client.url": "redis://" + mr.Addr()})
	h := run(t, b, ActivateCache)
	assert.Equal(t, []string{CacheName}, b.Services())

	memory, err := host.Resolve[core.Memory](ctx, h.Services(), CacheName)
	require.NoError(t, err)

	v, err := memory.Get(ctx, "session")
	require.NoError(t, err)
	assert.Empty(t, v, "a missing key reads as empty")

	require.NoError(t, memory.Set(ctx, "session", "abc", 0))
	stored, err := mr.Get("orders:session")
	require.NoError(t, err)
	assert.Equal(t, "abc", stored, "keys are namespaced by application name")

	ok, err := memory.Exists(ctx, "session")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, memory.Delete(ctx, "session"))
	ok, err = memory.Exists(ctx, "session")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, core.HealthHealthy, h.Health(ctx).Components[CacheName].Status)
}

func TestRedisCacheNamespaceSetting(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	h := run(t, newBuilder(map[string]interface{}{
		"redis.client.url":     "redis://" + mr.Addr(),
		"rediscache.namespace": "sessions",
	}), ActivateCache)

	cache, err := host.Resolve[*Cache](ctx, h.Services(), CacheName)
	require.NoError(t, err)
	require.NoError(t, cache.Set(ctx, "k", "v", 0))
	assert.True(t, mr.Exists("sessions:k"))
}

func TestImportingMakesRedisConnectorPresent(t *testing.T) {
	assert.True(t, capability.Default().Loaded(capability.ConnectorRedis))

	reg := capability.NewRegistry(capability.StaticSource(
		capability.ConnectorCore,
		capability.ConnectorRedis,
		"github.com/go-redis/redis/v8",
	))
	rec := host.NewRecorder(newBuilder(nil))
	report, err := wiring.New(wiring.WithRegistry(reg)).Compose(rec, nil, nil)
	require.NoError(t, err)

	assert.Contains(t, report.Activated(), "redis")
	assert.NotContains(t, report.Activated(), "redis-cache", "the cache also needs go-redis/cache")
	assert.Contains(t, rec.Named(host.MutationService), redisName)
}
