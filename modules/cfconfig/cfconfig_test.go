package cfconfig

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/autowire/core"
	"github.com/itsneelabh/autowire/host"
	"github.com/itsneelabh/autowire/wiring"
)

const vcapApplication = `{
  "application_id": "fa05c1a9-0fc1-4fbd-bae1-139850dec7a3",
  "application_name": "orders",
  "application_uris": ["orders.example.com", "orders-internal.example.com"],
  "limits": {"mem": 512, "disk": 1024},
  "space_name": "prod"
}`

const vcapServices = `{
  "p-mysql": [{
    "name": "orders-db",
    "label": "p-mysql",
    "tags": ["mysql"],
    "credentials": {"hostname": "10.0.0.5", "port": 3306, "username": "u", "password": "p"}
  }],
  "p.redis": [
    {"name": "cache-a", "credentials": {"host": "10.0.0.6"}},
    {"name": "cache-b", "credentials": {"host": "10.0.0.7"}}
  ]
}`

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestLoadFlattensVCAP(t *testing.T) {
	src := NewSourceFromLookup(env(map[string]string{
		core.EnvVCAPApplication: vcapApplication,
		core.EnvVCAPServices:    vcapServices,
	}))

	values, err := src.Load(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, "orders", values["vcap.application.application_name"])
	assert.Equal(t, "orders-internal.example.com", values["vcap.application.application_uris.1"])
	assert.Equal(t, float64(512), values["vcap.application.limits.mem"])
	assert.Equal(t, "orders-db", values["vcap.services.p-mysql.0.name"])
	assert.Equal(t, "mysql", values["vcap.services.p-mysql.0.tags.0"])
	assert.Equal(t, float64(3306), values["vcap.services.p-mysql.0.credentials.port"])
	assert.Equal(t, "10.0.0.7", values["vcap.services.p.redis.1.credentials.host"])
}

func TestLoadOutsideCloudFoundryIsEmpty(t *testing.T) {
	values, err := NewSourceFromLookup(env(nil)).Load(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	for _, key := range []string{core.EnvVCAPApplication, core.EnvVCAPServices} {
		_, err := NewSourceFromLookup(env(map[string]string{key: "{not json"})).Load(context.Background(), nil)
		require.Error(t, err, key)
		assert.True(t, core.IsConfigurationError(err))
	}
}

func TestActivateMergesIntoSettings(t *testing.T) {
	t.Setenv(core.EnvVCAPApplication, vcapApplication)
	t.Setenv(core.EnvVCAPServices, vcapServices)

	b := host.NewHostBuilder()
	require.NoError(t, Activate(&wiring.Activation{Builder: b}))
	assert.Equal(t, []string{SourceName}, b.Sources())

	s, err := b.Settings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "prod", s.GetString("vcap.application.space_name"))
	assert.Equal(t, "10.0.0.5", s.GetString("vcap.services.p-mysql.0.credentials.hostname"))
}

func TestActivateFailsOnMalformedEnvironment(t *testing.T) {
	t.Setenv(core.EnvVCAPServices, "[]")

	b := host.NewHostBuilder()
	err := Activate(&wiring.Activation{Builder: b})
	require.Error(t, err)
	assert.Empty(t, b.Sources())
}
