package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/autowire/core"
	"github.com/itsneelabh/autowire/host"
	"github.com/itsneelabh/autowire/wiring"
)

func activate(t *testing.T, withHealth bool, values map[string]interface{}) (*host.HostBuilder, error) {
	t.Helper()
	b := host.NewHostBuilder(host.WithName("orders"))
	b.AddConfigSource(host.NewMapSource("test", values))
	err := Activate(withHealth)(&wiring.Activation{Rule: "discovery", Capability: "Service discovery", Builder: b})
	return b, err
}

func TestOptionsFromSettings(t *testing.T) {
	s, err := host.SettingsFromMap(map[string]interface{}{
		core.KeyApplicationName:             "orders",
		"discovery.namespace":               "prod",
		"discovery.ttl":                     "1m",
		"discovery.instance.host":           "10.1.2.3",
		"discovery.instance.port":           9000,
		"discovery.instance.tags":           []string{"blue"},
		"discovery.instance.metadata.zone":  "a",
		"discovery.instance.metadata.build": 42,
	})
	require.NoError(t, err)

	opts, err := OptionsFromSettings(s)
	require.NoError(t, err)
	assert.Equal(t, DefaultURL, opts.URL)
	assert.Equal(t, "prod", opts.Namespace)
	assert.Equal(t, time.Minute, opts.TTL)
	assert.Equal(t, "orders", opts.Instance.Name)
	assert.Contains(t, opts.Instance.ID, "orders-")
	assert.Equal(t, "10.1.2.3", opts.Instance.Host)
	assert.Equal(t, 9000, opts.Instance.Port)
	assert.Equal(t, []string{"blue"}, opts.Instance.Tags)
	assert.Equal(t, map[string]string{"zone": "a", "build": "42"}, opts.Instance.Metadata)
}

func TestOptionsFromSettingsRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]interface{}
		key    string
	}{
		{"malformed url", map[string]interface{}{"discovery.redis.url": "http://nope"}, "discovery.redis.url"},
		{"short ttl", map[string]interface{}{"discovery.ttl": "10ms"}, "discovery.ttl"},
		{"bad port", map[string]interface{}{"discovery.instance.port": 70000}, "discovery.instance.port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := activate(t, false, tt.values)
			require.Error(t, err)
			assert.True(t, core.IsConfigurationError(err))
			var fe *core.FrameworkError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.key, fe.ID)
		})
	}
}

func TestActivateBaseVariant(t *testing.T) {
	b, err := activate(t, false, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{ServiceName}, b.Services())
	assert.Equal(t, []string{TaskName}, b.Tasks())
	assert.Empty(t, b.HealthContributors())
}

func TestActivateIntegratedVariantAddsHealth(t *testing.T) {
	b, err := activate(t, true, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{HealthID}, b.HealthContributors())
}

func TestHostRegistersAndDeregisters(t *testing.T) {
	mr := miniredis.RunT(t)
	b, err := activate(t, true, map[string]interface{}{
		"discovery.redis.url": "redis://" + mr.Addr(),
		"discovery.namespace": "it",
		"discovery.ttl":       "2s",
	})
	require.NoError(t, err)

	h, err := b.Build(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	assert.Eventually(t, func() bool {
		for _, k := range mr.Keys() {
			if k == "it:names:orders" {
				return true
			}
		}
		return false
	}, 2*time.Second, 20*time.Millisecond)

	report := h.Health(context.Background())
	assert.Equal(t, core.HealthHealthy, report.Components[HealthID].Status)

	cancel()
	require.NoError(t, <-done)

	for _, k := range mr.Keys() {
		assert.NotContains(t, k, "it:instances:")
	}
}

func TestHealthReportsUnreachableRegistry(t *testing.T) {
	mr := miniredis.RunT(t)
	b, err := activate(t, true, map[string]interface{}{"discovery.redis.url": "redis://" + mr.Addr()})
	require.NoError(t, err)
	h, err := b.Build(context.Background())
	require.NoError(t, err)

	mr.Close()
	report := h.Health(context.Background())
	assert.Equal(t, core.HealthUnhealthy, report.Components[HealthID].Status)
}
