package dynlog

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/autowire/core"
	"github.com/itsneelabh/autowire/host"
	"github.com/itsneelabh/autowire/wiring"
)

func TestCategoryInheritsLongestPrefix(t *testing.T) {
	p, err := NewProvider(&bytes.Buffer{}, "", map[string]string{
		"default":         "warn",
		"connector":       "debug",
		"connector.redis": "error",
	})
	require.NoError(t, err)

	tests := []struct {
		category string
		want     string
	}{
		{"connector", "debug"},
		{"connector.mysql", "debug"},
		{"connector.redis", "error"},
		{"connector.redis.pool", "error"},
		{"discovery", "warn"},
		{"connectors", "warn"},
	}
	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			assert.Equal(t, tt.want, p.EffectiveLevel(tt.category))
		})
	}
}

func TestLoggerFollowsRuntimeChanges(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewProvider(&buf, "", nil)
	require.NoError(t, err)

	l := p.Logger("discovery")
	l.Debug("hidden", nil)
	assert.Empty(t, buf.String())

	require.NoError(t, p.SetLevel("discovery", "debug"))
	l.Debug("shown", map[string]interface{}{"instance_id": "orders-1"})
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "orders-1")
	assert.Contains(t, buf.String(), "discovery")

	buf.Reset()
	p.ResetLevel("discovery")
	l.Debug("hidden again", nil)
	assert.Empty(t, buf.String())
}

func TestOffSilencesCategory(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewProvider(&buf, "json", map[string]string{"noisy": "off"})
	require.NoError(t, err)

	p.Logger("noisy.child").Error("boom", nil)
	assert.Empty(t, buf.String())

	p.Logger("quiet").Error("boom", nil)
	assert.Contains(t, buf.String(), `"msg":"boom"`)
}

func TestSetLevelRejectsUnknownLevel(t *testing.T) {
	p, err := NewProvider(&bytes.Buffer{}, "", nil)
	require.NoError(t, err)
	assert.ErrorIs(t, p.SetLevel("x", "loud"), core.ErrInvalidConfiguration)
}

func TestLevelsReportsConfiguredAndRequested(t *testing.T) {
	p, err := NewProvider(&bytes.Buffer{}, "", map[string]string{"connector": "warn"})
	require.NoError(t, err)
	p.Logger("connector.redis")
	require.NoError(t, p.SetLevel("actuator", "debug"))

	levels := p.Levels()
	assert.Equal(t, core.LevelInfo{Configured: "info", Effective: "info"}, levels["default"])
	assert.Equal(t, core.LevelInfo{Configured: "warn", Effective: "warn"}, levels["connector"])
	assert.Equal(t, core.LevelInfo{Effective: "warn"}, levels["connector.redis"])
	assert.Equal(t, core.LevelInfo{Effective: "debug"}, levels["actuator"])
	assert.Equal(t, []string{"actuator", "connector", "connector.redis", "default"}, p.Categories())
}

func TestActivate(t *testing.T) {
	b := host.NewHostBuilder()
	b.AddConfigSource(host.NewMapSource("test", map[string]interface{}{
		"logging.level.default":   "debug",
		"logging.level.discovery": "error",
	}))
	require.NoError(t, Activate(&wiring.Activation{Builder: b}))
	assert.Equal(t, []string{ServiceName}, b.Services())

	h, err := b.Build(context.Background())
	require.NoError(t, err)
	p, err := host.Resolve[*Provider](context.Background(), h.Services(), ServiceName)
	require.NoError(t, err)
	assert.Equal(t, "debug", p.EffectiveLevel("anything"))
	assert.Equal(t, "error", p.EffectiveLevel("discovery"))
}

func TestActivateRejectsMalformedLevel(t *testing.T) {
	b := host.NewHostBuilder()
	b.AddConfigSource(host.NewMapSource("test", map[string]interface{}{"logging.level.discovery": "chatty"}))

	err := Activate(&wiring.Activation{Builder: b})
	require.Error(t, err)
	var fe *core.FrameworkError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "logging.level.discovery", fe.ID)
	assert.Empty(t, b.Services())
}
