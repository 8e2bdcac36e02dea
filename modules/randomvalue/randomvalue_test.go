package randomvalue

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/autowire/host"
	"github.com/itsneelabh/autowire/wiring"
)

func TestSourceValues(t *testing.T) {
	values, err := Source{}.Load(context.Background(), nil)
	require.NoError(t, err)

	_, err = uuid.Parse(values["random.uuid"].(string))
	assert.NoError(t, err)
	assert.Len(t, values["random.value"], 32)
	assert.GreaterOrEqual(t, values["random.int"].(int), 0)
	assert.GreaterOrEqual(t, values["random.long"].(int64), int64(0))
}

func TestEachLoadDraws(t *testing.T) {
	a, err := Source{}.Load(context.Background(), nil)
	require.NoError(t, err)
	b, err := Source{}.Load(context.Background(), nil)
	require.NoError(t, err)
	assert.NotEqual(t, a["random.uuid"], b["random.uuid"])
}

func TestActivate(t *testing.T) {
	b := host.NewHostBuilder()
	require.NoError(t, Activate(&wiring.Activation{Builder: b}))
	require.NoError(t, Activate(&wiring.Activation{Builder: b}))
	assert.Equal(t, []string{SourceName}, b.Sources())

	s, err := b.Settings(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, s.GetString("random.uuid"))
}
