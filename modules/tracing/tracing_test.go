package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/itsneelabh/autowire/core"
	"github.com/itsneelabh/autowire/host"
	"github.com/itsneelabh/autowire/wiring"
)

// useMemoryExporter routes every provider created by the test to an
// in-memory exporter and restores the globals afterwards.
func useMemoryExporter(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	prevExporter := newExporter
	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	newExporter = func(context.Context, Options) (sdktrace.SpanExporter, error) { return keepSpans{exporter}, nil }
	t.Cleanup(func() {
		newExporter = prevExporter
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
	return exporter
}

// keepSpans survives provider shutdown so tests can inspect spans after the
// host closed its services.
type keepSpans struct {
	*tracetest.InMemoryExporter
}

func (keepSpans) Shutdown(context.Context) error { return nil }

func activate(t *testing.T, withHTTP bool, values map[string]interface{}) (*host.HostBuilder, error) {
	t.Helper()
	b := host.NewHostBuilder(host.WithName("orders"))
	b.AddConfigSource(host.NewMapSource("test", values))
	return b, Activate(withHTTP)(&wiring.Activation{Builder: b})
}

func TestOptionsDefaults(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	s, err := host.SettingsFromMap(map[string]interface{}{core.KeyApplicationName: "orders"})
	require.NoError(t, err)

	opts, err := OptionsFromSettings(s)
	require.NoError(t, err)
	assert.Equal(t, "orders", opts.ServiceName)
	assert.Equal(t, ExporterOTLP, opts.Exporter)
	assert.Equal(t, DefaultEndpoint, opts.Endpoint)
	assert.True(t, opts.Insecure)
	assert.Equal(t, 1.0, opts.SamplingRatio)
	assert.Equal(t, DefaultExcludedPaths, opts.ExcludedPaths)
}

func TestOptionsEndpointFromEnvironment(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	opts, err := OptionsFromSettings(host.NewSettings())
	require.NoError(t, err)
	assert.Equal(t, "collector:4317", opts.Endpoint)
}

func TestActivateRejectsBadSettings(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]interface{}
		key    string
	}{
		{"exporter", map[string]interface{}{"tracing.exporter": "zipkin"}, "tracing.exporter"},
		{"ratio", map[string]interface{}{"tracing.sampling.ratio": 1.5}, "tracing.sampling.ratio"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := activate(t, true, tt.values)
			require.Error(t, err)
			assert.True(t, core.IsConfigurationError(err))
			var fe *core.FrameworkError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.key, fe.ID)
			assert.Empty(t, b.Services())
		})
	}
}

func TestBaseVariantHasNoMiddleware(t *testing.T) {
	b, err := activate(t, false, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{ServiceName}, b.Services())
	assert.Equal(t, []string{TaskName}, b.Tasks())
}

func TestMiddlewareExportsSpans(t *testing.T) {
	exporter := useMemoryExporter(t)
	b, err := activate(t, true, map[string]interface{}{"tracing.exporter": "stdout"})
	require.NoError(t, err)
	assert.Equal(t, []string{ServiceName, MiddlewareName}, b.Services())

	h, err := b.Build(context.Background())
	require.NoError(t, err)
	mw, err := host.Resolve[Middleware](context.Background(), h.Services(), MiddlewareName)
	require.NoError(t, err)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }))
	for _, path := range []string{"/orders", "/actuator/health/liveness"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	provider, err := host.Resolve[*Provider](context.Background(), h.Services(), ServiceName)
	require.NoError(t, err)
	require.NoError(t, provider.ForceFlush(context.Background()))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "HTTP GET /orders", spans[0].Name)
	require.NoError(t, provider.Close())
}

func TestZeroRatioSamplesNothing(t *testing.T) {
	exporter := useMemoryExporter(t)
	provider, err := NewProvider(context.Background(), Options{ServiceName: "orders", SamplingRatio: 0})
	require.NoError(t, err)
	defer provider.Close()

	_, span := provider.Tracer("test").Start(context.Background(), "ignored")
	span.End()
	require.NoError(t, provider.ForceFlush(context.Background()))
	assert.Empty(t, exporter.GetSpans())
}

func TestHostRunFlushesOnShutdown(t *testing.T) {
	exporter := useMemoryExporter(t)
	b, err := activate(t, false, nil)
	require.NoError(t, err)
	h, err := b.Build(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, err := host.Resolve[*Provider](context.Background(), h.Services(), ServiceName)
		return err == nil
	}, time.Second, 10*time.Millisecond)

	_, span := otel.Tracer("test").Start(context.Background(), "work")
	span.End()

	cancel()
	require.NoError(t, <-done)
	assert.Len(t, exporter.GetSpans(), 1)
}
