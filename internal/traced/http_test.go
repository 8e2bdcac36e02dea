package traced

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
	return recorder
}

func TestMiddlewareCreatesSpans(t *testing.T) {
	recorder := installRecorder(t)
	handler := Middleware("orders", &MiddlewareConfig{ExcludedPaths: []string{"/actuator/health"}})(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }),
	)

	for _, path := range []string{"/api/orders", "/actuator/health"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}

	spans := recorder.Ended()
	require.Len(t, spans, 1, "excluded paths are not traced")
	assert.Equal(t, "HTTP GET /api/orders", spans[0].Name())
}

func TestMiddlewareSpanNameFormatter(t *testing.T) {
	recorder := installRecorder(t)
	handler := Middleware("orders", &MiddlewareConfig{
		SpanNameFormatter: func(_ string, r *http.Request) string { return "custom " + r.Method },
	})(http.NotFoundHandler())

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/x", nil))

	require.Len(t, recorder.Ended(), 1)
	assert.Equal(t, "custom POST", recorder.Ended()[0].Name())
}

func TestHTTPClientPropagatesContext(t *testing.T) {
	installRecorder(t)

	var traceparent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceparent = r.Header.Get("traceparent")
	}))
	defer srv.Close()

	ctx, span := otel.Tracer("test").Start(context.Background(), "parent")
	defer span.End()

	client := NewHTTPClient(nil, 5*time.Second)
	assert.Equal(t, 5*time.Second, client.Timeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Contains(t, traceparent, span.SpanContext().TraceID().String())
}
