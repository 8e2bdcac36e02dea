// Package tracing installs an OpenTelemetry TracerProvider as the global
// provider and flushes it when the host stops.
//
// Importing modules/tracing/web also registers an HTTP middleware service
// that the management endpoints wrap their handler with.
//
// Settings:
//
//	tracing.exporter             otlp | stdout | none (otlp)
//	tracing.otlp.endpoint        $OTEL_EXPORTER_OTLP_ENDPOINT or localhost:4317
//	tracing.otlp.insecure        true
//	tracing.sampling.ratio       1.0
//	tracing.service_name         application.name
//	tracing.http.excluded_paths  probe endpoints
package tracing

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/itsneelabh/autowire/capability"
	"github.com/itsneelabh/autowire/core"
	"github.com/itsneelabh/autowire/host"
	"github.com/itsneelabh/autowire/internal/traced"
	"github.com/itsneelabh/autowire/wiring"
)

const (
	// ServiceName is the service holding the *Provider.
	ServiceName = "tracing.provider"
	// MiddlewareName is the service holding a func(http.Handler) http.Handler.
	MiddlewareName = "tracing.http_middleware"
	// TaskName flushes pending spans on shutdown.
	TaskName = "tracing.flush"

	ExporterOTLP   = "otlp"
	ExporterStdout = "stdout"
	ExporterNone   = "none"

	DefaultEndpoint = "localhost:4317"
)

// DefaultExcludedPaths are not traced by the HTTP middleware.
var DefaultExcludedPaths = []string{
	"/actuator/health/liveness",
	"/actuator/health/readiness",
}

func init() {
	capability.Register(capability.TracingBase, core.Version)
	wiring.RegisterActivator(wiring.KeyTracingCore, Activate(true))
	wiring.RegisterActivator(wiring.KeyTracingBase, Activate(false))
}

// Options is the validated tracing configuration.
type Options struct {
	ServiceName   string
	Exporter      string
	Endpoint      string
	Insecure      bool
	SamplingRatio float64
	ExcludedPaths []string
}

// OptionsFromSettings reads and validates the tracing settings.
func OptionsFromSettings(s *host.Settings) (Options, error) {
	const op = "tracing.OptionsFromSettings"

	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	opts := Options{
		ServiceName:   s.GetStringOr("tracing.service_name", s.GetStringOr(core.KeyApplicationName, "autowire-app")),
		Exporter:      strings.ToLower(s.GetStringOr("tracing.exporter", ExporterOTLP)),
		Endpoint:      s.GetStringOr("tracing.otlp.endpoint", endpoint),
		Insecure:      true,
		SamplingRatio: 1.0,
		ExcludedPaths: DefaultExcludedPaths,
	}
	switch opts.Exporter {
	case ExporterOTLP, ExporterStdout, ExporterNone:
	default:
		return opts, core.ConfigError(op, "tracing.exporter", fmt.Sprintf("unknown exporter %q", opts.Exporter), core.ErrInvalidConfiguration)
	}
	if s.IsSet("tracing.otlp.insecure") {
		opts.Insecure = s.GetBool("tracing.otlp.insecure")
	}
	if s.IsSet("tracing.sampling.ratio") {
		opts.SamplingRatio = s.GetFloat64("tracing.sampling.ratio")
		if opts.SamplingRatio < 0 || opts.SamplingRatio > 1 {
			return opts, core.ConfigError(op, "tracing.sampling.ratio", "ratio must be between 0 and 1", core.ErrInvalidConfiguration)
		}
	}
	if s.IsSet("tracing.http.excluded_paths") {
		opts.ExcludedPaths = s.GetStringSlice("tracing.http.excluded_paths")
	}
	return opts, nil
}

// newExporter is replaced in tests.
var newExporter = func(ctx context.Context, opts Options) (sdktrace.SpanExporter, error) {
	switch opts.Exporter {
	case ExporterOTLP:
		grpcOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(opts.Endpoint)}
		if opts.Insecure {
			grpcOpts = append(grpcOpts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, grpcOpts...)
	case ExporterStdout:
		return stdouttrace.New(stdouttrace.WithWriter(os.Stdout))
	}
	return nil, nil
}

// Provider owns the process TracerProvider.
type Provider struct {
	tp       *sdktrace.TracerProvider
	exporter string
}

// NewProvider creates a TracerProvider and installs it, with W3C trace
// context and baggage propagation, as the global provider.
func NewProvider(ctx context.Context, opts Options) (*Provider, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceNameKey.String(opts.ServiceName),
			semconv.ServiceVersionKey.String(core.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := newExporter(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s exporter: %w", opts.Exporter, err)
	}

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(opts.SamplingRatio))),
	}
	if exporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
	}
	tp := sdktrace.NewTracerProvider(tpOpts...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return &Provider{tp: tp, exporter: opts.Exporter}, nil
}

// Tracer returns a named tracer.
func (p *Provider) Tracer(name string) trace.Tracer {
	return p.tp.Tracer(name)
}

// Exporter returns the configured exporter name.
func (p *Provider) Exporter() string { return p.exporter }

// ForceFlush exports every finished span.
func (p *Provider) ForceFlush(ctx context.Context) error {
	return p.tp.ForceFlush(ctx)
}

// Close shuts the provider down, exporting pending spans.
func (p *Provider) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return p.tp.Shutdown(ctx)
}

// Activate returns the activator for the tracing rules. The integrated
// variant also registers the HTTP middleware.
func Activate(withHTTP bool) wiring.Activator {
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
		b.RegisterService(ServiceName, func(ctx context.Context, _ *host.ServiceProvider) (interface{}, error) {
			return NewProvider(ctx, opts)
		})
		b.AddBackgroundTask(host.NewTask(TaskName, flushOnShutdown))
		if withHTTP {
			b.RegisterService(MiddlewareName, func(ctx context.Context, sp *host.ServiceProvider) (interface{}, error) {
				if _, err := sp.Get(ctx, ServiceName); err != nil {
					return nil, err
				}
				return traced.Middleware(opts.ServiceName, &traced.MiddlewareConfig{ExcludedPaths: opts.ExcludedPaths}), nil
			})
		}

		a.Logger().Debug("Tracing configured", map[string]interface{}{
			"exporter":       opts.Exporter,
			"sampling_ratio": opts.SamplingRatio,
			"http":           withHTTP,
		})
		return nil
	}
}

// flushOnShutdown installs the provider when the host starts and flushes it
// when the host stops.
func flushOnShutdown(ctx context.Context, h *host.Host) error {
	provider, err := host.Resolve[*Provider](ctx, h.Services(), ServiceName)
	if err != nil {
		return err
	}
	<-ctx.Done()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := provider.ForceFlush(flushCtx); err != nil {
		h.Logger().Warn("Failed to flush spans", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return nil
}

// Middleware is the type of the MiddlewareName service.
type Middleware = func(http.Handler) http.Handler
