// Package actuator serves management endpoints for the host: health with
// liveness and readiness probes, application info, and for the full set the
// merged settings, logger levels and Prometheus metrics.
//
// Importing the package enables every endpoint. Importing
// modules/actuator/kubernetes instead selects the probe oriented set with a
// gRPC health server; modules/actuator/cloudfoundry selects the set Apps
// Manager reads under /cloudfoundryapplication.
//
// Settings:
//
//	management.address                           ""
//	management.port                              8090
//	management.base_path                         /actuator
//	management.endpoints.exclude                 []
//	management.endpoint.health.show_details      true
//	management.endpoint.health.readiness.include []
//	management.cors.allowed_origins              ["*"] for Cloud Foundry
//	management.shutdown_timeout                  10s
//	management.grpc.port                         0 (no listener)
//	management.grpc.sync_interval                5s
package actuator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc/health"

	"github.com/itsneelabh/autowire/capability"
	"github.com/itsneelabh/autowire/core"
	"github.com/itsneelabh/autowire/host"
	"github.com/itsneelabh/autowire/wiring"
)

const (
	AvailabilityName = "actuator.availability"
	ServerName       = "actuator.server"
	GRPCHealthName   = "actuator.grpc_health"

	ServeTask      = "actuator.serve"
	GRPCHealthTask = "actuator.grpc_health"

	DefaultPort     = 8090
	DefaultBasePath = "/actuator"

	// CloudFoundryBasePath is where Apps Manager looks for endpoints.
	CloudFoundryBasePath = "/cloudfoundryapplication"
)

// Endpoint sets.
var (
	coreEndpoints = []string{EndpointHealth, EndpointInfo}
	allEndpoints  = []string{EndpointEnv, EndpointHealth, EndpointInfo, EndpointLoggers, EndpointPrometheus}
)

func init() {
	capability.Register(capability.ManagementEndpoint, core.Version)
	wiring.RegisterActivator(wiring.KeyManagementAll, Activate(VariantAll))
	wiring.RegisterActivator(wiring.KeyManagementKubernetes, Activate(VariantKubernetes))
	wiring.RegisterActivator(wiring.KeyManagementCloudFoundry, Activate(VariantCloudFoundry))
}

// Variant selects an endpoint set.
type Variant string

const (
	VariantAll          Variant = "all"
	VariantKubernetes   Variant = "kubernetes"
	VariantCloudFoundry Variant = "cloudfoundry"
)

// Options is the validated management configuration.
type Options struct {
	Variant          Variant
	Address          string
	Port             int
	BasePaths        []string
	Endpoints        []string
	ShowDetails      bool
	ReadinessInclude []string
	CORS             CORSConfig
	ShutdownTimeout  time.Duration
	GRPCPort         int
	GRPCSyncInterval time.Duration
}

// OptionsFromSettings reads and validates the management settings for v.
func OptionsFromSettings(s *host.Settings, v Variant) (Options, error) {
	const op = "actuator.OptionsFromSettings"

	opts := Options{
		Variant:          v,
		Address:          s.GetString("management.address"),
		Port:             DefaultPort,
		ShowDetails:      true,
		ReadinessInclude: s.GetStringSlice("management.endpoint.health.readiness.include"),
		CORS:             DefaultCORSConfig(),
		ShutdownTimeout:  s.GetDurationOr("management.shutdown_timeout", 10*time.Second),
		GRPCSyncInterval: s.GetDurationOr("management.grpc.sync_interval", 5*time.Second),
	}
	if s.IsSet("management.port") {
		opts.Port = s.GetInt("management.port")
		if opts.Port < 0 || opts.Port > 65535 {
			return opts, core.ConfigError(op, "management.port", fmt.Sprintf("invalid port %d", opts.Port), core.ErrInvalidConfiguration)
		}
	}
	if s.IsSet("management.endpoint.health.show_details") {
		opts.ShowDetails = s.GetBool("management.endpoint.health.show_details")
	}

	base := strings.TrimRight(s.GetStringOr("management.base_path", DefaultBasePath), "/")
	if !strings.HasPrefix(base, "/") {
		return opts, core.ConfigError(op, "management.base_path", "base path must start with / and not be the root", core.ErrInvalidConfiguration)
	}
	opts.BasePaths = []string{base}

	endpoints := allEndpoints
	switch v {
	case VariantKubernetes:
		endpoints = coreEndpoints
		if s.IsSet("management.grpc.port") {
			opts.GRPCPort = s.GetInt("management.grpc.port")
			if opts.GRPCPort < 0 || opts.GRPCPort > 65535 {
				return opts, core.ConfigError(op, "management.grpc.port", fmt.Sprintf("invalid port %d", opts.GRPCPort), core.ErrInvalidConfiguration)
			}
		}
		if opts.GRPCSyncInterval <= 0 {
			return opts, core.ConfigError(op, "management.grpc.sync_interval", "sync interval must be positive", core.ErrInvalidConfiguration)
		}
	case VariantCloudFoundry:
		endpoints = coreEndpoints
		if base != CloudFoundryBasePath {
			opts.BasePaths = append(opts.BasePaths, CloudFoundryBasePath)
		}
		opts.CORS.Enabled = true
		opts.CORS.AllowedOrigins = []string{"*"}
	}
	if s.IsSet("management.cors.allowed_origins") {
		opts.CORS.Enabled = true
		opts.CORS.AllowedOrigins = s.GetStringSlice("management.cors.allowed_origins")
	}

	exclude := make(map[string]bool)
	for _, id := range s.GetStringSlice("management.endpoints.exclude") {
		exclude[strings.ToLower(id)] = true
	}
	for _, id := range endpoints {
		if !exclude[id] {
			opts.Endpoints = append(opts.Endpoints, id)
		}
	}
	opts.Endpoints = sortedEndpoints(opts.Endpoints)
	return opts, nil
}

// Activate returns the activator for one endpoint set.
func Activate(v Variant) wiring.Activator {
	return func(a *wiring.Activation) error {
		settings, err := a.Settings()
		if err != nil {
			return err
		}
		opts, err := OptionsFromSettings(settings, v)
		if err != nil {
			return err
		}

		b := a.Builder
		b.RegisterService(AvailabilityName, func(context.Context, *host.ServiceProvider) (interface{}, error) {
			return NewAvailability(), nil
		})
		b.RegisterService(ServerName, func(_ context.Context, sp *host.ServiceProvider) (interface{}, error) {
			return NewServer(fmt.Sprintf("%s:%d", opts.Address, opts.Port), sp.Logger()), nil
		})
		b.AddBackgroundTask(host.NewTask(ServeTask, func(ctx context.Context, h *host.Host) error {
			return serve(ctx, h, opts)
		}))
		b.AddHealthContributor(livenessContributor())
		b.AddHealthContributor(readinessContributor())

		if v == VariantKubernetes {
			b.RegisterService(GRPCHealthName, func(context.Context, *host.ServiceProvider) (interface{}, error) {
				return health.NewServer(), nil
			})
			b.AddBackgroundTask(host.NewTask(GRPCHealthTask, func(ctx context.Context, h *host.Host) error {
				return serveGRPCHealth(ctx, h, opts)
			}))
		}

		a.Logger().Debug("Management endpoints configured", map[string]interface{}{
			"variant":    string(v),
			"port":       opts.Port,
			"base_paths": opts.BasePaths,
			"endpoints":  opts.Endpoints,
		})
		return nil
	}
}
