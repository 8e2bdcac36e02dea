package actuator

import (
	"context"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/itsneelabh/autowire/core"
	"github.com/itsneelabh/autowire/host"
)

// gRPC health service names. The empty name is the overall status that
// grpc_health_probe queries by default.
const (
	GRPCOverall   = ""
	GRPCLiveness  = "liveness"
	GRPCReadiness = "readiness"
)

func servingStatus(s core.HealthStatus) healthpb.HealthCheckResponse_ServingStatus {
	switch s {
	case core.HealthHealthy, core.HealthDegraded:
		return healthpb.HealthCheckResponse_SERVING
	case core.HealthUnknown:
		return healthpb.HealthCheckResponse_UNKNOWN
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}

// syncGRPCHealth copies the host health into hs.
func syncGRPCHealth(ctx context.Context, h *host.Host, hs *health.Server) {
	var ids []string
	for _, id := range h.HealthContributors() {
		if id != LivenessID && id != ReadinessID {
			ids = append(ids, id)
		}
	}
	hs.SetServingStatus(GRPCOverall, servingStatus(h.HealthOf(ctx, ids...).Status))
	hs.SetServingStatus(GRPCLiveness, servingStatus(h.HealthOf(ctx, LivenessID).Status))
	hs.SetServingStatus(GRPCReadiness, servingStatus(h.HealthOf(ctx, ReadinessID).Status))
}

// serveGRPCHealth keeps the gRPC health server in sync with the host and,
// when a port is configured, serves it.
func serveGRPCHealth(ctx context.Context, h *host.Host, opts Options) error {
	hs, err := host.Resolve[*health.Server](ctx, h.Services(), GRPCHealthName)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	var gs *grpc.Server
	if opts.GRPCPort > 0 {
		addr := fmt.Sprintf("%s:%d", opts.Address, opts.GRPCPort)
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		gs = grpc.NewServer()
		healthpb.RegisterHealthServer(gs, hs)
		h.Logger().Info("Starting gRPC health server", map[string]interface{}{
			"address": ln.Addr().String(),
		})
		go func() { errCh <- gs.Serve(ln) }()
	}

	syncGRPCHealth(ctx, h, hs)
	ticker := time.NewTicker(opts.GRPCSyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			if gs != nil {
				gs.GracefulStop()
			}
			return nil
		case err := <-errCh:
			return fmt.Errorf("gRPC health server: %w", err)
		case <-ticker.C:
			syncGRPCHealth(ctx, h, hs)
		}
	}
}
