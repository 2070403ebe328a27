package httpapi

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"lifedrop.org/internal/obs"
)

// HealthServer reports the daemon's readiness over the standard gRPC health
// protocol, both for the empty service name and for serviceName.
type HealthServer struct {
	*health.Server
	readiness readinessChecker
}

// NewGRPCServer creates a gRPC server with the health service registered.
func NewGRPCServer(r readinessChecker, opts ...grpc.ServerOption) (*grpc.Server, *HealthServer) {
	hs := &HealthServer{Server: health.NewServer(), readiness: r}
	hs.set(healthpb.HealthCheckResponse_NOT_SERVING)
	srv := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(srv, hs.Server)
	return srv, hs
}

// Refresh evaluates readiness once and publishes the result.
func (h *HealthServer) Refresh(ctx context.Context) bool {
	if err := h.readiness.Check(ctx); err != nil {
		obs.SetReady(false)
		h.set(healthpb.HealthCheckResponse_NOT_SERVING)
		return false
	}
	obs.SetReady(true)
	h.set(healthpb.HealthCheckResponse_SERVING)
	return true
}

// Monitor refreshes on every tick until ctx ends, then marks everything
// NOT_SERVING.
func (h *HealthServer) Monitor(ctx context.Context, every time.Duration) {
	h.Refresh(ctx)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			h.Shutdown()
			return
		case <-t.C:
			h.Refresh(ctx)
		}
	}
}

func (h *HealthServer) set(s healthpb.HealthCheckResponse_ServingStatus) {
	h.SetServingStatus("", s)
	h.SetServingStatus(serviceName, s)
}
