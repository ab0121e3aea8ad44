// Package health exposes the gRPC health protocol and keeps its serving status
// in line with the dependencies the process relies on.
package health

import (
	"context"
	"time"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	"google.golang.org/grpc"
	healthgrpc "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Check probes one dependency.
type Check func(ctx context.Context) error

// Server wraps grpc health server
type Server struct {
	server *healthgrpc.Server
	logger logger.Interface
}

// NewServer creates health server using default grpc health server.
func NewServer(log logger.Interface) *Server {
	return &Server{
		server: healthgrpc.NewServer(),
		logger: log,
	}
}

// SetServing marks service as serving or not serving.
func (h *Server) SetServing(service string, serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.server.SetServingStatus(service, status)
}

// Watch runs checks every interval and flips the status of service accordingly,
// until ctx is done.
func (h *Server) Watch(ctx context.Context, service string, interval time.Duration, checks map[string]Check) {
	probe := func() {
		serving := true
		for name, check := range checks {
			checkCtx, cancel := context.WithTimeout(ctx, interval)
			err := check(checkCtx)
			cancel()
			if err != nil {
				serving = false
				h.logger.Warn("health check failed",
					logger.Field{Key: "dependency", Value: name},
					logger.Field{Key: "error", Value: err.Error()},
				)
			}
		}
		h.SetServing(service, serving)
	}

	probe()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probe()
		}
	}
}

// Shutdown sets all serving status to NOT_SERVING.
func (h *Server) Shutdown() {
	h.server.Shutdown()
}

// Register registers health server.
func (h *Server) Register(server *grpc.Server) {
	healthpb.RegisterHealthServer(server, h.server)
}
