// Package rpc serves the standard gRPC health protocol for the placement service.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the service name reported through the health protocol.
// The empty name reports the same status.
const ServiceName = "pairdb.placement.Placement"

const checkTimeout = 5 * time.Second

// ReadinessChecker decides whether the service can serve placements
type ReadinessChecker interface {
	Check(ctx context.Context) (bool, map[string]string)
}

// HealthServer is a gRPC server exposing grpc.health.v1.Health
type HealthServer struct {
	server   *grpc.Server
	health   *grpchealth.Server
	checker  ReadinessChecker
	interval time.Duration
	serving  bool
	logger   *zap.Logger
}

// NewHealthServer creates a health server that starts out NOT_SERVING
func NewHealthServer(checker ReadinessChecker, interval time.Duration, logger *zap.Logger) *HealthServer {
	server := grpc.NewServer()
	hs := grpchealth.NewServer()
	healthpb.RegisterHealthServer(server, hs)

	s := &HealthServer{
		server:   server,
		health:   hs,
		checker:  checker,
		interval: interval,
		logger:   logger,
	}
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Serve accepts connections on lis until Stop is called
func (s *HealthServer) Serve(lis net.Listener) error {
	s.logger.Info("Starting gRPC health server", zap.String("address", lis.Addr().String()))

	if err := s.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("gRPC health server failed: %w", err)
	}
	return nil
}

// Watch re-evaluates readiness on every tick until ctx is done
func (s *HealthServer) Watch(ctx context.Context) error {
	s.update(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.update(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

// Stop drains connections, forcing them closed once ctx expires
func (s *HealthServer) Stop(ctx context.Context) {
	// lets watching clients see NOT_SERVING before the connection closes
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		s.logger.Info("gRPC health server stopped gracefully")
	case <-ctx.Done():
		s.logger.Warn("gRPC health server stop timeout, forcing shutdown")
		s.server.Stop()
	}
}

func (s *HealthServer) update(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	ready, checks := s.checker.Check(checkCtx)
	if ready == s.serving {
		return
	}
	s.serving = ready

	if ready {
		s.setStatus(healthpb.HealthCheckResponse_SERVING)
		s.logger.Info("Placement service is serving")
		return
	}
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	s.logger.Warn("Placement service is not serving", zap.Any("checks", checks))
}

func (s *HealthServer) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
