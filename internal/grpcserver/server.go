// Package grpcserver exposes the standard gRPC health service. The serving
// status follows the outcome of the last crawl session.
package grpcserver

import (
	"context"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"jobmate/harvester-service/internal/logger"
	"jobmate/harvester-service/internal/scheduler"
)

// ServiceName is the health-checked service.
const ServiceName = "harvester.Harvester"

// StatusSource reports the scheduler state.
type StatusSource interface {
	Status() scheduler.Status
}

// Server wraps a grpc.Server carrying the health service.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	source StatusSource
	log    logger.Logger
}

// NewServer constructs the server. Both the overall ("") and the named
// service start NOT_SERVING until the first successful run.
func NewServer(source StatusSource, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	s := &Server{health: health.NewServer(), source: source, log: log}
	s.grpc = grpc.NewServer(grpc.UnaryInterceptor(s.logUnary))
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Refresh maps the current scheduler status onto the health service.
func (s *Server) Refresh() {
	if s.source != nil && s.source.Status().Healthy() {
		s.set(healthpb.HealthCheckResponse_SERVING)
		return
	}
	s.set(healthpb.HealthCheckResponse_NOT_SERVING)
}

// Watch calls Refresh every interval until ctx is done.
func (s *Server) Watch(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		s.Refresh()
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// Serve blocks serving lis.
func (s *Server) Serve(lis net.Listener) error {
	s.log.Info("gRPC server listening", logger.String("address", lis.Addr().String()))
	if err := s.grpc.Serve(lis); err != nil {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// Stop marks everything NOT_SERVING and drains open calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

func (s *Server) set(st healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

func (s *Server) logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
	resp, err := next(ctx, req)
	if err != nil {
		s.log.Debug("gRPC call failed",
			logger.String("method", info.FullMethod),
			logger.String("code", status.Code(err).String()))
	}
	return resp, err
}
