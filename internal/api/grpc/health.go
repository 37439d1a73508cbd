package grpc

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"equipment-rental-backend/internal/api/grpc/interceptor"
	"equipment-rental-backend/internal/logger"
)

// ServiceName is the name reported to grpc.health.v1 clients alongside "".
const ServiceName = "equipment-rental"

// Pinger is satisfied by both stores.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthServer serves grpc.health.v1 and reflection, reporting SERVING
// while the store answers pings.
type HealthServer struct {
	server   *grpc.Server
	health   *health.Server
	store    Pinger
	interval time.Duration
}

func NewHealthServer(store Pinger, interval time.Duration) *HealthServer {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	s := grpc.NewServer(grpc.UnaryInterceptor(interceptor.RequestLogging()))
	h := health.NewServer()
	healthpb.RegisterHealthServer(s, h)
	reflection.Register(s)

	hs := &HealthServer{server: s, health: h, store: store, interval: interval}
	hs.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return hs
}

func (s *HealthServer) Serve(lis net.Listener) error {
	return s.server.Serve(lis)
}

// Watch probes the store until ctx is done, then reports NOT_SERVING.
func (s *HealthServer) Watch(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			s.health.Shutdown()
			return
		case <-ticker.C:
			s.Probe(ctx)
		}
	}
}

// Probe pings the store once and updates the reported status.
func (s *HealthServer) Probe(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, s.interval/2)
	defer cancel()

	if err := s.store.PingContext(pingCtx); err != nil {
		logger.Warn("Store ping failed", "error", err)
		s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
		return
	}
	s.setStatus(healthpb.HealthCheckResponse_SERVING)
}

func (s *HealthServer) Check(ctx context.Context) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := s.health.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

func (s *HealthServer) GracefulStop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}

func (s *HealthServer) setStatus(st healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}
