// Package handler serves the standard grpc.health.v1 Health service, backed
// by a database ping.
package handler

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"projectbeheer/backend/internal/logging"
)

// CheckMethod is the full method name of the health check, which callers
// reach without a token.
const CheckMethod = "/grpc.health.v1.Health/Check"

const pingTimeout = 2 * time.Second

// Pinger checks storage reachability, e.g. *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server reports SERVING while the pinger succeeds. A nil pinger is always
// SERVING, as with the in-memory store.
type Server struct {
	*health.Server
	pinger   Pinger
	services []string
}

// NewServer returns a health server covering the overall status ("") and
// each named service.
func NewServer(pinger Pinger, services ...string) *Server {
	return &Server{Server: health.NewServer(), pinger: pinger, services: services}
}

// Register adds the server to s.
func (s *Server) Register(r grpc.ServiceRegistrar) {
	healthpb.RegisterHealthServer(r, s)
}

// Check refreshes the status before answering.
func (s *Server) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	s.Refresh(ctx)
	return s.Server.Check(ctx, req)
}

// Refresh pings storage and updates every status accordingly.
func (s *Server) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	st := healthpb.HealthCheckResponse_SERVING
	if s.pinger != nil {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := s.pinger.Ping(pingCtx); err != nil {
			logging.FromContext(ctx).WarnContext(ctx, "health: storage ping failed", "error", err)
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.SetServingStatus("", st)
	for _, name := range s.services {
		s.SetServingStatus(name, st)
	}
	return st
}

// Run refreshes the status every interval until ctx is done, so Watch
// subscribers see changes without polling Check.
func (s *Server) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	s.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Refresh(ctx)
		}
	}
}
