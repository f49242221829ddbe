package server

import (
	"log/slog"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	audithandler "projectbeheer/backend/internal/audit/handler"
	healthhandler "projectbeheer/backend/internal/health/handler"
	phasehandler "projectbeheer/backend/internal/phase/handler"
	"projectbeheer/backend/internal/security"
	"projectbeheer/backend/internal/server/interceptors"
	"projectbeheer/backend/internal/server/rpc"
)

// Deps holds the gRPC handlers. Nil handlers are not registered.
type Deps struct {
	// History serves the audit trail to internal users.
	History *audithandler.Server
	// Phases serves phases, documents and comments with supplier filtering.
	Phases *phasehandler.Server
	// Records are the generic versioned record services (projects,
	// contracts, suppliers, users).
	Records []rpc.Service
	// Health answers grpc.health.v1 checks without authentication.
	Health *healthhandler.Server
}

// Services returns the descriptions of every non-nil handler in deps.
func (d Deps) Services() []rpc.Service {
	var out []rpc.Service
	if d.History != nil {
		out = append(out, d.History.Service())
	}
	if d.Phases != nil {
		out = append(out, d.Phases.Service())
	}
	return append(out, d.Records...)
}

// RegisterServices registers all gRPC services with the given server.
//
// Service → handler mapping:
//   - HistoryService → internal/audit/handler
//   - PhaseService   → internal/phase/handler
//   - record services (Project, Contract, Supplier, User) → internal/records
//   - grpc.health.v1.Health → internal/health/handler
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	for _, svc := range deps.Services() {
		svc.Register(s)
	}
	if deps.Health != nil {
		deps.Health.Register(s)
	}
}

// PublicMethods are reachable without a Bearer token.
func PublicMethods() map[string]bool {
	return map[string]bool{healthhandler.CheckMethod: true}
}

// NewServer returns a gRPC server with tracing and the interceptor chain:
// authentication first, then logging, then error mapping closest to the
// handler.
func NewServer(tokens *security.TokenProvider, logger *slog.Logger, opts ...grpc.ServerOption) *grpc.Server {
	quiet := PublicMethods()
	opts = append([]grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.AuthUnary(tokens, PublicMethods()),
			interceptors.LoggingUnary(logger, quiet),
			interceptors.ErrorUnary(),
		),
	}, opts...)
	return grpc.NewServer(opts...)
}
