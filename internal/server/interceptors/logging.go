package interceptors

import (
	"context"
	"log/slog"
	"net"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"projectbeheer/backend/internal/logging"
)

// LoggingUnary returns a unary server interceptor that stores a request-scoped
// logger in the context and writes one line per RPC once it completes.
// skipMethods is the set of full method names to not log (e.g. the health check).
// It must run after AuthUnary so the caller is known, and wraps ErrorUnary so
// the logged code is the one the client sees.
func LoggingUnary(logger *slog.Logger, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		reqLogger := logger.With("method", info.FullMethod)
		if userID, ok := GetUserID(ctx); ok {
			reqLogger = reqLogger.With("user_id", userID)
		}
		ctx = logging.WithLogger(ctx, reqLogger)

		start := time.Now()
		resp, err := handler(ctx, req)
		if skipMethods[info.FullMethod] {
			return resp, err
		}

		code := status.Code(err)
		attrs := []any{
			"code", code.String(),
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", ClientIP(ctx),
		}
		switch code {
		case codes.OK:
			reqLogger.InfoContext(ctx, "rpc", attrs...)
		case codes.Internal, codes.Unknown, codes.Unavailable, codes.DataLoss:
			reqLogger.ErrorContext(ctx, "rpc", append(attrs, "error", err)...)
		default:
			reqLogger.WarnContext(ctx, "rpc", append(attrs, "error", err)...)
		}
		return resp, err
	}
}

// ClientIP returns the client IP from gRPC metadata (x-forwarded-for, x-real-ip) or peer, or "unknown".
func ClientIP(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get("x-forwarded-for"); len(vals) > 0 {
			first, _, _ := strings.Cut(vals[0], ",")
			if s := strings.TrimSpace(first); s != "" {
				return s
			}
		}
		if vals := md.Get("x-real-ip"); len(vals) > 0 {
			if s := strings.TrimSpace(vals[0]); s != "" {
				return s
			}
		}
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		if host, _, err := net.SplitHostPort(p.Addr.String()); err == nil {
			return host
		}
		return p.Addr.String()
	}
	return "unknown"
}
