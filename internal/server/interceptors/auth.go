package interceptors

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"projectbeheer/backend/internal/actor"
	"projectbeheer/backend/internal/security"
	userdomain "projectbeheer/backend/internal/user/domain"
)

const (
	bearerPrefix = "bearer "
	// ChangeNoteHeader carries an optional free-text reason that is stored
	// with every audit entry the call produces.
	ChangeNoteHeader = "x-change-note"
)

// AuthUnary returns a unary server interceptor that validates the Bearer (access) token
// from gRPC metadata, sets the caller Identity in context and installs the caller as
// the actor of any mutation the handler performs.
// publicMethods is the set of full method names that do not require a Bearer token
// (e.g. the health check).
func AuthUnary(tokens *security.TokenProvider, publicMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		token := extractBearer(ctx)
		public := publicMethods[info.FullMethod]

		if token == "" {
			if public {
				return handler(ctx, req)
			}
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}

		claims, err := tokens.ValidateAccess(token)
		if err != nil {
			if public {
				return handler(ctx, req)
			}
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}

		ctx = WithIdentity(ctx, Identity{
			UserID:     claims.Subject,
			Role:       userdomain.Role(claims.Role),
			SupplierID: claims.SupplierID,
		})
		ctx, err = actor.With(ctx, claims.Subject, firstHeader(ctx, ChangeNoteHeader))
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}
		return handler(ctx, req)
	}
}

// extractBearer returns the Bearer token from ctx metadata, or "" if missing or malformed.
func extractBearer(ctx context.Context) string {
	v := strings.TrimSpace(firstHeader(ctx, "authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}

func firstHeader(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get(key)
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}
