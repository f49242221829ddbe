// Package rbac resolves the caller's stored user record and checks what the
// caller's role allows.
package rbac

import (
	"context"

	"github.com/cockroachdb/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"projectbeheer/backend/internal/server/interceptors"
	"projectbeheer/backend/internal/storage"
	userdomain "projectbeheer/backend/internal/user/domain"
	"projectbeheer/backend/internal/visibility"
)

// UserGetter loads users by id. A versioning.Tracker over the users table
// satisfies it.
type UserGetter interface {
	Get(ctx context.Context, id string) (*userdomain.User, error)
}

// RequireUser ensures the caller is authenticated and maps to an active user.
// The principal is resolved from the stored record so that a role or supplier
// change takes effect before the caller's token expires.
// Returns a gRPC error (Unauthenticated, PermissionDenied or Internal) on failure.
func RequireUser(ctx context.Context, users UserGetter) (*userdomain.User, visibility.Principal, error) {
	userID, ok := interceptors.GetUserID(ctx)
	if !ok {
		return nil, visibility.Principal{}, status.Error(codes.Unauthenticated, "user context required")
	}
	u, err := users.Get(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, visibility.Principal{}, status.Error(codes.PermissionDenied, "unknown user")
	}
	if err != nil {
		return nil, visibility.Principal{}, status.Error(codes.Internal, "failed to resolve user")
	}
	if !u.Active {
		return nil, visibility.Principal{}, status.Error(codes.PermissionDenied, "user is inactive")
	}
	p := visibility.Resolve(u.Role, u.SupplierID.String)
	if err := p.Validate(); err != nil {
		return nil, visibility.Principal{}, status.Error(codes.PermissionDenied, "supplier user without supplier")
	}
	return u, p, nil
}
