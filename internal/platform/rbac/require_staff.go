package rbac

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	userdomain "projectbeheer/backend/internal/user/domain"
)

// RequireStaff ensures the caller is an active internal user allowed to make
// changes: any role except supplier and read_only.
func RequireStaff(ctx context.Context, users UserGetter) (*userdomain.User, error) {
	u, p, err := RequireUser(ctx, users)
	if err != nil {
		return nil, err
	}
	if !p.IsInternal() || u.Role == userdomain.RoleReadOnly {
		return nil, status.Error(codes.PermissionDenied, "staff role required")
	}
	return u, nil
}

// RequireInternal ensures the caller is an active internal user of any role,
// read_only included.
func RequireInternal(ctx context.Context, users UserGetter) (*userdomain.User, error) {
	u, p, err := RequireUser(ctx, users)
	if err != nil {
		return nil, err
	}
	if !p.IsInternal() {
		return nil, status.Error(codes.PermissionDenied, "internal users only")
	}
	return u, nil
}
