package interceptors

import (
	"context"

	userdomain "projectbeheer/backend/internal/user/domain"
	"projectbeheer/backend/internal/visibility"
)

type contextKey struct{ name string }

var identityKey = contextKey{"identity"}

// Identity is the authenticated caller as carried by the access token.
type Identity struct {
	UserID     string
	Role       userdomain.Role
	SupplierID string
}

// Principal resolves the visibility principal for the identity.
func (i Identity) Principal() visibility.Principal {
	return visibility.Resolve(i.Role, i.SupplierID)
}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// GetIdentity returns the identity from context and true if set.
func GetIdentity(ctx context.Context) (Identity, bool) {
	v, ok := ctx.Value(identityKey).(Identity)
	return v, ok
}

// GetUserID returns the user_id from context and true if set; otherwise "", false.
func GetUserID(ctx context.Context) (string, bool) {
	id, ok := GetIdentity(ctx)
	if !ok || id.UserID == "" {
		return "", false
	}
	return id.UserID, true
}

// GetPrincipal returns the caller's principal. Unauthenticated contexts yield
// the zero Principal, which sees nothing.
func GetPrincipal(ctx context.Context) visibility.Principal {
	id, ok := GetIdentity(ctx)
	if !ok {
		return visibility.Principal{}
	}
	return id.Principal()
}
