package shared

import "context"

// Identity carries the authenticated principal for a request. Every tenant-scoped
// repository call takes its company id from here rather than from client input.
type Identity struct {
	UserID    int64
	CompanyID int64
	Email     string
	Role      string
}

type identityContextKey struct{}

// ContextWithIdentity stores the identity in context.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity from context, nil when unauthenticated.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityContextKey{}).(*Identity)
	return id
}
