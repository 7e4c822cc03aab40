package utils

import (
	"context"
)

// Identity is the authenticated caller a verified access token resolves to.
// Middleware attaches it to the request context; handlers read it back.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

type contextKey string

const ContextIdentityKey contextKey = "identity"

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ContextIdentityKey, id)
}

func GetIdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ContextIdentityKey).(Identity)
	return id, ok
}
