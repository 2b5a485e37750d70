package auth

import (
	"context"
)

var identityCtxKey = &contextKey{"identity"}

type contextKey struct {
	name string
}

// WithIdentityContext sets the caller Identity in the given context.
// The request gate uses this so non-HTTP layers can read who is calling.
func WithIdentityContext(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, identity)
}

// IdentityFromContext finds the caller Identity from the context
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	raw, ok := ctx.Value(identityCtxKey).(Identity)
	return raw, ok
}
