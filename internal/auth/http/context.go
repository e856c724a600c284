// Package http provides HTTP middleware and utilities for authentication.
package http

import (
	"context"

	authDomain "github.com/allisson/registry/internal/auth/domain"
)

// identityKey is a context key type for storing verified identities.
type identityKey struct{}

// WithIdentity stores a verified caller identity in the context.
// This is typically called by the authentication middleware after successful token verification.
func WithIdentity(ctx context.Context, identity *authDomain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// GetIdentity retrieves the verified caller identity from the context.
// Returns (identity, true) if an identity is present, or (nil, false) if none was set.
func GetIdentity(ctx context.Context) (*authDomain.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(*authDomain.Identity)
	return identity, ok
}
