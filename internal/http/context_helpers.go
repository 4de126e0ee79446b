package httpx

import (
	"context"

	domainauth "github.com/lumastream/lumastream/internal/domain/auth"
)

// identityKey is an unexported context key type to avoid collisions across
// packages. Centralized in this file so all handlers/middleware use the same key.
type identityKey struct{}

// SetIdentityInContext returns a child context carrying the materialized
// identity for the request. The identity is read-only downstream.
func SetIdentityInContext(ctx context.Context, identity domainauth.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the request identity. Requests that never went
// through the materializer middleware read as guest.
func IdentityFromContext(ctx context.Context) domainauth.Identity {
	if identity, ok := ctx.Value(identityKey{}).(domainauth.Identity); ok {
		return identity
	}
	return domainauth.Guest()
}

// IsGuestRequest reports whether the current request is unauthenticated.
func IsGuestRequest(ctx context.Context) bool {
	return IdentityFromContext(ctx).IsGuest()
}
