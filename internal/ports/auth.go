package ports

// Package ports defines interfaces (hexagonal ports) for identity and content
// behavior. Implementations live in internal/adapters; orchestration in
// internal/service.

import (
	"context"

	domainauth "github.com/lumastream/lumastream/internal/domain/auth"
)

// IdentityProvider encapsulates all calls to the external identity/role
// authority. It is the only boundary permitted to speak to the provider.
type IdentityProvider interface {
	// Authenticate exchanges an identifier and secret for a credential.
	// Fails with invalid_credentials on a bad secret or unknown identifier and
	// provider_unavailable/provider_timeout on infrastructure failure.
	Authenticate(ctx context.Context, identifier, secret string) (domainauth.Credential, domainauth.Identity, error)

	// ResolveIdentity fetches the credential's subject and authoritative role.
	// Applies a bounded timeout and fails with provider_timeout rather than hang.
	ResolveIdentity(ctx context.Context, cred domainauth.Credential) (domainauth.Identity, error)

	// Register creates a new subject. Duplicate identifiers normalize to a
	// duplicate_identifier error carrying the colliding field.
	Register(ctx context.Context, reg domainauth.Registration) (domainauth.Credential, domainauth.Identity, error)

	// AssignRole sets the subject's role by role name. Fails with
	// role_not_found when the provider does not know the role.
	AssignRole(ctx context.Context, subjectID string, role domainauth.Role) error
}

// ContentCache caches rendered-content payloads for public pages.
// Identity is never cached; the per-request identity invariant stands.
type ContentCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
