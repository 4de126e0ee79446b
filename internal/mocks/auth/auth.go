package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"fmt"

	domainauth "github.com/lumastream/lumastream/internal/domain/auth"
	apperrors "github.com/lumastream/lumastream/internal/errors"
	"github.com/lumastream/lumastream/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityProvider = (*MockIdentityProvider)(nil)
	_ ports.ContentCache     = (*MemoryContentCache)(nil)
)

// MockIdentityProvider simulates the external identity authority for tests
// with deterministic credentials and identities.
type MockIdentityProvider struct {
	AuthenticateFunc    func(ctx context.Context, identifier, secret string) (domainauth.Credential, domainauth.Identity, error)
	ResolveIdentityFunc func(ctx context.Context, cred domainauth.Credential) (domainauth.Identity, error)
	RegisterFunc        func(ctx context.Context, reg domainauth.Registration) (domainauth.Credential, domainauth.Identity, error)
	AssignRoleFunc      func(ctx context.Context, subjectID string, role domainauth.Role) error

	// Deterministic values for predictable testing
	DefaultIdentity domainauth.Identity
	Secret          string

	// Internal state tracking for deterministic behavior
	callCount   int
	assignCalls []AssignCall
}

// AssignCall records one AssignRole invocation.
type AssignCall struct {
	SubjectID string
	Role      domainauth.Role
}

// NewMockIdentityProvider creates a MockIdentityProvider with sensible defaults.
func NewMockIdentityProvider() *MockIdentityProvider {
	return &MockIdentityProvider{
		Secret: "correct horse battery staple",
		DefaultIdentity: domainauth.Identity{
			SubjectID:   "mock-subject-1",
			DisplayName: "Mock Subject",
			Role:        domainauth.RoleAuthenticated,
		},
	}
}

func (m *MockIdentityProvider) Authenticate(ctx context.Context, identifier, secret string) (domainauth.Credential, domainauth.Identity, error) {
	if m.AuthenticateFunc != nil {
		return m.AuthenticateFunc(ctx, identifier, secret)
	}

	if m.Secret != "" && secret != m.Secret {
		return "", domainauth.Guest(), apperrors.InvalidCredentials("identifier or password is incorrect")
	}

	m.callCount++
	cred := domainauth.Credential(fmt.Sprintf("mock-credential-%d", m.callCount))
	identity := m.DefaultIdentity
	if identifier != "" {
		identity.DisplayName = identifier
	}
	return cred, identity, nil
}

func (m *MockIdentityProvider) ResolveIdentity(ctx context.Context, cred domainauth.Credential) (domainauth.Identity, error) {
	if m.ResolveIdentityFunc != nil {
		return m.ResolveIdentityFunc(ctx, cred)
	}
	if cred.IsZero() {
		return domainauth.Guest(), apperrors.InvalidCredentials("missing credential")
	}
	return m.DefaultIdentity, nil
}

func (m *MockIdentityProvider) Register(ctx context.Context, reg domainauth.Registration) (domainauth.Credential, domainauth.Identity, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, reg)
	}

	m.callCount++
	cred := domainauth.Credential(fmt.Sprintf("mock-credential-%d", m.callCount))
	identity := domainauth.Identity{
		SubjectID:   fmt.Sprintf("mock-subject-%d", m.callCount),
		DisplayName: reg.Username,
		Role:        domainauth.RoleAuthenticated,
	}
	return cred, identity, nil
}

func (m *MockIdentityProvider) AssignRole(ctx context.Context, subjectID string, role domainauth.Role) error {
	m.assignCalls = append(m.assignCalls, AssignCall{SubjectID: subjectID, Role: role})
	if m.AssignRoleFunc != nil {
		return m.AssignRoleFunc(ctx, subjectID, role)
	}
	return nil
}

// AssignCalls returns the AssignRole invocations observed so far.
func (m *MockIdentityProvider) AssignCalls() []AssignCall {
	return m.assignCalls
}

// MemoryContentCache is an in-memory content cache for unit tests.
type MemoryContentCache struct {
	entries map[string][]byte
}

// NewMemoryContentCache creates a new in-memory content cache.
func NewMemoryContentCache() *MemoryContentCache {
	return &MemoryContentCache{entries: make(map[string][]byte)}
}

func (m *MemoryContentCache) Get(_ context.Context, key string) ([]byte, error) {
	value, ok := m.entries[key]
	if !ok {
		return nil, apperrors.NotFound("cache key " + key)
	}
	return value, nil
}

func (m *MemoryContentCache) Set(_ context.Context, key string, value []byte) error {
	cp := make([]byte, len(value))
	copy(cp, value)
	m.entries[key] = cp
	return nil
}

func (m *MemoryContentCache) Delete(_ context.Context, key string) error {
	delete(m.entries, key)
	return nil
}

// StaticMaterializer returns a fixed identity for every request. It satisfies
// the HTTP layer's IdentityMaterializer interface.
type StaticMaterializer struct {
	Identity domainauth.Identity
}

func (s StaticMaterializer) Materialize(_ context.Context, _ domainauth.Credential, _ string) domainauth.Identity {
	return s.Identity
}
