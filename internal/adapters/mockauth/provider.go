package mockauth

// Package mockauth provides a simple, config-driven IdentityProvider for
// local development. It never touches the network.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	domainauth "github.com/lumastream/lumastream/internal/domain/auth"
	apperrors "github.com/lumastream/lumastream/internal/errors"
)

// Config controls the mock provider behavior.
type Config struct {
	SubjectID   string
	DisplayName string
	Role        domainauth.Role
}

// Provider implements ports.IdentityProvider in memory. Any identifier with a
// non-empty secret authenticates as the configured identity; registrations
// are kept in memory so duplicate-identifier behavior can be exercised locally.
type Provider struct {
	mu        sync.Mutex
	identity  domainauth.Identity
	creds     map[domainauth.Credential]domainauth.Identity
	usernames map[string]string // username -> subject id
	emails    map[string]string // email -> subject id
	nextID    int
}

// NewProvider constructs a mock provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.SubjectID == "" {
		return nil, errors.New("mockauth: SubjectID is required")
	}
	role := cfg.Role
	if !role.IsValid() {
		role = domainauth.RoleAuthenticated
	}
	return &Provider{
		identity: domainauth.Identity{
			SubjectID:   cfg.SubjectID,
			DisplayName: cfg.DisplayName,
			Role:        role,
		},
		creds:     make(map[domainauth.Credential]domainauth.Identity),
		usernames: make(map[string]string),
		emails:    make(map[string]string),
		nextID:    1000,
	}, nil
}

// Authenticate accepts any identifier with a non-empty secret and mints an
// opaque credential for the configured identity.
func (p *Provider) Authenticate(_ context.Context, identifier, secret string) (domainauth.Credential, domainauth.Identity, error) {
	if identifier == "" || secret == "" {
		return "", domainauth.Identity{}, apperrors.InvalidCredentials("Invalid identifier or password.")
	}

	cred, err := randomCredential()
	if err != nil {
		return "", domainauth.Identity{}, fmt.Errorf("mint credential: %w", err)
	}

	p.mu.Lock()
	p.creds[cred] = p.identity
	p.mu.Unlock()
	return cred, p.identity, nil
}

// ResolveIdentity returns the identity minted with the credential.
func (p *Provider) ResolveIdentity(_ context.Context, cred domainauth.Credential) (domainauth.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	identity, ok := p.creds[cred]
	if !ok {
		return domainauth.Identity{}, apperrors.InvalidCredentials("credential rejected by provider")
	}
	return identity, nil
}

// Register records the subject in memory, enforcing unique identifiers.
func (p *Provider) Register(_ context.Context, reg domainauth.Registration) (domainauth.Credential, domainauth.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, taken := p.emails[reg.Email]; taken {
		return "", domainauth.Identity{}, apperrors.DuplicateIdentifier("email", "Email is already taken.")
	}
	if _, taken := p.usernames[reg.Username]; taken {
		return "", domainauth.Identity{}, apperrors.DuplicateIdentifier("username", "Username is already taken.")
	}

	p.nextID++
	subjectID := fmt.Sprintf("mock-%d", p.nextID)
	p.usernames[reg.Username] = subjectID
	p.emails[reg.Email] = subjectID

	identity := domainauth.Identity{
		SubjectID:   subjectID,
		DisplayName: reg.DisplayName,
		Role:        domainauth.RoleAuthenticated,
	}
	if identity.DisplayName == "" {
		identity.DisplayName = reg.Username
	}

	cred, err := randomCredential()
	if err != nil {
		return "", domainauth.Identity{}, fmt.Errorf("mint credential: %w", err)
	}
	p.creds[cred] = identity
	return cred, identity, nil
}

// AssignRole updates every credential minted for the subject.
func (p *Provider) AssignRole(_ context.Context, subjectID string, role domainauth.Role) error {
	if !role.IsValid() || role == domainauth.RoleGuest {
		return apperrors.RoleNotFoundf("role %q is not assignable", role)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for cred, identity := range p.creds {
		if identity.SubjectID == subjectID {
			identity.Role = role
			p.creds[cred] = identity
		}
	}
	if p.identity.SubjectID == subjectID {
		p.identity.Role = role
	}
	return nil
}

func randomCredential() (domainauth.Credential, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return domainauth.Credential(base64.RawURLEncoding.EncodeToString(b)), nil
}
