package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	domainauth "github.com/lumastream/lumastream/internal/domain/auth"
	"github.com/lumastream/lumastream/internal/ports"
)

// defaultAssignWindow bounds the best-effort role assignment that follows a
// registration. The registration response never waits longer than this.
const defaultAssignWindow = 10 * time.Second

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Provider     ports.IdentityProvider
	AssignWindow time.Duration
	Logger       *slog.Logger
}

// AuthService orchestrates login, logout, and registration against the
// identity provider. It owns no state; the provider is the sole authority.
type AuthService struct {
	provider     ports.IdentityProvider
	assignWindow time.Duration
	logger       *slog.Logger
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	window := opts.AssignWindow
	if window <= 0 {
		window = defaultAssignWindow
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		provider:     opts.Provider,
		assignWindow: window,
		logger:       logger,
	}
}

// LoginResult contains the credential and identity of a completed login.
type LoginResult struct {
	Credential domainauth.Credential
	Identity   domainauth.Identity
}

// Login authenticates an identifier/secret pair against the provider.
func (s *AuthService) Login(ctx context.Context, identifier, secret string) (*LoginResult, error) {
	if identifier == "" {
		return nil, errors.New("identifier is required")
	}
	if secret == "" {
		return nil, errors.New("secret is required")
	}

	cred, identity, err := s.provider.Authenticate(ctx, identifier, secret)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	return &LoginResult{Credential: cred, Identity: identity}, nil
}

// RegisterResult contains the outcome of a registration.
type RegisterResult struct {
	Credential domainauth.Credential
	Identity   domainauth.Identity

	// RoleAssigned reports whether the best-effort role assignment reached
	// the provider in time. When false the role hint cookie still carries the
	// requested role and reconciles on a later request.
	RoleAssigned bool
}

// Register creates the subject with the provider, then assigns the requested
// role as a best-effort follow-up inside a bounded window. Assignment failure
// is logged and never fails the registration: the role hint stays ahead of
// the provider, which the materializer's hint precedence bridges.
func (s *AuthService) Register(ctx context.Context, reg domainauth.Registration) (*RegisterResult, error) {
	cred, identity, err := s.provider.Register(ctx, reg)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	result := &RegisterResult{Credential: cred, Identity: identity}

	requested := reg.RequestedRole
	if !requested.IsValid() || requested == domainauth.RoleGuest {
		return result, nil
	}

	assignCtx, cancel := context.WithTimeout(ctx, s.assignWindow)
	defer cancel()

	if assignErr := s.provider.AssignRole(assignCtx, identity.SubjectID, requested); assignErr != nil {
		s.logger.WarnContext(ctx, "post-registration role assignment failed",
			"subject_id", identity.SubjectID,
			"requested_role", string(requested),
			"error", assignErr)
	} else {
		result.RoleAssigned = true
	}

	// The hint is the caller-facing role either way.
	result.Identity.Role = requested
	return result, nil
}

// AssignRole changes a subject's role with the provider. Used by
// role-assignment flows outside registration.
func (s *AuthService) AssignRole(ctx context.Context, subjectID string, role domainauth.Role) error {
	ctx, cancel := context.WithTimeout(ctx, s.assignWindow)
	defer cancel()
	return s.provider.AssignRole(ctx, subjectID, role)
}
