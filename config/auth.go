package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the identity provider mode for the application.
type AuthMode string

const (
	// AuthModeCMS authenticates against the hosted CMS identity API.
	AuthModeCMS AuthMode = "cms"
	// AuthModeMock uses an in-memory provider (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "cms", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: cms, mock)", v)
	}
}

// ProviderConfig contains hosted identity provider configuration.
type ProviderConfig struct {
	// BaseURL is the root of the provider's HTTP JSON API.
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:1337"`

	// ResolveTimeout bounds read calls (authenticate, resolve identity).
	ResolveTimeout time.Duration `env:"RESOLVE_TIMEOUT" envDefault:"5s"`

	// AssignTimeout bounds the cumulative bounded-retry role assignment window.
	AssignTimeout time.Duration `env:"ASSIGN_TIMEOUT" envDefault:"10s"`

	// Response mapping: JMESPath expressions locating fields in provider
	// responses. Defaults match the hosted CMS's payload shapes, so a
	// provider schema change is a config change, not a code change.
	CredentialPath  string `env:"CREDENTIAL_PATH"   envDefault:"jwt"`
	SubjectIDPath   string `env:"SUBJECT_ID_PATH"   envDefault:"user.id"`
	DisplayNamePath string `env:"DISPLAY_NAME_PATH" envDefault:"user.username"`
	RoleNamePath    string `env:"ROLE_NAME_PATH"    envDefault:"role.type"`
}

// MockAuthConfig controls the in-memory provider identity.
// Used when AUTH_MODE=mock for development and testing.
type MockAuthConfig struct {
	SubjectID   string `env:"SUBJECT_ID"   envDefault:"dev-subject"`
	DisplayName string `env:"DISPLAY_NAME" envDefault:"Dev User"`
	Role        string `env:"ROLE"         envDefault:"funeral_director"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which identity provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"cms"`

	// Provider configuration (used when Mode=cms).
	Provider ProviderConfig `envPrefix:"PROVIDER_"`

	// MockAuth configuration (used when Mode=mock).
	MockAuth MockAuthConfig `envPrefix:"MOCK_AUTH_"`

	// CredentialCookieMaxAge is the lifetime of the credential cookie.
	CredentialCookieMaxAge time.Duration `env:"CREDENTIAL_COOKIE_MAX_AGE" envDefault:"168h"`

	// RoleHintCookieMaxAge is the lifetime of the role hint cookie.
	RoleHintCookieMaxAge time.Duration `env:"ROLE_HINT_COOKIE_MAX_AGE" envDefault:"168h"`
}

// Sanitize applies guardrails to authentication configuration values.
func (a *AuthConfig) Sanitize() {
	if a.Provider.ResolveTimeout <= 0 {
		a.Provider.ResolveTimeout = 5 * time.Second
	}
	if a.Provider.AssignTimeout <= 0 {
		a.Provider.AssignTimeout = 10 * time.Second
	}
	if a.CredentialCookieMaxAge <= 0 {
		a.CredentialCookieMaxAge = 168 * time.Hour
	}
	if a.RoleHintCookieMaxAge <= 0 {
		a.RoleHintCookieMaxAge = 168 * time.Hour
	}
}
