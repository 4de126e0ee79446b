package cmsauth

// Package cmsauth implements the IdentityProvider port against the hosted
// CMS identity API. It is the only package that talks to the provider.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"

	domainauth "github.com/lumastream/lumastream/internal/domain/auth"
	apperrors "github.com/lumastream/lumastream/internal/errors"
	"github.com/lumastream/lumastream/internal/retry"
)

// Config holds configuration for the CMS identity provider adapter.
type Config struct {
	// BaseURL is the root of the provider's HTTP JSON API.
	BaseURL string

	// ResolveTimeout bounds read calls (authenticate, resolve). Default 5s.
	ResolveTimeout time.Duration

	// AssignTimeout bounds the cumulative bounded-retry role assignment
	// window. Default 10s.
	AssignTimeout time.Duration

	// JMESPath expressions locating fields in provider responses.
	// Zero values fall back to the hosted CMS's default payload shapes.
	CredentialPath  string
	SubjectIDPath   string
	DisplayNamePath string
	RoleNamePath    string

	// HTTPClient is optional; a client with the resolve timeout is used when nil.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Provider implements ports.IdentityProvider over the hosted CMS API.
type Provider struct {
	baseURL        string
	client         *http.Client
	logger         *slog.Logger
	resolveTimeout time.Duration
	assignTimeout  time.Duration
	writePolicy    retry.Policy

	credentialPath  string
	subjectIDPath   string
	displayNamePath string
	roleNamePath    string
}

const (
	defaultResolveTimeout = 5 * time.Second
	defaultAssignTimeout  = 10 * time.Second

	defaultCredentialPath  = "jwt"
	defaultSubjectIDPath   = "user.id"
	defaultDisplayNamePath = "user.username"
	defaultRoleNamePath    = "role.type"
)

// NewProvider constructs a CMS identity provider adapter.
func NewProvider(cfg Config) (*Provider, error) {
	baseURL := strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("cmsauth: BaseURL is required")
	}

	resolveTimeout := cfg.ResolveTimeout
	if resolveTimeout <= 0 {
		resolveTimeout = defaultResolveTimeout
	}
	assignTimeout := cfg.AssignTimeout
	if assignTimeout <= 0 {
		assignTimeout = defaultAssignTimeout
	}

	p := &Provider{
		baseURL:         baseURL,
		client:          cfg.HTTPClient,
		logger:          cfg.Logger,
		resolveTimeout:  resolveTimeout,
		assignTimeout:   assignTimeout,
		writePolicy:     retry.DefaultWritePolicy(),
		credentialPath:  fallback(cfg.CredentialPath, defaultCredentialPath),
		subjectIDPath:   fallback(cfg.SubjectIDPath, defaultSubjectIDPath),
		displayNamePath: fallback(cfg.DisplayNamePath, defaultDisplayNamePath),
		roleNamePath:    fallback(cfg.RoleNamePath, defaultRoleNamePath),
	}
	if p.client == nil {
		p.client = &http.Client{Timeout: resolveTimeout}
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}

	// Validate mapping expressions up front so a bad config fails at startup,
	// not on the first login.
	for _, expr := range []string{p.credentialPath, p.subjectIDPath, p.displayNamePath, p.roleNamePath} {
		if _, err := jmespath.Compile(expr); err != nil {
			return nil, fmt.Errorf("cmsauth: invalid response mapping %q: %w", expr, err)
		}
	}

	return p, nil
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}

// Authenticate exchanges an identifier and secret for a credential and the
// authenticated identity.
// POST {base}/auth/local {"identifier": ..., "password": ...}.
func (p *Provider) Authenticate(ctx context.Context, identifier, secret string) (domainauth.Credential, domainauth.Identity, error) {
	if strings.TrimSpace(identifier) == "" {
		return "", domainauth.Identity{}, apperrors.ValidationField("identifier", "Identifier is required.")
	}
	if secret == "" {
		return "", domainauth.Identity{}, apperrors.ValidationField("secret", "Password is required.")
	}

	ctx, cancel := context.WithTimeout(ctx, p.resolveTimeout)
	defer cancel()

	body := map[string]string{"identifier": identifier, "password": secret}
	payload, status, err := p.postJSON(ctx, "/auth/local", "", body)
	if err != nil {
		return "", domainauth.Identity{}, classifyTransport(err, "authenticate")
	}
	if status == http.StatusBadRequest || status == http.StatusUnauthorized {
		return "", domainauth.Identity{}, apperrors.InvalidCredentials("Invalid identifier or password.")
	}
	if status < 200 || status >= 300 {
		return "", domainauth.Identity{}, apperrors.ProviderUnavailable(fmt.Sprintf("authenticate: provider returned %d", status))
	}

	cred, err := p.extractString(payload, p.credentialPath)
	if err != nil || cred == "" {
		return "", domainauth.Identity{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "authenticate: credential missing from provider response")
	}
	identity := p.extractIdentity(payload)
	return domainauth.Credential(cred), identity, nil
}

// ResolveIdentity fetches the credential's subject and authoritative role.
// GET {base}/users/me?populate=role with the credential as bearer token.
func (p *Provider) ResolveIdentity(ctx context.Context, cred domainauth.Credential) (domainauth.Identity, error) {
	if cred.IsZero() {
		return domainauth.Identity{}, apperrors.InvalidCredentials("credential is required")
	}

	ctx, cancel := context.WithTimeout(ctx, p.resolveTimeout)
	defer cancel()

	payload, status, err := p.getJSON(ctx, "/users/me?populate=role", string(cred))
	if err != nil {
		return domainauth.Identity{}, classifyTransport(err, "resolve identity")
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return domainauth.Identity{}, apperrors.InvalidCredentials("credential rejected by provider")
	}
	if status < 200 || status >= 300 {
		return domainauth.Identity{}, apperrors.ProviderUnavailable(fmt.Sprintf("resolve identity: provider returned %d", status))
	}

	return p.extractSubjectIdentity(payload), nil
}

// Register creates a new subject and returns its credential and identity.
// POST {base}/auth/local/register. Provider-side duplicate errors normalize
// to duplicate_identifier, field-specific by message content.
func (p *Provider) Register(ctx context.Context, reg domainauth.Registration) (domainauth.Credential, domainauth.Identity, error) {
	if err := validateRegistration(reg); err != nil {
		return "", domainauth.Identity{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.resolveTimeout)
	defer cancel()

	body := map[string]string{
		"username": reg.Username,
		"email":    reg.Email,
		"password": reg.Secret,
	}
	if reg.DisplayName != "" {
		body["displayName"] = reg.DisplayName
	}

	payload, status, err := p.postJSON(ctx, "/auth/local/register", "", body)
	if err != nil {
		return "", domainauth.Identity{}, classifyTransport(err, "register")
	}
	if status == http.StatusBadRequest || status == http.StatusConflict {
		return "", domainauth.Identity{}, normalizeRegisterRejection(payload)
	}
	if status < 200 || status >= 300 {
		return "", domainauth.Identity{}, apperrors.ProviderUnavailable(fmt.Sprintf("register: provider returned %d", status))
	}

	cred, err := p.extractString(payload, p.credentialPath)
	if err != nil || cred == "" {
		return "", domainauth.Identity{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "register: credential missing from provider response")
	}
	identity := p.extractIdentity(payload)
	return domainauth.Credential(cred), identity, nil
}

// AssignRole sets the subject's role by role name. The write is retried with
// bounded exponential backoff on transient failures and verified with a
// follow-up read. A mismatched verification read is logged as a warning but
// the assignment still succeeds when the write itself did: the provider's
// read replicas may lag the write (documented relaxed consistency).
func (p *Provider) AssignRole(ctx context.Context, subjectID string, role domainauth.Role) error {
	if subjectID == "" {
		return apperrors.ValidationField("subjectID", "Subject ID is required.")
	}
	if !role.IsValid() || role == domainauth.RoleGuest {
		return apperrors.RoleNotFoundf("role %q is not assignable", role)
	}

	ctx, cancel := context.WithTimeout(ctx, p.assignTimeout)
	defer cancel()

	roleID, err := p.lookupRoleID(ctx, role)
	if err != nil {
		return err
	}

	writeErr := retry.Do(ctx, p.writePolicy, apperrors.IsTransient, func(ctx context.Context) error {
		return p.writeRole(ctx, subjectID, roleID)
	})
	if writeErr != nil {
		return writeErr
	}

	p.verifyAssignment(ctx, subjectID, role)
	return nil
}

// lookupRoleID resolves the provider-internal role id for a role name.
// GET {base}/users-permissions/roles.
func (p *Provider) lookupRoleID(ctx context.Context, role domainauth.Role) (string, error) {
	payload, status, err := p.getJSON(ctx, "/users-permissions/roles", "")
	if err != nil {
		return "", classifyTransport(err, "list roles")
	}
	if status < 200 || status >= 300 {
		return "", apperrors.ProviderUnavailable(fmt.Sprintf("list roles: provider returned %d", status))
	}

	roles, _ := jmespath.Search("roles", payload)
	list, ok := roles.([]any)
	if !ok {
		return "", apperrors.Internal("list roles: unexpected provider response shape")
	}
	for _, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if asString(m["type"]) == string(role) || strings.EqualFold(asString(m["name"]), string(role)) {
			if id := asString(m["id"]); id != "" {
				return id, nil
			}
		}
	}
	return "", apperrors.RoleNotFoundf("role %q not known to provider", role)
}

// writeRole performs the role mutation.
// PUT {base}/users/{id} {"role": <roleID>}.
func (p *Provider) writeRole(ctx context.Context, subjectID, roleID string) error {
	body := map[string]any{"role": roleID}
	payload, status, err := p.putJSON(ctx, "/users/"+subjectID, body)
	if err != nil {
		return classifyTransport(err, "assign role")
	}
	if status == http.StatusNotFound {
		return apperrors.NotFound("assign role: subject not found")
	}
	if status < 200 || status >= 300 {
		return apperrors.ProviderUnavailable(fmt.Sprintf("assign role: provider returned %d", status))
	}
	_ = payload
	return nil
}

// verifyAssignment re-fetches the subject and compares the stored role with
// the intended one. Disagreement is a warning, never a failure.
func (p *Provider) verifyAssignment(ctx context.Context, subjectID string, role domainauth.Role) {
	payload, status, err := p.getJSON(ctx, "/users/"+subjectID+"?populate=role", "")
	if err != nil || status < 200 || status >= 300 {
		p.logger.WarnContext(ctx, "role assignment verification unavailable",
			"subject_id", subjectID, "intended_role", string(role), "error", err, "status", status)
		return
	}
	got := p.extractSubjectIdentity(payload).Role
	if got != role {
		p.logger.WarnContext(ctx, "role assignment verification mismatch",
			"subject_id", subjectID, "intended_role", string(role), "stored_role", string(got))
	}
}

// extractIdentity pulls the subject identity out of an auth response
// (credential + user payload).
func (p *Provider) extractIdentity(payload any) domainauth.Identity {
	id, _ := p.extractString(payload, p.subjectIDPath)
	name, _ := p.extractString(payload, p.displayNamePath)
	roleName, _ := p.extractString(payload, "user."+p.roleNamePath)
	return domainauth.Identity{
		SubjectID:   id,
		DisplayName: name,
		Role:        domainauth.ParseRole(roleName),
	}
}

// extractSubjectIdentity pulls the identity out of a bare subject payload
// (such as the /users/me response, which has no "user" envelope).
func (p *Provider) extractSubjectIdentity(payload any) domainauth.Identity {
	id, _ := p.extractString(payload, strings.TrimPrefix(p.subjectIDPath, "user."))
	name, _ := p.extractString(payload, strings.TrimPrefix(p.displayNamePath, "user."))
	roleName, _ := p.extractString(payload, p.roleNamePath)
	return domainauth.Identity{
		SubjectID:   id,
		DisplayName: name,
		Role:        domainauth.ParseRole(roleName),
	}
}

func (p *Provider) extractString(payload any, expr string) (string, error) {
	v, err := jmespath.Search(expr, payload)
	if err != nil {
		return "", err
	}
	return asString(v), nil
}

// asString renders scalar provider values as strings. The hosted CMS returns
// numeric ids; JSON decoding yields float64 for those.
func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

// validateRegistration checks identifier/secret shape before any network call.
func validateRegistration(reg domainauth.Registration) error {
	username := strings.TrimSpace(reg.Username)
	if username == "" {
		return apperrors.ValidationField("username", "Username is required.")
	}
	if len(username) < 3 {
		return apperrors.ValidationField("username", "Username must be at least 3 characters.")
	}
	email := strings.TrimSpace(reg.Email)
	if email == "" {
		return apperrors.ValidationField("email", "Email is required.")
	}
	if !strings.Contains(email, "@") || strings.HasPrefix(email, "@") || strings.HasSuffix(email, "@") {
		return apperrors.ValidationField("email", "Email address is not valid.")
	}
	if len(reg.Secret) < 8 {
		return apperrors.ValidationField("secret", "Password must be at least 8 characters.")
	}
	return nil
}

// normalizeRegisterRejection classifies a 400/409 registration response.
// A message indicating a taken identifier becomes a field-specific
// duplicate_identifier error (email when the message references email,
// username otherwise); any other provider-side rejection, such as a password
// policy failure, surfaces as a validation error with the provider message.
func normalizeRegisterRejection(payload any) error {
	message := providerMessage(payload)
	lower := strings.ToLower(message)

	if strings.Contains(lower, "taken") || strings.Contains(lower, "already") || strings.Contains(lower, "exist") {
		field := "username"
		if strings.Contains(lower, "email") {
			field = "email"
		}
		return apperrors.DuplicateIdentifier(field, message)
	}

	if message == "" {
		message = "Registration was rejected by the provider."
	}
	return apperrors.Validation(message)
}

// providerMessage digs a human-readable message out of the provider's error
// envelope, tolerating the couple of shapes the hosted CMS has shipped.
func providerMessage(payload any) string {
	for _, expr := range []string{"error.message", "message", "message[0].messages[0].message"} {
		if v, err := jmespath.Search(expr, payload); err == nil {
			if s := asString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// classifyTransport maps transport-level failures onto the error taxonomy.
func classifyTransport(err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrapf(err, apperrors.ErrCodeProviderTimeout, "%s: provider timed out", op)
	}
	if errors.Is(err, context.Canceled) {
		return apperrors.Wrapf(err, apperrors.ErrCodeProviderTimeout, "%s: provider call canceled", op)
	}
	return apperrors.Wrapf(err, apperrors.ErrCodeProviderUnavailable, "%s: provider unreachable", op)
}

func (p *Provider) getJSON(ctx context.Context, path, bearer string) (any, int, error) {
	return p.doJSON(ctx, http.MethodGet, path, bearer, nil)
}

func (p *Provider) postJSON(ctx context.Context, path, bearer string, body any) (any, int, error) {
	return p.doJSON(ctx, http.MethodPost, path, bearer, body)
}

func (p *Provider) putJSON(ctx context.Context, path string, body any) (any, int, error) {
	return p.doJSON(ctx, http.MethodPut, path, "", body)
}

func (p *Provider) doJSON(ctx context.Context, method, path, bearer string, body any) (any, int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	var payload any
	if decodeErr := json.NewDecoder(resp.Body).Decode(&payload); decodeErr != nil && !errors.Is(decodeErr, io.EOF) {
		// Keep the status; callers classify non-2xx before inspecting payload.
		payload = nil
	}
	return payload, resp.StatusCode, nil
}
