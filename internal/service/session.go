package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/lumastream/lumastream/internal/domain/auth"
	"github.com/lumastream/lumastream/internal/ports"
)

// provisionalDisplayName is the placeholder shown while a degraded identity
// is in effect (provider unreachable or not yet consulted).
const provisionalDisplayName = "Pending verification"

// defaultResolveTimeout bounds the read-path provider call. The materializer
// never blocks a page load longer than this.
const defaultResolveTimeout = 5 * time.Second

// MaterializerOptions groups dependencies for Materializer.
type MaterializerOptions struct {
	Provider       ports.IdentityProvider
	ResolveTimeout time.Duration
	Logger         *slog.Logger
}

// Materializer produces exactly one Identity per incoming request from the
// credential and role hint found in transport storage. It never fails a
// request: when the provider is unreachable it degrades to a provisional
// identity synthesized from credential presence and the role hint.
type Materializer struct {
	provider       ports.IdentityProvider
	resolveTimeout time.Duration
	logger         *slog.Logger
}

// NewMaterializer constructs a Materializer.
func NewMaterializer(opts MaterializerOptions) *Materializer {
	timeout := opts.ResolveTimeout
	if timeout <= 0 {
		timeout = defaultResolveTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Materializer{
		provider:       opts.Provider,
		resolveTimeout: timeout,
		logger:         logger,
	}
}

// Materialize reconciles the credential and role hint into the single trusted
// identity for this request.
//
// No credential: guest. Credential present: a provisional identity from the
// hint is the floor; a bounded provider resolution upgrades it with the
// authoritative subject id and display name. The hint keeps precedence for
// the role itself: it is written at the moment of an explicit role assignment
// and may be ahead of the provider's read replicas.
func (m *Materializer) Materialize(ctx context.Context, cred domainauth.Credential, roleHint string) domainauth.Identity {
	if cred.IsZero() {
		return domainauth.Guest()
	}

	provisional := provisionalIdentity(roleHint)

	resolveCtx, cancel := context.WithTimeout(ctx, m.resolveTimeout)
	defer cancel()

	resolved, err := m.provider.ResolveIdentity(resolveCtx, cred)
	if err != nil {
		// Degraded path: the request still renders with the provisional view.
		m.logger.WarnContext(ctx, "identity resolution degraded to role hint",
			"role_hint", roleHint, "error", err)
		return provisional
	}

	identity := domainauth.Identity{
		SubjectID:   resolved.SubjectID,
		DisplayName: resolved.DisplayName,
		Role:        resolved.Role,
	}
	if hinted := domainauth.Role(roleHint); hinted.IsValid() {
		identity.Role = hinted
	}
	return identity
}

// provisionalIdentity synthesizes a fail-safe identity from the role hint.
// It never grants more than the hint claims; an absent or unrecognized hint
// yields guest. The placeholder subject id is unique per request so nothing
// downstream can mistake two degraded requests for the same subject.
func provisionalIdentity(roleHint string) domainauth.Identity {
	return domainauth.Identity{
		SubjectID:   "provisional-" + uuid.NewString(),
		DisplayName: provisionalDisplayName,
		Role:        domainauth.ParseRole(roleHint),
		Provisional: true,
	}
}
