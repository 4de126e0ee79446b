package httpx

import (
	"net/http"
	"net/url"
	"sort"
	"strings"

	domainauth "github.com/lumastream/lumastream/internal/domain/auth"
)

// GuardState is the terminal outcome of one guard evaluation. The guard
// evaluates once per request and never re-evaluates mid-request.
type GuardState int

const (
	// GuardUnchecked is the pre-evaluation state.
	GuardUnchecked GuardState = iota
	// GuardGranted lets the request proceed unmodified.
	GuardGranted
	// GuardDeniedNoSession redirects an unauthenticated visitor to login,
	// carrying the required roles so the login flow can return them here.
	GuardDeniedNoSession
	// GuardDeniedWrongRole redirects an authenticated visitor with an
	// unacceptable role to the access-denied view. Never back to login:
	// that would loop.
	GuardDeniedWrongRole
)

// GuardDecision carries the terminal state and, for denials, the redirect target.
type GuardDecision struct {
	State      GuardState
	RedirectTo string
}

// EvaluateGuard decides access for the materialized identity against the
// route requirement. A role outside the closed enumeration is treated as
// guest; the safe default never escalates.
func EvaluateGuard(identity domainauth.Identity, req domainauth.RouteRequirement) GuardDecision {
	role := identity.Role
	if !role.IsValid() {
		role = domainauth.RoleGuest
	}

	if role == domainauth.RoleGuest {
		return GuardDecision{
			State:      GuardDeniedNoSession,
			RedirectTo: loginRedirectURL(req),
		}
	}

	if req.Allows(role) {
		return GuardDecision{State: GuardGranted}
	}

	return GuardDecision{
		State:      GuardDeniedWrongRole,
		RedirectTo: deniedRedirectURL(req, role),
	}
}

// loginRedirectURL builds /login?required_role=a,b so the login flow can
// redirect back post-authentication.
func loginRedirectURL(req domainauth.RouteRequirement) string {
	path := req.LoginPath
	if path == "" {
		path = "/login"
	}
	q := url.Values{}
	q.Set("required_role", joinRoles(req.AllowedRoles))
	return path + "?" + q.Encode()
}

// deniedRedirectURL builds /access-denied?required=a,b&actual=<role> so the
// denied view can show required versus actual.
func deniedRedirectURL(req domainauth.RouteRequirement, actual domainauth.Role) string {
	path := req.DeniedPath
	if path == "" {
		path = "/access-denied"
	}
	q := url.Values{}
	q.Set("required", joinRoles(req.AllowedRoles))
	q.Set("actual", string(actual))
	return path + "?" + q.Encode()
}

// joinRoles renders the allowed set in ascending privilege order so the
// redirect target is stable regardless of route declaration order.
func joinRoles(roles []domainauth.Role) string {
	ordered := make([]domainauth.Role, len(roles))
	copy(ordered, roles)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Privilege() < ordered[j].Privilege()
	})

	names := make([]string, 0, len(ordered))
	for _, r := range ordered {
		names = append(names, string(r))
	}
	return strings.Join(names, ",")
}

// RequireRoles returns middleware enforcing that the materialized identity
// holds one of the given roles (OR semantics). Denials produce 302 redirects,
// never raw errors; the identity middleware must run upstream.
func RequireRoles(roles ...domainauth.Role) func(http.Handler) http.Handler {
	requirement := domainauth.RouteRequirement{AllowedRoles: roles}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFromContext(r.Context())
			decision := EvaluateGuard(identity, requirement)
			if decision.State != GuardGranted {
				http.Redirect(w, r, decision.RedirectTo, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
