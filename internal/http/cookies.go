package httpx

import (
	"net/http"
	"strings"
	"time"

	domainauth "github.com/lumastream/lumastream/internal/domain/auth"
)

// Transport storage names. The credential cookie is httpOnly and carries the
// provider-minted bearer token; the role hint cookie is deliberately readable
// by the client for low-trust role display and provisional guard decisions.
const (
	CredentialCookieName = "lumastream_credential"
	RoleHintCookieName   = "lumastream_role"
)

// CookieWriter writes and clears the credential/role-hint cookie pair with
// consistent attributes.
type CookieWriter struct {
	Domain string
	// CredentialMaxAge bounds the credential cookie; ~7 days in production config.
	CredentialMaxAge time.Duration
	// RoleHintMaxAge bounds the role hint cookie, configured independently so
	// the hint can outlive or expire with the credential per deployment policy.
	RoleHintMaxAge time.Duration
}

// isSecureRequest reports whether the request arrived over TLS, directly or
// via a terminating proxy.
func isSecureRequest(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// SetSession writes the credential and role hint cookies.
func (cw CookieWriter) SetSession(w http.ResponseWriter, r *http.Request, cred domainauth.Credential, role domainauth.Role) {
	secure := isSecureRequest(r)

	http.SetCookie(w, &http.Cookie{
		Name:     CredentialCookieName,
		Value:    string(cred),
		Path:     "/",
		Domain:   cw.Domain,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(cw.CredentialMaxAge.Seconds()),
	})

	// Not httpOnly: client-side display reads this. Never trusted beyond what
	// the guard's safe-default normalization allows.
	http.SetCookie(w, &http.Cookie{
		Name:     RoleHintCookieName,
		Value:    string(role),
		Path:     "/",
		Domain:   cw.Domain,
		HttpOnly: false,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(cw.RoleHintMaxAge.Seconds()),
	})
}

// SetRoleHint rewrites only the role hint cookie, used when a role assignment
// happens mid-session.
func (cw CookieWriter) SetRoleHint(w http.ResponseWriter, r *http.Request, role domainauth.Role) {
	http.SetCookie(w, &http.Cookie{
		Name:     RoleHintCookieName,
		Value:    string(role),
		Path:     "/",
		Domain:   cw.Domain,
		HttpOnly: false,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(cw.RoleHintMaxAge.Seconds()),
	})
}

// ClearSession expires both cookies. It mirrors the attributes used when
// setting them to maximize deletion compatibility across browsers.
func (cw CookieWriter) ClearSession(w http.ResponseWriter, r *http.Request) {
	secure := isSecureRequest(r)
	for _, name := range []string{CredentialCookieName, RoleHintCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   cw.Domain,
			HttpOnly: name == CredentialCookieName,
			Secure:   secure,
			SameSite: http.SameSiteStrictMode,
			MaxAge:   -1,
			Expires:  time.Unix(0, 0).UTC(),
		})
	}
}

// ReadSession extracts the credential and role hint from the request.
// Missing cookies read as zero values.
func ReadSession(r *http.Request) (domainauth.Credential, string) {
	var cred domainauth.Credential
	if c, err := r.Cookie(CredentialCookieName); err == nil {
		cred = domainauth.Credential(c.Value)
	}
	var hint string
	if c, err := r.Cookie(RoleHintCookieName); err == nil {
		hint = c.Value
	}
	return cred, hint
}
