package httpx

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	domainauth "github.com/lumastream/lumastream/internal/domain/auth"
	apperrors "github.com/lumastream/lumastream/internal/errors"
	"github.com/lumastream/lumastream/internal/http/validation"
	"github.com/lumastream/lumastream/internal/service"
)

// AuthHandlers provides HTTP handlers for login, logout, and registration.
type AuthHandlers struct {
	Svc      *service.AuthService
	Cookies  CookieWriter
	Renderer *TemplateRenderer
	Logger   *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// LoginPage renders the login form.
// GET /login?required_role=<roles> — the guard appends required_role when it
// bounced the visitor here, so the form can send them back after sign-in.
func (h *AuthHandlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, r, http.StatusOK, loginForm{
		RequiredRole: r.URL.Query().Get("required_role"),
	}, "")
}

// Login authenticates the submitted identifier/secret and establishes the
// cookie session.
// POST /login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderLogin(w, r, http.StatusBadRequest, loginForm{}, "Could not read the form. Please try again.")
		return
	}

	form := loginForm{
		Identifier:   strings.TrimSpace(r.PostFormValue("identifier")),
		RequiredRole: r.PostFormValue("required_role"),
	}
	secret := r.PostFormValue("password")

	result, err := h.Svc.Login(r.Context(), form.Identifier, secret)
	if err != nil {
		switch {
		case apperrors.IsInvalidCredentials(err) || apperrors.IsValidation(err):
			h.renderLogin(w, r, http.StatusUnauthorized, form, "Invalid email/username or password.")
		case apperrors.IsProviderTimeout(err) || apperrors.IsProviderUnavailable(err):
			h.logger().WarnContext(r.Context(), "login degraded: provider unreachable", "error", err)
			h.renderLogin(w, r, http.StatusServiceUnavailable, form,
				"We are having trouble reaching our records service. Please try again in a moment.")
		default:
			h.logger().ErrorContext(r.Context(), "login failed", "error", err)
			h.renderLogin(w, r, http.StatusInternalServerError, form, "Something went wrong. Please try again.")
		}
		return
	}

	h.Cookies.SetSession(w, r, result.Credential, result.Identity.Role)
	http.Redirect(w, r, postLoginTarget(form.RequiredRole, result.Identity.Role), http.StatusFound)
}

// RegisterPage renders the registration form.
// GET /register.
func (h *AuthHandlers) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.renderRegister(w, r, http.StatusOK, registerForm{AccountType: "family_contact"}, nil)
}

// Register creates the account with the provider, establishes the cookie
// session, and requests the chosen role best-effort.
// POST /register.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderRegister(w, r, http.StatusBadRequest, registerForm{AccountType: "family_contact"},
			map[string]string{"form": "Could not read the form. Please try again."})
		return
	}

	form := registerForm{
		Username:    strings.TrimSpace(r.PostFormValue("username")),
		Email:       strings.TrimSpace(r.PostFormValue("email")),
		DisplayName: strings.TrimSpace(r.PostFormValue("display_name")),
		AccountType: r.PostFormValue("account_type"),
	}
	secret := r.PostFormValue("password")

	if fieldErrors := validation.ValidateRegistration(form.Username, form.Email, secret); len(fieldErrors) > 0 {
		h.renderRegister(w, r, http.StatusUnprocessableEntity, form, fieldErrors)
		return
	}

	requestedRole := domainauth.ParseRole(form.AccountType)
	result, err := h.Svc.Register(r.Context(), domainauth.Registration{
		Username:      form.Username,
		Email:         form.Email,
		Secret:        secret,
		DisplayName:   form.DisplayName,
		RequestedRole: requestedRole,
	})
	if err != nil {
		h.renderRegisterError(w, r, form, err)
		return
	}

	// The hint carries the requested role even when the provider's role write
	// is still settling; the materializer's hint precedence bridges the gap.
	h.Cookies.SetSession(w, r, result.Credential, result.Identity.Role)
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// RequestRole changes the signed-in subject's role mid-session and rewrites
// the role hint so the new role takes effect on the next request, ahead of
// the provider's read replicas.
// POST /account/role — the guard requires a signed-in identity upstream.
func (h *AuthHandlers) RequestRole(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/dashboard?role_error=1", http.StatusFound)
		return
	}

	identity := IdentityFromContext(r.Context())
	role := domainauth.ParseRole(r.PostFormValue("role"))
	if identity.Provisional || role == domainauth.RoleGuest {
		// A role change needs the provider's subject id and a concrete target
		// role; anything else bounces back with a notice.
		http.Redirect(w, r, "/dashboard?role_error=1", http.StatusFound)
		return
	}

	if err := h.Svc.AssignRole(r.Context(), identity.SubjectID, role); err != nil {
		h.logger().WarnContext(r.Context(), "mid-session role change failed",
			"subject_id", identity.SubjectID, "requested_role", string(role), "error", err)
		http.Redirect(w, r, "/dashboard?role_error=1", http.StatusFound)
		return
	}

	h.Cookies.SetRoleHint(w, r, role)
	http.Redirect(w, r, "/dashboard?role_updated=1", http.StatusFound)
}

// Logout clears the cookie session.
// POST /logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.Cookies.ClearSession(w, r)
	http.Redirect(w, r, "/", http.StatusFound)
}

// Status reports the materialized identity of the request.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())
	if identity.IsGuest() {
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"subject_id":    identity.SubjectID,
		"display_name":  identity.DisplayName,
		"role":          identity.Role,
		"role_label":    identity.Role.Label(),
		"provisional":   identity.Provisional,
	})
}

type loginForm struct {
	Identifier   string
	RequiredRole string
}

type registerForm struct {
	Username    string
	Email       string
	DisplayName string
	AccountType string
}

func (h *AuthHandlers) renderLogin(w http.ResponseWriter, r *http.Request, status int, form loginForm, formError string) {
	data := PageData{
		Title:    "Sign in",
		Identity: IdentityFromContext(r.Context()),
		Data: map[string]any{
			"identifier":   form.Identifier,
			"requiredRole": form.RequiredRole,
		},
	}
	if formError != "" {
		data.Errors = map[string]string{"form": formError}
	}
	h.Renderer.Render(w, r, status, "login", data)
}

func (h *AuthHandlers) renderRegister(w http.ResponseWriter, r *http.Request, status int, form registerForm, fieldErrors map[string]string) {
	accountType := form.AccountType
	if accountType == "" {
		accountType = "family_contact"
	}
	h.Renderer.Render(w, r, status, "register", PageData{
		Title:    "Create an account",
		Identity: IdentityFromContext(r.Context()),
		Data: map[string]any{
			"username":    form.Username,
			"email":       form.Email,
			"displayName": form.DisplayName,
			"accountType": accountType,
		},
		Errors: fieldErrors,
	})
}

func (h *AuthHandlers) renderRegisterError(w http.ResponseWriter, r *http.Request, form registerForm, err error) {
	switch {
	case apperrors.IsDuplicateIdentifier(err):
		field := apperrors.GetField(err)
		message := "That " + field + " is already taken."
		h.renderRegister(w, r, http.StatusConflict, form, map[string]string{field: message})
	case apperrors.IsValidation(err):
		field := apperrors.GetField(err)
		if field == "" {
			field = "form"
		}
		h.renderRegister(w, r, http.StatusUnprocessableEntity, form, map[string]string{field: err.Error()})
	case apperrors.IsProviderTimeout(err) || apperrors.IsProviderUnavailable(err):
		h.logger().WarnContext(r.Context(), "registration degraded: provider unreachable", "error", err)
		h.renderRegister(w, r, http.StatusServiceUnavailable, form,
			map[string]string{"form": "We are having trouble reaching our records service. Please try again in a moment."})
	default:
		h.logger().ErrorContext(r.Context(), "registration failed", "error", err)
		h.renderRegister(w, r, http.StatusInternalServerError, form,
			map[string]string{"form": "Something went wrong. Please try again."})
	}
}

// postLoginTarget sends the visitor back to where the guard bounced them
// from, when their new role satisfies it; otherwise the dashboard.
func postLoginTarget(requiredRole string, actual domainauth.Role) string {
	if requiredRole == "" {
		return "/dashboard"
	}
	for _, name := range strings.Split(requiredRole, ",") {
		if domainauth.ParseRole(strings.TrimSpace(name)) == actual {
			return "/dashboard"
		}
	}
	// Role does not satisfy the original requirement; the dashboard explains
	// what the account can do instead of bouncing into the guard again.
	return "/dashboard?" + url.Values{"notice": {"role"}}.Encode()
}
