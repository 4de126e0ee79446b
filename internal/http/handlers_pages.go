package httpx

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	domainauth "github.com/lumastream/lumastream/internal/domain/auth"
	"github.com/lumastream/lumastream/internal/domain/content"
	apperrors "github.com/lumastream/lumastream/internal/errors"
	"github.com/lumastream/lumastream/internal/http/validation"
	"github.com/lumastream/lumastream/internal/service"
)

// PageHandlers serves the public site and the role-gated dashboards.
type PageHandlers struct {
	Content  *service.ContentService
	Renderer *TemplateRenderer
	Logger   *slog.Logger
}

func (h *PageHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

const homeTributeLimit = 5

// Home renders the marketing landing page with the most recent tributes.
// GET /.
func (h *PageHandlers) Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		h.NotFound(w, r)
		return
	}

	tributes, err := h.Content.PublicTributes(r.Context())
	if err != nil {
		// The landing page renders without the listing rather than failing.
		h.logger().WarnContext(r.Context(), "home tribute listing unavailable", "error", err)
		tributes = nil
	}
	if len(tributes) > homeTributeLimit {
		tributes = tributes[:homeTributeLimit]
	}

	h.Renderer.Render(w, r, http.StatusOK, "home", PageData{
		Title:    "Memorial livestreaming",
		Identity: IdentityFromContext(r.Context()),
		Data:     map[string]any{"tributes": tributes},
	})
}

// Tributes renders the published tribute listing.
// GET /tributes.
func (h *PageHandlers) Tributes(w http.ResponseWriter, r *http.Request) {
	tributes, err := h.Content.PublicTributes(r.Context())
	if err != nil {
		h.renderContentError(w, r, err)
		return
	}
	h.Renderer.Render(w, r, http.StatusOK, "tributes", PageData{
		Title:    "Tributes",
		Identity: IdentityFromContext(r.Context()),
		Data:     map[string]any{"tributes": tributes},
	})
}

// Tribute renders one tribute page.
// GET /tributes/{slug}.
func (h *PageHandlers) Tribute(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	tribute, err := h.Content.TributeBySlug(r.Context(), slug)
	if err != nil {
		if apperrors.IsNotFound(err) {
			h.NotFound(w, r)
			return
		}
		h.renderContentError(w, r, err)
		return
	}
	h.Renderer.Render(w, r, http.StatusOK, "tribute", PageData{
		Title:    tribute.LovedOneName,
		Identity: IdentityFromContext(r.Context()),
		Data:     map[string]any{"tribute": tribute},
	})
}

// FuneralHomes renders the partner directory.
// GET /funeral-homes.
func (h *PageHandlers) FuneralHomes(w http.ResponseWriter, r *http.Request) {
	homes, err := h.Content.FuneralHomes(r.Context())
	if err != nil {
		h.renderContentError(w, r, err)
		return
	}
	h.Renderer.Render(w, r, http.StatusOK, "funeral_homes", PageData{
		Title:    "Partner funeral homes",
		Identity: IdentityFromContext(r.Context()),
		Data:     map[string]any{"homes": homes},
	})
}

// FuneralHome renders one partner profile.
// GET /funeral-homes/{slug}.
func (h *PageHandlers) FuneralHome(w http.ResponseWriter, r *http.Request) {
	home, err := h.Content.FuneralHomeBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		if apperrors.IsNotFound(err) {
			h.NotFound(w, r)
			return
		}
		h.renderContentError(w, r, err)
		return
	}
	h.Renderer.Render(w, r, http.StatusOK, "funeral_home", PageData{
		Title:    home.Name,
		Identity: IdentityFromContext(r.Context()),
		Data:     map[string]any{"home": home},
	})
}

// Dashboard routes the signed-in visitor to their role's dashboard. The guard
// upstream guarantees a non-guest identity.
// GET /dashboard.
func (h *PageHandlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())
	cred, _ := ReadSession(r)

	switch identity.Role {
	case domainauth.RoleFuneralDirector:
		h.directorDashboard(w, r, identity, cred)
	default:
		h.familyDashboard(w, r, identity, cred)
	}
}

func (h *PageHandlers) familyDashboard(w http.ResponseWriter, r *http.Request, identity domainauth.Identity, cred domainauth.Credential) {
	var tributes []content.Tribute
	if !identity.Provisional {
		var err error
		tributes, err = h.Content.TributesForContact(r.Context(), cred, identity.SubjectID)
		if err != nil {
			h.logger().WarnContext(r.Context(), "family dashboard listing unavailable", "error", err)
			identity.Provisional = true
		}
	}
	h.Renderer.Render(w, r, http.StatusOK, "dashboard_family", PageData{
		Title:    "Your tributes",
		Identity: identity,
		Data:     map[string]any{"tributes": tributes},
		Flash:    dashboardFlash(r),
	})
}

func (h *PageHandlers) directorDashboard(w http.ResponseWriter, r *http.Request, identity domainauth.Identity, cred domainauth.Credential) {
	var tributes []content.Tribute
	if !identity.Provisional {
		var err error
		tributes, err = h.Content.TributesForFuneralHome(r.Context(), cred, identity.SubjectID)
		if err != nil {
			h.logger().WarnContext(r.Context(), "director dashboard listing unavailable", "error", err)
			identity.Provisional = true
		}
	}
	h.Renderer.Render(w, r, http.StatusOK, "dashboard_director", PageData{
		Title:    "Scheduled services",
		Identity: identity,
		Data:     map[string]any{"tributes": tributes},
		Flash:    dashboardFlash(r),
	})
}

func dashboardFlash(r *http.Request) string {
	if r.URL.Query().Get("notice") == "role" {
		return "Your account does not have access to the page you came from."
	}
	if r.URL.Query().Get("scheduled") == "1" {
		return "Your livestream request has been submitted."
	}
	if r.URL.Query().Get("role_updated") == "1" {
		return "Your account role has been updated."
	}
	if r.URL.Query().Get("role_error") == "1" {
		return "We could not update your account role. Please try again in a moment."
	}
	return ""
}

// SchedulePage renders the scheduling form.
// GET /schedule — guard requires family_contact or funeral_director.
func (h *PageHandlers) SchedulePage(w http.ResponseWriter, r *http.Request) {
	h.renderSchedule(w, r, http.StatusOK, scheduleForm{}, nil)
}

// Schedule submits a livestream scheduling request to the CMS.
// POST /schedule.
func (h *PageHandlers) Schedule(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderSchedule(w, r, http.StatusBadRequest, scheduleForm{},
			map[string]string{"form": "Could not read the form. Please try again."})
		return
	}

	form := scheduleForm{
		LovedOneName:  strings.TrimSpace(r.PostFormValue("loved_one_name")),
		Headline:      strings.TrimSpace(r.PostFormValue("headline")),
		Description:   strings.TrimSpace(r.PostFormValue("description")),
		ScheduledAt:   r.PostFormValue("scheduled_at"),
		FuneralHomeID: r.PostFormValue("funeral_home_id"),
	}

	fieldErrors := map[string]string{}
	if msg := validation.Required("Loved one's name", 120)(form.LovedOneName); msg != "" {
		fieldErrors["lovedOneName"] = msg
	}
	if msg := validation.FutureTime("Service date", time.Now())(form.ScheduledAt); msg != "" {
		fieldErrors["scheduledAt"] = msg
	}
	if len(fieldErrors) > 0 {
		h.renderSchedule(w, r, http.StatusUnprocessableEntity, form, fieldErrors)
		return
	}

	identity := IdentityFromContext(r.Context())
	if identity.Provisional {
		// A degraded identity can browse, but a write needs the provider's
		// subject id; ask the visitor to retry once the provider is back.
		h.renderSchedule(w, r, http.StatusServiceUnavailable, form,
			map[string]string{"form": "We could not verify your account just now. Please try again in a moment."})
		return
	}

	scheduledAt, _ := time.Parse("2006-01-02T15:04", form.ScheduledAt)
	cred, _ := ReadSession(r)
	_, err := h.Content.ScheduleTribute(r.Context(), cred, content.ScheduleRequest{
		LovedOneName:     form.LovedOneName,
		Headline:         form.Headline,
		Description:      form.Description,
		ScheduledAt:      scheduledAt,
		FuneralHomeID:    form.FuneralHomeID,
		ContactSubjectID: identity.SubjectID,
	})
	if err != nil {
		if apperrors.IsValidation(err) {
			h.renderSchedule(w, r, http.StatusUnprocessableEntity, form, map[string]string{"form": err.Error()})
			return
		}
		h.logger().ErrorContext(r.Context(), "schedule request failed", "error", err)
		h.renderSchedule(w, r, http.StatusServiceUnavailable, form,
			map[string]string{"form": "We could not submit your request. Please try again in a moment."})
		return
	}

	http.Redirect(w, r, "/dashboard?scheduled=1", http.StatusFound)
}

type scheduleForm struct {
	LovedOneName  string
	Headline      string
	Description   string
	ScheduledAt   string
	FuneralHomeID string
}

func (h *PageHandlers) renderSchedule(w http.ResponseWriter, r *http.Request, status int, form scheduleForm, fieldErrors map[string]string) {
	homes, err := h.Content.FuneralHomes(r.Context())
	if err != nil {
		h.logger().WarnContext(r.Context(), "funeral home options unavailable", "error", err)
		homes = nil
	}
	h.Renderer.Render(w, r, status, "schedule", PageData{
		Title:    "Schedule a livestream",
		Identity: IdentityFromContext(r.Context()),
		Data: map[string]any{
			"lovedOneName": form.LovedOneName,
			"headline":     form.Headline,
			"description":  form.Description,
			"scheduledAt":  form.ScheduledAt,
			"homes":        homes,
		},
		Errors: fieldErrors,
	})
}

// AccessDenied renders the access-denied view with required versus actual
// role labels.
// GET /access-denied?required=<set>&actual=<role>.
func (h *PageHandlers) AccessDenied(w http.ResponseWriter, r *http.Request) {
	required := describeRoles(r.URL.Query().Get("required"))
	actual := ""
	if raw := r.URL.Query().Get("actual"); raw != "" {
		actual = domainauth.ParseRole(raw).Label()
	}
	h.Renderer.Render(w, r, http.StatusForbidden, "access_denied", PageData{
		Title:    "Access denied",
		Identity: IdentityFromContext(r.Context()),
		Data:     map[string]any{"required": required, "actual": actual},
	})
}

// NotFound renders the 404 page.
func (h *PageHandlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.Renderer.Render(w, r, http.StatusNotFound, "not_found", PageData{
		Title:    "Page not found",
		Identity: IdentityFromContext(r.Context()),
	})
}

func (h *PageHandlers) renderContentError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger().ErrorContext(r.Context(), "content page failed", "path", r.URL.Path, "error", err)
	h.Renderer.Render(w, r, http.StatusServiceUnavailable, "error", PageData{
		Title:    "Something went wrong",
		Identity: IdentityFromContext(r.Context()),
		Data:     map[string]any{"message": "We could not load this page. Please try again in a moment."},
	})
}

// describeRoles turns a comma-joined role set into display labels.
func describeRoles(raw string) string {
	if raw == "" {
		return "member"
	}
	parts := strings.Split(raw, ",")
	labels := make([]string, 0, len(parts))
	for _, p := range parts {
		labels = append(labels, domainauth.ParseRole(strings.TrimSpace(p)).Label())
	}
	return strings.Join(labels, " or ")
}
