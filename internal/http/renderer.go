package httpx

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	domainauth "github.com/lumastream/lumastream/internal/domain/auth"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// TemplateRenderer renders HTML pages for UI responses.
type TemplateRenderer struct {
	t      *template.Template
	logger *slog.Logger
}

// NewTemplateRenderer parses the embedded template set.
func NewTemplateRenderer(logger *slog.Logger) (*TemplateRenderer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	t, err := template.New("lumastream").Funcs(template.FuncMap{
		"roleLabel": func(r domainauth.Role) string { return r.Label() },
	}).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &TemplateRenderer{t: t, logger: logger}, nil
}

// PageData is the envelope every page template receives.
type PageData struct {
	Title    string
	Identity domainauth.Identity
	// Data carries page-specific values.
	Data map[string]any
	// Errors carries field-level validation messages for form re-render.
	Errors map[string]string
	// Flash carries a one-off notice for the page.
	Flash string
}

// Render writes the named page. Template failures render a plain 500 rather
// than a half-written page.
func (tr *TemplateRenderer) Render(w http.ResponseWriter, r *http.Request, status int, name string, data PageData) {
	if data.Data == nil {
		data.Data = map[string]any{}
	}
	var buf bytes.Buffer
	if err := tr.t.ExecuteTemplate(&buf, name, data); err != nil {
		tr.logger.ErrorContext(r.Context(), "template render failed", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		return
	}
}
