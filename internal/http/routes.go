package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/lumastream/lumastream/internal/domain/auth"
	"github.com/lumastream/lumastream/internal/service"
)

// RouterServices holds the services needed by the HTTP router.
type RouterServices struct {
	Auth         *service.AuthService
	Materializer *service.Materializer
	Content      *service.ContentService
	Cookies      CookieWriter
	Logger       *slog.Logger
}

// NewRouter creates and configures the HTTP router. Every route runs behind
// the identity materialization middleware; protected routes additionally run
// behind the role guard.
func NewRouter(services RouterServices) (http.Handler, error) {
	renderer, err := NewTemplateRenderer(services.Logger)
	if err != nil {
		return nil, err
	}

	authHandlers := &AuthHandlers{
		Svc:      services.Auth,
		Cookies:  services.Cookies,
		Renderer: renderer,
		Logger:   services.Logger,
	}
	pageHandlers := &PageHandlers{
		Content:  services.Content,
		Renderer: renderer,
		Logger:   services.Logger,
	}

	mux := http.NewServeMux()

	// Public pages.
	mux.HandleFunc("GET /", pageHandlers.Home)
	mux.HandleFunc("GET /tributes", pageHandlers.Tributes)
	mux.HandleFunc("GET /tributes/{slug}", pageHandlers.Tribute)
	mux.HandleFunc("GET /funeral-homes", pageHandlers.FuneralHomes)
	mux.HandleFunc("GET /funeral-homes/{slug}", pageHandlers.FuneralHome)
	mux.HandleFunc("GET /access-denied", pageHandlers.AccessDenied)

	// Auth surface.
	mux.HandleFunc("GET /login", authHandlers.LoginPage)
	mux.HandleFunc("POST /login", authHandlers.Login)
	mux.HandleFunc("GET /register", authHandlers.RegisterPage)
	mux.HandleFunc("POST /register", authHandlers.Register)
	mux.HandleFunc("POST /logout", authHandlers.Logout)
	mux.HandleFunc("GET /auth/status", authHandlers.Status)

	// Role-gated pages.
	anySignedIn := RequireRoles(
		domainauth.RoleAuthenticated,
		domainauth.RoleFamilyContact,
		domainauth.RoleFuneralDirector,
	)
	schedulers := RequireRoles(
		domainauth.RoleFamilyContact,
		domainauth.RoleFuneralDirector,
	)
	mux.Handle("GET /dashboard", anySignedIn(http.HandlerFunc(pageHandlers.Dashboard)))
	mux.Handle("POST /account/role", anySignedIn(http.HandlerFunc(authHandlers.RequestRole)))
	mux.Handle("GET /schedule", schedulers(http.HandlerFunc(pageHandlers.SchedulePage)))
	mux.Handle("POST /schedule", schedulers(http.HandlerFunc(pageHandlers.Schedule)))

	mux.Handle("GET /static/", staticHandler())

	mux.HandleFunc("GET /healthz", healthHandler)
	mux.HandleFunc("HEAD /healthz", healthHandler)

	handler := Chain(mux,
		Recover(services.Logger),
		Logging(services.Logger),
		WithIdentity(services.Materializer),
	)
	return handler, nil
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
