package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lumastream/lumastream/config"
	httpx "github.com/lumastream/lumastream/internal/http"
)

// shutdownGrace bounds in-flight request draining on shutdown.
const shutdownGrace = 10 * time.Second

// RunHTTPServer builds the router and serves until the context is canceled
// or a termination signal arrives, then drains gracefully.
func RunHTTPServer(ctx context.Context, cfg *config.AppConfig, services *Services, logger *slog.Logger) error {
	handler, err := httpx.NewRouter(httpx.RouterServices{
		Auth:         services.Auth,
		Materializer: services.Materializer,
		Content:      services.Content,
		Cookies: httpx.CookieWriter{
			Domain:           cfg.HTTP.CookieDomain,
			CredentialMaxAge: cfg.Auth.CredentialCookieMaxAge,
			RoleHintMaxAge:   cfg.Auth.RoleHintCookieMaxAge,
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting HTTP server", "addr", cfg.HTTP.Addr)
		if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return serveErr
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
