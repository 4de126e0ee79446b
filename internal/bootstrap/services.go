package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/lumastream/lumastream/config"
	"github.com/lumastream/lumastream/internal/adapters/cms"
	"github.com/lumastream/lumastream/internal/adapters/cmsauth"
	"github.com/lumastream/lumastream/internal/adapters/mockauth"
	"github.com/lumastream/lumastream/internal/adapters/rediscache"
	domainauth "github.com/lumastream/lumastream/internal/domain/auth"
	"github.com/lumastream/lumastream/internal/ports"
	"github.com/lumastream/lumastream/internal/service"
)

// Services bundles the wired service layer.
type Services struct {
	Auth         *service.AuthService
	Materializer *service.Materializer
	Content      *service.ContentService
	RedisClient  *redis.Client // nil when the cache is disabled
}

// ServiceDeps carries the inputs for service construction.
type ServiceDeps struct {
	Config *config.AppConfig
	Logger *slog.Logger
}

// NewServices wires adapters and services per configuration.
func NewServices(deps *ServiceDeps) (*Services, error) {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	provider, err := buildIdentityProvider(cfg, logger)
	if err != nil {
		return nil, err
	}

	contentClient, err := cms.NewClient(cms.Config{
		BaseURL:        cfg.Content.BaseURL,
		RequestTimeout: cfg.Content.RequestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("build content client: %w", err)
	}

	var cache ports.ContentCache
	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		cache = rediscache.New(redisClient, cfg.Cache.ContentTTL)
		logger.Info("content cache enabled", "addr", cfg.Cache.RedisAddr, "ttl", cfg.Cache.ContentTTL)
	}

	return &Services{
		Auth: service.NewAuthService(service.AuthServiceOptions{
			Provider:     provider,
			AssignWindow: cfg.Auth.Provider.AssignTimeout,
			Logger:       logger,
		}),
		Materializer: service.NewMaterializer(service.MaterializerOptions{
			Provider:       provider,
			ResolveTimeout: cfg.Auth.Provider.ResolveTimeout,
			Logger:         logger,
		}),
		Content: service.NewContentService(service.ContentServiceOptions{
			API:    contentClient,
			Cache:  cache,
			Logger: logger,
		}),
		RedisClient: redisClient,
	}, nil
}

// buildIdentityProvider creates the identity provider for the configured auth mode.
//
//nolint:ireturn // callers depend on the port, not a concrete adapter.
func buildIdentityProvider(cfg *config.AppConfig, logger *slog.Logger) (ports.IdentityProvider, error) {
	switch cfg.Auth.Mode {
	case config.AuthModeMock:
		logger.Warn("mock identity provider enabled; do not use in production")
		return mockauth.NewProvider(mockauth.Config{
			SubjectID:   cfg.Auth.MockAuth.SubjectID,
			DisplayName: cfg.Auth.MockAuth.DisplayName,
			Role:        domainauth.ParseRole(cfg.Auth.MockAuth.Role),
		})

	case config.AuthModeCMS:
		return cmsauth.NewProvider(cmsauth.Config{
			BaseURL:         cfg.Auth.Provider.BaseURL,
			ResolveTimeout:  cfg.Auth.Provider.ResolveTimeout,
			AssignTimeout:   cfg.Auth.Provider.AssignTimeout,
			CredentialPath:  cfg.Auth.Provider.CredentialPath,
			SubjectIDPath:   cfg.Auth.Provider.SubjectIDPath,
			DisplayNamePath: cfg.Auth.Provider.DisplayNamePath,
			RoleNamePath:    cfg.Auth.Provider.RoleNamePath,
			Logger:          logger,
		})

	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Auth.Mode)
	}
}
