package service

import (
	"context"
	"encoding/json"
	"log/slog"

	domainauth "github.com/lumastream/lumastream/internal/domain/auth"
	"github.com/lumastream/lumastream/internal/domain/content"
	apperrors "github.com/lumastream/lumastream/internal/errors"
	"github.com/lumastream/lumastream/internal/ports"
)

// ContentAPI is the subset of the hosted CMS content client the service
// layer consumes. The service defines the interface; adapters implement it.
type ContentAPI interface {
	ListTributes(ctx context.Context) ([]content.Tribute, error)
	GetTributeBySlug(ctx context.Context, slug string) (content.Tribute, error)
	ListTributesForContact(ctx context.Context, cred domainauth.Credential, subjectID string) ([]content.Tribute, error)
	ListTributesForFuneralHome(ctx context.Context, cred domainauth.Credential, funeralHomeID string) ([]content.Tribute, error)
	CreateTribute(ctx context.Context, cred domainauth.Credential, req content.ScheduleRequest) (content.Tribute, error)
	ListFuneralHomes(ctx context.Context) ([]content.FuneralHome, error)
	GetFuneralHomeBySlug(ctx context.Context, slug string) (content.FuneralHome, error)
}

// ContentServiceOptions groups dependencies for ContentService.
type ContentServiceOptions struct {
	API    ContentAPI
	Cache  ports.ContentCache // optional; nil disables caching
	Logger *slog.Logger
}

// ContentService orchestrates content reads and writes. Public listings read
// through the cache; authenticated reads and all writes go straight to the
// CMS, and writes invalidate the affected cache entries.
type ContentService struct {
	api    ContentAPI
	cache  ports.ContentCache
	logger *slog.Logger
}

// NewContentService constructs a ContentService.
func NewContentService(opts ContentServiceOptions) *ContentService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentService{api: opts.API, cache: opts.Cache, logger: logger}
}

const (
	cacheKeyTributes     = "tributes"
	cacheKeyFuneralHomes = "funeral-homes"
)

// PublicTributes returns published tributes, cached.
func (s *ContentService) PublicTributes(ctx context.Context) ([]content.Tribute, error) {
	var tributes []content.Tribute
	if s.cachedGet(ctx, cacheKeyTributes, &tributes) {
		return tributes, nil
	}

	tributes, err := s.api.ListTributes(ctx)
	if err != nil {
		return nil, err
	}
	s.cachedSet(ctx, cacheKeyTributes, tributes)
	return tributes, nil
}

// TributeBySlug returns one published tribute, cached per slug.
func (s *ContentService) TributeBySlug(ctx context.Context, slug string) (content.Tribute, error) {
	key := "tribute:" + slug
	var tribute content.Tribute
	if s.cachedGet(ctx, key, &tribute) {
		return tribute, nil
	}

	tribute, err := s.api.GetTributeBySlug(ctx, slug)
	if err != nil {
		return content.Tribute{}, err
	}
	s.cachedSet(ctx, key, tribute)
	return tribute, nil
}

// TributesForContact returns the requesting family contact's tributes.
// Never cached; the response is identity-specific.
func (s *ContentService) TributesForContact(ctx context.Context, cred domainauth.Credential, subjectID string) ([]content.Tribute, error) {
	return s.api.ListTributesForContact(ctx, cred, subjectID)
}

// TributesForFuneralHome returns a funeral home's scheduled tributes.
// Never cached; the response is identity-specific.
func (s *ContentService) TributesForFuneralHome(ctx context.Context, cred domainauth.Credential, funeralHomeID string) ([]content.Tribute, error) {
	return s.api.ListTributesForFuneralHome(ctx, cred, funeralHomeID)
}

// ScheduleTribute forwards a scheduling request and invalidates the public
// tribute listings.
func (s *ContentService) ScheduleTribute(ctx context.Context, cred domainauth.Credential, req content.ScheduleRequest) (content.Tribute, error) {
	if req.LovedOneName == "" {
		return content.Tribute{}, apperrors.ValidationField("lovedOneName", "Loved one's name is required.")
	}
	if req.ScheduledAt.IsZero() {
		return content.Tribute{}, apperrors.ValidationField("scheduledAt", "A service date and time is required.")
	}
	if req.ContactSubjectID == "" {
		return content.Tribute{}, apperrors.Validation("scheduling requires a verified identity")
	}

	tribute, err := s.api.CreateTribute(ctx, cred, req)
	if err != nil {
		return content.Tribute{}, err
	}

	s.cachedDelete(ctx, cacheKeyTributes)
	s.cachedDelete(ctx, "tribute:"+tribute.Slug)
	return tribute, nil
}

// FuneralHomes returns partner funeral homes, cached.
func (s *ContentService) FuneralHomes(ctx context.Context) ([]content.FuneralHome, error) {
	var homes []content.FuneralHome
	if s.cachedGet(ctx, cacheKeyFuneralHomes, &homes) {
		return homes, nil
	}

	homes, err := s.api.ListFuneralHomes(ctx)
	if err != nil {
		return nil, err
	}
	s.cachedSet(ctx, cacheKeyFuneralHomes, homes)
	return homes, nil
}

// FuneralHomeBySlug returns one funeral home profile.
func (s *ContentService) FuneralHomeBySlug(ctx context.Context, slug string) (content.FuneralHome, error) {
	return s.api.GetFuneralHomeBySlug(ctx, slug)
}

// cachedGet returns true when key was found and decoded into out.
// Cache failures are logged and treated as misses.
func (s *ContentService) cachedGet(ctx context.Context, key string, out any) bool {
	if s.cache == nil {
		return false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			s.logger.WarnContext(ctx, "content cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		s.logger.WarnContext(ctx, "content cache entry corrupt", "key", key, "error", err)
		return false
	}
	return true
}

func (s *ContentService) cachedSet(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.WarnContext(ctx, "content cache encode failed", "key", key, "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, data); err != nil {
		s.logger.WarnContext(ctx, "content cache write failed", "key", key, "error", err)
	}
}

func (s *ContentService) cachedDelete(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "content cache invalidation failed", "key", key, "error", err)
	}
}
