package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/lumastream/lumastream/internal/domain/auth"
	"github.com/lumastream/lumastream/internal/domain/content"
	apperrors "github.com/lumastream/lumastream/internal/errors"
	"github.com/lumastream/lumastream/internal/mocks"
	"github.com/lumastream/lumastream/internal/service"
)

// stubContentAPI serves fixed content for router tests.
type stubContentAPI struct {
	tributes []content.Tribute
	homes    []content.FuneralHome
}

func (s *stubContentAPI) ListTributes(context.Context) ([]content.Tribute, error) {
	return s.tributes, nil
}

func (s *stubContentAPI) GetTributeBySlug(_ context.Context, slug string) (content.Tribute, error) {
	for _, tr := range s.tributes {
		if tr.Slug == slug {
			return tr, nil
		}
	}
	return content.Tribute{}, apperrors.NotFound("tribute not found")
}

func (s *stubContentAPI) ListTributesForContact(context.Context, domainauth.Credential, string) ([]content.Tribute, error) {
	return s.tributes, nil
}

func (s *stubContentAPI) ListTributesForFuneralHome(context.Context, domainauth.Credential, string) ([]content.Tribute, error) {
	return s.tributes, nil
}

func (s *stubContentAPI) CreateTribute(_ context.Context, _ domainauth.Credential, req content.ScheduleRequest) (content.Tribute, error) {
	return content.Tribute{ID: "t-new", Slug: "new", LovedOneName: req.LovedOneName}, nil
}

func (s *stubContentAPI) ListFuneralHomes(context.Context) ([]content.FuneralHome, error) {
	return s.homes, nil
}

func (s *stubContentAPI) GetFuneralHomeBySlug(_ context.Context, slug string) (content.FuneralHome, error) {
	for _, fh := range s.homes {
		if fh.Slug == slug {
			return fh, nil
		}
	}
	return content.FuneralHome{}, apperrors.NotFound("funeral home not found")
}

func newTestRouter(t *testing.T, provider *mocks.MockIdentityProvider) http.Handler {
	t.Helper()
	handler, err := NewRouter(RouterServices{
		Auth:         service.NewAuthService(service.AuthServiceOptions{Provider: provider, Logger: testLogger()}),
		Materializer: service.NewMaterializer(service.MaterializerOptions{Provider: provider, Logger: testLogger()}),
		Content: service.NewContentService(service.ContentServiceOptions{
			API: &stubContentAPI{
				tributes: []content.Tribute{{ID: "t1", Slug: "june-whitfield", LovedOneName: "June Whitfield"}},
				homes:    []content.FuneralHome{{ID: "3", Slug: "restful-pines", Name: "Restful Pines"}},
			},
			Logger: testLogger(),
		}),
		Cookies: CookieWriter{CredentialMaxAge: 168 * time.Hour, RoleHintMaxAge: 168 * time.Hour},
		Logger:  testLogger(),
	})
	require.NoError(t, err)
	return handler
}

func withSession(r *http.Request, cred, hint string) *http.Request {
	if cred != "" {
		r.AddCookie(&http.Cookie{Name: CredentialCookieName, Value: cred})
	}
	if hint != "" {
		r.AddCookie(&http.Cookie{Name: RoleHintCookieName, Value: hint})
	}
	return r
}

func TestRouter_PublicPages(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	router := newTestRouter(t, mocks.NewMockIdentityProvider(ctrl))

	tests := []struct {
		path string
		want int
	}{
		{"/", http.StatusOK},
		{"/tributes", http.StatusOK},
		{"/tributes/june-whitfield", http.StatusOK},
		{"/tributes/no-such-service", http.StatusNotFound},
		{"/funeral-homes", http.StatusOK},
		{"/funeral-homes/restful-pines", http.StatusOK},
		{"/login", http.StatusOK},
		{"/register", http.StatusOK},
		{"/healthz", http.StatusOK},
		{"/no-such-page", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRouter_DashboardRequiresSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	router := newTestRouter(t, mocks.NewMockIdentityProvider(ctrl))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	require.Equal(t, http.StatusFound, w.Code)
	u, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/login", u.Path)
	assert.Equal(t, "authenticated,family_contact,funeral_director", u.Query().Get("required_role"))
}

func TestRouter_RoleChangeRequiresSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	router := newTestRouter(t, mocks.NewMockIdentityProvider(ctrl))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/account/role", nil))

	require.Equal(t, http.StatusFound, w.Code)
	u, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/login", u.Path)
}

func TestRouter_ScheduleGrantedForFamilyContact(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	provider := mocks.NewMockIdentityProvider(ctrl)
	provider.EXPECT().ResolveIdentity(gomock.Any(), domainauth.Credential("tok-1")).
		Return(domainauth.Identity{SubjectID: "42", DisplayName: "June", Role: domainauth.RoleFamilyContact}, nil)
	router := newTestRouter(t, provider)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, withSession(httptest.NewRequest(http.MethodGet, "/schedule", nil), "tok-1", "family_contact"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_ScheduleDeniedForBaseRole(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	provider := mocks.NewMockIdentityProvider(ctrl)
	provider.EXPECT().ResolveIdentity(gomock.Any(), domainauth.Credential("tok-2")).
		Return(domainauth.Identity{SubjectID: "44", Role: domainauth.RoleAuthenticated}, nil)
	router := newTestRouter(t, provider)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, withSession(httptest.NewRequest(http.MethodGet, "/schedule", nil), "tok-2", ""))

	require.Equal(t, http.StatusFound, w.Code)
	u, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/access-denied", u.Path)
	assert.Equal(t, "family_contact,funeral_director", u.Query().Get("required"))
	assert.Equal(t, "authenticated", u.Query().Get("actual"))
}

func TestRouter_RoleHintBridgesProviderLag(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// The provider's read replica still reports the base role; the hint set at
	// assignment time grants the page.
	provider := mocks.NewMockIdentityProvider(ctrl)
	provider.EXPECT().ResolveIdentity(gomock.Any(), domainauth.Credential("tok-3")).
		Return(domainauth.Identity{SubjectID: "45", Role: domainauth.RoleAuthenticated}, nil)
	router := newTestRouter(t, provider)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, withSession(httptest.NewRequest(http.MethodGet, "/schedule", nil), "tok-3", "funeral_director"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_DegradedIdentityCanBrowseButNotWrite(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	provider := mocks.NewMockIdentityProvider(ctrl)
	provider.EXPECT().ResolveIdentity(gomock.Any(), domainauth.Credential("tok-4")).
		Return(domainauth.Identity{}, apperrors.ProviderUnavailable("down")).Times(2)
	router := newTestRouter(t, provider)

	// The provisional identity still reaches the scheduling form.
	w := httptest.NewRecorder()
	router.ServeHTTP(w, withSession(httptest.NewRequest(http.MethodGet, "/schedule", nil), "tok-4", "family_contact"))
	require.Equal(t, http.StatusOK, w.Code)

	// But a write is refused until the provider verifies the subject.
	form := url.Values{
		"loved_one_name": {"June Whitfield"},
		"scheduled_at":   {time.Now().Add(48 * time.Hour).Format("2006-01-02T15:04")},
	}
	w = httptest.NewRecorder()
	r := postForm("/schedule", form)
	router.ServeHTTP(w, withSession(r, "tok-4", "family_contact"))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "could not verify your account")
}

func TestRouter_ScheduleSubmission(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	provider := mocks.NewMockIdentityProvider(ctrl)
	provider.EXPECT().ResolveIdentity(gomock.Any(), domainauth.Credential("tok-5")).
		Return(domainauth.Identity{SubjectID: "42", Role: domainauth.RoleFamilyContact}, nil)
	router := newTestRouter(t, provider)

	form := url.Values{
		"loved_one_name": {"June Whitfield"},
		"scheduled_at":   {time.Now().Add(48 * time.Hour).Format("2006-01-02T15:04")},
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, withSession(postForm("/schedule", form), "tok-5", "family_contact"))

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/dashboard?scheduled=1", w.Header().Get("Location"))
}

func TestRouter_AccessDeniedPageShowsRoles(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	router := newTestRouter(t, mocks.NewMockIdentityProvider(ctrl))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/access-denied?required=family_contact%2Cfuneral_director&actual=authenticated", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Family Contact or Funeral Director")
	assert.Contains(t, body, "Member")
}

func TestRouter_LoginFlowEndToEnd(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	provider := mocks.NewMockIdentityProvider(ctrl)
	provider.EXPECT().Authenticate(gomock.Any(), "june@example.com", "sw0rdfish!").
		Return(domainauth.Credential("tok-6"), domainauth.Identity{
			SubjectID: "42", DisplayName: "June", Role: domainauth.RoleFamilyContact,
		}, nil)
	provider.EXPECT().ResolveIdentity(gomock.Any(), domainauth.Credential("tok-6")).
		Return(domainauth.Identity{SubjectID: "42", DisplayName: "June", Role: domainauth.RoleFamilyContact}, nil)
	router := newTestRouter(t, provider)

	// Sign in.
	w := httptest.NewRecorder()
	router.ServeHTTP(w, postForm("/login", url.Values{
		"identifier": {"june@example.com"},
		"password":   {"sw0rdfish!"},
	}))
	require.Equal(t, http.StatusFound, w.Code)

	// Replay the cookies on the protected page.
	r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	for _, c := range w.Result().Cookies() {
		r.AddCookie(c)
	}
	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "June")
}
