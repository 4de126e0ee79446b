package cmsauth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/lumastream/lumastream/internal/domain/auth"
	apperrors "github.com/lumastream/lumastream/internal/errors"
	"github.com/lumastream/lumastream/internal/retry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestProvider(t *testing.T, baseURL string) *Provider {
	t.Helper()
	p, err := NewProvider(Config{
		BaseURL:        baseURL,
		ResolveTimeout: 2 * time.Second,
		AssignTimeout:  2 * time.Second,
		Logger:         testLogger(),
	})
	require.NoError(t, err)
	// Keep backoff out of test wall time.
	p.writePolicy = retry.Policy{Attempts: 3, BaseDelay: time.Millisecond}
	return p
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestNewProvider_RequiresBaseURL(t *testing.T) {
	_, err := NewProvider(Config{})
	require.Error(t, err)
}

func TestNewProvider_RejectsInvalidMappingExpression(t *testing.T) {
	_, err := NewProvider(Config{BaseURL: "http://localhost:1337", SubjectIDPath: "user.["})
	require.Error(t, err)
}

func TestAuthenticate_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/local", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "june@example.com", body["identifier"])
		assert.Equal(t, "sw0rdfish!", body["password"])

		writeJSON(t, w, http.StatusOK, map[string]any{
			"jwt": "tok-1",
			"user": map[string]any{
				"id":       42,
				"username": "june",
				"role":     map[string]any{"id": 3, "type": "family_contact"},
			},
		})
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	cred, identity, err := p.Authenticate(context.Background(), "june@example.com", "sw0rdfish!")
	require.NoError(t, err)
	assert.Equal(t, domainauth.Credential("tok-1"), cred)
	assert.Equal(t, "42", identity.SubjectID)
	assert.Equal(t, "june", identity.DisplayName)
	assert.Equal(t, domainauth.RoleFamilyContact, identity.Role)
}

func TestAuthenticate_BadSecretIsInvalidCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusBadRequest, map[string]any{
			"error": map[string]any{"message": "Invalid identifier or password"},
		})
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	_, _, err := p.Authenticate(context.Background(), "june@example.com", "wrong")
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidCredentials(err))
}

func TestAuthenticate_ServerErrorIsProviderUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	_, _, err := p.Authenticate(context.Background(), "june@example.com", "sw0rdfish!")
	require.Error(t, err)
	assert.True(t, apperrors.IsProviderUnavailable(err))
}

func TestAuthenticate_UnreachableProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from here on

	p := newTestProvider(t, srv.URL)
	_, _, err := p.Authenticate(context.Background(), "june@example.com", "sw0rdfish!")
	require.Error(t, err)
	assert.True(t, apperrors.IsProviderUnavailable(err))
}

func TestResolveIdentity_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/me", r.URL.Path)
		require.Equal(t, "role", r.URL.Query().Get("populate"))
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

		writeJSON(t, w, http.StatusOK, map[string]any{
			"id":       42,
			"username": "june",
			"role":     map[string]any{"id": 3, "type": "funeral_director"},
		})
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	identity, err := p.ResolveIdentity(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "42", identity.SubjectID)
	assert.Equal(t, domainauth.RoleFuneralDirector, identity.Role)
}

func TestResolveIdentity_UnknownProviderRoleNormalizesToGuest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"id":   42,
			"role": map[string]any{"type": "editor"},
		})
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	identity, err := p.ResolveIdentity(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleGuest, identity.Role)
}

func TestResolveIdentity_RejectedCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	_, err := p.ResolveIdentity(context.Background(), "stale-token")
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidCredentials(err))
}

func TestResolveIdentity_SlowProviderIsProviderTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	p, err := NewProvider(Config{
		BaseURL:        srv.URL,
		ResolveTimeout: 50 * time.Millisecond,
		Logger:         testLogger(),
	})
	require.NoError(t, err)

	start := time.Now()
	_, err = p.ResolveIdentity(context.Background(), "tok-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsProviderTimeout(err), "got %v", err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestResolveIdentity_MissingCredential(t *testing.T) {
	p := newTestProvider(t, "http://localhost:1")
	_, err := p.ResolveIdentity(context.Background(), "")
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidCredentials(err))
}

func TestRegister_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/local/register", r.URL.Path)
		writeJSON(t, w, http.StatusOK, map[string]any{
			"jwt": "tok-9",
			"user": map[string]any{
				"id":       99,
				"username": "harold",
				"role":     map[string]any{"type": "authenticated"},
			},
		})
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	cred, identity, err := p.Register(context.Background(), domainauth.Registration{
		Username: "harold",
		Email:    "harold@example.com",
		Secret:   "sw0rdfish!",
	})
	require.NoError(t, err)
	assert.Equal(t, domainauth.Credential("tok-9"), cred)
	assert.Equal(t, "99", identity.SubjectID)
	assert.Equal(t, domainauth.RoleAuthenticated, identity.Role)
}

func TestRegister_DuplicateNormalization(t *testing.T) {
	tests := []struct {
		name      string
		message   string
		wantField string
	}{
		{"duplicate email", "Email is already taken", "email"},
		{"duplicate username", "Username already in use", "username"},
		{"unspecific duplicate", "Identifier already exists", "username"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(t, w, http.StatusBadRequest, map[string]any{
					"error": map[string]any{"message": tt.message},
				})
			}))
			defer srv.Close()

			p := newTestProvider(t, srv.URL)
			_, _, err := p.Register(context.Background(), domainauth.Registration{
				Username: "harold",
				Email:    "harold@example.com",
				Secret:   "sw0rdfish!",
			})
			require.Error(t, err)
			assert.True(t, apperrors.IsDuplicateIdentifier(err))
			assert.Equal(t, tt.wantField, apperrors.GetField(err))
		})
	}
}

func TestRegister_ProviderRejectionIsNotDuplicate(t *testing.T) {
	tests := []struct {
		name    string
		message string
	}{
		{"password policy", "password must contain at least one number"},
		{"no message", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(t, w, http.StatusBadRequest, map[string]any{
					"error": map[string]any{"message": tt.message},
				})
			}))
			defer srv.Close()

			p := newTestProvider(t, srv.URL)
			_, _, err := p.Register(context.Background(), domainauth.Registration{
				Username: "harold",
				Email:    "harold@example.com",
				Secret:   "sw0rdfish!",
			})
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err), "a non-duplicate rejection must not read as a taken identifier")
			assert.False(t, apperrors.IsDuplicateIdentifier(err))
			if tt.message != "" {
				assert.Contains(t, err.Error(), tt.message)
			}
		})
	}
}

func TestRegister_ValidatesBeforeNetwork(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { calls++ }))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)

	tests := []struct {
		name  string
		reg   domainauth.Registration
		field string
	}{
		{"missing username", domainauth.Registration{Email: "a@b.c", Secret: "longenough"}, "username"},
		{"short username", domainauth.Registration{Username: "ab", Email: "a@b.c", Secret: "longenough"}, "username"},
		{"missing email", domainauth.Registration{Username: "june", Secret: "longenough"}, "email"},
		{"malformed email", domainauth.Registration{Username: "june", Email: "nope", Secret: "longenough"}, "email"},
		{"short secret", domainauth.Registration{Username: "june", Email: "a@b.c", Secret: "short"}, "secret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := p.Register(context.Background(), tt.reg)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Equal(t, tt.field, apperrors.GetField(err))
		})
	}
	assert.Equal(t, 0, calls)
}

// rolesPayload is the provider's role catalog response.
func rolesPayload() map[string]any {
	return map[string]any{
		"roles": []any{
			map[string]any{"id": 1, "name": "Authenticated", "type": "authenticated"},
			map[string]any{"id": 4, "name": "Family Contact", "type": "family_contact"},
			map[string]any{"id": 5, "name": "Funeral Director", "type": "funeral_director"},
		},
	}
}

func TestAssignRole_WriteAndVerify(t *testing.T) {
	var puts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/users-permissions/roles":
			writeJSON(t, w, http.StatusOK, rolesPayload())
		case r.Method == http.MethodPut && r.URL.Path == "/users/42":
			puts.Add(1)
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "5", body["role"])
			writeJSON(t, w, http.StatusOK, map[string]any{"id": 42})
		case r.Method == http.MethodGet && r.URL.Path == "/users/42":
			writeJSON(t, w, http.StatusOK, map[string]any{
				"id":   42,
				"role": map[string]any{"type": "funeral_director"},
			})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	err := p.AssignRole(context.Background(), "42", domainauth.RoleFuneralDirector)
	require.NoError(t, err)
	assert.Equal(t, int32(1), puts.Load())
}

func TestAssignRole_RetriesTransientWriteUpToThreeTimes(t *testing.T) {
	var puts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/users-permissions/roles":
			writeJSON(t, w, http.StatusOK, rolesPayload())
		case r.Method == http.MethodPut:
			puts.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	err := p.AssignRole(context.Background(), "42", domainauth.RoleFamilyContact)
	require.Error(t, err)
	assert.True(t, apperrors.IsProviderUnavailable(err))
	assert.Equal(t, int32(3), puts.Load(), "write must stop at the attempt cap")
}

func TestAssignRole_SucceedsOnSecondAttempt(t *testing.T) {
	var puts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/users-permissions/roles":
			writeJSON(t, w, http.StatusOK, rolesPayload())
		case r.Method == http.MethodPut:
			if puts.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			writeJSON(t, w, http.StatusOK, map[string]any{"id": 42})
		case r.Method == http.MethodGet:
			writeJSON(t, w, http.StatusOK, map[string]any{
				"id":   42,
				"role": map[string]any{"type": "family_contact"},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	err := p.AssignRole(context.Background(), "42", domainauth.RoleFamilyContact)
	require.NoError(t, err)
	assert.Equal(t, int32(2), puts.Load())
}

func TestAssignRole_UnknownRoleIsRoleNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/users-permissions/roles" {
			writeJSON(t, w, http.StatusOK, map[string]any{
				"roles": []any{map[string]any{"id": 1, "type": "authenticated"}},
			})
			return
		}
		t.Errorf("no write should happen when the role is unknown: %s %s", r.Method, r.URL.Path)
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	err := p.AssignRole(context.Background(), "42", domainauth.RoleFuneralDirector)
	require.Error(t, err)
	assert.True(t, apperrors.IsRoleNotFound(err))
}

func TestAssignRole_VerificationMismatchStillSucceeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/users-permissions/roles":
			writeJSON(t, w, http.StatusOK, rolesPayload())
		case r.Method == http.MethodPut:
			writeJSON(t, w, http.StatusOK, map[string]any{"id": 42})
		case r.Method == http.MethodGet:
			// Read replica still shows the old role.
			writeJSON(t, w, http.StatusOK, map[string]any{
				"id":   42,
				"role": map[string]any{"type": "authenticated"},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	err := p.AssignRole(context.Background(), "42", domainauth.RoleFuneralDirector)
	require.NoError(t, err)
}

func TestAssignRole_GuestIsNotAssignable(t *testing.T) {
	p := newTestProvider(t, "http://localhost:1")
	err := p.AssignRole(context.Background(), "42", domainauth.RoleGuest)
	require.Error(t, err)
	assert.True(t, apperrors.IsRoleNotFound(err))
}
