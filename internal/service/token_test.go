package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/dms-export/config"
	"github.com/target/dms-export/internal/domain/model"
	apperrors "github.com/target/dms-export/internal/errors"
)

// fakeSessionStore is an in-memory core.SessionStore.
type fakeSessionStore struct {
	mu   sync.Mutex
	sess *model.Session
}

func (f *fakeSessionStore) Load(context.Context) (model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sess == nil {
		return model.Session{}, apperrors.NotFound("no session persisted")
	}
	return *f.sess, nil
}

func (f *fakeSessionStore) Save(_ context.Context, sess model.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sess = &sess
	return nil
}

// tokenEndpoint is a minimal OAuth2 token endpoint for exercising both grants.
type tokenEndpoint struct {
	t *testing.T

	mu       sync.Mutex
	requests []map[string]string
	fail     bool
}

func (e *tokenEndpoint) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		require.NoError(e.t, r.ParseForm())
		form := map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}

		e.mu.Lock()
		e.requests = append(e.requests, form)
		fail := e.fail
		e.mu.Unlock()

		if fail {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"access_token": "new-access",
			"refresh_token": "new-refresh",
			"token_type": "bearer",
			"expires_in": 3600
		}`))
	}
}

func (e *tokenEndpoint) lastGrant() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.requests) == 0 {
		return ""
	}
	return e.requests[len(e.requests)-1]["grant_type"]
}

func newTestTokenService(t *testing.T, auth config.AuthConfig, store *fakeSessionStore) *TokenService {
	t.Helper()
	svc, err := NewTokenService(TokenServiceOptions{
		Store:      store,
		Auth:       auth,
		HTTPClient: http.DefaultClient,
	})
	require.NoError(t, err)
	return svc
}

func TestTokenServiceRefresh(t *testing.T) {
	ctx := context.Background()
	endpoint := &tokenEndpoint{t: t}
	server := httptest.NewServer(endpoint.handler())
	defer server.Close()

	store := &fakeSessionStore{}
	svc := newTestTokenService(t, config.AuthConfig{ClientID: "dms-export"}, store)
	svc.SetSession(ctx, model.Session{
		AccessToken:  "stale",
		RefreshToken: "old-refresh",
		TokenURL:     server.URL,
	})

	token, err := svc.RefreshAccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new-access", token)
	assert.Equal(t, "refresh_token", endpoint.lastGrant())

	// The rotated refresh token replaced the cached one and was persisted.
	persisted, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new-access", persisted.AccessToken)
	assert.Equal(t, "new-refresh", persisted.RefreshToken)

	next, err := svc.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new-access", next)
}

func TestTokenServiceServiceAccountFallback(t *testing.T) {
	ctx := context.Background()
	endpoint := &tokenEndpoint{t: t}
	server := httptest.NewServer(endpoint.handler())
	defer server.Close()

	auth := config.AuthConfig{
		ServiceUsername: "svc-user",
		ServicePassword: "svc-pass",
		ClientID:        "dms-export",
		TokenURL:        server.URL,
	}

	t.Run("no cached session logs in with the service account", func(t *testing.T) {
		store := &fakeSessionStore{}
		svc := newTestTokenService(t, auth, store)

		token, err := svc.AccessToken(ctx)
		require.NoError(t, err)
		assert.Equal(t, "new-access", token)
		assert.Equal(t, "password", endpoint.lastGrant())

		persisted, err := store.Load(ctx)
		require.NoError(t, err)
		assert.True(t, persisted.ServiceAccount)
	})

	t.Run("no refresh token falls back to the service account", func(t *testing.T) {
		store := &fakeSessionStore{}
		svc := newTestTokenService(t, auth, store)
		svc.SetSession(ctx, model.Session{AccessToken: "stale", TokenURL: server.URL})

		token, err := svc.RefreshAccessToken(ctx)
		require.NoError(t, err)
		assert.Equal(t, "new-access", token)
		assert.Equal(t, "password", endpoint.lastGrant())
	})
}

func TestTokenServiceNoSession(t *testing.T) {
	ctx := context.Background()
	svc := newTestTokenService(t, config.AuthConfig{}, &fakeSessionStore{})

	_, err := svc.AccessToken(ctx)
	assert.True(t, apperrors.IsNoSession(err))
}

func TestTokenServiceRefreshFailureWithoutFallback(t *testing.T) {
	ctx := context.Background()
	endpoint := &tokenEndpoint{t: t, fail: true}
	server := httptest.NewServer(endpoint.handler())
	defer server.Close()

	svc := newTestTokenService(t, config.AuthConfig{ClientID: "dms-export"}, &fakeSessionStore{})
	svc.SetSession(ctx, model.Session{RefreshToken: "bad", TokenURL: server.URL})

	_, err := svc.RefreshAccessToken(ctx)
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestTokenServiceLoginWithoutCredentials(t *testing.T) {
	ctx := context.Background()
	svc := newTestTokenService(t, config.AuthConfig{}, &fakeSessionStore{})

	_, err := svc.LoginWithServiceAccount(ctx)
	assert.True(t, apperrors.IsMissingCredentials(err))
}

func TestTokenServiceEnsureJobSession(t *testing.T) {
	ctx := context.Background()

	t.Run("seeds a tokenless session from the job credential", func(t *testing.T) {
		svc := newTestTokenService(t, config.AuthConfig{TokenURL: "https://auth.example.com/token"}, &fakeSessionStore{})
		svc.EnsureJobSession(ctx, model.Credential{RefreshToken: "job-rt"})

		sess := svc.cached()
		require.NotNil(t, sess)
		assert.Empty(t, sess.AccessToken)
		assert.Equal(t, "job-rt", sess.RefreshToken)
		assert.Equal(t, "https://auth.example.com/token", sess.TokenURL)
	})

	t.Run("does not replace an existing session", func(t *testing.T) {
		svc := newTestTokenService(t, config.AuthConfig{}, &fakeSessionStore{})
		svc.SetSession(ctx, model.Session{AccessToken: "existing", RefreshToken: "rt"})
		svc.EnsureJobSession(ctx, model.Credential{RefreshToken: "job-rt"})

		sess := svc.cached()
		require.NotNil(t, sess)
		assert.Equal(t, "existing", sess.AccessToken)
	})

	t.Run("ignores empty credentials", func(t *testing.T) {
		svc := newTestTokenService(t, config.AuthConfig{}, &fakeSessionStore{})
		svc.EnsureJobSession(ctx, model.Credential{})
		assert.Nil(t, svc.cached())
	})
}

func TestTokenServiceRestore(t *testing.T) {
	ctx := context.Background()
	store := &fakeSessionStore{}
	require.NoError(t, store.Save(ctx, model.Session{AccessToken: "persisted"}))

	svc := newTestTokenService(t, config.AuthConfig{}, store)
	require.NoError(t, svc.Restore(ctx))

	token, err := svc.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "persisted", token)
}
