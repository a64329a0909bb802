// Package service provides the business logic for the dms-export system: the
// credential broker, the job registry/scheduler, and the export pipeline.
package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/target/dms-export/config"
	"github.com/target/dms-export/internal/core"
	"github.com/target/dms-export/internal/domain/model"
	apperrors "github.com/target/dms-export/internal/errors"
)

const tokenExchangeTimeout = 30 * time.Second

// TokenServiceOptions groups dependencies for TokenService.
type TokenServiceOptions struct {
	Store  core.SessionStore
	Auth   config.AuthConfig
	Logger *slog.Logger
	// HTTPClient overrides the client used for token exchanges (tests).
	HTTPClient *http.Client
}

// TokenService is the credential broker: it owns the single cached session and
// keeps a usable access token available to background runs.
//
// The cache pointer is mutex-guarded for memory safety, but refreshes are
// deliberately not serialized: two runs observing a 401 concurrently both
// exchange their refresh token, and the last writer wins. See DESIGN.md.
type TokenService struct {
	store      core.SessionStore
	auth       config.AuthConfig
	logger     *slog.Logger
	httpClient *http.Client

	mu      sync.Mutex
	session *model.Session
}

var _ core.TokenBroker = (*TokenService)(nil)

// NewTokenService constructs a new TokenService.
func NewTokenService(opts TokenServiceOptions) (*TokenService, error) {
	if opts.Store == nil {
		return nil, errors.New("SessionStore is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "token_service")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: tokenExchangeTimeout}
	}

	return &TokenService{
		store:      opts.Store,
		auth:       opts.Auth,
		logger:     logger,
		httpClient: httpClient,
	}, nil
}

// Restore loads a previously persisted session into the cache. Called once at
// startup; a missing session is not an error.
func (s *TokenService) Restore(ctx context.Context) error {
	sess, err := s.store.Load(ctx)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil
		}
		return err
	}
	s.setCached(sess)
	return nil
}

// HasServiceAccount reports whether background credentials are configured.
func (s *TokenService) HasServiceAccount() bool {
	return s.auth.HasServiceAccount()
}

// AccessToken returns the cached access token. A session seeded from a job
// credential has no access token yet and is refreshed first; with no session
// at all the broker attempts a service-account login before failing.
func (s *TokenService) AccessToken(ctx context.Context) (string, error) {
	if sess := s.cached(); sess != nil {
		if sess.AccessToken != "" {
			return sess.AccessToken, nil
		}
		return s.RefreshAccessToken(ctx)
	}

	if s.HasServiceAccount() {
		return s.LoginWithServiceAccount(ctx)
	}
	return "", apperrors.NoSession("no session cached and no service account configured")
}

// RefreshAccessToken exchanges the cached refresh token for a new access
// token, replacing the cached session in place and rotating the refresh token
// when the exchange issued a new one. Falls back to a service-account login
// when no refresh token is cached or the exchange fails.
func (s *TokenService) RefreshAccessToken(ctx context.Context) (string, error) {
	sess := s.cached()
	if sess == nil || sess.RefreshToken == "" {
		return s.LoginWithServiceAccount(ctx)
	}

	tokenURL := s.tokenURL(sess.TokenURL)
	tok, err := s.oauthConfig(tokenURL).
		TokenSource(s.exchangeContext(ctx), &oauth2.Token{RefreshToken: sess.RefreshToken}).
		Token()
	if err != nil {
		if s.HasServiceAccount() {
			return s.LoginWithServiceAccount(ctx)
		}
		return "", apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "refresh token exchange failed")
	}

	next := model.Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: sess.RefreshToken,
		TokenURL:     tokenURL,
		ExpiresAt:    tok.Expiry,
		UpdatedAt:    time.Now(),
	}
	if tok.RefreshToken != "" {
		next.RefreshToken = tok.RefreshToken
	}

	s.replaceSession(ctx, next)
	return next.AccessToken, nil
}

// LoginWithServiceAccount performs the password-style grant using the
// configured background credentials.
func (s *TokenService) LoginWithServiceAccount(ctx context.Context) (string, error) {
	if !s.HasServiceAccount() {
		return "", apperrors.MissingCredentials("service account credentials are not configured")
	}

	tokenURL := s.tokenURL("")
	if tokenURL == "" {
		return "", apperrors.MissingCredentials("no token endpoint configured for service account login")
	}

	tok, err := s.oauthConfig(tokenURL).PasswordCredentialsToken(
		s.exchangeContext(ctx),
		s.auth.ServiceUsername,
		s.auth.ServicePassword,
	)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "service account login failed")
	}

	next := model.Session{
		AccessToken:    tok.AccessToken,
		RefreshToken:   tok.RefreshToken,
		TokenURL:       tokenURL,
		ExpiresAt:      tok.Expiry,
		UpdatedAt:      time.Now(),
		ServiceAccount: true,
	}
	s.replaceSession(ctx, next)
	return next.AccessToken, nil
}

// SetSession replaces the cache wholesale with an externally supplied session
// (for example pushed from an interactive login) and persists it.
func (s *TokenService) SetSession(ctx context.Context, sess model.Session) {
	sess.UpdatedAt = time.Now()
	s.replaceSession(ctx, sess)
}

// EnsureJobSession seeds the cache from a job's embedded credential when no
// session is cached yet. The seeded session carries no access token; the first
// AccessToken call refreshes it.
func (s *TokenService) EnsureJobSession(ctx context.Context, cred model.Credential) {
	if cred.Empty() || s.cached() != nil {
		return
	}
	s.replaceSession(ctx, model.Session{
		RefreshToken: cred.RefreshToken,
		TokenURL:     s.tokenURL(cred.TokenURL),
		UpdatedAt:    time.Now(),
	})
}

func (s *TokenService) cached() *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	snapshot := *s.session
	return &snapshot
}

func (s *TokenService) setCached(sess model.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = &sess
}

// replaceSession overwrites the cache and persists it. A persistence failure
// is logged but never fails the caller.
func (s *TokenService) replaceSession(ctx context.Context, sess model.Session) {
	s.setCached(sess)
	if err := s.store.Save(ctx, sess); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "persist session failed", "error", err)
	}
}

func (s *TokenService) tokenURL(preferred string) string {
	if preferred != "" {
		return preferred
	}
	return s.auth.TokenURL
}

func (s *TokenService) oauthConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.auth.ClientID,
		ClientSecret: s.auth.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func (s *TokenService) exchangeContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}
