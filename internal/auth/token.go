// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package auth supplies bearer tokens for the marketplace API. A
// RefreshingSource exchanges a long-lived refresh token for short-lived
// access tokens and persists the refresh token the server rotates in.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/listing-engine/internal/httputil"
)

// tokenURL is the OAuth token endpoint. Declared as a var so tests can
// substitute an httptest server.
var tokenURL = "https://api.mercadolibre.com/oauth/token"

// defaultLifetime applies when the server omits expires_in. Marketplace
// access tokens last six hours.
const defaultLifetime = 6 * time.Hour

var (
	// ErrNoRefreshToken is returned when no refresh token is configured.
	ErrNoRefreshToken = errors.New("no refresh token configured")

	// ErrRefreshFailed wraps a rejected refresh_token grant.
	ErrRefreshFailed = errors.New("token refresh failed")
)

// Source returns a bearer token for the next request.
type Source interface {
	Token(ctx context.Context) (string, error)
}

// Static always returns the same token.
type Static string

// Token returns s.
func (s Static) Token(context.Context) (string, error) { return string(s), nil }

// Credentials are the OAuth application credentials and current refresh token.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// PersistFunc stores a rotated refresh token.
type PersistFunc func(refreshToken string) error

// RefreshingSource obtains access tokens with the refresh_token grant and
// renews them before they expire. It is safe for concurrent use.
type RefreshingSource struct {
	mu          sync.Mutex
	creds       Credentials
	accessToken string
	expiry      time.Time

	url     string
	client  *http.Client
	policy  httputil.Policy
	persist PersistFunc
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a RefreshingSource.
type Option func(*RefreshingSource)

// WithTokenURL overrides the token endpoint.
func WithTokenURL(u string) Option {
	return func(s *RefreshingSource) {
		if u != "" {
			s.url = u
		}
	}
}

// WithPersist registers fn to store rotated refresh tokens.
func WithPersist(fn PersistFunc) Option {
	return func(s *RefreshingSource) { s.persist = fn }
}

// WithMaxRetries bounds retries of transient token endpoint failures.
func WithMaxRetries(n int) Option {
	return func(s *RefreshingSource) { s.policy.MaxRetries = n }
}

// NewRefreshingSource returns a source for creds. A nil hc selects
// http.DefaultClient.
func NewRefreshingSource(creds Credentials, hc *http.Client, logger *zap.Logger, opts ...Option) *RefreshingSource {
	if hc == nil {
		hc = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("auth")
	s := &RefreshingSource{
		creds:  creds,
		url:    tokenURL,
		client: hc,
		policy: httputil.Policy{
			MaxRetries:  3,
			RetryStatus: httputil.Transient,
			RetryErrors: true,
			Logger:      logger,
		},
		logger: logger,
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Expired reports whether the cached access token is missing or due for
// renewal.
func (s *RefreshingSource) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiredLocked()
}

func (s *RefreshingSource) expiredLocked() bool {
	return s.accessToken == "" || !s.now().Before(s.expiry)
}

// Invalidate drops the cached access token so the next Token call refreshes.
func (s *RefreshingSource) Invalidate() {
	s.mu.Lock()
	s.accessToken = ""
	s.mu.Unlock()
}

// Token returns a valid access token, refreshing it when needed. A failed
// refresh clears the cached token.
func (s *RefreshingSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.expiredLocked() {
		return s.accessToken, nil
	}
	if err := s.refreshLocked(ctx); err != nil {
		s.accessToken = ""
		return "", err
	}
	return s.accessToken, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

type tokenError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *RefreshingSource) refreshLocked(ctx context.Context) error {
	if s.creds.RefreshToken == "" {
		return ErrNoRefreshToken
	}
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {s.creds.ClientID},
		"client_secret": {s.creds.ClientSecret},
		"refresh_token": {s.creds.RefreshToken},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.policy.Do(ctx, s.client, req)
	if err != nil {
		return fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var te tokenError
		detail := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &te) == nil && te.Error != "" {
			detail = te.Error
			if te.Message != "" {
				detail += ": " + te.Message
			}
		}
		return fmt.Errorf("%w: HTTP %d: %s", ErrRefreshFailed, resp.StatusCode, detail)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return fmt.Errorf("parsing token response: %w", err)
	}
	if tr.AccessToken == "" {
		return fmt.Errorf("%w: response has no access_token", ErrRefreshFailed)
	}

	lifetime := defaultLifetime
	if tr.ExpiresIn > 0 {
		lifetime = time.Duration(tr.ExpiresIn) * time.Second
	}
	// Renew after eleven twelfths of the lifetime (5.5h of a 6h token).
	s.accessToken = tr.AccessToken
	s.expiry = s.now().Add(lifetime * 11 / 12)
	s.logger.Info("access token refreshed", zap.Duration("expires_in", lifetime))

	switch {
	case tr.RefreshToken == "":
		s.logger.Warn("token response carried no refresh token")
	case tr.RefreshToken != s.creds.RefreshToken:
		s.creds.RefreshToken = tr.RefreshToken
		if s.persist != nil {
			if err := s.persist(tr.RefreshToken); err != nil {
				s.logger.Error("could not persist rotated refresh token", zap.Error(err))
			}
		}
	}
	return nil
}
