// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/listing-engine/internal/httputil"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

// tokenServer issues access-N / refresh-N pairs and records each grant.
type tokenServer struct {
	mu       sync.Mutex
	calls    int
	refresh  []string
	status   int
	rotate   bool
	lifetime int
}

func (s *tokenServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "app-1", r.PostForm.Get("client_id"))
		assert.Equal(t, "secret", r.PostForm.Get("client_secret"))

		s.mu.Lock()
		defer s.mu.Unlock()
		s.calls++
		s.refresh = append(s.refresh, r.PostForm.Get("refresh_token"))
		if s.status != 0 {
			w.WriteHeader(s.status)
			fmt.Fprint(w, `{"error":"invalid_grant","message":"refresh token expired"}`)
			return
		}
		next := r.PostForm.Get("refresh_token")
		if s.rotate {
			next = fmt.Sprintf("TG-%d", s.calls)
		}
		fmt.Fprintf(w, `{"access_token":"APP_USR-%d","refresh_token":%q,"expires_in":%d}`, s.calls, next, s.lifetime)
	}
}

func (s *tokenServer) grants() (int, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls, append([]string(nil), s.refresh...)
}

func newSource(t *testing.T, srv *httptest.Server, opts ...Option) *RefreshingSource {
	creds := Credentials{ClientID: "app-1", ClientSecret: "secret", RefreshToken: "TG-0"}
	opts = append([]Option{WithTokenURL(srv.URL), WithMaxRetries(1)}, opts...)
	return NewRefreshingSource(creds, srv.Client(), zaptest.NewLogger(t), opts...)
}

func TestRefreshingSource_CachesUntilExpiry(t *testing.T) {
	ts := &tokenServer{lifetime: 21600}
	srv := httptest.NewServer(ts.handler(t))
	defer srv.Close()

	src := newSource(t, srv)
	clock := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	src.now = func() time.Time { return clock }

	assert.True(t, src.Expired())
	tok, err := src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "APP_USR-1", tok)

	clock = clock.Add(5 * time.Hour)
	tok, err = src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "APP_USR-1", tok, "still fresh after 5h")

	clock = clock.Add(31 * time.Minute)
	assert.True(t, src.Expired(), "due for renewal after 5.5h")
	tok, err = src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "APP_USR-2", tok)
	calls, _ := ts.grants()
	assert.Equal(t, 2, calls)
}

func TestRefreshingSource_PersistsRotatedToken(t *testing.T) {
	ts := &tokenServer{rotate: true, lifetime: 60}
	srv := httptest.NewServer(ts.handler(t))
	defer srv.Close()

	var saved []string
	src := newSource(t, srv, WithPersist(func(tok string) error {
		saved = append(saved, tok)
		return nil
	}))

	_, err := src.Token(context.Background())
	require.NoError(t, err)
	src.Invalidate()
	_, err = src.Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"TG-1", "TG-2"}, saved)
	_, refresh := ts.grants()
	assert.Equal(t, []string{"TG-0", "TG-1"}, refresh, "second grant uses the rotated token")
}

func TestRefreshingSource_PersistFailureKeepsToken(t *testing.T) {
	ts := &tokenServer{rotate: true}
	srv := httptest.NewServer(ts.handler(t))
	defer srv.Close()

	src := newSource(t, srv, WithPersist(func(string) error { return errors.New("read-only") }))
	tok, err := src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "APP_USR-1", tok)
}

func TestRefreshingSource_Rejected(t *testing.T) {
	ts := &tokenServer{status: http.StatusBadRequest}
	srv := httptest.NewServer(ts.handler(t))
	defer srv.Close()

	src := newSource(t, srv)
	_, err := src.Token(context.Background())
	require.ErrorIs(t, err, ErrRefreshFailed)
	assert.Contains(t, err.Error(), "invalid_grant: refresh token expired")
	assert.True(t, src.Expired())
}

func TestRefreshingSource_RetriesTransientFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "TG-0", r.PostForm.Get("refresh_token"))
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"access_token":"APP_USR-9","expires_in":21600}`)
	}))
	defer srv.Close()

	tok, err := newSource(t, srv).Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "APP_USR-9", tok)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestRefreshingSource_NoRefreshToken(t *testing.T) {
	src := NewRefreshingSource(Credentials{ClientID: "app-1"}, nil, nil)
	_, err := src.Token(context.Background())
	assert.ErrorIs(t, err, ErrNoRefreshToken)
}

func TestStatic(t *testing.T) {
	tok, err := Static("APP_USR-static").Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "APP_USR-static", tok)
}
