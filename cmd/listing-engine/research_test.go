// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/listing-engine/internal/auth"
	"github.com/pdiddy/listing-engine/internal/secrets"
	"github.com/pdiddy/listing-engine/pkg/types"
)

func TestTokenSource_StaticWithoutRefreshToken(t *testing.T) {
	assert.Nil(t, tokenSource(types.MarketConfig{AccessToken: "APP_USR-1"}))
}

func TestTokenSource_PersistsRotatedToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "TG-old", r.PostForm.Get("refresh_token"))
		fmt.Fprint(w, `{"access_token":"APP_USR-2","refresh_token":"TG-new","expires_in":21600}`)
	}))
	defer ts.Close()

	old := secretsDir
	secretsDir = t.TempDir()
	defer func() { secretsDir = old }()

	src := tokenSource(types.MarketConfig{
		ClientID:     "123",
		ClientSecret: "s",
		RefreshToken: "TG-old",
		TokenURL:     ts.URL,
	})
	require.IsType(t, &auth.RefreshingSource{}, src)

	tok, err := src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "APP_USR-2", tok)

	data, err := os.ReadFile(filepath.Join(secretsDir, secrets.MarketplaceRefreshToken))
	require.NoError(t, err)
	assert.Equal(t, "TG-new\n", string(data))
}
