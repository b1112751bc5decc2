// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/listing-engine/internal/httputil"
	"github.com/pdiddy/listing-engine/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

func TestItemID(t *testing.T) {
	tests := []struct {
		url    string
		want   string
		wantOK bool
	}{
		{"https://produto.mercadolivre.com.br/MLB-3456789012-ventilador-_JM", "MLB3456789012", true},
		{"https://www.mercadolivre.com.br/p/MLB19876543", "MLB19876543", true},
		{"https://produto.mercadolivre.com.br/mlb-42-x", "MLB42", true},
		{"https://example.com/listing/abc", "", false},
	}
	for _, tc := range tests {
		got, ok := ItemID(tc.url)
		assert.Equal(t, tc.wantOK, ok, tc.url)
		assert.Equal(t, tc.want, got, tc.url)
	}
}

func readFixture(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("testdata/listing.html")
	require.NoError(t, err)
	return string(data)
}

func TestParse(t *testing.T) {
	snap, err := Parse(strings.NewReader(readFixture(t)))
	require.NoError(t, err)

	assert.Equal(t, "Ventilador de Teto Arno Ultra Silence 130W", snap.Title)
	require.NotNil(t, snap.Price)
	assert.InDelta(t, 1299.90, *snap.Price, 0.001)
	assert.Equal(t, "Ventilador silencioso com controle remoto.", snap.Description)
	assert.Equal(t, map[string]string{
		"Voltagem":          "220V",
		"Marca":             "Arno",
		"Quantidade de pás": "3",
		"Cor":               "Branco",
	}, snap.Attributes)
	assert.Empty(t, snap.ItemID)
}

func TestParse_NoPrice(t *testing.T) {
	snap, err := Parse(strings.NewReader(`<h1 class="ui-pdp-title">Ventilador</h1>`))
	require.NoError(t, err)
	assert.Nil(t, snap.Price)
	assert.Empty(t, snap.Attributes)
}

func TestParse_NoTitle(t *testing.T) {
	_, err := Parse(strings.NewReader(`<html><body><p>captcha</p></body></html>`))
	assert.ErrorIs(t, err, ErrNoTitle)
}

func newScraper(t *testing.T, hc *http.Client) *Scraper {
	cfg := types.MarketConfig{ScrapeInterval: time.Millisecond, MaxRetries: 2}
	return New(cfg, hc, zaptest.NewLogger(t))
}

func TestScrape(t *testing.T) {
	page := readFixture(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla")
		w.Write([]byte(page))
	}))
	defer ts.Close()

	snap, err := newScraper(t, ts.Client()).Scrape(context.Background(), ts.URL+"/MLB-3456789012-ventilador")
	require.NoError(t, err)
	assert.Equal(t, "MLB3456789012", snap.ItemID)
	assert.Equal(t, "Arno", snap.Attributes["Marca"])
}

func TestScrape_RetriesTransientFailures(t *testing.T) {
	page := readFixture(t)
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(page))
	}))
	defer ts.Close()

	_, err := newScraper(t, ts.Client()).Scrape(context.Background(), ts.URL+"/item")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestScrape_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			name:    "not found",
			handler: func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) },
		},
		{
			name:    "not a listing page",
			handler: func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("<p>captcha</p>")) },
			wantErr: ErrNoTitle,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(tc.handler)
			defer ts.Close()

			_, err := newScraper(t, ts.Client()).Scrape(context.Background(), ts.URL+"/MLB1")
			require.Error(t, err)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}

func TestScrape_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newScraper(t, nil).Scrape(ctx, "http://127.0.0.1:1/MLB1")
	assert.ErrorIs(t, err, context.Canceled)
}
