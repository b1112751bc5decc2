// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scrape fetches competitor listing pages and extracts the
// title, price, attributes and description they expose.
package scrape

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pdiddy/listing-engine/internal/httputil"
	"github.com/pdiddy/listing-engine/pkg/types"
)

// browserUserAgent is sent when no user agent is configured. Listing pages
// serve a reduced document to unknown clients.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

const (
	defaultInterval   = 500 * time.Millisecond
	defaultMaxRetries = 3
)

// Scraper fetches listing pages. Requests are spaced by a shared rate
// limiter so concurrent callers stay polite.
type Scraper struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	policy    httputil.Policy
	logger    *zap.Logger
}

// New returns a Scraper configured from cfg. A nil hc selects a client
// with cfg.Timeout.
func New(cfg types.MarketConfig, hc *http.Client, logger *zap.Logger) *Scraper {
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := cfg.ScrapeInterval
	if interval <= 0 {
		interval = defaultInterval
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = browserUserAgent
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}
	logger = logger.Named("scrape")
	return &Scraper{
		client:    hc,
		limiter:   rate.NewLimiter(rate.Every(interval), 1),
		userAgent: ua,
		policy: httputil.Policy{
			MaxRetries:  retries,
			RetryStatus: httputil.Transient,
			RetryErrors: true,
			Logger:      logger,
		},
		logger: logger,
	}
}

// Scrape fetches and parses one listing page. ItemID is filled from the URL
// when it carries one.
func (s *Scraper) Scrape(ctx context.Context, url string) (*types.CompetitorSnapshot, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9")

	resp, err := s.policy.Do(ctx, s.client, req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", url, resp.Status)
	}

	snap, err := Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	snap.ItemID, _ = ItemID(url)
	s.logger.Debug("scraped listing",
		zap.String("url", url),
		zap.String("item_id", snap.ItemID),
		zap.Int("attributes", len(snap.Attributes)))
	return snap, nil
}
