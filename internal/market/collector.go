// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package market gathers the research data that feeds generation: trend
// keywords and the attribute schema of the category plus snapshots of
// competitor listings. Every source is queried concurrently and the result
// is handed over as one materialized MarketContext.
package market

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/listing-engine/internal/scrape"
	"github.com/pdiddy/listing-engine/pkg/types"
)

const (
	defaultTrendLimit  = 20
	defaultConcurrency = 4
)

// Catalog provides category metadata.
type Catalog interface {
	Trends(ctx context.Context, categoryID string) ([]string, error)
	Attributes(ctx context.Context, categoryID string) ([]types.AttributeDef, error)
}

// PageScraper fetches one competitor listing.
type PageScraper interface {
	Scrape(ctx context.Context, url string) (*types.CompetitorSnapshot, error)
}

// Collector fans out research requests for a brief.
type Collector struct {
	catalog     Catalog
	scraper     PageScraper
	trendLimit  int
	concurrency int
	logger      *zap.Logger
	now         func() time.Time
}

// NewCollector returns a Collector using cfg's limits.
func NewCollector(catalog Catalog, scraper PageScraper, cfg types.MarketConfig, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		catalog:     catalog,
		scraper:     scraper,
		trendLimit:  cfg.TrendLimit,
		concurrency: cfg.ScrapeConcurrency,
		logger:      logger.Named("market"),
		now:         time.Now,
	}
	if c.trendLimit <= 0 {
		c.trendLimit = defaultTrendLimit
	}
	if c.concurrency <= 0 {
		c.concurrency = defaultConcurrency
	}
	return c
}

// Collect gathers market data for brief. Trend and attribute failures are
// logged and leave the corresponding list empty. Competitors that fail to
// scrape are left out; the returned list keeps the order of the brief's
// URLs. Collect only fails when ctx is done.
func (c *Collector) Collect(ctx context.Context, brief types.ProductBrief) (types.MarketContext, error) {
	log := c.logger.With(zap.String("category_id", brief.CategoryID))

	var (
		trends []string
		attrs  []types.AttributeDef
	)
	// Each scrape writes only its own slot.
	scraped := make([]*types.CompetitorSnapshot, len(brief.CompetitorURLs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency + 2)

	g.Go(func() error {
		got, err := c.catalog.Trends(gctx, brief.CategoryID)
		if err != nil {
			log.Warn("trend lookup failed", zap.Error(err))
			return nil
		}
		if len(got) > c.trendLimit {
			got = got[:c.trendLimit]
		}
		trends = got
		return nil
	})

	g.Go(func() error {
		got, err := c.catalog.Attributes(gctx, brief.CategoryID)
		if err != nil {
			log.Warn("attribute lookup failed", zap.Error(err))
			return nil
		}
		attrs = got
		return nil
	})

	for i, url := range brief.CompetitorURLs {
		g.Go(func() error {
			snap, err := c.scraper.Scrape(gctx, url)
			if err != nil {
				log.Warn("competitor scrape failed", zap.String("url", url), zap.Error(err))
				return nil
			}
			if snap.ItemID == "" {
				if id, ok := scrape.ItemID(url); ok {
					snap.ItemID = id
				} else {
					snap.ItemID = fmt.Sprintf("SCRAPED_%d", i)
				}
			}
			scraped[i] = snap
			return nil
		})
	}

	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return types.MarketContext{}, fmt.Errorf("collecting market data: %w", err)
	}

	out := types.MarketContext{
		Trends:      nonNil(trends),
		Attributes:  nonNil(attrs),
		Competitors: []types.CompetitorSnapshot{},
		CollectedAt: c.now().UTC(),
	}
	for _, s := range scraped {
		if s != nil {
			out.Competitors = append(out.Competitors, *s)
		}
	}
	log.Info("market data collected",
		zap.Int("trends", len(out.Trends)),
		zap.Int("attributes", len(out.Attributes)),
		zap.Int("competitors", len(out.Competitors)),
		zap.Int("competitor_urls", len(brief.CompetitorURLs)))
	return out, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
