// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package marketplace queries the marketplace REST API for category
// research data: search trends and the category attribute schema.
package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/listing-engine/internal/auth"
	"github.com/pdiddy/listing-engine/internal/httputil"
	"github.com/pdiddy/listing-engine/pkg/types"
)

// apiBase is the marketplace API root. Declared as a var so tests can
// substitute an httptest server.
var apiBase = "https://api.mercadolibre.com"

const defaultSiteID = "MLB"

var (
	// ErrNotFound is returned when the API answers 404 for a category.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the API rejects the credentials.
	ErrForbidden = errors.New("forbidden")
)

// Client calls the marketplace REST API.
type Client struct {
	HTTP       *http.Client
	BaseURL    string
	SiteID     string
	Tokens     auth.Source
	UserAgent  string
	MaxRetries int
}

// New returns a Client for cfg. A nil hc selects one built from cfg.Timeout.
// A nil tokens falls back to cfg.AccessToken when one is set; otherwise
// requests are sent without credentials.
func New(cfg types.MarketConfig, hc *http.Client, tokens auth.Source) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	base := cfg.APIBaseURL
	if base == "" {
		base = apiBase
	}
	site := cfg.SiteID
	if site == "" {
		site = defaultSiteID
	}
	if tokens == nil && cfg.AccessToken != "" {
		tokens = auth.Static(cfg.AccessToken)
	}
	return &Client{
		HTTP:       hc,
		BaseURL:    strings.TrimRight(base, "/"),
		SiteID:     site,
		Tokens:     tokens,
		UserAgent:  cfg.UserAgent,
		MaxRetries: cfg.MaxRetries,
	}
}

type trendEntry struct {
	Keyword string `json:"keyword"`
	URL     string `json:"url"`
}

// Trends returns the category's trend keywords in the order the API ranks them.
func (c *Client) Trends(ctx context.Context, categoryID string) ([]string, error) {
	var entries []trendEntry
	path := "/trends/" + url.PathEscape(c.SiteID) + "/" + url.PathEscape(categoryID)
	if err := c.getJSON(ctx, path, &entries); err != nil {
		return nil, fmt.Errorf("fetching trends for %s: %w", categoryID, err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if k := strings.TrimSpace(e.Keyword); k != "" {
			out = append(out, k)
		}
	}
	return out, nil
}

type attributeEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Tags struct {
		Required bool `json:"required"`
		ReadOnly bool `json:"read_only"`
	} `json:"tags"`
}

// Attributes returns the category attribute schema.
func (c *Client) Attributes(ctx context.Context, categoryID string) ([]types.AttributeDef, error) {
	var entries []attributeEntry
	path := "/categories/" + url.PathEscape(categoryID) + "/attributes"
	if err := c.getJSON(ctx, path, &entries); err != nil {
		return nil, fmt.Errorf("fetching attributes for %s: %w", categoryID, err)
	}
	out := make([]types.AttributeDef, 0, len(entries))
	for _, e := range entries {
		out = append(out, types.AttributeDef{
			ID:       e.ID,
			Name:     e.Name,
			Required: e.Tags.Required,
			ReadOnly: e.Tags.ReadOnly,
		})
	}
	return out, nil
}

// invalidator is implemented by token sources that cache tokens.
type invalidator interface {
	Invalidate()
}

// getJSON issues a GET for path and decodes the JSON body into v. HTTP 429
// responses are retried with backoff. A 401 drops a cached token and the
// request is sent once more with a fresh one.
func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		if inv, ok := c.Tokens.(invalidator); ok {
			resp.Body.Close()
			inv.Invalidate()
			if resp, err = c.get(ctx, path); err != nil {
				return err
			}
		}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusForbidden, http.StatusUnauthorized:
		return fmt.Errorf("%w: HTTP %d", ErrForbidden, resp.StatusCode)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("marketplace API returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("parsing marketplace response: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if c.Tokens != nil {
		tok, err := c.Tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("obtaining access token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := httputil.DoWithRetry(ctx, c.HTTP, req, c.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("marketplace API request: %w", err)
	}
	return resp, nil
}
