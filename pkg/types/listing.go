// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the data model shared by the listing-engine
// pipeline and its collaborators: product briefs, market research data,
// generated content and configuration.
package types

import "time"

// ProductBrief is the seller-supplied description that drives generation.
// It is treated as read-only once loaded.
type ProductBrief struct {
	// CategoryID is the marketplace category identifier (e.g. "MLB1246").
	CategoryID string `json:"category_id" yaml:"category_id"`

	// Name is the base product name (e.g. "Ventilador de Teto").
	Name string `json:"name" yaml:"name"`

	Brand string `json:"brand,omitempty" yaml:"brand,omitempty"`
	Model string `json:"model,omitempty" yaml:"model,omitempty"`
	EAN   string `json:"ean,omitempty" yaml:"ean,omitempty"`

	// Description is optional long-form free text supplied by the seller.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// CompetitorURLs lists competitor listing pages to research.
	CompetitorURLs []string `json:"competitor_urls,omitempty" yaml:"competitor_urls,omitempty"`
}

// AttributeDef describes one catalog attribute of a category.
type AttributeDef struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Required bool   `json:"required" yaml:"required"`
	ReadOnly bool   `json:"read_only" yaml:"read_only"`
}

// CompetitorSnapshot holds what was scraped from one competitor listing.
// Listings that failed to scrape have no snapshot at all.
type CompetitorSnapshot struct {
	// ItemID is the marketplace item identifier (e.g. "MLB3456789012").
	ItemID string `json:"item_id" yaml:"item_id"`

	Title string `json:"title" yaml:"title"`

	// Price is nil when the page did not expose one.
	Price *float64 `json:"price,omitempty" yaml:"price,omitempty"`

	// Attributes maps attribute display name to the listed value.
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`

	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// MarketContext aggregates the research data available before generation.
type MarketContext struct {
	// Trends holds trend keywords in the order the data source ranked them.
	Trends []string `json:"trends" yaml:"trends"`

	Attributes  []AttributeDef       `json:"attributes" yaml:"attributes"`
	Competitors []CompetitorSnapshot `json:"competitors" yaml:"competitors"`

	// CollectedAt records when the research was gathered.
	CollectedAt time.Time `json:"collected_at,omitempty" yaml:"collected_at,omitempty"`
}

// RequiredAttributes returns the attribute definitions flagged as required.
func (m MarketContext) RequiredAttributes() []AttributeDef {
	var out []AttributeDef
	for _, a := range m.Attributes {
		if a.Required {
			out = append(out, a)
		}
	}
	return out
}

// OptionalAttributes returns the attribute definitions not flagged as required.
func (m MarketContext) OptionalAttributes() []AttributeDef {
	var out []AttributeDef
	for _, a := range m.Attributes {
		if !a.Required {
			out = append(out, a)
		}
	}
	return out
}
