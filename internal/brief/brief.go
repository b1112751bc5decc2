// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package brief loads and validates product briefs.
package brief

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/listing-engine/pkg/types"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid brief")

// Load reads a brief from a YAML (or JSON) file.
func Load(path string) (types.ProductBrief, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.ProductBrief{}, fmt.Errorf("reading brief: %w", err)
	}
	return Parse(data)
}

// Parse decodes, normalizes and validates a brief. Unknown fields are
// rejected so typos do not silently drop data.
func Parse(data []byte) (types.ProductBrief, error) {
	var b types.ProductBrief
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&b); err != nil {
		return types.ProductBrief{}, fmt.Errorf("decoding brief: %w", err)
	}
	b = Normalize(b)
	if err := Validate(b); err != nil {
		return types.ProductBrief{}, err
	}
	return b, nil
}

// Normalize trims surrounding whitespace, upper-cases the category id and
// drops blank competitor URLs.
func Normalize(b types.ProductBrief) types.ProductBrief {
	b.CategoryID = strings.ToUpper(strings.TrimSpace(b.CategoryID))
	b.Name = strings.TrimSpace(b.Name)
	b.Brand = strings.TrimSpace(b.Brand)
	b.Model = strings.TrimSpace(b.Model)
	b.EAN = strings.TrimSpace(b.EAN)
	b.Description = strings.TrimSpace(b.Description)

	urls := make([]string, 0, len(b.CompetitorURLs))
	for _, u := range b.CompetitorURLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	b.CompetitorURLs = urls
	return b
}

// Validate requires a category id and a base name and accepts only
// absolute http(s) competitor URLs.
func Validate(b types.ProductBrief) error {
	var errs []error
	if b.CategoryID == "" {
		errs = append(errs, fmt.Errorf("%w: category_id is required", ErrInvalid))
	}
	if b.Name == "" {
		errs = append(errs, fmt.Errorf("%w: name is required", ErrInvalid))
	}
	for _, raw := range b.CompetitorURLs {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("%w: competitor url %q must be an absolute http(s) URL", ErrInvalid, raw))
		}
	}
	return errors.Join(errs...)
}
