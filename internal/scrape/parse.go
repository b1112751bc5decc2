// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scrape

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/listing-engine/pkg/types"
)

// ErrNoTitle is returned when a page has no listing title, which usually
// means it is not a product page (captcha, removed listing, search page).
var ErrNoTitle = errors.New("listing title not found")

const (
	selTitle       = "h1.ui-pdp-title"
	selFraction    = "span.andes-money-amount__fraction"
	selCents       = "span.andes-money-amount__cents"
	selDescription = "p.ui-pdp-description__content"
	selHighlight   = "li.ui-pdp-highlights__item"
	selValueSpan   = "span.andes-table__column--value"
)

// specContainers are the page sections that hold attribute tables, in the
// order they are read.
var specContainers = []string{
	"div.ui-pdp-specs__table",
	"div.ui-vpp-striped-specs__table",
	"div.ui-vpp-highlighted-specs__attribute-columns",
}

var itemIDRe = regexp.MustCompile(`(?i)(MLB-?\d+)`)

// ItemID extracts the marketplace item identifier from a listing URL,
// normalized to upper case without the hyphen (MLB-123 becomes MLB123).
func ItemID(url string) (string, bool) {
	m := itemIDRe.FindString(url)
	if m == "" {
		return "", false
	}
	return strings.ToUpper(strings.ReplaceAll(m, "-", "")), true
}

// Parse reads a listing page and returns what it exposes. ItemID is left
// empty; the caller knows the URL.
func Parse(r io.Reader) (*types.CompetitorSnapshot, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	title := clean(doc.Find(selTitle).First().Text())
	if title == "" {
		return nil, ErrNoTitle
	}

	snap := &types.CompetitorSnapshot{
		Title:       title,
		Price:       parsePrice(doc),
		Description: clean(doc.Find(selDescription).First().Text()),
		Attributes:  map[string]string{},
	}

	doc.Find(selHighlight).Each(func(_ int, li *goquery.Selection) {
		spans := li.Find("span")
		if spans.Length() < 2 {
			return
		}
		key := strings.TrimSuffix(clean(spans.Eq(0).Text()), ":")
		addAttr(snap.Attributes, strings.TrimSpace(key), clean(spans.Eq(1).Text()))
	})

	for _, sel := range specContainers {
		doc.Find(sel).Each(func(_ int, box *goquery.Selection) {
			tables := box.Find("table.andes-table")
			if tables.Length() == 0 {
				tables = box.Find("table")
			}
			tables.Find("tr").Each(func(_ int, tr *goquery.Selection) {
				key, value, ok := rowPair(tr)
				if ok {
					addAttr(snap.Attributes, key, value)
				}
			})
		})
	}
	return snap, nil
}

// parsePrice joins the integer fraction (thousands dots removed) and the
// optional cents. It returns nil when no price is shown.
func parsePrice(doc *goquery.Document) *float64 {
	frac := strings.ReplaceAll(clean(doc.Find(selFraction).First().Text()), ".", "")
	if frac == "" {
		return nil
	}
	s := frac
	if cents := clean(doc.Find(selCents).First().Text()); cents != "" {
		s += "." + cents
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// rowPair reads an attribute-table row. The key is the first cell; the value
// prefers the dedicated value span inside the second cell.
func rowPair(tr *goquery.Selection) (string, string, bool) {
	cells := tr.Find("th, td")
	if cells.Length() < 2 {
		return "", "", false
	}
	key := clean(cells.Eq(0).Text())
	valueCell := cells.Eq(1)
	value := clean(valueCell.Find(selValueSpan).First().Text())
	if value == "" {
		value = clean(valueCell.Text())
	}
	return key, value, key != "" && value != ""
}

// addAttr records key once; the first occurrence wins.
func addAttr(m map[string]string, key, value string) {
	if key == "" || value == "" {
		return
	}
	if _, ok := m[key]; !ok {
		m[key] = value
	}
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
