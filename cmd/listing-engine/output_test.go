// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/listing-engine/pkg/types"
)

func sampleMarket() types.MarketContext {
	return types.MarketContext{
		Trends:      []string{"ventilador de teto"},
		Attributes:  []types.AttributeDef{{ID: "BRAND", Name: "Marca", Required: true}},
		Competitors: []types.CompetitorSnapshot{{ItemID: "MLB1", Title: "Ventilador"}},
		CollectedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestWriteReadMarket(t *testing.T) {
	for _, name := range []string{"market.yaml", "market.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out", name)
			require.NoError(t, writeOutput(path, "", sampleMarket()))

			got, err := readMarket(path)
			require.NoError(t, err)
			assert.Equal(t, sampleMarket().Trends, got.Trends)
			assert.Equal(t, sampleMarket().Competitors, got.Competitors)
			assert.True(t, sampleMarket().CollectedAt.Equal(got.CollectedAt))
		})
	}
}

func TestEncode_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, encode(&buf, "xml", sampleMarket()))
}

func TestUpperKeys(t *testing.T) {
	assert.Equal(t, map[string]int{"MLB1246": 150}, upperKeys(map[string]int{"mlb1246": 150}))
	assert.Empty(t, upperKeys(nil))
}

func TestContentPath(t *testing.T) {
	tests := []struct {
		name      string
		out       string
		outputDir string
		format    string
		want      string
	}{
		{"explicit file wins", "content.json", "output", "", "content.json"},
		{"dash is stdout", "-", "output", "", "-"},
		{"default under output dir", "", "output", "", filepath.Join("output", "MLB1246-run-1.yaml")},
		{"json extension follows format", "", "output", "JSON", filepath.Join("output", "MLB1246-run-1.json")},
		{"no output dir is stdout", "", "", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, contentPath(tc.out, tc.outputDir, tc.format, "MLB1246", "run-1"))
		})
	}
}
