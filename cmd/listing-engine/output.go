// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/listing-engine/pkg/types"
)

// encode writes v to w as YAML or JSON.
func encode(w io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	case "yaml", "yml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown output format %q (want yaml or json)", format)
}

// writeOutput encodes v to path, or to stdout when path is empty or "-".
// The format follows the file extension unless one is given.
func writeOutput(path, format string, v any) error {
	if path == "" || path == "-" {
		return encode(os.Stdout, format, v)
	}
	if format == "" && strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}
	var buf bytes.Buffer
	if err := encode(&buf, format, v); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// contentPath picks where generate writes content for a run. An explicit
// out wins ("-" selects stdout). Otherwise the file goes under outputDir as
// {category}-{runID}.{yaml|json}; an empty outputDir selects stdout.
func contentPath(out, outputDir, format, categoryID, runID string) string {
	if out != "" || outputDir == "" {
		return out
	}
	ext := ".yaml"
	if strings.EqualFold(format, "json") {
		ext = ".json"
	}
	name := categoryID
	if runID != "" {
		name += "-" + runID
	}
	return filepath.Join(outputDir, name+ext)
}

// readMarket loads market data written by the research command in either
// output format.
func readMarket(path string) (types.MarketContext, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.MarketContext{}, fmt.Errorf("reading market data: %w", err)
	}
	var m types.MarketContext
	if json.Valid(data) {
		err = json.Unmarshal(data, &m)
	} else {
		err = yaml.Unmarshal(data, &m)
	}
	if err != nil {
		return types.MarketContext{}, fmt.Errorf("decoding market data %s: %w", path, err)
	}
	return m, nil
}
