// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging builds the zap logger shared by every component.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/listing-engine/pkg/types"
)

// New returns a logger for cfg. Format "json" selects the production
// encoder; anything else selects the human-readable console encoder.
// An empty level means info.
func New(cfg types.LogConfig) (*zap.Logger, error) {
	level := zap.InfoLevel
	if cfg.Level != "" {
		if err := level.Set(strings.ToLower(cfg.Level)); err != nil {
			return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
		}
	}

	var zc zap.Config
	switch strings.ToLower(cfg.Format) {
	case "json", "prod", "production":
		zc = zap.NewProductionConfig()
	default:
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

// Redacted returns a field that records only whether a secret is set and
// its last four characters.
func Redacted(key, secret string) zap.Field {
	switch {
	case secret == "":
		return zap.String(key, "<unset>")
	case len(secret) <= 4:
		return zap.String(key, "****")
	default:
		return zap.String(key, "****"+secret[len(secret)-4:])
	}
}
