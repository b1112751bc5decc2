// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of
// plain-text files. Each file holds one secret: the filename is the key
// name and the trimmed file contents are the value.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/listing-engine/pkg/types"
)

// Recognized key files.
const (
	AnthropicKey     = "anthropic-api-key"
	OpenAIKey        = "openai-api-key"
	GroqKey          = "groq-api-key"
	GeminiKey        = "gemini-api-key"
	MarketplaceToken = "meli-access-token"

	MarketplaceClientID     = "meli-client-id"
	MarketplaceClientSecret = "meli-client-secret"
	MarketplaceRefreshToken = "meli-refresh-token"
)

var providerKeys = map[types.Provider]string{
	types.ProviderAnthropic: AnthropicKey,
	types.ProviderOpenAI:    OpenAIKey,
	types.ProviderGroq:      GroqKey,
	types.ProviderGemini:    GeminiKey,
}

// KeyFile returns the secret filename holding the API key for p.
func KeyFile(p types.Provider) (string, bool) {
	name, ok := providerKeys[p]
	return name, ok
}

// Load reads all files in dir and returns a map of filename to trimmed
// contents. A missing directory is not an error. Unreadable files are
// logged and skipped.
func Load(dir string, logger *zap.Logger) (map[string]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	out := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			out[name] = value
		}
	}
	return out, nil
}

// Apply fills empty credential fields of cfg from loaded secrets. Values
// already set through the config file or environment take precedence.
func Apply(cfg *types.Config, s map[string]string) {
	if cfg.Model.APIKey == "" {
		if name, ok := KeyFile(cfg.Model.Provider); ok {
			cfg.Model.APIKey = s[name]
		}
	}
	fill := func(dst *string, name string) {
		if *dst == "" {
			*dst = s[name]
		}
	}
	fill(&cfg.Market.AccessToken, MarketplaceToken)
	fill(&cfg.Market.ClientID, MarketplaceClientID)
	fill(&cfg.Market.ClientSecret, MarketplaceClientSecret)
	fill(&cfg.Market.RefreshToken, MarketplaceRefreshToken)
}

// Save writes value to the key file name in dir, replacing any previous
// value. The file is written under a temporary name and renamed into place
// so a crash never leaves a truncated secret behind.
func Save(dir, name, value string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating secrets directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("creating temporary secret file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(value + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("writing secret %s: %w", name, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("setting secret permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing secret %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("replacing secret %s: %w", name, err)
	}
	return nil
}
