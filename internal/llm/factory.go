// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/pdiddy/listing-engine/pkg/types"
)

// ErrUnknownProvider is returned for a provider name the factory cannot build.
var ErrUnknownProvider = errors.New("unknown model provider")

// ErrMissingAPIKey is returned when the selected provider has no credential.
var ErrMissingAPIKey = errors.New("missing API key")

const defaultMaxTokens = 4096

// defaultModels maps each provider to the model used when none is configured.
var defaultModels = map[types.Provider]string{
	types.ProviderAnthropic: "claude-3-5-haiku-latest",
	types.ProviderOpenAI:    "gpt-4.1",
	types.ProviderGroq:      "llama-3.3-70b-versatile",
	types.ProviderGemini:    "gemini-2.0-flash",
}

// DefaultModel returns the default model identifier for provider.
func DefaultModel(p types.Provider) string {
	return defaultModels[p]
}

// Factory builds provider clients from a fixed configuration. The factory
// holds no mutable state; every call to New returns an independent handle.
type Factory struct {
	cfg    types.ModelConfig
	client *http.Client
}

// NewFactory validates cfg and returns a Factory for it. A nil client
// selects one built from cfg.Timeout.
func NewFactory(cfg types.ModelConfig, client *http.Client) (*Factory, error) {
	if _, ok := defaultModels[cfg.Provider]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w for provider %s", ErrMissingAPIKey, cfg.Provider)
	}
	if cfg.Model == "" {
		cfg.Model = defaultModels[cfg.Provider]
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Factory{cfg: cfg, client: client}, nil
}

// Config returns the resolved configuration.
func (f *Factory) Config() types.ModelConfig {
	return f.cfg
}

// New returns a Model for the configured provider sampling at temperature,
// wrapped with the configured retry policy.
func (f *Factory) New(ctx context.Context, temperature float64) (Model, error) {
	var m Model
	switch f.cfg.Provider {
	case types.ProviderAnthropic:
		m = &AnthropicModel{
			APIKey:      f.cfg.APIKey,
			Model:       f.cfg.Model,
			URL:         endpoint(f.cfg.BaseURL, anthropicAPIURL),
			MaxTokens:   f.cfg.MaxTokens,
			Temperature: temperature,
			Client:      f.client,
		}
	case types.ProviderOpenAI, types.ProviderGroq:
		def := openAIAPIURL
		if f.cfg.Provider == types.ProviderGroq {
			def = groqAPIURL
		}
		m = &OpenAIModel{
			APIKey:      f.cfg.APIKey,
			Model:       f.cfg.Model,
			URL:         endpoint(f.cfg.BaseURL, def),
			MaxTokens:   f.cfg.MaxTokens,
			Temperature: temperature,
			Client:      f.client,
		}
	case types.ProviderGemini:
		g, err := NewGeminiModel(ctx, f.cfg, temperature, f.client)
		if err != nil {
			return nil, err
		}
		m = g
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, f.cfg.Provider)
	}
	return WithRetry(m, f.cfg.MaxRetries), nil
}

func endpoint(override, def string) string {
	if override != "" {
		return override
	}
	return def
}
