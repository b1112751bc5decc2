package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "listing-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// Provider identifies a generative-model vendor.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGroq      Provider = "groq"
	ProviderGemini    Provider = "gemini"
)

// StageTemperatures sets the sampling temperature per pipeline stage.
// Zero values are replaced by the creative/analytical defaults.
type StageTemperatures struct {
	Titles         float64 `json:"titles" yaml:"titles" mapstructure:"titles"`
	Description    float64 `json:"description" yaml:"description" mapstructure:"description"`
	Attributes     float64 `json:"attributes" yaml:"attributes" mapstructure:"attributes"`
	Classification float64 `json:"classification" yaml:"classification" mapstructure:"classification"`
	FAQ            float64 `json:"faq" yaml:"faq" mapstructure:"faq"`
}

// Default temperatures for creative (titles, description) and analytical
// (attributes, classification, FAQ) stages.
const (
	CreativeTemperature   = 0.5
	AnalyticalTemperature = 0.2
)

// WithDefaults fills zero temperatures.
func (t StageTemperatures) WithDefaults() StageTemperatures {
	fill := func(v *float64, d float64) {
		if *v == 0 {
			*v = d
		}
	}
	fill(&t.Titles, CreativeTemperature)
	fill(&t.Description, CreativeTemperature)
	fill(&t.Attributes, AnalyticalTemperature)
	fill(&t.Classification, AnalyticalTemperature)
	fill(&t.FAQ, AnalyticalTemperature)
	return t
}

// ModelConfig selects the generative-model provider. It is constructed once
// by the caller and passed by value into the pipeline.
type ModelConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Provider is one of anthropic, openai, groq, gemini.
	Provider Provider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the provider model identifier. Empty selects the provider default.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// BaseURL overrides the provider endpoint (used by tests and proxies).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// APIKey is the authentication key for the provider API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxRetries is the number of retry attempts for failed calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// MaxTokens bounds the response length (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	Temperatures StageTemperatures `json:"temperatures" yaml:"temperatures" mapstructure:"temperatures"`
}

// GenerationConfig holds settings for the content-generation pipeline.
type GenerationConfig struct {
	// TitleBudget is the default title character budget (default 60).
	TitleBudget int `json:"title_budget" yaml:"title_budget" mapstructure:"title_budget"`

	// CategoryBudgets overrides the budget for specific category ids
	// (e.g. MLB1246: 150).
	CategoryBudgets map[string]int `json:"category_budgets" yaml:"category_budgets" mapstructure:"category_budgets"`

	// OutputDir is where generated content files are written (e.g. "output/").
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`
}

// MarketConfig holds settings for market-research collection.
type MarketConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// APIBaseURL is the marketplace REST API root.
	APIBaseURL string `json:"api_base_url" yaml:"api_base_url" mapstructure:"api_base_url"`

	// SiteID is the marketplace site identifier (e.g. "MLB").
	SiteID string `json:"site_id" yaml:"site_id" mapstructure:"site_id"`

	// AccessToken is an optional bearer token for the marketplace API.
	AccessToken string `json:"access_token,omitempty" yaml:"access_token,omitempty" mapstructure:"access_token"`

	// ClientID, ClientSecret and RefreshToken enable the OAuth refresh_token
	// grant. When RefreshToken is set, access tokens are obtained and renewed
	// automatically and AccessToken is ignored.
	ClientID     string `json:"client_id,omitempty" yaml:"client_id,omitempty" mapstructure:"client_id"`
	ClientSecret string `json:"client_secret,omitempty" yaml:"client_secret,omitempty" mapstructure:"client_secret"`
	RefreshToken string `json:"refresh_token,omitempty" yaml:"refresh_token,omitempty" mapstructure:"refresh_token"`

	// TokenURL is the OAuth token endpoint (default {api_base_url}/oauth/token).
	TokenURL string `json:"token_url,omitempty" yaml:"token_url,omitempty" mapstructure:"token_url"`

	// TrendLimit caps the number of trend keywords kept (default 20).
	TrendLimit int `json:"trend_limit" yaml:"trend_limit" mapstructure:"trend_limit"`

	// ScrapeConcurrency bounds parallel competitor scrapes (default 4).
	ScrapeConcurrency int `json:"scrape_concurrency" yaml:"scrape_concurrency" mapstructure:"scrape_concurrency"`

	// ScrapeInterval is the minimum delay between page fetches (default 500ms).
	ScrapeInterval time.Duration `json:"scrape_interval" yaml:"scrape_interval" mapstructure:"scrape_interval"`

	// MaxRetries bounds 429 retries against the REST API (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// StoreConfig holds settings for the market snapshot store.
type StoreConfig struct {
	// Dir is the directory holding market.db (e.g. ".data/").
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`
}

// LogConfig controls logger construction.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is "console" or "json".
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// Config groups every component configuration.
type Config struct {
	Model      ModelConfig      `json:"model" yaml:"model" mapstructure:"model"`
	Generation GenerationConfig `json:"generation" yaml:"generation" mapstructure:"generation"`
	Market     MarketConfig     `json:"market" yaml:"market" mapstructure:"market"`
	Store      StoreConfig      `json:"store" yaml:"store" mapstructure:"store"`
	Log        LogConfig        `json:"log" yaml:"log" mapstructure:"log"`
}
