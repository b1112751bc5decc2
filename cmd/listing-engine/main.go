// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the listing-engine CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/listing-engine/internal/logging"
	"github.com/pdiddy/listing-engine/internal/secrets"
	"github.com/pdiddy/listing-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var secretsDir = ".secrets/"

var (
	// cfg is the resolved configuration, filled before any subcommand runs.
	cfg types.Config

	logger = zap.NewNop()
)

// rootCmd is the base command for the listing-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "listing-engine",
	Short: "Draft marketplace listing content with generative models",
	Long: `listing-engine drafts marketplace listing content for a product brief:
candidate titles within the category's character budget, a description,
attribute values, ranked tax-classification candidates and an FAQ.

research collects trends, the category attribute schema and competitor
listings. generate runs the content pipeline over a brief and that market
data. Market data can be cached in a local snapshot store and reused.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.Unmarshal(&cfg); err != nil {
			return fmt.Errorf("decoding config: %w", err)
		}
		cfg.Generation.CategoryBudgets = upperKeys(cfg.Generation.CategoryBudgets)

		l, err := logging.New(cfg.Log)
		if err != nil {
			return err
		}
		logger = l

		s, err := secrets.Load(secretsDir, logger)
		if err != nil {
			return err
		}
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug("loaded secrets", zap.Strings("keys", keys))
		}
		secrets.Apply(&cfg, s)

		if f := viper.ConfigFileUsed(); f != "" {
			logger.Debug("using config file", zap.String("path", f))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./listing-engine.yaml or ~/.config/listing-engine/listing-engine.yaml)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "console", "log format: console or json")
	pf.String("provider", "", "model provider: anthropic, openai, groq, gemini")
	pf.String("model", "", "model identifier (default: provider default)")
	pf.String("store-dir", "", "directory holding the market snapshot database")

	cobra.CheckErr(viper.BindPFlag("log.level", pf.Lookup("log-level")))
	cobra.CheckErr(viper.BindPFlag("log.format", pf.Lookup("log-format")))
	cobra.CheckErr(viper.BindPFlag("model.provider", pf.Lookup("provider")))
	cobra.CheckErr(viper.BindPFlag("model.model", pf.Lookup("model")))
	cobra.CheckErr(viper.BindPFlag("store.dir", pf.Lookup("store-dir")))

	setDefaults()
}

func setDefaults() {
	viper.SetDefault("model.provider", string(types.ProviderAnthropic))
	viper.SetDefault("model.timeout", 2*time.Minute)
	viper.SetDefault("model.max_retries", 3)
	viper.SetDefault("model.max_tokens", 4096)
	viper.SetDefault("model.api_key", "")
	viper.SetDefault("model.base_url", "")

	viper.SetDefault("generation.title_budget", 60)
	viper.SetDefault("generation.category_budgets", map[string]int{"MLB1246": 150, "MLB8477": 150})
	viper.SetDefault("generation.output_dir", "output")

	viper.SetDefault("market.timeout", 30*time.Second)
	viper.SetDefault("market.api_base_url", "https://api.mercadolibre.com")
	viper.SetDefault("market.site_id", "MLB")
	viper.SetDefault("market.trend_limit", 20)
	viper.SetDefault("market.scrape_concurrency", 4)
	viper.SetDefault("market.scrape_interval", 500*time.Millisecond)
	viper.SetDefault("market.max_retries", 5)
	viper.SetDefault("market.access_token", "")
	viper.SetDefault("market.client_id", "")
	viper.SetDefault("market.client_secret", "")
	viper.SetDefault("market.refresh_token", "")
	viper.SetDefault("market.token_url", "")

	viper.SetDefault("store.dir", ".data")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("listing-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "listing-engine"))
		}
	}

	viper.SetEnvPrefix("LISTING_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintln(os.Stderr, "warning: reading config:", err)
		}
	}
}

// upperKeys restores upper-case category ids; viper lower-cases map keys.
func upperKeys(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[strings.ToUpper(k)] = v
	}
	return out
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
