// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/listing-engine/internal/auth"
	"github.com/pdiddy/listing-engine/internal/brief"
	"github.com/pdiddy/listing-engine/internal/market"
	"github.com/pdiddy/listing-engine/internal/marketplace"
	"github.com/pdiddy/listing-engine/internal/scrape"
	"github.com/pdiddy/listing-engine/internal/secrets"
	"github.com/pdiddy/listing-engine/internal/store"
	"github.com/pdiddy/listing-engine/pkg/types"
)

var researchCmd = &cobra.Command{
	Use:   "research",
	Short: "Collect market data for a product brief",
	Long: `Research queries the marketplace API for the category's trend keywords and
attribute schema and scrapes the competitor listings named in the brief.
Sources are queried concurrently; a failing source leaves its part empty.

The result is written as YAML (or JSON) and can be stored as a snapshot for
later generate runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		briefPath, _ := cmd.Flags().GetString("brief")
		out, _ := cmd.Flags().GetString("out")
		format, _ := cmd.Flags().GetString("format")
		save, _ := cmd.Flags().GetBool("save")

		b, err := brief.Load(briefPath)
		if err != nil {
			return err
		}
		m, err := collect(cmd, b)
		if err != nil {
			return err
		}

		if save {
			st, err := store.Open(cfg.Store)
			if err != nil {
				return err
			}
			defer st.Close()
			id, err := st.Save(cmd.Context(), b.CategoryID, m)
			if err != nil {
				return err
			}
			logger.Info("snapshot saved", zap.String("snapshot_id", id), zap.String("category_id", b.CategoryID))
			fmt.Fprintln(cmd.ErrOrStderr(), "snapshot:", id)
		}
		return writeOutput(out, format, m)
	},
}

// collect gathers market data for b with the configured collaborators.
func collect(cmd *cobra.Command, b types.ProductBrief) (types.MarketContext, error) {
	catalog := marketplace.New(cfg.Market, nil, tokenSource(cfg.Market))
	scraper := scrape.New(cfg.Market, nil, logger)
	return market.NewCollector(catalog, scraper, cfg.Market, logger).Collect(cmd.Context(), b)
}

// tokenSource returns a refreshing token source when a refresh token is
// configured, or nil to fall back to the static access token. Rotated
// refresh tokens are written back to the secrets directory.
func tokenSource(mc types.MarketConfig) auth.Source {
	if mc.RefreshToken == "" {
		return nil
	}
	creds := auth.Credentials{
		ClientID:     mc.ClientID,
		ClientSecret: mc.ClientSecret,
		RefreshToken: mc.RefreshToken,
	}
	return auth.NewRefreshingSource(creds, &http.Client{Timeout: mc.Timeout}, logger,
		auth.WithTokenURL(mc.TokenURL),
		auth.WithMaxRetries(mc.MaxRetries),
		auth.WithPersist(func(tok string) error {
			return secrets.Save(secretsDir, secrets.MarketplaceRefreshToken, tok)
		}),
	)
}

func init() {
	researchCmd.Flags().String("brief", "", "path to the product brief (YAML or JSON)")
	researchCmd.Flags().String("out", "", "output file (default: stdout)")
	researchCmd.Flags().String("format", "", "output format: yaml or json (default: from file extension, else yaml)")
	researchCmd.Flags().Bool("save", false, "store the result in the snapshot database")
	cobra.CheckErr(researchCmd.MarkFlagRequired("brief"))

	rootCmd.AddCommand(researchCmd)
}
