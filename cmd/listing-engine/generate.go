// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/listing-engine/internal/brief"
	"github.com/pdiddy/listing-engine/internal/generate"
	"github.com/pdiddy/listing-engine/internal/llm"
	"github.com/pdiddy/listing-engine/internal/logging"
	"github.com/pdiddy/listing-engine/internal/store"
	"github.com/pdiddy/listing-engine/pkg/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate listing content for a product brief",
	Long: `Generate runs the content pipeline: context preparation, titles within the
character budget, description, attribute values, ranked classification
candidates and FAQ. A failing stage is recorded under issues and the run
continues; the command fails only when no content could be assembled.

Market data comes from --market, a stored snapshot (--snapshot or --latest),
or a fresh research run when none is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		briefPath, _ := flags.GetString("brief")
		out, _ := flags.GetString("out")
		format, _ := flags.GetString("format")
		budget, _ := flags.GetInt("title-budget")

		b, err := brief.Load(briefPath)
		if err != nil {
			return err
		}
		m, err := marketFor(cmd, b)
		if err != nil {
			return err
		}

		factory, err := llm.NewFactory(cfg.Model, nil)
		if err != nil {
			return err
		}
		mc := factory.Config()
		logger.Info("model selected",
			zap.String("provider", string(mc.Provider)),
			zap.String("model", mc.Model),
			logging.Redacted("api_key", mc.APIKey))

		models, err := generate.NewModels(cmd.Context(), factory)
		if err != nil {
			return err
		}
		content, err := generate.New(models, cfg.Generation, logger).Run(cmd.Context(), &b, &m, budget)
		if err != nil {
			return err
		}
		if content == nil {
			return errors.New("pipeline produced no content")
		}
		if content.Degraded() {
			logger.Warn("content generated with issues", zap.Strings("issues", content.Issues))
		}
		path := contentPath(out, cfg.Generation.OutputDir, format, b.CategoryID, content.RunID)
		if err := writeOutput(path, format, content); err != nil {
			return err
		}
		if path != "" && path != "-" {
			fmt.Fprintln(cmd.ErrOrStderr(), "content:", path)
		}
		return nil
	},
}

// marketFor resolves the market data source selected by flags.
func marketFor(cmd *cobra.Command, b types.ProductBrief) (types.MarketContext, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("market")
	snapshot, _ := flags.GetString("snapshot")
	latest, _ := flags.GetBool("latest")

	switch {
	case path != "":
		return readMarket(path)
	case snapshot != "" || latest:
		st, err := store.Open(cfg.Store)
		if err != nil {
			return types.MarketContext{}, err
		}
		defer st.Close()
		var m types.MarketContext
		if snapshot != "" {
			m, err = st.Get(cmd.Context(), snapshot)
		} else {
			m, err = st.Latest(cmd.Context(), b.CategoryID)
		}
		if err != nil {
			return types.MarketContext{}, fmt.Errorf("loading snapshot: %w", err)
		}
		return m, nil
	}
	return collect(cmd, b)
}

func init() {
	f := generateCmd.Flags()
	f.String("brief", "", "path to the product brief (YAML or JSON)")
	f.String("market", "", "market data file written by research")
	f.String("snapshot", "", "stored snapshot id to use as market data")
	f.Bool("latest", false, "use the latest stored snapshot for the brief's category")
	f.Int("title-budget", 0, "title character budget (default: from config for the category)")
	f.String("out", "", `output file, "-" for stdout (default: {generation.output_dir}/{category}-{run id}.yaml)`)
	f.String("format", "", "output format: yaml or json (default: from file extension, else yaml)")
	cobra.CheckErr(generateCmd.MarkFlagRequired("brief"))
	generateCmd.MarkFlagsMutuallyExclusive("market", "snapshot", "latest")

	rootCmd.AddCommand(generateCmd)
}
