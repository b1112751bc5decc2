// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/listing-engine/internal/store"
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List stored market snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")

		st, err := store.Open(cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		infos, err := st.List(cmd.Context())
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tCATEGORY\tCREATED\tTRENDS\tATTRIBUTES\tCOMPETITORS")
		for _, info := range infos {
			if category != "" && !strings.EqualFold(category, info.CategoryID) {
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n",
				info.ID, info.CategoryID, info.CreatedAt.Local().Format(time.DateTime),
				info.Trends, info.Attributes, info.Competitors)
		}
		return tw.Flush()
	},
}

func init() {
	snapshotsCmd.Flags().String("category", "", "only list snapshots for this category id")

	rootCmd.AddCommand(snapshotsCmd)
}
