package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var tiersCmd = &cobra.Command{
	Use:   "tiers",
	Short: "Fetch both tier feeds and report what loaded",
	RunE: func(cmd *cobra.Command, args []string) error {
		tiers, err := loadTiers(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "load tier feeds")
		}

		out := struct {
			Tier1 int `json:"tier1_urls"`
			Tier2 int `json:"tier2_urls"`
		}{
			Tier1: tiers.Tier1Count(),
			Tier2: tiers.Tier2Count(),
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	rootCmd.AddCommand(tiersCmd)
}
