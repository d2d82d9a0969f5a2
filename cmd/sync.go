package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run only the sync stage (route cleaned records by tier)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		tiers, err := loadTiers(ctx)
		if err != nil {
			return eris.Wrap(err, "load tier feeds")
		}

		p := newPipeline(st)
		return eris.Wrap(p.SyncProblems(ctx, tiers), "sync problems")
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
