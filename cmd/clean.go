package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Run only the cleaning stages (surveys, then problem records)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		p := newPipeline(st)
		if err := p.CleanSurveys(ctx); err != nil {
			return eris.Wrap(err, "clean surveys")
		}
		if err := p.CleanProblems(ctx); err != nil {
			return eris.Wrap(err, "clean problems")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}
