package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var completeCmd = &cobra.Command{
	Use:   "complete",
	Short: "Run only the completion stage (finalize fully processed records)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		p := newPipeline(st)
		return eris.Wrap(p.CompleteProcessing(ctx), "complete processing")
	},
}

func init() {
	rootCmd.AddCommand(completeCmd)
}
