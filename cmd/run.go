package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one full processing pass (clean, sync, complete)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		p := newPipeline(st)
		if err := p.Run(ctx); err != nil {
			return eris.Wrap(err, "processing run")
		}

		zap.L().Info("processing run complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
