package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gc-feedback/feedback-sync/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "feedback-sync",
	Short: "Page-feedback scrubbing and routing batch job",
	Long:  "Scrubs personal information from page-feedback records, deletes junk and duplicates, and routes cleaned records to their destination bases by URL tier.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := c.Validate(); err != nil {
			return err
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
