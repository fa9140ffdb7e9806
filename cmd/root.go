package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "jobsift",
	Short: "Job board scraping and enrichment pipeline",
	Long:  "Scrapes job listings, parses and deduplicates them, enriches each posting via Claude, and stores the results.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A .env file is optional; real environments set variables directly.
		_ = godotenv.Load()

		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
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
