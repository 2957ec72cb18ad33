package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crisisgraph/fieldgeo/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "fieldgeo",
	Short: "Geolocation pipeline for disaster field reports",
	Long:  "Fetches IFRC GO field reports, extracts mentioned locations via Claude, assigns them to countries, and enriches them with GeoNames coordinates.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
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
