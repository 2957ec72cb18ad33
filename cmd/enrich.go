package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich associated locations with GeoNames coordinates",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv()
		if err != nil {
			return err
		}

		summary, err := env.Pipeline.Enrich(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "enrich")
		}

		zap.L().Info("enrichment complete",
			zap.Int("processed", summary.Processed),
			zap.Int("succeeded", summary.Succeeded),
			zap.Int("failed", summary.Failed),
			zap.Int("skipped_existing", summary.SkippedExisting),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(enrichCmd)
}
