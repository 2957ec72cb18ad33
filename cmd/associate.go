package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var associateCmd = &cobra.Command{
	Use:   "associate",
	Short: "Assign extracted locations to their countries",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv()
		if err != nil {
			return err
		}

		summary, err := env.Pipeline.Associate(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "associate")
		}

		zap.L().Info("association complete",
			zap.Int("processed", summary.Processed),
			zap.Int("succeeded", summary.Succeeded),
			zap.Int("failed", summary.Failed),
			zap.Int("skipped_existing", summary.SkippedExisting),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(associateCmd)
}
