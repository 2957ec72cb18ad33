package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var fetchMaxReports int

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch new field reports from the GO API",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv()
		if err != nil {
			return err
		}

		summary, err := env.Pipeline.Fetch(cmd.Context(), fetchMaxReports)
		if err != nil {
			return eris.Wrap(err, "fetch")
		}

		zap.L().Info("fetch complete",
			zap.Int("new", summary.New),
			zap.Int("existing", summary.Existing),
			zap.Int("skipped", summary.Skipped),
			zap.Int("pages", summary.Batches),
		)
		return nil
	},
}

func init() {
	fetchCmd.Flags().IntVar(&fetchMaxReports, "max", 0, "maximum new reports to fetch (0 = no cap)")
	rootCmd.AddCommand(fetchCmd)
}
