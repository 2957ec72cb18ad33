package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crisisgraph/fieldgeo/internal/pipeline"
)

var (
	runMaxReports int
	runYes        bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: fetch, extract, associate, enrich",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !runYes && !confirm("This calls the GO API, the Anthropic API, and GeoNames. Continue?") {
			fmt.Println("aborted")
			return nil
		}

		env, err := initEnv()
		if err != nil {
			return err
		}

		summary, err := env.Pipeline.Run(cmd.Context(), pipeline.RunOptions{
			MaxReports: runMaxReports,
		})
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("run complete",
			zap.String("run_id", summary.RunID),
			zap.Int("fetched", summary.Fetch.New),
			zap.Int("extracted", summary.Extraction.Succeeded),
			zap.Int("associated", summary.Association.Succeeded),
			zap.Int("enriched", summary.Enrichment.Succeeded),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

// confirm asks on stdin; anything but y/yes declines.
func confirm(question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func init() {
	runCmd.Flags().IntVar(&runMaxReports, "max", 0, "maximum new reports to fetch (0 = no cap)")
	runCmd.Flags().BoolVarP(&runYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(runCmd)
}
