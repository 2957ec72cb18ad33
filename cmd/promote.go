package main

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	promoteMinOccurrences int
	promoteApply          bool
)

type promotionCandidate struct {
	Location string `json:"location"`
	Country  string `json:"country"`
	Reports  int    `json:"supporting_reports"`
}

var promoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Promote recurring unassigned locations into the knowledge base",
	Long:  "Scans stored associations for unassigned locations that consistently co-occur with one country and, with --apply, adds the recurring ones to the persisted knowledge base.",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv()
		if err != nil {
			return err
		}

		assocs, err := env.Store.Associations.Load()
		if err != nil {
			return eris.Wrap(err, "load associations")
		}

		suggestions := env.Validator.SuggestAssignments(assocs)
		candidates := make([]promotionCandidate, 0, len(suggestions))
		for s, evidence := range suggestions {
			reports := map[string]struct{}{}
			for _, e := range evidence {
				reports[e.ReportID] = struct{}{}
			}
			candidates = append(candidates, promotionCandidate{
				Location: s.Location,
				Country:  s.Country,
				Reports:  len(reports),
			})
		}
		sort.Slice(candidates, func(i, j int) bool {
			if candidates[i].Reports != candidates[j].Reports {
				return candidates[i].Reports > candidates[j].Reports
			}
			return candidates[i].Location < candidates[j].Location
		})

		if promoteApply {
			promoted := env.Validator.PromoteSuggestions(suggestions, promoteMinOccurrences)
			if promoted > 0 {
				if err := env.Store.SaveKnowledgeBase(env.KB.Learned()); err != nil {
					return eris.Wrap(err, "save knowledge base")
				}
			}
			zap.L().Info("promotion complete",
				zap.Int("candidates", len(candidates)),
				zap.Int("promoted", promoted),
				zap.Int("min_occurrences", promoteMinOccurrences),
			)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(candidates)
	},
}

func init() {
	promoteCmd.Flags().IntVar(&promoteMinOccurrences, "min-occurrences", 2, "distinct reports required before a suggestion is promoted")
	promoteCmd.Flags().BoolVar(&promoteApply, "apply", false, "write promoted assignments to the knowledge base")
	rootCmd.AddCommand(promoteCmd)
}
