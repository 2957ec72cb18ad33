package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/crisisgraph/fieldgeo/internal/store"
)

type stageCounts struct {
	RawReports   int `json:"raw_reports"`
	Reports      int `json:"processed_reports"`
	Extractions  int `json:"extractions"`
	Associations int `json:"associations"`
	Enriched     int `json:"enriched"`
}

type statusReport struct {
	DataDir        string                `json:"data_dir"`
	Counts         stageCounts           `json:"counts"`
	KnowledgeBase  int                   `json:"knowledge_base_entries"`
	IntegrityClean bool                  `json:"integrity_clean"`
	Integrity      store.IntegrityReport `json:"integrity,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stage record counts and store integrity",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv()
		if err != nil {
			return err
		}

		report := statusReport{
			DataDir:       cfg.Store.DataDir,
			KnowledgeBase: env.KB.Len(),
		}
		if report.Counts.RawReports, err = env.Store.Raw.Count(); err != nil {
			return eris.Wrap(err, "count raw reports")
		}
		if report.Counts.Reports, err = env.Store.Reports.Count(); err != nil {
			return eris.Wrap(err, "count reports")
		}
		if report.Counts.Extractions, err = env.Store.Extractions.Count(); err != nil {
			return eris.Wrap(err, "count extractions")
		}
		if report.Counts.Associations, err = env.Store.Associations.Count(); err != nil {
			return eris.Wrap(err, "count associations")
		}
		if report.Counts.Enriched, err = env.Store.Enriched.Count(); err != nil {
			return eris.Wrap(err, "count enriched")
		}

		integrity, err := env.Store.CheckIntegrity()
		if err != nil {
			return eris.Wrap(err, "check integrity")
		}
		report.Integrity = integrity
		report.IntegrityClean = integrity.Clean()

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
