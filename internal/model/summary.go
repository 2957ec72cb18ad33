package model

import "time"

// FetchSummary reports the outcome of one fetch pass against the GO API.
type FetchSummary struct {
	New      int `json:"new"`
	Skipped  int `json:"skipped"`
	Batches  int `json:"batches"`
	Existing int `json:"existing"`
}

// StageSummary reports the outcome of one enrichment stage over its delta.
type StageSummary struct {
	Processed       int `json:"processed"`
	Succeeded       int `json:"succeeded"`
	Failed          int `json:"failed"`
	SkippedExisting int `json:"skipped_existing"`
}

// RunSummary aggregates the per-stage summaries for one pipeline run.
// Individual item failures accumulate into the counts; they never abort the
// run.
type RunSummary struct {
	RunID       string       `json:"run_id"`
	StartedAt   time.Time    `json:"started_at"`
	FinishedAt  time.Time    `json:"finished_at"`
	Fetch       FetchSummary `json:"fetch"`
	Extraction  StageSummary `json:"extraction"`
	Association StageSummary `json:"association"`
	Enrichment  StageSummary `json:"enrichment"`
}
