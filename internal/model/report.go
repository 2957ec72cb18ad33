// Package model defines the typed records flowing through the field-report
// geolocation pipeline: cleaned reports, location extractions, country
// associations, and gazetteer-enriched associations.
package model

import "time"

// Report is a cleaned field report fetched from the GO API. Identity is the
// remote system's report ID; a report is immutable once stored and is never
// re-fetched while its ID is present in the reports store.
type Report struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Summary      string    `json:"summary"`
	Country      string    `json:"country,omitempty"`
	EventName    string    `json:"event_name,omitempty"`
	DisasterType string    `json:"disaster_type,omitempty"`
	Status       string    `json:"status"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// CombinedText joins the report's title, summary, and description into a
// single labeled block for prompt construction, truncated to maxChars to keep
// model responses from running past the token budget.
func (r Report) CombinedText(maxChars int) string {
	text := ""
	if r.Title != "" {
		text += "TITLE: " + r.Title
	}
	if r.Summary != "" {
		if text != "" {
			text += "\n\n"
		}
		text += "SUMMARY: " + r.Summary
	}
	if r.Description != "" {
		if text != "" {
			text += "\n\n"
		}
		text += "DESCRIPTION: " + r.Description
	}
	if maxChars > 0 && len(text) > maxChars {
		text = text[:maxChars] + "... [TEXT TRUNCATED]"
	}
	return text
}

// HasContent reports whether at least one text field carries non-whitespace
// content. Reports without content are rejected before storage.
func (r Report) HasContent() bool {
	for _, s := range []string{r.Title, r.Summary, r.Description} {
		for _, c := range s {
			if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
				return true
			}
		}
	}
	return false
}
