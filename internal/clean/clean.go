// Package clean turns raw GO API field-report payloads into validated,
// HTML-free report records.
package clean

import (
	"encoding/json"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/crisisgraph/fieldgeo/internal/model"
)

var (
	tagRe        = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// HTML strips tags, unescapes entities, and collapses whitespace.
func HTML(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	s = tagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// rawReport mirrors the GO API field-report shape, with the nested detail
// objects the API wraps names in.
type rawReport struct {
	ID             json.Number `json:"id"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Summary        string      `json:"summary"`
	CountryDetails *struct {
		Name string `json:"name"`
	} `json:"country_details"`
	EventDetails *struct {
		Name string `json:"name"`
	} `json:"event_details"`
	DtypeDetails *struct {
		Name string `json:"name"`
	} `json:"dtype_details"`
}

// ReportID pulls just the ID out of a raw payload, for duplicate checks
// before full processing.
func ReportID(payload json.RawMessage) (string, error) {
	var raw struct {
		ID json.Number `json:"id"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return "", eris.Wrap(err, "clean: decode report id")
	}
	id := raw.ID.String()
	if id == "" {
		return "", eris.New("clean: report missing id")
	}
	return id, nil
}

// ReportFromAPI builds a cleaned report from a raw API payload. It fails when
// the payload has no ID or no meaningful text content in any of title,
// summary, and description.
func ReportFromAPI(payload json.RawMessage, now time.Time) (model.Report, error) {
	var raw rawReport
	if err := json.Unmarshal(payload, &raw); err != nil {
		return model.Report{}, eris.Wrap(err, "clean: decode report")
	}
	if raw.ID.String() == "" {
		return model.Report{}, eris.New("clean: report missing id")
	}

	report := model.Report{
		ID:          raw.ID.String(),
		Title:       HTML(raw.Title),
		Description: HTML(raw.Description),
		Summary:     HTML(raw.Summary),
		Status:      "fetched",
		FetchedAt:   now,
	}
	if raw.CountryDetails != nil {
		report.Country = raw.CountryDetails.Name
	}
	if raw.EventDetails != nil {
		report.EventName = raw.EventDetails.Name
	}
	if raw.DtypeDetails != nil {
		report.DisasterType = raw.DtypeDetails.Name
	}

	if !report.HasContent() {
		return model.Report{}, eris.Errorf("clean: report %s has no text content", report.ID)
	}
	return report, nil
}
