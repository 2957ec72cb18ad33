package clean

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTML(t *testing.T) {
	cases := map[string]string{
		"<p>Flooding in <b>Valparaíso</b></p>":  "Flooding in Valparaíso",
		"plain text":                            "plain text",
		"a&nbsp;&amp;&nbsp;b":                   "a & b",
		"  lots\n\nof\t whitespace  ":           "lots of whitespace",
		"<div><ul><li>one</li><li>two</li></ul>": "one two",
		"":    "",
		"   ": "",
	}
	for in, want := range cases {
		assert.Equal(t, want, HTML(in), "input %q", in)
	}
}

func TestReportFromAPI(t *testing.T) {
	now := time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)
	payload := json.RawMessage(`{
		"id": 18123,
		"title": "<p>Tsunami advisory</p>",
		"summary": "Waves observed near <b>Puerto Montt</b>",
		"description": "",
		"country_details": {"name": "Chile"},
		"event_details": {"name": "Pacific earthquake"},
		"dtype_details": {"name": "Tsunami"}
	}`)

	report, err := ReportFromAPI(payload, now)
	require.NoError(t, err)
	assert.Equal(t, "18123", report.ID)
	assert.Equal(t, "Tsunami advisory", report.Title)
	assert.Equal(t, "Waves observed near Puerto Montt", report.Summary)
	assert.Equal(t, "Chile", report.Country)
	assert.Equal(t, "Pacific earthquake", report.EventName)
	assert.Equal(t, "Tsunami", report.DisasterType)
	assert.Equal(t, "fetched", report.Status)
	assert.Equal(t, now, report.FetchedAt)
}

func TestReportFromAPIRejectsMissingID(t *testing.T) {
	_, err := ReportFromAPI(json.RawMessage(`{"title": "no id"}`), time.Now())
	assert.Error(t, err)
}

func TestReportFromAPIRejectsEmptyContent(t *testing.T) {
	payload := json.RawMessage(`{"id": 5, "title": "  ", "summary": "<p> </p>", "description": ""}`)
	_, err := ReportFromAPI(payload, time.Now())
	assert.Error(t, err)
}

func TestReportID(t *testing.T) {
	id, err := ReportID(json.RawMessage(`{"id": 77, "title": "x"}`))
	require.NoError(t, err)
	assert.Equal(t, "77", id)

	_, err = ReportID(json.RawMessage(`{"title": "x"}`))
	assert.Error(t, err)

	_, err = ReportID(json.RawMessage(`not json`))
	assert.Error(t, err)
}
