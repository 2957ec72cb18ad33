package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crisisgraph/fieldgeo/internal/jsonrepair"
	"github.com/crisisgraph/fieldgeo/internal/model"
	"github.com/crisisgraph/fieldgeo/internal/resilience"
	"github.com/crisisgraph/fieldgeo/internal/store"
	"github.com/crisisgraph/fieldgeo/pkg/llm"
)

func seedReports(t *testing.T, st *store.Store, reports ...model.Report) {
	t.Helper()
	_, err := st.Reports.Merge(reports)
	require.NoError(t, err)
}

func TestExtractorProcessesOnlyNewReports(t *testing.T) {
	st := newTestStore(t)
	seedReports(t, st,
		model.Report{ID: "1", Title: "Flood in Valdivia"},
		model.Report{ID: "2", Title: "Cyclone in Fiji"},
	)
	_, err := st.Extractions.Merge([]model.Extraction{{ID: "1", Success: true}})
	require.NoError(t, err)

	var prompts []string
	client := &fakeLLM{respond: func(req llm.Request) (string, error) {
		prompts = append(prompts, req.Prompt)
		assert.Equal(t, extractionSystem, req.System)
		return extractionReply([]string{"Fiji"}, nil, []string{"Suva"}), nil
	}}

	e := NewExtractor(client, st, testLimiter(), noRetry(), 3, 0, 4000, 1500)
	summary, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.SkippedExisting)
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "FIELD REPORT ID: 2")
	assert.Contains(t, prompts[0], "Cyclone in Fiji")

	extractions, err := st.Extractions.Load()
	require.NoError(t, err)
	require.Len(t, extractions, 2)
	stored := extractions[1]
	assert.Equal(t, "2", stored.ID)
	assert.True(t, stored.Success)
	assert.Equal(t, []string{"Fiji"}, stored.Countries)
	assert.Equal(t, []string{"Suva"}, stored.CitiesTowns)
	assert.Equal(t, 2, stored.TotalLocationsFound)
}

func TestExtractorFallbackReplyStillRecorded(t *testing.T) {
	st := newTestStore(t)
	seedReports(t, st, model.Report{ID: "9", Title: "Some report"})

	client := &fakeLLM{respond: func(llm.Request) (string, error) {
		return "I am sorry, I cannot produce JSON today.", nil
	}}

	e := NewExtractor(client, st, testLimiter(), noRetry(), 3, 0, 4000, 1500)
	summary, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)

	extractions, err := st.Extractions.Load()
	require.NoError(t, err)
	require.Len(t, extractions, 1)
	assert.True(t, extractions[0].Success, "a degraded parse still marks the report processed")
	assert.Equal(t, jsonrepair.FallbackNote, extractions[0].ConfidenceNotes)
	assert.Equal(t, 0, extractions[0].TotalLocationsFound)
}

func TestExtractorWithoutClientRecordsFailures(t *testing.T) {
	st := newTestStore(t)
	seedReports(t, st, model.Report{ID: "9", Title: "Some report"})

	e := NewExtractor(nil, st, testLimiter(), noRetry(), 3, 0, 4000, 1500)
	summary, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)

	extractions, err := st.Extractions.Load()
	require.NoError(t, err)
	require.Len(t, extractions, 1)
	assert.False(t, extractions[0].Success)
	assert.Contains(t, extractions[0].Error, "not configured")
}

func TestExtractorRetriesAnyError(t *testing.T) {
	st := newTestStore(t)
	seedReports(t, st, model.Report{ID: "9", Title: "Some report"})

	client := &fakeLLM{}
	client.respond = func(llm.Request) (string, error) {
		if client.callCount() == 1 {
			// Not a transport error, still retried.
			return "", eris.New("overloaded_error: try again")
		}
		return extractionReply([]string{"Chile"}, nil, nil), nil
	}

	retry := resilience.RetryConfig{MaxAttempts: 2, Delay: time.Millisecond}
	e := NewExtractor(client, st, testLimiter(), retry, 3, 0, 4000, 1500)
	summary, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 2, client.callCount())
}

func TestExtractorRecordsFailureAfterExhaustion(t *testing.T) {
	st := newTestStore(t)
	seedReports(t, st, model.Report{ID: "9", Title: "Some report"})

	client := &fakeLLM{respond: func(llm.Request) (string, error) {
		return "", eris.New("boom")
	}}

	retry := resilience.RetryConfig{MaxAttempts: 2, Delay: time.Millisecond}
	e := NewExtractor(client, st, testLimiter(), retry, 3, 0, 4000, 1500)
	summary, err := e.Run(context.Background())
	require.NoError(t, err, "per-report failures never fail the stage")

	assert.Equal(t, 1, summary.Failed)
	extractions, err := st.Extractions.Load()
	require.NoError(t, err)
	require.Len(t, extractions, 1)
	assert.False(t, extractions[0].Success)
	assert.Contains(t, extractions[0].Error, "boom")
}

func TestExtractorBatches(t *testing.T) {
	st := newTestStore(t)
	seedReports(t, st,
		model.Report{ID: "1", Title: "One"},
		model.Report{ID: "2", Title: "Two"},
		model.Report{ID: "3", Title: "Three"},
	)

	client := &fakeLLM{respond: func(req llm.Request) (string, error) {
		return extractionReply([]string{"Chile"}, nil, nil), nil
	}}

	e := NewExtractor(client, st, testLimiter(), noRetry(), 2, 0, 4000, 1500)
	summary, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 3, client.callCount())

	ids, err := st.Extractions.IDs()
	require.NoError(t, err)
	assert.Len(t, ids, 3)
}

func TestExtractorTruncatesLongReports(t *testing.T) {
	st := newTestStore(t)
	long := strings.Repeat("flooding in the lowlands ", 400)
	seedReports(t, st, model.Report{ID: "1", Title: "Long", Description: long})

	var prompt string
	client := &fakeLLM{respond: func(req llm.Request) (string, error) {
		prompt = req.Prompt
		return extractionReply(nil, nil, nil), nil
	}}

	e := NewExtractor(client, st, testLimiter(), noRetry(), 1, 0, 200, 1500)
	_, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, prompt, "[TEXT TRUNCATED]")
}
