package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crisisgraph/fieldgeo/internal/config"
	"github.com/crisisgraph/fieldgeo/internal/geo"
	"github.com/crisisgraph/fieldgeo/internal/model"
	"github.com/crisisgraph/fieldgeo/internal/ratelimit"
	"github.com/crisisgraph/fieldgeo/internal/resilience"
	"github.com/crisisgraph/fieldgeo/internal/store"
	"github.com/crisisgraph/fieldgeo/pkg/geonames"
	"github.com/crisisgraph/fieldgeo/pkg/goapi"
	"github.com/crisisgraph/fieldgeo/pkg/llm"
)

// fakeAPI serves canned pages indexed by offset.
type fakeAPI struct {
	mu    sync.Mutex
	pages []goapi.Page
	calls int
}

func (f *fakeAPI) ListFieldReports(_ context.Context, params goapi.ListParams) (*goapi.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	idx := 0
	if params.Limit > 0 {
		idx = params.Offset / params.Limit
	}
	if idx >= len(f.pages) {
		return &goapi.Page{}, nil
	}
	page := f.pages[idx]
	return &page, nil
}

// fakeLLM routes every completion through respond.
type fakeLLM struct {
	mu      sync.Mutex
	respond func(req llm.Request) (string, error)
	calls   int
}

func (f *fakeLLM) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	text, err := f.respond(req)
	if err != nil {
		return nil, err
	}
	return &llm.Response{
		Content: []llm.ContentBlock{{Type: "text", Text: text}},
	}, nil
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeGazetteer resolves names from a fixed table and records queries.
type fakeGazetteer struct {
	mu      sync.Mutex
	places  map[string]*geonames.Place
	err     error
	queries []geonames.Query
}

func (f *fakeGazetteer) Search(_ context.Context, q geonames.Query) (*geonames.Place, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	return f.places[q.Name], nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	return store.Open(t.TempDir())
}

func testLimiter() *ratelimit.Limiter {
	return ratelimit.New(100000, nil)
}

func noRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 1, Delay: 1}
}

func seedAssociation(t *testing.T, st *store.Store, id string, countries, states, cities []string) {
	t.Helper()
	country := ""
	if len(countries) > 0 {
		country = countries[0]
	}
	assoc := model.Association{
		FieldReportID: id,
		Success:       true,
		Countries:     countries,
		Assignments: []model.CountryAssignment{{
			Country: country,
			States:  states,
			Cities:  cities,
		}},
	}
	assoc.EnsureLists()
	_, err := st.Associations.Merge([]model.Association{assoc})
	require.NoError(t, err)
}

func reportPayload(id int, title string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(
		`{"id": %d, "title": %q, "description": "A field report.", "summary": ""}`, id, title))
}

func extractionReply(countries, states, cities []string) string {
	reply := map[string]any{
		"countries":            countries,
		"states_regions":       states,
		"cities_towns":         cities,
		"administrative_areas": []string{},
		"confidence_notes":     "high confidence",
	}
	data, _ := json.Marshal(reply)
	return string(data)
}

func TestPipelineRunEndToEnd(t *testing.T) {
	st := newTestStore(t)

	api := &fakeAPI{pages: []goapi.Page{{
		Count: 2,
		Results: []json.RawMessage{
			reportPayload(101, "Tsunami advisory for coastal Chile"),
			reportPayload(102, "Earthquake felt in Chile and Argentina"),
		},
	}}}

	llmFake := &fakeLLM{respond: func(req llm.Request) (string, error) {
		if strings.Contains(req.System, "extraction specialist") {
			if strings.Contains(req.Prompt, "FIELD REPORT ID: 101") {
				return extractionReply([]string{"Chile"}, []string{"Los Lagos"}, []string{"Valdivia"}), nil
			}
			return extractionReply([]string{"Chile", "Argentina"}, nil, []string{"Mendoza", "Santiago"}), nil
		}
		return `{
			"field_report_id": "102",
			"countries": ["Chile", "Argentina"],
			"assignments": [
				{"country": "Chile", "states": [], "cities": ["Santiago"]},
				{"country": "Argentina", "states": [], "cities": ["Mendoza"]}
			],
			"unassigned_states": [],
			"unassigned_cities": [],
			"confidence_notes": "clear split"
		}`, nil
	}}

	gazetteer := &fakeGazetteer{places: map[string]*geonames.Place{
		"Los Lagos": {GeoNameID: 1, Name: "Los Lagos", CountryCode: "CL", Lat: "-41.8", Lng: "-73.0"},
		"Valdivia":  {GeoNameID: 2, Name: "Valdivia", CountryCode: "CL", Lat: "-39.8", Lng: "-73.2"},
		"Santiago":  {GeoNameID: 3, Name: "Santiago", CountryCode: "CL", Lat: "-33.4", Lng: "-70.6"},
		"Mendoza":   {GeoNameID: 4, Name: "Mendoza", CountryCode: "AR", Lat: "-32.9", Lng: "-68.8"},
	}}

	cfg := &config.Config{
		GoAPI: config.GoAPIConfig{
			PageLimit:         10,
			RequestsPerMinute: 100000,
			StartDate:         "2025-06-01T00:00:00Z",
		},
		Anthropic: config.AnthropicConfig{
			MaxTokens:         1500,
			MaxRetries:        1,
			RequestsPerMinute: 100000,
		},
		GeoNames: config.GeoNamesConfig{RequestsPerMinute: 100000},
		Pipeline: config.PipelineConfig{BatchSize: 2, MaxTextChars: 4000},
	}

	p, err := New(Deps{
		Store:     st,
		API:       api,
		LLM:       llmFake,
		Gazetteer: gazetteer,
		Validator: geo.NewValidator(geo.NewKnowledgeBase()),
		Config:    cfg,
	})
	require.NoError(t, err)

	summary, err := p.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 2, summary.Fetch.New)
	assert.Equal(t, 2, summary.Extraction.Processed)
	assert.Equal(t, 2, summary.Extraction.Succeeded)
	// Report 101 has one country, so only report 102 needed a model call.
	assert.Equal(t, 2, summary.Association.Processed)
	assert.Equal(t, 2, summary.Association.Succeeded)
	assert.Equal(t, 2, summary.Enrichment.Processed)
	assert.Equal(t, 2, summary.Enrichment.Succeeded)

	// 2 extraction calls plus 1 association call for the two-country report.
	assert.Equal(t, 3, llmFake.callCount())

	// A second run finds everything already processed.
	again, err := p.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, again.Fetch.New)
	assert.Equal(t, 2, again.Fetch.Existing)
	assert.Equal(t, 0, again.Extraction.Processed)
	assert.Equal(t, 2, again.Extraction.SkippedExisting)
	assert.Equal(t, 0, again.Association.Processed)
	assert.Equal(t, 0, again.Enrichment.Processed)
	assert.Equal(t, 2, again.Enrichment.SkippedExisting)
	assert.Equal(t, 3, llmFake.callCount(), "no new model calls on a clean run")
}

func TestPipelineRunContinuesPastStageErrors(t *testing.T) {
	st := newTestStore(t)

	// Seed an association directly so enrichment has work even though the
	// earlier stages fail or are idle.
	seedAssociation(t, st, "55", []string{"Chile"}, nil, []string{"Valdivia"})

	api := &fakeAPI{} // no pages at all
	gazetteer := &fakeGazetteer{places: map[string]*geonames.Place{
		"Valdivia": {GeoNameID: 2, Name: "Valdivia", CountryCode: "CL", Lat: "-39.8", Lng: "-73.2"},
	}}

	cfg := &config.Config{
		GoAPI: config.GoAPIConfig{
			PageLimit:         10,
			RequestsPerMinute: 100000,
			StartDate:         "2025-06-01T00:00:00Z",
		},
		Anthropic: config.AnthropicConfig{MaxTokens: 1500, MaxRetries: 1, RequestsPerMinute: 100000},
		GeoNames:  config.GeoNamesConfig{RequestsPerMinute: 100000},
		Pipeline:  config.PipelineConfig{BatchSize: 2, MaxTextChars: 4000},
	}

	p, err := New(Deps{
		Store:     st,
		API:       api,
		LLM:       nil,
		Gazetteer: gazetteer,
		Validator: geo.NewValidator(geo.NewKnowledgeBase()),
		Config:    cfg,
	})
	require.NoError(t, err)

	summary, err := p.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Fetch.New)
	assert.Equal(t, 1, summary.Enrichment.Processed)
	assert.Equal(t, 1, summary.Enrichment.Succeeded)
}

func TestPipelineRejectsBadStartDate(t *testing.T) {
	cfg := &config.Config{GoAPI: config.GoAPIConfig{StartDate: "yesterday"}}
	_, err := New(Deps{Store: newTestStore(t), Config: cfg})
	assert.Error(t, err)
}
