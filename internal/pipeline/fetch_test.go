package pipeline

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crisisgraph/fieldgeo/pkg/goapi"
)

func TestFetcherStoresNewReports(t *testing.T) {
	st := newTestStore(t)
	api := &fakeAPI{pages: []goapi.Page{
		{
			Count: 3,
			Next:  "https://example.org/api/v2/field-report/?offset=2",
			Results: []json.RawMessage{
				reportPayload(1, "Flood in Valdivia"),
				reportPayload(2, "Cyclone warning"),
			},
		},
		{
			Count:   3,
			Results: []json.RawMessage{reportPayload(3, "Wildfire update")},
		},
	}}

	f := NewFetcher(api, st, testLimiter(), noRetry(), 2, time.Time{})
	summary, err := f.Run(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.New)
	assert.Equal(t, 2, summary.Batches)
	assert.Equal(t, 0, summary.Existing)
	assert.Equal(t, 0, summary.Skipped)

	rawCount, err := st.Raw.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, rawCount)
	reports, err := st.Reports.Load()
	require.NoError(t, err)
	require.Len(t, reports, 3)
	assert.Equal(t, "Flood in Valdivia", reports[0].Title)
	assert.Equal(t, "fetched", reports[0].Status)
}

func TestFetcherSecondRunAddsNothing(t *testing.T) {
	st := newTestStore(t)
	api := &fakeAPI{pages: []goapi.Page{{
		Count: 2,
		Results: []json.RawMessage{
			reportPayload(1, "Flood in Valdivia"),
			reportPayload(2, "Cyclone warning"),
		},
	}}}

	f := NewFetcher(api, st, testLimiter(), noRetry(), 10, time.Time{})
	_, err := f.Run(context.Background(), 0)
	require.NoError(t, err)

	summary, err := f.Run(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.New)
	assert.Equal(t, 2, summary.Existing)

	count, err := st.Raw.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestFetcherSkipsInvalidPayloads(t *testing.T) {
	st := newTestStore(t)
	api := &fakeAPI{pages: []goapi.Page{{
		Count: 3,
		Results: []json.RawMessage{
			reportPayload(1, "Flood in Valdivia"),
			json.RawMessage(`{"title": "no id at all"}`),
			json.RawMessage(`{"id": 2, "title": "", "description": "", "summary": "   "}`),
		},
	}}}

	f := NewFetcher(api, st, testLimiter(), noRetry(), 10, time.Time{})
	summary, err := f.Run(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.New)
	assert.Equal(t, 2, summary.Skipped)
}

func TestFetcherArchivesInvalidPayloads(t *testing.T) {
	st := newTestStore(t)
	api := &fakeAPI{pages: []goapi.Page{{
		Count: 2,
		Results: []json.RawMessage{
			reportPayload(1, "Flood in Valdivia"),
			json.RawMessage(`{"id": 2, "title": "", "description": "", "summary": "   "}`),
		},
	}}}

	f := NewFetcher(api, st, testLimiter(), noRetry(), 10, time.Time{})
	summary, err := f.Run(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.New)
	assert.Equal(t, 1, summary.Skipped)

	// The invalid payload is archived so it is not fetched again.
	rawCount, err := st.Raw.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, rawCount)
	reportCount, err := st.Reports.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, reportCount)

	summary, err = f.Run(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.New)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 2, summary.Existing)
}

func TestFetcherHonorsMaxReports(t *testing.T) {
	st := newTestStore(t)
	api := &fakeAPI{pages: []goapi.Page{{
		Count: 3,
		Next:  "https://example.org/api/v2/field-report/?offset=3",
		Results: []json.RawMessage{
			reportPayload(1, "First"),
			reportPayload(2, "Second"),
			reportPayload(3, "Third"),
		},
	}}}

	f := NewFetcher(api, st, testLimiter(), noRetry(), 3, time.Time{})
	summary, err := f.Run(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.New)
	assert.Equal(t, 1, api.calls, "cap reached, no further pages requested")
}

func TestFetcherPassesStartDate(t *testing.T) {
	st := newTestStore(t)
	since := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	var got goapi.ListParams
	api := &capturingAPI{onList: func(params goapi.ListParams) { got = params }}

	f := NewFetcher(api, st, testLimiter(), noRetry(), 7, since)
	_, err := f.Run(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, since, got.CreatedAtGTE)
	assert.Equal(t, 7, got.Limit)
}

type capturingAPI struct {
	onList func(goapi.ListParams)
}

func (c *capturingAPI) ListFieldReports(_ context.Context, params goapi.ListParams) (*goapi.Page, error) {
	c.onList(params)
	return &goapi.Page{}, nil
}
