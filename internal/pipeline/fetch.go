// Package pipeline implements the four enrichment stages and the orchestrator
// that runs them in sequence: fetch, location extraction, country association,
// and gazetteer enrichment. Every stage computes the delta between its input
// and output stores and processes only what is new, so a run over already
// processed data is a no-op.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/crisisgraph/fieldgeo/internal/clean"
	"github.com/crisisgraph/fieldgeo/internal/model"
	"github.com/crisisgraph/fieldgeo/internal/ratelimit"
	"github.com/crisisgraph/fieldgeo/internal/resilience"
	"github.com/crisisgraph/fieldgeo/internal/store"
	"github.com/crisisgraph/fieldgeo/pkg/goapi"
)

// Fetcher pulls field reports from the GO API page by page and stores both the
// raw payloads and the cleaned reports. Reports already present in the raw
// store are never re-fetched into it.
type Fetcher struct {
	api       goapi.Client
	store     *store.Store
	limiter   *ratelimit.Limiter
	retry     resilience.RetryConfig
	pageLimit int
	since     time.Time
	now       func() time.Time
}

// NewFetcher wires a fetch stage. since filters the listing to reports created
// at or after that instant; a zero time fetches everything.
func NewFetcher(api goapi.Client, st *store.Store, limiter *ratelimit.Limiter, retry resilience.RetryConfig, pageLimit int, since time.Time) *Fetcher {
	if pageLimit <= 0 {
		pageLimit = 50
	}
	return &Fetcher{
		api:       api,
		store:     st,
		limiter:   limiter,
		retry:     retry,
		pageLimit: pageLimit,
		since:     since,
		now:       time.Now,
	}
}

// Run fetches until the listing is exhausted or maxReports new reports have
// been stored. maxReports <= 0 means no cap. Pages are merged as they arrive
// so an interrupted run keeps what it fetched.
func (f *Fetcher) Run(ctx context.Context, maxReports int) (model.FetchSummary, error) {
	var summary model.FetchSummary

	existing, err := f.store.Raw.IDs()
	if err != nil {
		return summary, err
	}

	offset := 0
	for {
		if err := f.limiter.Wait(ctx); err != nil {
			return summary, err
		}

		page, err := resilience.DoVal(ctx, f.retry, func(ctx context.Context) (*goapi.Page, error) {
			return f.api.ListFieldReports(ctx, goapi.ListParams{
				Limit:        f.pageLimit,
				Offset:       offset,
				CreatedAtGTE: f.since,
			})
		})
		if err != nil {
			return summary, eris.Wrapf(err, "fetch: page at offset %d", offset)
		}
		if len(page.Results) == 0 {
			break
		}
		summary.Batches++

		rawBatch := make([]store.RawReport, 0, len(page.Results))
		reportBatch := make([]model.Report, 0, len(page.Results))
		fetchedAt := f.now().UTC()

		for _, payload := range page.Results {
			id, err := clean.ReportID(payload)
			if err != nil {
				summary.Skipped++
				zap.L().Warn("skipping report without id", zap.Error(err))
				continue
			}
			if _, ok := existing[id]; ok {
				summary.Existing++
				continue
			}

			report, err := clean.ReportFromAPI(payload, fetchedAt)
			if err != nil {
				// Archive the raw payload anyway so the next run sees
				// the ID and does not fetch it again.
				rawBatch = append(rawBatch, store.RawReport{ID: id, Payload: payload, FetchedAt: fetchedAt})
				existing[id] = struct{}{}
				summary.Skipped++
				zap.L().Warn("skipping invalid report",
					zap.String("id", id),
					zap.Error(err),
				)
				continue
			}

			rawBatch = append(rawBatch, store.RawReport{ID: id, Payload: payload, FetchedAt: fetchedAt})
			reportBatch = append(reportBatch, report)
			existing[id] = struct{}{}
			summary.New++

			if maxReports > 0 && summary.New >= maxReports {
				break
			}
		}

		if len(rawBatch) > 0 {
			if _, err := f.store.Raw.Merge(rawBatch); err != nil {
				return summary, err
			}
		}
		if len(reportBatch) > 0 {
			if _, err := f.store.Reports.Merge(reportBatch); err != nil {
				return summary, err
			}
		}

		zap.L().Info("fetched page",
			zap.Int("offset", offset),
			zap.Int("page_results", len(page.Results)),
			zap.Int("new", len(rawBatch)),
		)

		if page.Next == "" || (maxReports > 0 && summary.New >= maxReports) {
			break
		}
		offset += f.pageLimit
	}

	return summary, nil
}
