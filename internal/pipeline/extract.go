package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crisisgraph/fieldgeo/internal/jsonrepair"
	"github.com/crisisgraph/fieldgeo/internal/model"
	"github.com/crisisgraph/fieldgeo/internal/ratelimit"
	"github.com/crisisgraph/fieldgeo/internal/resilience"
	"github.com/crisisgraph/fieldgeo/internal/store"
	"github.com/crisisgraph/fieldgeo/pkg/llm"
)

// llmTemperature pins both model stages to deterministic output; the prompts
// ask for strict JSON and sampling variance only hurts.
const llmTemperature = 0.0

// Extractor runs location extraction over reports that have no extraction
// record yet. Batches run concurrently; per-report failures become failure
// records rather than stage errors, so one bad report never blocks the rest.
type Extractor struct {
	llm          llm.Client
	store        *store.Store
	limiter      *ratelimit.Limiter
	retry        resilience.RetryConfig
	batchSize    int
	batchDelay   time.Duration
	maxTextChars int
	maxTokens    int64
	now          func() time.Time
}

// NewExtractor wires an extraction stage. client may be nil when no API key is
// configured; every pending report is then recorded as a failure.
func NewExtractor(client llm.Client, st *store.Store, limiter *ratelimit.Limiter, retry resilience.RetryConfig, batchSize int, batchDelay time.Duration, maxTextChars int, maxTokens int64) *Extractor {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Extractor{
		llm:          client,
		store:        st,
		limiter:      limiter,
		retry:        retry,
		batchSize:    batchSize,
		batchDelay:   batchDelay,
		maxTextChars: maxTextChars,
		maxTokens:    maxTokens,
		now:          time.Now,
	}
}

// Run extracts locations for every report without an extraction record.
func (e *Extractor) Run(ctx context.Context) (model.StageSummary, error) {
	var summary model.StageSummary

	reports, err := e.store.Reports.Load()
	if err != nil {
		return summary, err
	}
	done, err := e.store.Extractions.IDs()
	if err != nil {
		return summary, err
	}

	pending := make([]model.Report, 0, len(reports))
	for _, r := range reports {
		if _, ok := done[r.ID]; ok {
			summary.SkippedExisting++
			continue
		}
		pending = append(pending, r)
	}

	if len(pending) == 0 {
		zap.L().Info("extraction up to date", zap.Int("reports", len(reports)))
		return summary, nil
	}
	zap.L().Info("extracting locations",
		zap.Int("pending", len(pending)),
		zap.Int("batch_size", e.batchSize),
	)

	for start := 0; start < len(pending); start += e.batchSize {
		end := start + e.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		results := make([]model.Extraction, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		for i, report := range batch {
			i, report := i, report
			g.Go(func() error {
				results[i] = e.extractOne(gctx, report)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return summary, err
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		for _, r := range results {
			summary.Processed++
			if r.Success {
				summary.Succeeded++
			} else {
				summary.Failed++
			}
		}
		if _, err := e.store.Extractions.Merge(results); err != nil {
			return summary, err
		}

		if end < len(pending) {
			if err := sleepCtx(ctx, e.batchDelay); err != nil {
				return summary, err
			}
		}
	}

	return summary, nil
}

// extractOne always returns a record: failures are captured in the record
// itself so the report is marked processed either way.
func (e *Extractor) extractOne(ctx context.Context, report model.Report) model.Extraction {
	if e.llm == nil {
		return model.Extraction{
			ID:          report.ID,
			Success:     false,
			Error:       "extraction not configured: missing model api key",
			ExtractedAt: e.now().UTC(),
		}
	}

	cfg := e.retry
	// Model calls fail in ways the transport predicate cannot classify
	// (overload errors, truncated replies). Retry them all.
	cfg.ShouldRetry = func(error) bool { return true }
	cfg.OnRetry = resilience.RetryLogger("anthropic", "extract_locations")

	temp := llmTemperature
	resp, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*llm.Response, error) {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return e.llm.Complete(ctx, llm.Request{
			System:      extractionSystem,
			Prompt:      extractionPrompt(report.ID, report.CombinedText(e.maxTextChars)),
			MaxTokens:   e.maxTokens,
			Temperature: &temp,
		})
	})
	if err != nil {
		zap.L().Error("extraction failed",
			zap.String("report_id", report.ID),
			zap.Error(err),
		)
		return model.Extraction{
			ID:          report.ID,
			Success:     false,
			Error:       err.Error(),
			ExtractedAt: e.now().UTC(),
		}
	}

	extraction, parsedClean := jsonrepair.ParseExtraction(resp.Text())
	extraction.ID = report.ID
	extraction.Success = true
	extraction.ExtractedAt = e.now().UTC()
	if !parsedClean {
		zap.L().Warn("extraction reply needed fallback parsing",
			zap.String("report_id", report.ID),
		)
	}

	zap.L().Debug("extracted locations",
		zap.String("report_id", report.ID),
		zap.Int("total", extraction.TotalLocationsFound),
		zap.Int64("input_tokens", resp.Usage.InputTokens),
		zap.Int64("output_tokens", resp.Usage.OutputTokens),
	)
	return extraction
}

// sleepCtx sleeps for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
