package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

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

// Deps are the external collaborators a pipeline needs. LLM may be nil when
// no model key is configured; the model stages then record failures instead
// of calling out.
type Deps struct {
	Store     *store.Store
	API       goapi.Client
	LLM       llm.Client
	Gazetteer geonames.Client
	Validator *geo.Validator
	Config    *config.Config
}

// RunOptions tune one pipeline run.
type RunOptions struct {
	// MaxReports caps how many new reports the fetch stage stores. Zero
	// means no cap.
	MaxReports int
}

// Pipeline sequences the four stages. Each stage is independently runnable;
// Run chains them and keeps going past per-stage errors so a model outage
// does not block gazetteer work on already associated records.
type Pipeline struct {
	fetcher    *Fetcher
	extractor  *Extractor
	associator *Associator
	enricher   *Enricher

	apiLimiter *ratelimit.Limiter
	llmLimiter *ratelimit.Limiter
	geoLimiter *ratelimit.Limiter
}

// New builds a pipeline from configuration. The start date must parse.
func New(d Deps) (*Pipeline, error) {
	cfg := d.Config
	since, err := cfg.GoAPI.StartTime()
	if err != nil {
		return nil, err
	}

	apiLimiter := ratelimit.New(cfg.GoAPI.RequestsPerMinute, nil)
	llmLimiter := ratelimit.New(cfg.Anthropic.RequestsPerMinute, nil)
	geoLimiter := ratelimit.New(cfg.GeoNames.RequestsPerMinute, nil)

	apiRetry := resilience.DefaultRetryConfig()
	apiRetry.OnRetry = resilience.RetryLogger("goapi", "list_field_reports")

	llmRetry := resilience.RetryConfig{
		MaxAttempts: cfg.Anthropic.MaxRetries,
		Delay:       time.Duration(cfg.Anthropic.RetryDelaySecs) * time.Second,
	}

	geoRetry := resilience.DefaultRetryConfig()

	return &Pipeline{
		fetcher: NewFetcher(d.API, d.Store, apiLimiter, apiRetry,
			cfg.GoAPI.PageLimit, since),
		extractor: NewExtractor(d.LLM, d.Store, llmLimiter, llmRetry,
			cfg.Pipeline.BatchSize,
			time.Duration(cfg.Pipeline.BatchDelaySecs)*time.Second,
			cfg.Pipeline.MaxTextChars, cfg.Anthropic.MaxTokens),
		associator: NewAssociator(d.LLM, d.Validator, d.Store, llmLimiter, llmRetry,
			cfg.Pipeline.BatchSize,
			time.Duration(cfg.Pipeline.AssociationBatchDelaySecs)*time.Second,
			cfg.Anthropic.MaxTokens),
		enricher: NewEnricher(d.Gazetteer, d.Store, geoLimiter, geoRetry),

		apiLimiter: apiLimiter,
		llmLimiter: llmLimiter,
		geoLimiter: geoLimiter,
	}, nil
}

// Fetch runs only the fetch stage.
func (p *Pipeline) Fetch(ctx context.Context, maxReports int) (model.FetchSummary, error) {
	return p.fetcher.Run(ctx, maxReports)
}

// Extract runs only the extraction stage.
func (p *Pipeline) Extract(ctx context.Context) (model.StageSummary, error) {
	return p.extractor.Run(ctx)
}

// Associate runs only the association stage.
func (p *Pipeline) Associate(ctx context.Context) (model.StageSummary, error) {
	return p.associator.Run(ctx)
}

// Enrich runs only the enrichment stage.
func (p *Pipeline) Enrich(ctx context.Context) (model.StageSummary, error) {
	return p.enricher.Run(ctx)
}

// LimiterStats reports the current window of each service limiter.
func (p *Pipeline) LimiterStats() map[string]ratelimit.Stats {
	return map[string]ratelimit.Stats{
		"goapi":     p.apiLimiter.GetStats(),
		"anthropic": p.llmLimiter.GetStats(),
		"geonames":  p.geoLimiter.GetStats(),
	}
}

// Run executes all four stages in order. A stage error is logged and the run
// continues with whatever earlier stages have stored, except for context
// cancellation, which aborts immediately.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (model.RunSummary, error) {
	summary := model.RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	logger := zap.L().With(zap.String("run_id", summary.RunID))
	logger.Info("pipeline run starting", zap.Int("max_reports", opts.MaxReports))

	var err error
	summary.Fetch, err = p.fetcher.Run(ctx, opts.MaxReports)
	if abort := p.stageDone(logger, "fetch", err); abort != nil {
		summary.FinishedAt = time.Now().UTC()
		return summary, abort
	}

	summary.Extraction, err = p.extractor.Run(ctx)
	if abort := p.stageDone(logger, "extract", err); abort != nil {
		summary.FinishedAt = time.Now().UTC()
		return summary, abort
	}

	summary.Association, err = p.associator.Run(ctx)
	if abort := p.stageDone(logger, "associate", err); abort != nil {
		summary.FinishedAt = time.Now().UTC()
		return summary, abort
	}

	summary.Enrichment, err = p.enricher.Run(ctx)
	if abort := p.stageDone(logger, "enrich", err); abort != nil {
		summary.FinishedAt = time.Now().UTC()
		return summary, abort
	}

	summary.FinishedAt = time.Now().UTC()
	logger.Info("pipeline run finished",
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
		zap.Int("fetched", summary.Fetch.New),
		zap.Int("extracted", summary.Extraction.Processed),
		zap.Int("associated", summary.Association.Processed),
		zap.Int("enriched", summary.Enrichment.Processed),
	)
	return summary, nil
}

// stageDone logs a stage result and decides whether the run must stop.
func (p *Pipeline) stageDone(logger *zap.Logger, stage string, err error) error {
	if err == nil {
		logger.Info("stage complete", zap.String("stage", stage))
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	logger.Error("stage failed, continuing with stored data",
		zap.String("stage", stage),
		zap.Error(err),
	)
	return nil
}
