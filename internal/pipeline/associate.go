package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crisisgraph/fieldgeo/internal/geo"
	"github.com/crisisgraph/fieldgeo/internal/jsonrepair"
	"github.com/crisisgraph/fieldgeo/internal/model"
	"github.com/crisisgraph/fieldgeo/internal/ratelimit"
	"github.com/crisisgraph/fieldgeo/internal/resilience"
	"github.com/crisisgraph/fieldgeo/internal/store"
	"github.com/crisisgraph/fieldgeo/pkg/llm"
)

// Associator assigns each extraction's states and cities to the countries the
// extraction named. Extractions naming exactly one country skip the model
// entirely; everything still passes through knowledge-base correction before
// being stored.
type Associator struct {
	llm        llm.Client
	validator  *geo.Validator
	store      *store.Store
	limiter    *ratelimit.Limiter
	retry      resilience.RetryConfig
	batchSize  int
	batchDelay time.Duration
	maxTokens  int64
	now        func() time.Time
}

// NewAssociator wires an association stage. client may be nil; multi-country
// extractions are then recorded as failures while single-country ones still
// succeed through the shortcut.
func NewAssociator(client llm.Client, validator *geo.Validator, st *store.Store, limiter *ratelimit.Limiter, retry resilience.RetryConfig, batchSize int, batchDelay time.Duration, maxTokens int64) *Associator {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Associator{
		llm:        client,
		validator:  validator,
		store:      st,
		limiter:    limiter,
		retry:      retry,
		batchSize:  batchSize,
		batchDelay: batchDelay,
		maxTokens:  maxTokens,
		now:        time.Now,
	}
}

// Run associates every eligible extraction that has no association record yet.
// Eligible means successfully extracted with at least one country and at least
// one state or city to assign.
func (a *Associator) Run(ctx context.Context) (model.StageSummary, error) {
	var summary model.StageSummary

	extractions, err := a.store.Extractions.Load()
	if err != nil {
		return summary, err
	}
	done, err := a.store.Associations.IDs()
	if err != nil {
		return summary, err
	}

	pending := make([]model.Extraction, 0, len(extractions))
	for _, e := range extractions {
		if _, ok := done[e.ID]; ok {
			summary.SkippedExisting++
			continue
		}
		if !e.Associable() {
			continue
		}
		pending = append(pending, e)
	}

	if len(pending) == 0 {
		zap.L().Info("association up to date", zap.Int("extractions", len(extractions)))
		return summary, nil
	}
	zap.L().Info("associating countries",
		zap.Int("pending", len(pending)),
		zap.Int("batch_size", a.batchSize),
	)

	for start := 0; start < len(pending); start += a.batchSize {
		end := start + a.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		results := make([]model.Association, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		for i, extraction := range batch {
			i, extraction := i, extraction
			g.Go(func() error {
				results[i] = a.associateOne(gctx, extraction)
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
		if _, err := a.store.Associations.Merge(results); err != nil {
			return summary, err
		}

		if end < len(pending) {
			if err := sleepCtx(ctx, a.batchDelay); err != nil {
				return summary, err
			}
		}
	}

	return summary, nil
}

func (a *Associator) associateOne(ctx context.Context, extraction model.Extraction) model.Association {
	if len(extraction.Countries) == 1 {
		return a.assignSingleCountry(extraction)
	}

	if a.llm == nil {
		return a.failureRecord(extraction, "association not configured: missing model api key")
	}

	assoc, err := a.associateWithModel(ctx, extraction)
	if err != nil {
		zap.L().Error("association failed",
			zap.String("report_id", extraction.ID),
			zap.Error(err),
		)
		return a.failureRecord(extraction, err.Error())
	}
	return assoc
}

// assignSingleCountry handles the common case without a model call: with one
// country listed, every location belongs to it. Knowledge-base correction
// still runs so a city known to be elsewhere ends up unassigned.
func (a *Associator) assignSingleCountry(extraction model.Extraction) model.Association {
	country := extraction.Countries[0]
	assoc := model.Association{
		FieldReportID: extraction.ID,
		Success:       true,
		Countries:     extraction.Countries,
		Assignments: []model.CountryAssignment{{
			Country: country,
			States:  append([]string{}, extraction.StatesRegions...),
			Cities:  append([]string{}, extraction.CitiesTowns...),
		}},
		ConfidenceNotes: fmt.Sprintf("Single country (%s) - all locations assigned automatically", country),
		ProcessedAt:     a.now().UTC(),
	}
	assoc.EnsureLists()
	a.validator.Correct(&assoc)
	a.validator.Reassign(&assoc)
	return assoc
}

// associateWithModel asks the model to place each location and retries both
// transport failures and unparseable replies. The retry loop is manual
// because a fallback-parsed reply is not an error from the client's point of
// view but still needs another attempt.
func (a *Associator) associateWithModel(ctx context.Context, extraction model.Extraction) (model.Association, error) {
	prompt := associationPrompt(extraction.ID, extraction.Countries,
		extraction.StatesRegions, extraction.CitiesTowns)

	attempts := a.retry.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return model.Association{}, err
		}
		if attempt > 1 {
			zap.L().Warn("retrying association",
				zap.String("report_id", extraction.ID),
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
			)
			if err := sleepCtx(ctx, a.retry.Delay); err != nil {
				return model.Association{}, err
			}
		}

		if err := a.limiter.Wait(ctx); err != nil {
			return model.Association{}, err
		}

		temp := llmTemperature
		resp, err := a.llm.Complete(ctx, llm.Request{
			System:      associationSystem,
			Prompt:      prompt,
			MaxTokens:   a.maxTokens,
			Temperature: &temp,
		})
		if err != nil {
			lastErr = err
			continue
		}

		assoc, parsedClean := jsonrepair.ParseAssociation(resp.Text(), geo.NormalizeCountry)
		if !parsedClean {
			lastErr = eris.Errorf("reply was not parseable JSON")
			continue
		}

		assoc.FieldReportID = extraction.ID
		assoc.Success = true
		assoc.Countries = extraction.Countries
		assoc.ProcessedAt = a.now().UTC()
		assoc.EnsureLists()
		a.validator.Correct(&assoc)
		a.validator.Reassign(&assoc)
		return assoc, nil
	}

	return model.Association{}, eris.Wrapf(lastErr, "associate: %d attempts exhausted", attempts)
}

// failureRecord keeps the extraction's locations recoverable by carrying them
// through as unassigned.
func (a *Associator) failureRecord(extraction model.Extraction, msg string) model.Association {
	assoc := model.Association{
		FieldReportID:    extraction.ID,
		Success:          false,
		Error:            msg,
		Countries:        extraction.Countries,
		UnassignedStates: append([]string{}, extraction.StatesRegions...),
		UnassignedCities: append([]string{}, extraction.CitiesTowns...),
		ProcessedAt:      a.now().UTC(),
	}
	assoc.EnsureLists()
	return assoc
}
