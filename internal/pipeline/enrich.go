package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/crisisgraph/fieldgeo/internal/model"
	"github.com/crisisgraph/fieldgeo/internal/ratelimit"
	"github.com/crisisgraph/fieldgeo/internal/resilience"
	"github.com/crisisgraph/fieldgeo/internal/store"
	"github.com/crisisgraph/fieldgeo/pkg/geonames"
)

// Enricher resolves every assigned location of an association against the
// gazetteer. Lookup misses and errors leave the location with nil gazetteer
// data rather than failing the record; an association that failed upstream
// gets a failure record so it is never revisited.
type Enricher struct {
	gazetteer geonames.Client
	store     *store.Store
	limiter   *ratelimit.Limiter
	retry     resilience.RetryConfig
	now       func() time.Time
}

// NewEnricher wires an enrichment stage.
func NewEnricher(gazetteer geonames.Client, st *store.Store, limiter *ratelimit.Limiter, retry resilience.RetryConfig) *Enricher {
	return &Enricher{
		gazetteer: gazetteer,
		store:     st,
		limiter:   limiter,
		retry:     retry,
		now:       time.Now,
	}
}

// Run enriches every association without an enrichment record.
func (e *Enricher) Run(ctx context.Context) (model.StageSummary, error) {
	var summary model.StageSummary

	assocs, err := e.store.Associations.Load()
	if err != nil {
		return summary, err
	}
	done, err := e.store.Enriched.IDs()
	if err != nil {
		return summary, err
	}

	pending := make([]model.Association, 0, len(assocs))
	for _, a := range assocs {
		if _, ok := done[a.FieldReportID]; ok {
			summary.SkippedExisting++
			continue
		}
		pending = append(pending, a)
	}

	if len(pending) == 0 {
		zap.L().Info("enrichment up to date", zap.Int("associations", len(assocs)))
		return summary, nil
	}
	zap.L().Info("enriching associations", zap.Int("pending", len(pending)))

	results := make([]model.EnrichedAssociation, 0, len(pending))
	for _, assoc := range pending {
		if err := ctx.Err(); err != nil {
			break
		}
		enriched := e.enrichOne(ctx, assoc)
		results = append(results, enriched)
		summary.Processed++
		if enriched.Success {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}

	if len(results) > 0 {
		if _, err := e.store.Enriched.Merge(results); err != nil {
			return summary, err
		}
	}
	return summary, ctx.Err()
}

func (e *Enricher) enrichOne(ctx context.Context, assoc model.Association) model.EnrichedAssociation {
	if !assoc.Success {
		return model.EnrichedAssociation{
			FieldReportID: assoc.FieldReportID,
			Success:       false,
			Error:         "country association was not successful",
			Countries:     []model.EnrichedCountry{},
			Unassigned: model.UnassignedLocations{
				StatesRegions: carryThrough(assoc.UnassignedStates),
				CitiesTowns:   carryThrough(assoc.UnassignedCities),
			},
			Status: model.ProcessingStatus{
				Success:     false,
				ProcessedAt: e.now().UTC(),
			},
		}
	}

	enriched := model.EnrichedAssociation{
		FieldReportID: assoc.FieldReportID,
		Success:       true,
		Countries:     make([]model.EnrichedCountry, 0, len(assoc.Assignments)),
		Unassigned: model.UnassignedLocations{
			StatesRegions: carryThrough(assoc.UnassignedStates),
			CitiesTowns:   carryThrough(assoc.UnassignedCities),
		},
	}
	status := model.ProcessingStatus{Success: true}

	for _, assignment := range assoc.Assignments {
		country := model.EnrichedCountry{
			CountryName:   assignment.Country,
			StatesRegions: make([]model.EnrichedLocation, 0, len(assignment.States)),
			CitiesTowns:   make([]model.EnrichedLocation, 0, len(assignment.Cities)),
		}

		code, known := geonames.CountryCode(assignment.Country)
		if !known {
			zap.L().Warn("no iso code for country, skipping gazetteer lookups",
				zap.String("country", assignment.Country),
				zap.String("report_id", assoc.FieldReportID),
			)
			country.StatesRegions = carryThrough(assignment.States)
			country.CitiesTowns = carryThrough(assignment.Cities)
			enriched.Countries = append(enriched.Countries, country)
			continue
		}
		country.CountryCode = code

		for _, state := range assignment.States {
			loc := e.lookup(ctx, &status, geonames.Query{
				Name:         state,
				CountryCode:  code,
				FeatureClass: "A",
				FeatureCode:  "ADM1",
			})
			country.StatesRegions = append(country.StatesRegions, loc)
		}
		for _, city := range assignment.Cities {
			loc := e.lookup(ctx, &status, geonames.Query{
				Name:         city,
				CountryCode:  code,
				FeatureClass: "P",
			})
			country.CitiesTowns = append(country.CitiesTowns, loc)
		}

		enriched.Countries = append(enriched.Countries, country)
	}

	status.ProcessedAt = e.now().UTC()
	enriched.Status = status
	return enriched
}

// lookup resolves one location, updating the association's call and hit
// counters. Misses and errors both return the name with nil gazetteer data.
func (e *Enricher) lookup(ctx context.Context, status *model.ProcessingStatus, q geonames.Query) model.EnrichedLocation {
	loc := model.EnrichedLocation{OriginalName: q.Name}

	cfg := e.retry
	cfg.OnRetry = resilience.RetryLogger("geonames", "search")

	place, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*geonames.Place, error) {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return e.gazetteer.Search(ctx, q)
	})
	status.APICallsMade++
	if err != nil {
		zap.L().Warn("gazetteer lookup failed",
			zap.String("name", q.Name),
			zap.String("country_code", q.CountryCode),
			zap.Error(err),
		)
		return loc
	}
	if place == nil {
		zap.L().Debug("gazetteer has no match",
			zap.String("name", q.Name),
			zap.String("country_code", q.CountryCode),
		)
		return loc
	}

	lat, lng := place.Coordinates()
	loc.GeoNames = &model.GeoNamesData{
		GeoNameID:    place.GeoNameID,
		OfficialName: place.Name,
		Population:   place.Population,
		Coordinates:  model.Coordinates{Lat: lat, Lng: lng},
	}
	status.LocationsEnriched++
	return loc
}

func carryThrough(names []string) []model.EnrichedLocation {
	out := make([]model.EnrichedLocation, 0, len(names))
	for _, name := range names {
		out = append(out, model.EnrichedLocation{OriginalName: name})
	}
	return out
}
