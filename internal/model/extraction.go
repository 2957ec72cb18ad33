package model

import (
	"sort"
	"time"
)

// Extraction holds the raw location mentions pulled from one report's text,
// keyed by the same ID as the report. Extractions are created exactly once per
// report ID and never mutated afterward: "already processed" means a record
// with this ID exists, regardless of its Success flag.
type Extraction struct {
	ID                  string    `json:"id"`
	Success             bool      `json:"success"`
	Error               string    `json:"error,omitempty"`
	Countries           []string  `json:"countries"`
	StatesRegions       []string  `json:"states_regions"`
	CitiesTowns         []string  `json:"cities_towns"`
	AdministrativeAreas []string  `json:"administrative_areas"`
	ConfidenceNotes     string    `json:"confidence_notes"`
	TotalLocationsFound int       `json:"total_locations_found"`
	ExtractedAt         time.Time `json:"extracted_at"`
}

// Normalize deduplicates and sorts every location list and recomputes the
// total count. Order inside a list is irrelevant for correctness but sorted
// output keeps store files diffable and tests deterministic.
func (e *Extraction) Normalize() {
	e.Countries = dedupeSorted(e.Countries)
	e.StatesRegions = dedupeSorted(e.StatesRegions)
	e.CitiesTowns = dedupeSorted(e.CitiesTowns)
	e.AdministrativeAreas = dedupeSorted(e.AdministrativeAreas)
	e.TotalLocationsFound = len(e.Countries) + len(e.StatesRegions) +
		len(e.CitiesTowns) + len(e.AdministrativeAreas)
}

// Associable reports whether this extraction can advance to the association
// stage: it must have succeeded, name at least one country, and carry at
// least one state or city to assign.
func (e Extraction) Associable() bool {
	return e.Success && len(e.Countries) > 0 &&
		(len(e.StatesRegions) > 0 || len(e.CitiesTowns) > 0)
}

func dedupeSorted(in []string) []string {
	if in == nil {
		return []string{}
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
