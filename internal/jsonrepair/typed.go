package jsonrepair

import (
	"sort"
	"strings"

	"github.com/crisisgraph/fieldgeo/internal/model"
)

// ExtractionListKeys are the list-valued keys the extraction prompt requests.
var ExtractionListKeys = []string{
	"countries",
	"states_regions",
	"cities_towns",
	"administrative_areas",
}

// AssociationListKeys are the list-valued keys the association prompt always
// includes; per-country keys vary with the reply.
var AssociationListKeys = []string{
	"unassigned_states",
	"unassigned_cities",
}

// ParseExtraction maps a raw extraction reply into typed location lists. The
// second return is false when the fallback shape was used; the caller decides
// what success means for the record.
func ParseExtraction(raw string) (model.Extraction, bool) {
	obj, ok := Parse(raw, ExtractionListKeys)
	e := model.Extraction{
		Countries:           stringList(obj["countries"]),
		StatesRegions:       stringList(obj["states_regions"]),
		CitiesTowns:         stringList(obj["cities_towns"]),
		AdministrativeAreas: stringList(obj["administrative_areas"]),
		ConfidenceNotes:     stringValue(obj["confidence_notes"]),
	}
	e.Normalize()
	return e, ok
}

// ParseAssociation maps a raw association reply into typed per-country
// assignment buckets. It accepts both the schema the prompt asks for (an
// "assignments" array) and the dynamic "{country}_states"/"{country}_cities"
// key style models sometimes produce, folding the latter into buckets matched
// through the supplied country normalizer.
func ParseAssociation(raw string, normalize func(string) string) (model.Association, bool) {
	obj, ok := Parse(raw, AssociationListKeys)

	var a model.Association
	a.EnsureLists()
	a.ConfidenceNotes = stringValue(obj["confidence_notes"])
	a.UnassignedStates = stringList(obj["unassigned_states"])
	a.UnassignedCities = stringList(obj["unassigned_cities"])

	if arr, isArr := obj["assignments"].([]any); isArr {
		for _, item := range arr {
			m, isMap := item.(map[string]any)
			if !isMap {
				continue
			}
			country := stringValue(m["country"])
			if country == "" {
				continue
			}
			b := a.Assignment(country, normalize)
			b.States = append(b.States, stringList(m["states"])...)
			b.Cities = append(b.Cities, stringList(m["cities"])...)
		}
	}

	// Dynamic per-country keys, visited in sorted order so bucket order is
	// stable across runs.
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		var country, kind string
		switch {
		case k != "unassigned_states" && strings.HasSuffix(k, "_states"):
			country, kind = strings.TrimSuffix(k, "_states"), "states"
		case k != "unassigned_cities" && strings.HasSuffix(k, "_cities"):
			country, kind = strings.TrimSuffix(k, "_cities"), "cities"
		default:
			continue
		}
		country = strings.ReplaceAll(country, "_", " ")
		if country == "" {
			continue
		}
		b := a.Assignment(country, normalize)
		if kind == "states" {
			b.States = append(b.States, stringList(obj[k])...)
		} else {
			b.Cities = append(b.Cities, stringList(obj[k])...)
		}
	}

	// A reply can carry the same assignment through both styles; keep the
	// first occurrence of every place so no location is processed twice.
	for i := range a.Assignments {
		a.Assignments[i].States = dedupe(a.Assignments[i].States, normalize)
		a.Assignments[i].Cities = dedupe(a.Assignments[i].Cities, normalize)
	}
	a.UnassignedStates = dedupe(a.UnassignedStates, normalize)
	a.UnassignedCities = dedupe(a.UnassignedCities, normalize)

	return a, ok
}

func dedupe(list []string, normalize func(string) string) []string {
	seen := make(map[string]struct{}, len(list))
	out := list[:0]
	for _, s := range list {
		key := normalize(s)
		if key == "" {
			key = strings.ToLower(strings.TrimSpace(s))
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

func stringValue(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func stringList(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := stringValue(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return t
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
	}
	return []string{}
}
