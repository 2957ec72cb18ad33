package geo

import (
	"strings"

	"go.uber.org/zap"

	"github.com/crisisgraph/fieldgeo/internal/model"
)

// Validator checks and corrects country assignments against the knowledge
// base. Absence of knowledge means trust: a location the base has never seen
// validates against any country.
type Validator struct {
	kb *KnowledgeBase
}

// Suggestion proposes assigning a location to a country.
type Suggestion struct {
	Location string
	Country  string
}

// Evidence records one report supporting a suggestion.
type Evidence struct {
	ReportID string
	Kind     string // "state" or "city"
}

func NewValidator(kb *KnowledgeBase) *Validator {
	return &Validator{kb: kb}
}

// Validate reports whether city may belong to country. It returns false only
// when the knowledge base assigns the city to a different country.
func (v *Validator) Validate(city, country string) bool {
	expected, known := v.kb.Lookup(city)
	if !known {
		return true
	}
	if NormalizeCountry(country) != expected {
		zap.L().Warn("assignment conflicts with known geography",
			zap.String("city", city),
			zap.String("assigned_country", country),
			zap.String("expected_country", expected),
		)
		return false
	}
	return true
}

// Correct moves cities that fail validation out of their country buckets into
// the unassigned list. It never invents a new country. Returns the number of
// cities moved.
func (v *Validator) Correct(a *model.Association) int {
	moved := 0
	for i := range a.Assignments {
		bucket := &a.Assignments[i]
		kept := bucket.Cities[:0]
		for _, city := range bucket.Cities {
			if v.Validate(city, bucket.Country) {
				kept = append(kept, city)
				continue
			}
			a.UnassignedCities = append(a.UnassignedCities, city)
			moved++
			zap.L().Info("moved city to unassigned",
				zap.String("city", city),
				zap.String("rejected_country", bucket.Country),
			)
		}
		bucket.Cities = kept
	}
	return moved
}

// Reassign moves unassigned locations into a listed country's bucket when the
// knowledge base places them there. Locations without a matching known
// assignment stay unassigned. Returns the number of locations reassigned.
func (v *Validator) Reassign(a *model.Association) int {
	reassigned := 0

	remainingStates := a.UnassignedStates[:0]
	for _, state := range a.UnassignedStates {
		if country, ok := v.matchListedCountry(state, a.Countries); ok {
			bucket := a.Assignment(country, NormalizeCountry)
			bucket.States = append(bucket.States, state)
			reassigned++
			zap.L().Info("reassigned state from known geography",
				zap.String("state", state),
				zap.String("country", country),
			)
			continue
		}
		remainingStates = append(remainingStates, state)
	}
	a.UnassignedStates = remainingStates

	remainingCities := a.UnassignedCities[:0]
	for _, city := range a.UnassignedCities {
		if country, ok := v.matchListedCountry(city, a.Countries); ok {
			bucket := a.Assignment(country, NormalizeCountry)
			bucket.Cities = append(bucket.Cities, city)
			reassigned++
			zap.L().Info("reassigned city from known geography",
				zap.String("city", city),
				zap.String("country", country),
			)
			continue
		}
		remainingCities = append(remainingCities, city)
	}
	a.UnassignedCities = remainingCities

	return reassigned
}

// matchListedCountry returns the listed country the knowledge base assigns
// location to, if any.
func (v *Validator) matchListedCountry(location string, countries []string) (string, bool) {
	expected, known := v.kb.Lookup(location)
	if !known {
		return "", false
	}
	for _, country := range countries {
		if NormalizeCountry(country) == expected {
			return country, true
		}
	}
	return "", false
}

// SuggestAssignments scans successful associations for unassigned locations
// that can be tied to one of the association's countries, either through a
// known assignment or a name-containment heuristic. The evidence lists feed
// the promotion gate.
func (v *Validator) SuggestAssignments(assocs []model.Association) map[Suggestion][]Evidence {
	suggestions := make(map[Suggestion][]Evidence)

	for _, a := range assocs {
		if !a.Success {
			continue
		}
		for _, state := range a.UnassignedStates {
			if country, ok := v.suggestCountry(state, a.Countries); ok {
				s := Suggestion{Location: state, Country: country}
				suggestions[s] = append(suggestions[s], Evidence{ReportID: a.FieldReportID, Kind: "state"})
			}
		}
		for _, city := range a.UnassignedCities {
			if country, ok := v.suggestCountry(city, a.Countries); ok {
				s := Suggestion{Location: city, Country: country}
				suggestions[s] = append(suggestions[s], Evidence{ReportID: a.FieldReportID, Kind: "city"})
			}
		}
	}

	return suggestions
}

func (v *Validator) suggestCountry(location string, countries []string) (string, bool) {
	if country, ok := v.matchListedCountry(location, countries); ok {
		return country, true
	}

	locNorm := NormalizeLocation(location)
	if locNorm == "" {
		return "", false
	}
	for _, country := range countries {
		countryNorm := NormalizeCountry(country)
		if countryNorm == "" {
			continue
		}
		if strings.Contains(locNorm, countryNorm) || strings.Contains(countryNorm, locNorm) {
			return country, true
		}
	}
	return "", false
}

// PromoteSuggestions adds suggestions supported by at least minOccurrences
// distinct reports to the knowledge base. Returns the number promoted.
func (v *Validator) PromoteSuggestions(suggestions map[Suggestion][]Evidence, minOccurrences int) int {
	if minOccurrences < 1 {
		minOccurrences = 1
	}
	promoted := 0
	for s, evidence := range suggestions {
		reports := make(map[string]struct{}, len(evidence))
		for _, e := range evidence {
			reports[e.ReportID] = struct{}{}
		}
		if len(reports) < minOccurrences {
			continue
		}
		if v.kb.Add(s.Location, s.Country) {
			promoted++
			zap.L().Info("promoted assignment to knowledge base",
				zap.String("location", s.Location),
				zap.String("country", s.Country),
				zap.Int("supporting_reports", len(reports)),
			)
		}
	}
	return promoted
}
