package model

import "time"

// CountryAssignment buckets the states and cities assigned to one country.
// This is the typed replacement for the upstream model's dynamic
// "{country}_states"/"{country}_cities" JSON keys: the same information in an
// ordered sequence of per-country blocks.
type CountryAssignment struct {
	Country string   `json:"country"`
	States  []string `json:"states"`
	Cities  []string `json:"cities"`
}

// Association records the assignment of one extraction's locations to the
// countries they belong to. Created once per field report ID; immutable after
// creation. Locations the model or validator could not place with confidence
// stay in the unassigned lists, a valid terminal state rather than an error.
type Association struct {
	FieldReportID    string              `json:"field_report_id"`
	Success          bool                `json:"success"`
	Error            string              `json:"error,omitempty"`
	Countries        []string            `json:"countries"`
	Assignments      []CountryAssignment `json:"assignments"`
	UnassignedStates []string            `json:"unassigned_states"`
	UnassignedCities []string            `json:"unassigned_cities"`
	ConfidenceNotes  string              `json:"confidence_notes,omitempty"`
	ProcessedAt      time.Time           `json:"processed_at"`
}

// Assignment returns the bucket for the given country, matching by the
// supplied normalizer so spelling variants collapse to one bucket. A new
// empty bucket is appended when none exists yet.
func (a *Association) Assignment(country string, normalize func(string) string) *CountryAssignment {
	key := normalize(country)
	for i := range a.Assignments {
		if normalize(a.Assignments[i].Country) == key {
			return &a.Assignments[i]
		}
	}
	a.Assignments = append(a.Assignments, CountryAssignment{
		Country: country,
		States:  []string{},
		Cities:  []string{},
	})
	return &a.Assignments[len(a.Assignments)-1]
}

// EnsureLists replaces nil slices with empty ones so persisted JSON always
// carries the full shape.
func (a *Association) EnsureLists() {
	if a.Countries == nil {
		a.Countries = []string{}
	}
	if a.Assignments == nil {
		a.Assignments = []CountryAssignment{}
	}
	for i := range a.Assignments {
		if a.Assignments[i].States == nil {
			a.Assignments[i].States = []string{}
		}
		if a.Assignments[i].Cities == nil {
			a.Assignments[i].Cities = []string{}
		}
	}
	if a.UnassignedStates == nil {
		a.UnassignedStates = []string{}
	}
	if a.UnassignedCities == nil {
		a.UnassignedCities = []string{}
	}
}
