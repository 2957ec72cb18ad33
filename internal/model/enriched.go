package model

import "time"

// Coordinates is a WGS84 point from the gazetteer.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// GeoNamesData is the canonical gazetteer record attached to a location.
type GeoNamesData struct {
	GeoNameID    int64       `json:"geoname_id"`
	OfficialName string      `json:"official_name"`
	Population   int64       `json:"population"`
	Coordinates  Coordinates `json:"coordinates"`
}

// EnrichedLocation pairs an extracted location name with its gazetteer
// record. GeoNames is nil when the lookup failed or found nothing, which is a
// legitimate terminal state, not a pipeline failure.
type EnrichedLocation struct {
	OriginalName string        `json:"original_name"`
	GeoNames     *GeoNamesData `json:"geonames_data"`
}

// EnrichedCountry holds the enriched locations for one country of an
// association.
type EnrichedCountry struct {
	CountryName   string             `json:"country_name"`
	CountryCode   string             `json:"country_code"`
	StatesRegions []EnrichedLocation `json:"states_regions"`
	CitiesTowns   []EnrichedLocation `json:"cities_towns"`
}

// UnassignedLocations carries through locations that never resolved to a
// listed country. They keep their original names so a later run or manual
// pass can still recover them.
type UnassignedLocations struct {
	StatesRegions []EnrichedLocation `json:"states_regions"`
	CitiesTowns   []EnrichedLocation `json:"cities_towns"`
}

// ProcessingStatus summarizes the gazetteer work done for one association.
type ProcessingStatus struct {
	Success           bool      `json:"success"`
	APICallsMade      int       `json:"api_calls_made"`
	LocationsEnriched int       `json:"locations_enriched"`
	ProcessedAt       time.Time `json:"processed_at"`
}

// EnrichedAssociation is the final pipeline output for one field report.
type EnrichedAssociation struct {
	FieldReportID string              `json:"field_report_id"`
	Success       bool                `json:"success"`
	Error         string              `json:"error,omitempty"`
	Countries     []EnrichedCountry   `json:"countries"`
	Unassigned    UnassignedLocations `json:"unassigned_locations"`
	Status        ProcessingStatus    `json:"processing_status"`
}
