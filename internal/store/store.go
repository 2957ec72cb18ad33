package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"

	"github.com/crisisgraph/fieldgeo/internal/model"
)

// RawReport preserves the untouched API payload for one field report.
type RawReport struct {
	ID        string          `json:"id"`
	Payload   json.RawMessage `json:"payload"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Store bundles the per-stage files under one data directory. Each stage
// reads the previous stage's file and merges its own output; nothing is ever
// updated in place.
type Store struct {
	Raw          *File[RawReport]
	Reports      *File[model.Report]
	Extractions  *File[model.Extraction]
	Associations *File[model.Association]
	Enriched     *File[model.EnrichedAssociation]

	kbPath string
}

// Open returns a store rooted at dataDir. Files are created lazily.
func Open(dataDir string) *Store {
	return &Store{
		Raw: NewFile(filepath.Join(dataDir, "all_raw_reports.json"),
			func(r RawReport) string { return r.ID }),
		Reports: NewFile(filepath.Join(dataDir, "all_processed_reports.json"),
			func(r model.Report) string { return r.ID }),
		Extractions: NewFile(filepath.Join(dataDir, "location_extraction_results.json"),
			func(e model.Extraction) string { return e.ID }),
		Associations: NewFile(filepath.Join(dataDir, "country_associations.json"),
			func(a model.Association) string { return a.FieldReportID }),
		Enriched: NewFile(filepath.Join(dataDir, "geonames_enriched_associations.json"),
			func(e model.EnrichedAssociation) string { return e.FieldReportID }),
		kbPath: filepath.Join(dataDir, "knowledge_base.json"),
	}
}

// IntegrityReport lists duplicate IDs found per stage file.
type IntegrityReport struct {
	Raw          []string `json:"raw,omitempty"`
	Reports      []string `json:"reports,omitempty"`
	Extractions  []string `json:"extractions,omitempty"`
	Associations []string `json:"associations,omitempty"`
	Enriched     []string `json:"enriched,omitempty"`
}

// Clean reports whether no duplicates were found.
func (r IntegrityReport) Clean() bool {
	return len(r.Raw) == 0 && len(r.Reports) == 0 && len(r.Extractions) == 0 &&
		len(r.Associations) == 0 && len(r.Enriched) == 0
}

// CheckIntegrity scans every stage file for duplicate IDs.
func (s *Store) CheckIntegrity() (IntegrityReport, error) {
	var report IntegrityReport
	var err error
	if report.Raw, err = s.Raw.Duplicates(); err != nil {
		return report, err
	}
	if report.Reports, err = s.Reports.Duplicates(); err != nil {
		return report, err
	}
	if report.Extractions, err = s.Extractions.Duplicates(); err != nil {
		return report, err
	}
	if report.Associations, err = s.Associations.Duplicates(); err != nil {
		return report, err
	}
	if report.Enriched, err = s.Enriched.Duplicates(); err != nil {
		return report, err
	}
	return report, nil
}

type kbDocument struct {
	Metadata    Metadata          `json:"metadata"`
	Assignments map[string]string `json:"assignments"`
}

// LoadKnowledgeBase returns the persisted learned assignments. Missing or
// corrupt files load as empty, like the stage files.
func (s *Store) LoadKnowledgeBase() (map[string]string, error) {
	data, err := os.ReadFile(s.kbPath)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: read knowledge base")
	}
	var doc kbDocument
	if err := json.Unmarshal(data, &doc); err != nil || doc.Assignments == nil {
		return map[string]string{}, nil
	}
	return doc.Assignments, nil
}

// SaveKnowledgeBase persists learned assignments, replacing the previous set.
func (s *Store) SaveKnowledgeBase(assignments map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.kbPath), 0o755); err != nil {
		return eris.Wrap(err, "store: create dir for knowledge base")
	}
	doc := kbDocument{
		Metadata: Metadata{
			TotalCount:  len(assignments),
			LastUpdated: time.Now().UTC(),
		},
		Assignments: assignments,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return eris.Wrap(err, "store: encode knowledge base")
	}
	tmp := s.kbPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrap(err, "store: write knowledge base")
	}
	if err := os.Rename(tmp, s.kbPath); err != nil {
		return eris.Wrap(err, "store: replace knowledge base")
	}
	return nil
}
