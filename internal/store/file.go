// Package store persists pipeline stage outputs as single JSON files with
// ID-based duplicate prevention. Records are append-only: the first write for
// an ID wins and later writes for the same ID are skipped, which is what makes
// every stage idempotent. A missing or corrupt file loads as empty so an
// interrupted run can always resume.
package store

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Metadata describes the state of one store file.
type Metadata struct {
	TotalCount  int       `json:"total_count"`
	LastUpdated time.Time `json:"last_updated"`
	LastAdded   int       `json:"new_records_added"`
}

type document[T any] struct {
	Metadata Metadata `json:"metadata"`
	Records  []T      `json:"records"`
}

// File is a single-file JSON store for records of type T, keyed by the id
// function. All operations rewrite the full file; the mutex serializes
// access within the process.
type File[T any] struct {
	mu   sync.Mutex
	path string
	name string
	id   func(T) string
}

// NewFile returns a store backed by path. The file is created lazily on the
// first merge.
func NewFile[T any](path string, id func(T) string) *File[T] {
	return &File[T]{path: path, name: filepath.Base(path), id: id}
}

// Path returns the backing file path.
func (f *File[T]) Path() string {
	return f.path
}

// Load returns all stored records. Missing and corrupt files both load as
// empty.
func (f *File[T]) Load() ([]T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.read()
	if err != nil {
		return nil, err
	}
	return doc.Records, nil
}

// Merge appends records whose IDs are not yet present and rewrites the file.
// Returns the number of records actually added.
func (f *File[T]) Merge(records []T) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return 0, err
	}

	existing := make(map[string]struct{}, len(doc.Records))
	for _, r := range doc.Records {
		existing[f.id(r)] = struct{}{}
	}

	added := 0
	for _, r := range records {
		id := f.id(r)
		if id == "" {
			continue
		}
		if _, ok := existing[id]; ok {
			zap.L().Debug("skipping duplicate record",
				zap.String("store", f.name),
				zap.String("id", id),
			)
			continue
		}
		doc.Records = append(doc.Records, r)
		existing[id] = struct{}{}
		added++
	}

	doc.Metadata = Metadata{
		TotalCount:  len(doc.Records),
		LastUpdated: time.Now().UTC(),
		LastAdded:   added,
	}

	if err := f.write(doc); err != nil {
		return 0, err
	}

	if added > 0 {
		zap.L().Info("store updated",
			zap.String("store", f.name),
			zap.Int("added", added),
			zap.Int("total", doc.Metadata.TotalCount),
		)
	}
	return added, nil
}

// IDs returns the set of stored record IDs, for delta computation.
func (f *File[T]) IDs() (map[string]struct{}, error) {
	records, err := f.Load()
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(records))
	for _, r := range records {
		ids[f.id(r)] = struct{}{}
	}
	return ids, nil
}

// Count returns the number of stored records.
func (f *File[T]) Count() (int, error) {
	records, err := f.Load()
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// Duplicates scans for IDs appearing more than once. A healthy store returns
// an empty slice.
func (f *File[T]) Duplicates() ([]string, error) {
	records, err := f.Load()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(records))
	var dups []string
	for _, r := range records {
		id := f.id(r)
		if _, ok := seen[id]; ok {
			dups = append(dups, id)
			continue
		}
		seen[id] = struct{}{}
	}
	return dups, nil
}

func (f *File[T]) read() (document[T], error) {
	doc := document[T]{Records: []T{}}

	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return doc, nil
	}
	if err != nil {
		return doc, eris.Wrapf(err, "store: read %s", f.name)
	}

	if err := json.Unmarshal(data, &doc); err != nil {
		zap.L().Warn("store file corrupt, starting empty",
			zap.String("store", f.name),
			zap.Error(err),
		)
		return document[T]{Records: []T{}}, nil
	}
	if doc.Records == nil {
		doc.Records = []T{}
	}
	return doc, nil
}

func (f *File[T]) write(doc document[T]) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return eris.Wrapf(err, "store: create dir for %s", f.name)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return eris.Wrapf(err, "store: encode %s", f.name)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return eris.Wrapf(err, "store: write %s", f.name)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return eris.Wrapf(err, "store: replace %s", f.name)
	}
	return nil
}
