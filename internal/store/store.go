// Package store keeps analysed datasets in memory behind opaque handles so a
// caller can fetch, override and discard them across requests.
package store

import (
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KaramelBytes/tablescope/internal/analysis"
)

// DefaultMaxDatasets bounds the cache when no limit is configured.
const DefaultMaxDatasets = 32

// ErrNotFound is returned for unknown or evicted handles.
var ErrNotFound = errors.New("dataset not found")

// Dataset is one cached analysis.
type Dataset struct {
	ID       uuid.UUID          `json:"id"`
	Filename string             `json:"filename"`
	Analyzer *analysis.Analyzer `json:"-"`
	Report   *analysis.Report   `json:"report"`
	Created  time.Time          `json:"created"`
}

type entry struct {
	// mu serialises overrides of one dataset; reads go through Store.mu.
	mu sync.Mutex
	ds Dataset
}

// Store is a bounded, concurrency-safe dataset cache. When full, the oldest
// dataset is evicted.
type Store struct {
	mu     sync.Mutex
	limit  int
	items  map[uuid.UUID]*entry
	order  []uuid.UUID
	now    func() time.Time
	logger *zap.Logger
}

// New returns a Store holding at most limit datasets (DefaultMaxDatasets when
// limit <= 0).
func New(limit int, logger *zap.Logger) *Store {
	if limit <= 0 {
		limit = DefaultMaxDatasets
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		limit:  limit,
		items:  make(map[uuid.UUID]*entry),
		now:    time.Now,
		logger: logger.Named("store"),
	}
}

// Put caches an analysis and returns its handle.
func (s *Store) Put(filename string, a *analysis.Analyzer, rep *analysis.Report) uuid.UUID {
	id := uuid.New()
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.order) >= s.limit {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.items, oldest)
		s.logger.Debug("dataset evicted", zap.String("id", oldest.String()))
	}
	s.items[id] = &entry{ds: Dataset{ID: id, Filename: filename, Analyzer: a, Report: rep, Created: s.now()}}
	s.order = append(s.order, id)
	return id
}

// Get returns a copy of the cached dataset. The Report it points to is
// never mutated; overrides swap in a new one.
func (s *Store) Get(id uuid.UUID) (Dataset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return Dataset{}, false
	}
	return e.ds, true
}

// Delete discards a dataset. It reports whether the handle existed.
func (s *Store) Delete(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// List returns the cached datasets, oldest first.
func (s *Store) List() []Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Dataset, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id].ds)
	}
	return out
}

// Len returns the number of cached datasets.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Override changes a column's base type and replaces the cached report with
// one reflecting the new classification. On error the cached dataset is
// unchanged.
func (s *Store) Override(id uuid.UUID, column, baseType string) (*analysis.ColumnReport, error) {
	s.mu.Lock()
	e, ok := s.items[id]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	a := e.ds.Analyzer
	cr, err := a.Override(column, baseType)
	if err != nil {
		return nil, err
	}

	next := analysis.Report{Name: a.Name(), Overview: a.Overview(), Correlations: a.Correlations()}
	if old := e.ds.Report; old != nil {
		next.Columns = maps.Clone(old.Columns)
	}
	if next.Columns == nil {
		next.Columns = make(map[string]analysis.ColumnReport)
	}
	next.Columns[column] = *cr

	s.mu.Lock()
	e.ds.Report = &next
	s.mu.Unlock()
	return cr, nil
}
