// Package prefs is the namespaced preference store shared by every
// surface: favourites, per-dock alias overrides, the availability filter,
// and last-refresh timestamps. Semantics are last-writer-wins with no
// transactional guarantees; all readers tolerate momentarily stale data.
package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"dockwatch.cycleshare.org/internal/availability"
	"dockwatch.cycleshare.org/internal/models"
)

// Store is the narrow read/write surface the rest of the application sees.
// Components take a Store rather than touching the backing file so tests
// can substitute the in-memory implementation.
type Store interface {
	Favourites() []models.Favourite
	SaveFavourites(favourites []models.Favourite) error
	AddFavourite(dockID string) error
	RemoveFavourite(dockID string) error

	AliasOverride(dockID string) string
	SetAliasOverride(dockID, alias string) error

	AvailabilityFilter() availability.Filter
	SetAvailabilityFilter(filter availability.Filter) error

	LastRefresh(stream string) (time.Time, bool)
	SetLastRefresh(stream string, t time.Time) error
}

// document is the serialized shape of the store. The whole document is
// rewritten on every mutation; it is tiny and last-writer-wins is the
// contract anyway.
type document struct {
	Favourites  []models.Favourite   `json:"favourites"`
	Aliases     map[string]string    `json:"aliases"`
	Filter      string               `json:"filter"`
	LastRefresh map[string]time.Time `json:"last_refresh"`
}

func newDocument() document {
	return document{
		Aliases:     make(map[string]string),
		Filter:      string(availability.FilterBoth),
		LastRefresh: make(map[string]time.Time),
	}
}

// MemStore is the in-memory implementation, used by tests and as the base
// for the file-backed store.
type MemStore struct {
	mu  sync.RWMutex
	doc document

	// persist, when set, is called with the document after each mutation
	// while the write lock is held.
	persist func(doc document) error
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{doc: newDocument()}
}

// Favourites returns the favourites sorted by their sort order.
func (s *MemStore) Favourites() []models.Favourite {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := append([]models.Favourite(nil), s.doc.Favourites...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SortOrder < out[j].SortOrder
	})
	return out
}

// SaveFavourites replaces the favourite list wholesale.
func (s *MemStore) SaveFavourites(favourites []models.Favourite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Favourites = append([]models.Favourite(nil), favourites...)
	return s.persistLocked()
}

// AddFavourite appends a dock to the favourites with the next sort order.
// Adding an existing favourite is a no-op.
func (s *MemStore) AddFavourite(dockID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := 0
	for _, fav := range s.doc.Favourites {
		if fav.DockID == dockID {
			return nil
		}
		if fav.SortOrder >= next {
			next = fav.SortOrder + 1
		}
	}
	s.doc.Favourites = append(s.doc.Favourites, models.Favourite{DockID: dockID, SortOrder: next})
	return s.persistLocked()
}

// RemoveFavourite removes a dock from the favourites if present.
func (s *MemStore) RemoveFavourite(dockID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.doc.Favourites[:0]
	for _, fav := range s.doc.Favourites {
		if fav.DockID != dockID {
			kept = append(kept, fav)
		}
	}
	s.doc.Favourites = kept
	return s.persistLocked()
}

// AliasOverride returns the user's alias for a dock, or "".
func (s *MemStore) AliasOverride(dockID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Aliases[dockID]
}

// SetAliasOverride stores an alias for a dock. An empty alias removes the
// override.
func (s *MemStore) SetAliasOverride(dockID, alias string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if alias == "" {
		delete(s.doc.Aliases, dockID)
	} else {
		s.doc.Aliases[dockID] = alias
	}

	// Keep any favourite entry's alias in step with the override map so
	// both read paths agree.
	for i := range s.doc.Favourites {
		if s.doc.Favourites[i].DockID == dockID {
			s.doc.Favourites[i].Alias = alias
		}
	}
	return s.persistLocked()
}

// AvailabilityFilter returns the stored display filter, defaulting to both.
func (s *MemStore) AvailabilityFilter() availability.Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filter, err := availability.ParseFilter(s.doc.Filter)
	if err != nil {
		return availability.FilterBoth
	}
	return filter
}

// SetAvailabilityFilter stores the display filter.
func (s *MemStore) SetAvailabilityFilter(filter availability.Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Filter = string(filter)
	return s.persistLocked()
}

// LastRefresh returns the recorded refresh time for a stream.
func (s *MemStore) LastRefresh(stream string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.doc.LastRefresh[stream]
	return t, ok
}

// SetLastRefresh records the refresh time for a stream.
func (s *MemStore) SetLastRefresh(stream string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.LastRefresh[stream] = t.UTC()
	return s.persistLocked()
}

func (s *MemStore) persistLocked() error {
	if s.persist == nil {
		return nil
	}
	return s.persist(s.doc)
}

// NewFileStore opens (or creates) a file-backed store at path. The file is
// read once at open; every mutation rewrites it atomically via a temp file
// rename, so concurrent readers in other processes see either the old or
// the new document, never a torn one.
func NewFileStore(path string) (*MemStore, error) {
	store := NewMemStore()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &store.doc); err != nil {
			return nil, fmt.Errorf("failed to parse preference store %s: %v", path, err)
		}
		if store.doc.Aliases == nil {
			store.doc.Aliases = make(map[string]string)
		}
		if store.doc.LastRefresh == nil {
			store.doc.LastRefresh = make(map[string]time.Time)
		}
		if store.doc.Filter == "" {
			store.doc.Filter = string(availability.FilterBoth)
		}
	case os.IsNotExist(err):
		// First run; the file appears on the first write.
	default:
		return nil, fmt.Errorf("failed to read preference store %s: %v", path, err)
	}

	store.persist = func(doc document) error {
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal preference store: %v", err)
		}
		tmp := path + ".tmp"
		if err := os.WriteFile(tmp, data, 0o644); err != nil {
			return fmt.Errorf("failed to write preference store: %v", err)
		}
		return os.Rename(tmp, path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("failed to create preference store directory: %v", err)
		}
	}

	return store, nil
}
