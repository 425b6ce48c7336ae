package docks

import (
	"sync"
	"time"

	"dockwatch.cycleshare.org/internal/geo"
	"dockwatch.cycleshare.org/internal/models"
)

// Store is a thread-safe in-memory cache of the latest dock feed snapshot.
// It is written by the refresh path and read concurrently by HTTP handlers,
// the push hub, and the metrics collector. Readers tolerate momentarily
// stale data; the refresh policy decides when a new snapshot is needed.
type Store struct {
	mu         sync.RWMutex
	docks      map[string]models.Dock
	order      []string // feed order, preserved for stable presentation
	fetchedAt  time.Time
	lastUpdate int64 // feed generation time reported by the operator
}

// NewStore initializes and returns a new empty Store.
func NewStore() *Store {
	return &Store{}
}

// Set replaces the cached snapshot with the given feed. fetchedAt is the
// local time the fetch succeeded, recorded separately from the operator's
// own lastUpdate stamp.
func (s *Store) Set(parsed *models.DockFeed, fetchedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docks = make(map[string]models.Dock, len(parsed.Docks))
	s.order = make([]string, 0, len(parsed.Docks))
	for _, dock := range parsed.Docks {
		s.docks[dock.ID] = dock
		s.order = append(s.order, dock.ID)
	}
	s.fetchedAt = fetchedAt
	s.lastUpdate = parsed.LastUpdate
}

// Get retrieves one dock by ID.
func (s *Store) Get(id string) (models.Dock, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dock, exists := s.docks[id]
	return dock, exists
}

// All returns the cached docks in feed order.
func (s *Store) All() []models.Dock {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Dock, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.docks[id])
	}
	return out
}

// Nearby returns all docks within radiusMeters of the given coordinate,
// in feed order. Docks with invalid coordinates are skipped.
func (s *Store) Nearby(lat, lon, radiusMeters float64) []models.Dock {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Dock
	for _, id := range s.order {
		dock := s.docks[id]
		if !geo.IsValidLatLon(dock.Lat, dock.Lon) {
			continue
		}
		if geo.HaversineDistance(lat, lon, dock.Lat, dock.Lon) <= radiusMeters {
			out = append(out, dock)
		}
	}
	return out
}

// Bounds returns the bounding box covering every dock with valid
// coordinates in the snapshot. ok is false when no snapshot is cached or
// no dock has usable coordinates.
func (s *Store) Bounds() (geo.BoundingBox, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]models.Dock, 0, len(s.order))
	for _, id := range s.order {
		all = append(all, s.docks[id])
	}
	box, err := geo.ComputeBoundingBox(all)
	if err != nil {
		return geo.BoundingBox{}, false
	}
	return box, true
}

// Count returns the number of cached docks.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// FetchedAt returns the local time of the last successful refresh, or the
// zero time if no snapshot has been stored yet.
func (s *Store) FetchedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchedAt
}

// LastUpdate returns the operator-reported feed generation time in Unix
// milliseconds.
func (s *Store) LastUpdate() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdate
}
