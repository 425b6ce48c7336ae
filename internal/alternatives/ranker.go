package alternatives

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/getsentry/sentry-go"

	"dockwatch.cycleshare.org/internal/geo"
	"dockwatch.cycleshare.org/internal/models"
	"dockwatch.cycleshare.org/internal/report"
	"dockwatch.cycleshare.org/internal/utils"
)

// NearbyLookup resolves docks within a radius of a coordinate. The app
// wires this to the docks store; tests substitute fakes.
type NearbyLookup interface {
	Nearby(ctx context.Context, lat, lon, radiusMeters float64) ([]models.Dock, error)
}

// AliasResolver returns the user's alias override for a dock, or "" when
// none is set. The preference store satisfies this.
type AliasResolver interface {
	AliasOverride(dockID string) string
}

// FetchState is the ranker's lookup gate. Loaded is terminal; Failed
// permits exactly one more attempt per failure, so a transient lookup
// problem can recover without redundant lookups on every re-render.
type FetchState int

const (
	StateIdle FetchState = iota
	StateLoading
	StateLoaded
	StateFailed
)

// Ranker suggests nearby alternative docks for one primary dock. It is
// created per primary dock and caches its result for its lifetime; a new
// feed snapshot warrants a new Ranker.
type Ranker struct {
	mu      sync.Mutex
	state   FetchState
	results []models.AlternativeDock

	primary models.Dock
	lookup  NearbyLookup
	aliases AliasResolver
	logger  *slog.Logger

	radiusMeters float64
	maxResults   int
}

// NewRanker creates a ranker for the given primary dock.
func NewRanker(primary models.Dock, lookup NearbyLookup, aliases AliasResolver, logger *slog.Logger, radiusMeters float64, maxResults int) *Ranker {
	return &Ranker{
		primary:      primary,
		lookup:       lookup,
		aliases:      aliases,
		logger:       logger,
		radiusMeters: radiusMeters,
		maxResults:   maxResults,
	}
}

// State returns the ranker's current gate state.
func (r *Ranker) State() FetchState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Alternatives returns the ranked alternative docks, performing the lookup
// on first use. A lookup that yields nothing inside the initial radius is
// retried once with the radius doubled; the widened result replaces the
// empty one, it is never merged. Lookup failures are swallowed into an
// empty list and the gate returns to Failed so the next call may retry.
func (r *Ranker) Alternatives(ctx context.Context) []models.AlternativeDock {
	r.mu.Lock()
	switch r.state {
	case StateLoaded, StateLoading:
		cached := r.results
		r.mu.Unlock()
		return cached
	}
	r.state = StateLoading
	r.mu.Unlock()

	ranked, err := r.rank(ctx, r.radiusMeters)
	if err == nil && len(ranked) == 0 {
		// Widen once, never recurse further.
		ranked, err = r.rank(ctx, r.radiusMeters*2)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  utils.MakeMap("dock_id", r.primary.ID),
			Level: sentry.LevelWarning,
		})
		r.logger.Warn("alternative dock lookup failed", "dock_id", r.primary.ID, "error", err)
		r.state = StateFailed
		r.results = nil
		return nil
	}

	r.state = StateLoaded
	r.results = ranked
	return ranked
}

func (r *Ranker) rank(ctx context.Context, radiusMeters float64) ([]models.AlternativeDock, error) {
	candidates, err := r.lookup.Nearby(ctx, r.primary.Lat, r.primary.Lon, radiusMeters)
	if err != nil {
		return nil, err
	}

	ranked := make([]models.AlternativeDock, 0, len(candidates))
	for _, dock := range candidates {
		if dock.ID == r.primary.ID || !dock.IsAvailable() {
			continue
		}
		alt := models.AlternativeDock{
			Dock:           dock,
			DistanceMeters: geo.HaversineDistance(r.primary.Lat, r.primary.Lon, dock.Lat, dock.Lon),
		}
		alt.DisplayName = r.displayName(dock)
		ranked = append(ranked, alt)
	}

	// Stable sort: ties keep lookup order, no secondary key.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceMeters < ranked[j].DistanceMeters
	})

	if len(ranked) > r.maxResults {
		ranked = ranked[:r.maxResults]
	}
	return ranked, nil
}

// displayName resolves the name to show: the feed alias if present, else
// the user's per-dock alias override, else the operator name.
func (r *Ranker) displayName(dock models.Dock) string {
	if dock.Alias != "" {
		return dock.Alias
	}
	if r.aliases != nil {
		if alias := r.aliases.AliasOverride(dock.ID); alias != "" {
			return alias
		}
	}
	return dock.Name
}
