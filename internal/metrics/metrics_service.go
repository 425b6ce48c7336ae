package metrics

import (
	"log/slog"
	"time"

	"dockwatch.cycleshare.org/internal/docks"
	"dockwatch.cycleshare.org/internal/prefs"
	"dockwatch.cycleshare.org/internal/refresh"
)

// MetricsService publishes gauge values derived from the shared stores.
// Per-dock gauges are exported only for favourites to keep label
// cardinality bounded; a city-wide fleet runs to thousands of docks.
type MetricsService struct {
	DockStore *docks.Store
	Prefs     prefs.Store
	Policy    *refresh.Policy
	Logger    *slog.Logger
}

func NewMetricsService(dockStore *docks.Store, prefsStore prefs.Store, policy *refresh.Policy, logger *slog.Logger) *MetricsService {
	return &MetricsService{
		DockStore: dockStore,
		Prefs:     prefsStore,
		Policy:    policy,
		Logger:    logger,
	}
}

// RecordFeedStatus sets the feed health gauge.
func (ms *MetricsService) RecordFeedStatus(feedURL string, up bool) {
	value := 0.0
	if up {
		value = 1.0
	}
	FeedStatus.WithLabelValues(feedURL).Set(value)
}

// RecordSnapshot refreshes every snapshot-derived gauge. Called after each
// successful feed refresh and on the collection tick.
func (ms *MetricsService) RecordSnapshot(now time.Time) {
	DocksTracked.Set(float64(ms.DockStore.Count()))

	if fetchedAt := ms.DockStore.FetchedAt(); !fetchedAt.IsZero() {
		FeedAgeSeconds.Set(now.Sub(fetchedAt).Seconds())
	}

	for _, fav := range ms.Prefs.Favourites() {
		dock, ok := ms.DockStore.Get(fav.DockID)
		if !ok {
			continue
		}
		FavouriteStandardBikes.WithLabelValues(dock.ID).Set(float64(dock.NbStandardBikes))
		FavouriteEBikes.WithLabelValues(dock.ID).Set(float64(dock.NbEBikes))
		FavouriteEmptySpaces.WithLabelValues(dock.ID).Set(float64(dock.NbEmptyDocks))
		FavouriteBrokenDocks.WithLabelValues(dock.ID).Set(float64(dock.BrokenDocks()))
	}

	ConsecutiveRefreshFailures.Set(float64(ms.Policy.ConsecutiveFailures()))
	if _, visible := ms.Policy.VisibleError(); visible {
		RefreshErrorVisible.Set(1)
	} else {
		RefreshErrorVisible.Set(0)
	}
}

// RecordSurfaceClients sets the connected-surfaces gauge.
func (ms *MetricsService) RecordSurfaceClients(count int) {
	SurfaceClients.Set(float64(count))
}
