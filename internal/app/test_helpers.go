package app

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"dockwatch.cycleshare.org/internal/config"
	"dockwatch.cycleshare.org/internal/models"
	"dockwatch.cycleshare.org/internal/prefs"
)

// newTestApplication builds a fully wired Application backed by an
// in-memory preference store and a discarded logger.
func newTestApplication(t *testing.T) *Application {
	t.Helper()

	settings := config.DefaultSettings()
	settings.FeedURL = "https://cycles.example.com/livecyclehireupdates.xml"
	cfg := config.NewConfig(4000, "test", settings)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(cfg, logger, NewPooledClient(), prefs.NewMemStore(), "1.0.0")
}

// seedDocks installs a snapshot directly into the dock store, marking the
// refresh policy as having succeeded so staleness checks behave as if a
// real fetch had landed.
func seedDocks(t *testing.T, app *Application, docks ...models.Dock) {
	t.Helper()

	app.DockStore.Set(&models.DockFeed{
		LastUpdate: time.Now().UnixMilli(),
		Docks:      docks,
	}, time.Now())

	token := app.Policy.Begin()
	app.Policy.Succeed(token)
}

// testDock returns an installed, unlocked dock at the given coordinates.
func testDock(id, name string, lat, lon float64, standard, ebikes, empty int) models.Dock {
	return models.Dock{
		ID:              id,
		Name:            name,
		Lat:             lat,
		Lon:             lon,
		Installed:       true,
		Locked:          false,
		NbStandardBikes: standard,
		NbEBikes:        ebikes,
		NbEmptyDocks:    empty,
		NbDocks:         standard + ebikes + empty,
	}
}
