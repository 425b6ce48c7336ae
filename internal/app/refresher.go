package app

import (
	"context"
	"errors"
	"time"

	"github.com/getsentry/sentry-go"

	"dockwatch.cycleshare.org/internal/feed"
	"dockwatch.cycleshare.org/internal/models"
	"dockwatch.cycleshare.org/internal/report"
	"dockwatch.cycleshare.org/internal/utils"
)

// feedStream is the backoff-store key for the dock feed.
const feedStream = "dock-feed"

// userFacingFeedError is what surfaces after a sustained failure streak.
// Individual failure causes are logged and reported, never shown.
const userFacingFeedError = "Live dock data is currently unavailable"

// StartDockPolling refreshes the dock snapshot on the configured cadence
// until ctx is cancelled. Each tick also republishes snapshot-derived
// gauges so metrics stay current even when the feed is quiet.
func (app *Application) StartDockPolling(ctx context.Context) {
	interval := app.ConfigService.Config.GetSettings().PollInterval()
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				app.Logger.Info("Stopping dock polling")
				return
			case <-ticker.C:
				app.RefreshDocks(ctx, false)
				app.MetricsService.RecordSnapshot(time.Now())
				app.MetricsService.RecordSurfaceClients(app.Hub.ClientCount())
			}
		}
	}()
}

// MaybeRefresh kicks an asynchronous refresh when the cached snapshot is
// stale and nothing is already in flight. Foreground handlers call this so
// a fresh read lands for the client's next poll without blocking the
// current response.
func (app *Application) MaybeRefresh(ctx context.Context) {
	if !app.Policy.Stale() || app.Policy.InFlight() {
		return
	}
	// Detached from the request lifetime so the response returning does not
	// cancel the fetch.
	go app.RefreshDocks(context.WithoutCancel(ctx), false)
}

// RefreshDocks performs one refresh attempt. When force is false the
// attempt is skipped while the feed's retry backoff is active; a forced
// refresh (silent wake, manual trigger) always goes to the network.
//
// A completion that has been superseded by a newer attempt is discarded:
// the fetched snapshot is dropped and no state changes.
func (app *Application) RefreshDocks(ctx context.Context, force bool) error {
	settings := app.ConfigService.Config.GetSettings()

	if !force {
		if next, ok := app.Backoffs.NextRetryAt(feedStream); ok && time.Now().UTC().Before(next) {
			app.Logger.Debug("Skipping refresh, backoff active", "next_retry_at", next)
			return nil
		}
	}

	token := app.Policy.Begin()

	parsed, err := app.FeedClient.FetchAll(ctx, settings.FeedURL)
	if err != nil {
		app.Policy.Fail(token, userFacingFeedError)
		app.Backoffs.UpdateBackoff(feedStream)
		app.MetricsService.RecordFeedStatus(settings.FeedURL, false)

		// Transport, decode, and empty-result failures feed the same
		// suppression policy; the distinction only matters for logs.
		switch {
		case errors.Is(err, feed.ErrNoData):
			app.Logger.Warn("Dock feed returned no docks", "feed_url", settings.FeedURL)
		default:
			app.Logger.Error("Failed to refresh dock feed", "feed_url", settings.FeedURL, "error", err)
		}
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  utils.MakeMap("feed_url", settings.FeedURL),
			Level: sentry.LevelWarning,
		})
		return err
	}

	if !app.Policy.Succeed(token) {
		app.Logger.Debug("Discarding superseded refresh", "token", token)
		return nil
	}

	previous := app.favouriteDocks()

	now := time.Now()
	app.DockStore.Set(parsed, now)
	app.Backoffs.ResetBackoff(feedStream)
	app.invalidateRankers()

	if err := app.Prefs.SetLastRefresh(feedStream, now); err != nil {
		app.Logger.Warn("Failed to record refresh timestamp", "error", err)
	}

	app.MetricsService.RecordFeedStatus(settings.FeedURL, true)
	app.MetricsService.RecordSnapshot(now)
	app.Hub.BroadcastFullSync(app.DockStore.All())
	app.broadcastFavouriteChanges(previous)

	app.Logger.Info("Refreshed dock snapshot", "docks", app.DockStore.Count())
	return nil
}

// favouriteDocks snapshots the current state of every favourited dock.
func (app *Application) favouriteDocks() map[string]models.Dock {
	out := make(map[string]models.Dock)
	for _, fav := range app.Prefs.Favourites() {
		if dock, ok := app.DockStore.Get(fav.DockID); ok {
			out[fav.DockID] = dock
		}
	}
	return out
}

// broadcastFavouriteChanges pushes incremental updates for favourited docks
// whose live counts moved between snapshots, so widgets tracking a single
// dock do not have to diff a full sync.
func (app *Application) broadcastFavouriteChanges(previous map[string]models.Dock) {
	for _, fav := range app.Prefs.Favourites() {
		current, ok := app.DockStore.Get(fav.DockID)
		if !ok {
			continue
		}
		before, seen := previous[fav.DockID]
		if seen &&
			before.NbStandardBikes == current.NbStandardBikes &&
			before.NbEBikes == current.NbEBikes &&
			before.NbEmptyDocks == current.NbEmptyDocks &&
			before.Installed == current.Installed &&
			before.Locked == current.Locked {
			continue
		}
		app.Hub.BroadcastDockUpdate(current)
	}
}
