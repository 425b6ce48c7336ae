package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"dockwatch.cycleshare.org/internal/alternatives"
	"dockwatch.cycleshare.org/internal/config"
	"dockwatch.cycleshare.org/internal/docks"
	"dockwatch.cycleshare.org/internal/feed"
	"dockwatch.cycleshare.org/internal/metrics"
	"dockwatch.cycleshare.org/internal/models"
	"dockwatch.cycleshare.org/internal/prefs"
	"dockwatch.cycleshare.org/internal/push"
	"dockwatch.cycleshare.org/internal/refresh"
)

// Application wires all dependencies together: the config service, the
// feed client and dock store, the refresh policy, the preference store,
// the push hub, and the metrics service.
type Application struct {
	ConfigService  *config.ConfigService
	FeedClient     *feed.Client
	DockStore      *docks.Store
	Policy         *refresh.Policy
	Prefs          prefs.Store
	Hub            *push.Hub
	MetricsService *metrics.MetricsService
	Backoffs       *config.BackoffStore
	Logger         *slog.Logger
	Version        string

	// rankers caches one alternatives ranker per primary dock and radius
	// for the lifetime of a feed snapshot; a successful refresh clears it.
	rankersMu sync.Mutex
	rankers   map[string]*alternatives.Ranker
}

// New creates and wires all dependencies for the Application.
func New(cfg *config.Config, logger *slog.Logger, client *http.Client, prefsStore prefs.Store, version string) *Application {
	dockStore := docks.NewStore()
	policy := refresh.NewPolicy(refresh.Options{
		Staleness:        cfg.GetSettings().Staleness(),
		FailureThreshold: cfg.GetSettings().FailureThreshold,
		FailureWindow:    cfg.GetSettings().FailureWindow(),
		Debounce:         cfg.GetSettings().Debounce(),
	}, refresh.RealClock())

	configService := config.NewConfigService(logger, client, cfg)
	feedClient := feed.NewClient(client, logger)
	hub := push.NewHub(logger)
	metricsService := metrics.NewMetricsService(dockStore, prefsStore, policy, logger)

	return &Application{
		ConfigService:  configService,
		FeedClient:     feedClient,
		DockStore:      dockStore,
		Policy:         policy,
		Prefs:          prefsStore,
		Hub:            hub,
		MetricsService: metricsService,
		Backoffs:       config.NewBackoffStore(),
		Logger:         logger,
		Version:        version,
		rankers:        make(map[string]*alternatives.Ranker),
	}
}

// storeLookup adapts the dock store to the ranker's lookup interface. The
// lookup fails only when no snapshot has been fetched yet; the ranker
// swallows that into an empty alternatives list and stays retryable.
type storeLookup struct {
	store *docks.Store
}

func (l storeLookup) Nearby(ctx context.Context, lat, lon, radiusMeters float64) ([]models.Dock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.store.FetchedAt().IsZero() {
		return nil, fmt.Errorf("no dock data available")
	}
	return l.store.Nearby(lat, lon, radiusMeters), nil
}

// rankerFor returns the cached ranker for a primary dock and radius,
// creating it on first use within the current snapshot.
func (app *Application) rankerFor(primary models.Dock, radiusMeters float64, maxResults int) *alternatives.Ranker {
	key := fmt.Sprintf("%s@%.0f", primary.ID, radiusMeters)

	app.rankersMu.Lock()
	defer app.rankersMu.Unlock()

	if ranker, ok := app.rankers[key]; ok {
		return ranker
	}
	ranker := alternatives.NewRanker(primary, storeLookup{store: app.DockStore}, app.Prefs, app.Logger, radiusMeters, maxResults)
	app.rankers[key] = ranker
	return ranker
}

// invalidateRankers drops all cached rankers; called after every
// successful refresh because alternatives are recomputed per snapshot.
func (app *Application) invalidateRankers() {
	app.rankersMu.Lock()
	defer app.rankersMu.Unlock()
	app.rankers = make(map[string]*alternatives.Ranker)
}
