package app

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"

	"dockwatch.cycleshare.org/internal/middleware"
)

// Routes sets up the HTTP routing configuration for the application and
// returns the final http.Handler. The router is wrapped with Sentry
// middleware for error tracking and with the security-header middleware;
// /metrics is served from the cached Prometheus handler to keep scrape
// latency flat.
func (app *Application) Routes(ctx context.Context) http.Handler {
	router := httprouter.New()

	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", app.healthcheckHandler)

	router.HandlerFunc(http.MethodGet, "/v1/docks", app.listDocksHandler)
	router.HandlerFunc(http.MethodGet, "/v1/docks/:id", app.getDockHandler)
	router.HandlerFunc(http.MethodGet, "/v1/docks/:id/alternatives", app.alternativesHandler)
	router.HandlerFunc(http.MethodGet, "/v1/nearby", app.nearbyHandler)

	router.HandlerFunc(http.MethodGet, "/v1/favourites", app.listFavouritesHandler)
	router.HandlerFunc(http.MethodPost, "/v1/favourites", app.addFavouriteHandler)
	router.HandlerFunc(http.MethodDelete, "/v1/favourites/:id", app.removeFavouriteHandler)
	router.HandlerFunc(http.MethodPut, "/v1/favourites/:id/alias", app.setAliasHandler)

	router.HandlerFunc(http.MethodGet, "/v1/preferences/filter", app.getFilterHandler)
	router.HandlerFunc(http.MethodPut, "/v1/preferences/filter", app.setFilterHandler)

	router.HandlerFunc(http.MethodPost, "/v1/wake", app.wakeHandler)
	router.HandlerFunc(http.MethodGet, "/v1/ws", app.surfaceHandler)

	router.Handler(http.MethodGet, "/metrics", middleware.NewCachedPromHandler(ctx, prometheus.DefaultGatherer, 10*time.Second))

	handler := middleware.SentryMiddleware(router)
	return middleware.SecurityHeaders(handler)
}
