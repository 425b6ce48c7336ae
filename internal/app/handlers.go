package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"dockwatch.cycleshare.org/internal/availability"
	"dockwatch.cycleshare.org/internal/geo"
	"dockwatch.cycleshare.org/internal/models"
)

// HealthStatus is the JSON response of /v1/healthcheck. Ready means a feed
// is configured and at least one snapshot has been fetched.
type HealthStatus struct {
	Status      string           `json:"status"`
	Environment string           `json:"environment"`
	Version     string           `json:"version"`
	Docks       int              `json:"docks"`
	Coverage    *geo.BoundingBox `json:"coverage,omitempty"`
	LastRefresh string           `json:"last_refresh,omitempty"`
	Error       string           `json:"error,omitempty"`
	Ready       bool             `json:"ready"`
}

// DockView is a dock as presented to surfaces: counts mapped through the
// availability filter plus the derived predicates views render from.
type DockView struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	DisplayName        string  `json:"display_name"`
	Lat                float64 `json:"lat"`
	Lon                float64 `json:"lon"`
	StandardBikes      int     `json:"standard_bikes"`
	EBikes             int     `json:"ebikes"`
	EmptySpaces        int     `json:"empty_spaces"`
	TotalBikes         int     `json:"total_bikes"`
	BrokenDocks        int     `json:"broken_docks"`
	Installed          bool    `json:"installed"`
	Locked             bool    `json:"locked"`
	HasAnyBikes        bool    `json:"has_any_bikes"`
	HasAnyAvailability bool    `json:"has_any_availability"`
}

func (app *Application) dockView(dock models.Dock, filter availability.Filter) DockView {
	if alias := app.Prefs.AliasOverride(dock.ID); alias != "" && dock.Alias == "" {
		dock.Alias = alias
	}
	counts := filter.Apply(availability.Counts{
		StandardBikes: dock.NbStandardBikes,
		EBikes:        dock.NbEBikes,
		EmptySpaces:   dock.NbEmptyDocks,
	})
	return DockView{
		ID:                 dock.ID,
		Name:               dock.Name,
		DisplayName:        dock.DisplayName(),
		Lat:                dock.Lat,
		Lon:                dock.Lon,
		StandardBikes:      counts.StandardBikes,
		EBikes:             counts.EBikes,
		EmptySpaces:        counts.EmptySpaces,
		TotalBikes:         counts.TotalBikes(),
		BrokenDocks:        dock.BrokenDocks(),
		Installed:          dock.Installed,
		Locked:             dock.Locked,
		HasAnyBikes:        counts.HasAnyBikes(),
		HasAnyAvailability: counts.HasAnyAvailability(),
	}
}

func (app *Application) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		app.Logger.Error("Failed to encode response", "error", err)
	}
}

func (app *Application) errorResponse(w http.ResponseWriter, status int, message string) {
	app.writeJSON(w, status, map[string]string{"error": message})
}

// requestFilter resolves the availability filter for a request: an
// explicit ?filter= wins, otherwise the stored preference applies.
func (app *Application) requestFilter(r *http.Request) (availability.Filter, error) {
	if raw := r.URL.Query().Get("filter"); raw != "" {
		return availability.ParseFilter(raw)
	}
	return app.Prefs.AvailabilityFilter(), nil
}

func (app *Application) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	settings := app.ConfigService.Config.GetSettings()

	ready := settings.FeedURL != "" && app.DockStore.Count() > 0

	status := HealthStatus{
		Status:      "available",
		Environment: app.ConfigService.Config.Env,
		Version:     app.Version,
		Docks:       app.DockStore.Count(),
		Ready:       ready,
	}
	if fetchedAt := app.DockStore.FetchedAt(); !fetchedAt.IsZero() {
		status.LastRefresh = fetchedAt.UTC().Format("2006-01-02T15:04:05Z")
	}
	if box, ok := app.DockStore.Bounds(); ok {
		status.Coverage = &box
	}
	if message, visible := app.Policy.VisibleError(); visible {
		status.Error = message
	}

	code := http.StatusOK
	if !ready {
		code = http.StatusInternalServerError
	}
	app.writeJSON(w, code, status)
}

// viewportBox parses the optional map-viewport bounds from the query.
// Either all four bounds are present or none are.
func viewportBox(r *http.Request) (*geo.BoundingBox, error) {
	query := r.URL.Query()
	raw := []string{query.Get("min_lat"), query.Get("max_lat"), query.Get("min_lon"), query.Get("max_lon")}

	present := 0
	for _, v := range raw {
		if v != "" {
			present++
		}
	}
	if present == 0 {
		return nil, nil
	}
	if present != len(raw) {
		return nil, fmt.Errorf("viewport requires min_lat, max_lat, min_lon and max_lon together")
	}

	bounds := make([]float64, len(raw))
	for i, v := range raw {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid viewport bound %q", v)
		}
		bounds[i] = parsed
	}
	return &geo.BoundingBox{MinLat: bounds[0], MaxLat: bounds[1], MinLon: bounds[2], MaxLon: bounds[3]}, nil
}

func (app *Application) listDocksHandler(w http.ResponseWriter, r *http.Request) {
	filter, err := app.requestFilter(r)
	if err != nil {
		app.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	box, err := viewportBox(r)
	if err != nil {
		app.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	app.MaybeRefresh(r.Context())

	all := app.DockStore.All()
	views := make([]DockView, 0, len(all))
	for _, dock := range all {
		if box != nil && !box.Contains(dock.Lat, dock.Lon) {
			continue
		}
		views = append(views, app.dockView(dock, filter))
	}
	app.writeJSON(w, http.StatusOK, views)
}

func (app *Application) getDockHandler(w http.ResponseWriter, r *http.Request) {
	id := httprouter.ParamsFromContext(r.Context()).ByName("id")

	filter, err := app.requestFilter(r)
	if err != nil {
		app.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	dock, ok := app.DockStore.Get(id)
	if !ok {
		app.errorResponse(w, http.StatusNotFound, "dock not found")
		return
	}

	app.MaybeRefresh(r.Context())
	app.writeJSON(w, http.StatusOK, app.dockView(dock, filter))
}

func (app *Application) alternativesHandler(w http.ResponseWriter, r *http.Request) {
	id := httprouter.ParamsFromContext(r.Context()).ByName("id")
	settings := app.ConfigService.Config.GetSettings()

	radius := settings.AlternativesRadiusMeters
	if raw := r.URL.Query().Get("radius"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			app.errorResponse(w, http.StatusBadRequest, "radius must be a positive number")
			return
		}
		radius = parsed
	}

	primary, ok := app.DockStore.Get(id)
	if !ok {
		app.errorResponse(w, http.StatusNotFound, "dock not found")
		return
	}

	ranker := app.rankerFor(primary, radius, settings.MaxAlternatives)
	alternatives := ranker.Alternatives(r.Context())
	if alternatives == nil {
		// Soft-fail contract: a failed lookup is an empty list, never an
		// error response.
		alternatives = []models.AlternativeDock{}
	}
	app.writeJSON(w, http.StatusOK, alternatives)
}

func (app *Application) nearbyHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	lat, latErr := strconv.ParseFloat(query.Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(query.Get("lon"), 64)
	if latErr != nil || lonErr != nil || !geo.IsValidLatLon(lat, lon) {
		app.errorResponse(w, http.StatusBadRequest, "lat and lon must be valid coordinates")
		return
	}

	radius := app.ConfigService.Config.GetSettings().AlternativesRadiusMeters
	if raw := query.Get("radius"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			app.errorResponse(w, http.StatusBadRequest, "radius must be a positive number")
			return
		}
		radius = parsed
	}

	filter, err := app.requestFilter(r)
	if err != nil {
		app.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	nearby := app.DockStore.Nearby(lat, lon, radius)
	views := make([]DockView, 0, len(nearby))
	for _, dock := range nearby {
		views = append(views, app.dockView(dock, filter))
	}
	app.writeJSON(w, http.StatusOK, views)
}

func (app *Application) listFavouritesHandler(w http.ResponseWriter, r *http.Request) {
	filter, err := app.requestFilter(r)
	if err != nil {
		app.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	type favouriteView struct {
		DockID    string    `json:"dock_id"`
		SortOrder int       `json:"sort_order"`
		Alias     string    `json:"alias,omitempty"`
		Dock      *DockView `json:"dock,omitempty"`
	}

	favourites := app.Prefs.Favourites()
	views := make([]favouriteView, 0, len(favourites))
	for _, fav := range favourites {
		view := favouriteView{DockID: fav.DockID, SortOrder: fav.SortOrder, Alias: fav.Alias}
		if dock, ok := app.DockStore.Get(fav.DockID); ok {
			dockView := app.dockView(dock, filter)
			view.Dock = &dockView
		}
		views = append(views, view)
	}
	app.writeJSON(w, http.StatusOK, views)
}

func (app *Application) addFavouriteHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DockID string `json:"dock_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.DockID == "" {
		app.errorResponse(w, http.StatusBadRequest, "request must carry a dock_id")
		return
	}

	if _, ok := app.DockStore.Get(body.DockID); !ok {
		app.errorResponse(w, http.StatusNotFound, "dock not found")
		return
	}

	if err := app.Prefs.AddFavourite(body.DockID); err != nil {
		app.Logger.Error("Failed to add favourite", "dock_id", body.DockID, "error", err)
		app.errorResponse(w, http.StatusInternalServerError, "failed to save favourite")
		return
	}
	app.writeJSON(w, http.StatusCreated, map[string]string{"dock_id": body.DockID})
}

func (app *Application) removeFavouriteHandler(w http.ResponseWriter, r *http.Request) {
	id := httprouter.ParamsFromContext(r.Context()).ByName("id")

	if err := app.Prefs.RemoveFavourite(id); err != nil {
		app.Logger.Error("Failed to remove favourite", "dock_id", id, "error", err)
		app.errorResponse(w, http.StatusInternalServerError, "failed to remove favourite")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *Application) setAliasHandler(w http.ResponseWriter, r *http.Request) {
	id := httprouter.ParamsFromContext(r.Context()).ByName("id")

	var body struct {
		Alias string `json:"alias"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		app.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := app.Prefs.SetAliasOverride(id, body.Alias); err != nil {
		app.Logger.Error("Failed to set alias", "dock_id", id, "error", err)
		app.errorResponse(w, http.StatusInternalServerError, "failed to save alias")
		return
	}
	app.writeJSON(w, http.StatusOK, map[string]string{"dock_id": id, "alias": body.Alias})
}

func (app *Application) getFilterHandler(w http.ResponseWriter, r *http.Request) {
	app.writeJSON(w, http.StatusOK, map[string]string{"filter": string(app.Prefs.AvailabilityFilter())})
}

func (app *Application) setFilterHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Filter string `json:"filter"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		app.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	filter, err := availability.ParseFilter(body.Filter)
	if err != nil {
		app.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := app.Prefs.SetAvailabilityFilter(filter); err != nil {
		app.Logger.Error("Failed to set filter", "error", err)
		app.errorResponse(w, http.StatusInternalServerError, "failed to save filter")
		return
	}
	app.writeJSON(w, http.StatusOK, map[string]string{"filter": string(filter)})
}

// wakeHandler is the silent-wake entry point: an out-of-band signal (the
// push-notification analogue) that forces a refresh regardless of
// staleness or backoff.
func (app *Application) wakeHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.RefreshDocks(r.Context(), true); err != nil {
		// The refresh failed but the wake was handled; suppression decides
		// if anything becomes visible.
		app.writeJSON(w, http.StatusAccepted, map[string]any{"refreshed": false})
		return
	}
	app.writeJSON(w, http.StatusAccepted, map[string]any{
		"refreshed": true,
		"docks":     app.DockStore.Count(),
	})
}

func (app *Application) surfaceHandler(w http.ResponseWriter, r *http.Request) {
	app.Hub.ServeWS(w, r, app.DockStore.All())
}
