package docks

import (
	"testing"
	"time"

	"dockwatch.cycleshare.org/internal/models"
)

func snapshot() *models.DockFeed {
	return &models.DockFeed{
		LastUpdate: 1721900000000,
		Docks: []models.Dock{
			{ID: "1", Name: "Waterloo", Lat: 51.5031, Lon: -0.1132, Installed: true},
			{ID: "2", Name: "Bank", Lat: 51.5133, Lon: -0.0886, Installed: true},
			{ID: "3", Name: "Depot", Lat: 0, Lon: 0, Installed: true},
		},
	}
}

func TestStoreSetAndGet(t *testing.T) {
	store := NewStore()

	if store.Count() != 0 {
		t.Errorf("expected empty store, got %d docks", store.Count())
	}
	if !store.FetchedAt().IsZero() {
		t.Error("expected zero fetchedAt before first snapshot")
	}

	now := time.Now()
	store.Set(snapshot(), now)

	if store.Count() != 3 {
		t.Errorf("expected 3 docks, got %d", store.Count())
	}
	if !store.FetchedAt().Equal(now) {
		t.Errorf("expected fetchedAt %v, got %v", now, store.FetchedAt())
	}
	if store.LastUpdate() != 1721900000000 {
		t.Errorf("unexpected lastUpdate: %d", store.LastUpdate())
	}

	dock, ok := store.Get("2")
	if !ok || dock.Name != "Bank" {
		t.Errorf("expected Bank dock, got %+v (ok=%v)", dock, ok)
	}
	if _, ok := store.Get("missing"); ok {
		t.Error("expected miss for unknown id")
	}
}

func TestStoreAllPreservesFeedOrder(t *testing.T) {
	store := NewStore()
	store.Set(snapshot(), time.Now())

	all := store.All()
	if len(all) != 3 {
		t.Fatalf("expected 3 docks, got %d", len(all))
	}
	for i, want := range []string{"1", "2", "3"} {
		if all[i].ID != want {
			t.Errorf("position %d: expected id %s, got %s", i, want, all[i].ID)
		}
	}
}

func TestStoreNearby(t *testing.T) {
	store := NewStore()
	store.Set(snapshot(), time.Now())

	// Waterloo and Bank are ~2.4km apart; 500m around Waterloo finds only
	// Waterloo itself. The depot dock at (0,0) is never returned.
	near := store.Nearby(51.5031, -0.1132, 500)
	if len(near) != 1 || near[0].ID != "1" {
		t.Errorf("expected only Waterloo within 500m, got %+v", near)
	}

	wide := store.Nearby(51.5031, -0.1132, 5000)
	if len(wide) != 2 {
		t.Errorf("expected 2 docks within 5km, got %d", len(wide))
	}
}

func TestStoreBounds(t *testing.T) {
	store := NewStore()

	if _, ok := store.Bounds(); ok {
		t.Error("expected no bounds for an empty store")
	}

	store.Set(snapshot(), time.Now())

	box, ok := store.Bounds()
	if !ok {
		t.Fatal("expected bounds for a populated store")
	}
	// The (0,0) depot dock must not drag the box to the origin.
	if box.MinLat != 51.5031 || box.MaxLat != 51.5133 {
		t.Errorf("unexpected latitude bounds: %+v", box)
	}
	if box.MinLon != -0.1132 || box.MaxLon != -0.0886 {
		t.Errorf("unexpected longitude bounds: %+v", box)
	}
	if !box.Contains(51.51, -0.1) {
		t.Error("expected a central point to fall inside the bounds")
	}
}

func TestStoreSetReplacesSnapshot(t *testing.T) {
	store := NewStore()
	store.Set(snapshot(), time.Now())

	store.Set(&models.DockFeed{
		Docks: []models.Dock{{ID: "9", Name: "New", Lat: 51.5, Lon: -0.1}},
	}, time.Now())

	if store.Count() != 1 {
		t.Errorf("expected snapshot replacement, got %d docks", store.Count())
	}
	if _, ok := store.Get("1"); ok {
		t.Error("expected old dock to be evicted")
	}
}
