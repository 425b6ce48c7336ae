package geo

import (
	"math"
	"testing"

	"dockwatch.cycleshare.org/internal/models"
)

func TestHaversineDistanceSymmetry(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
	}{
		{"central london pair", 51.50, -0.10, 51.52, -0.12},
		{"across the equator", -1.29, 36.82, 1.35, 103.82},
		{"antimeridian neighbours", 52.0, 179.9, 52.0, -179.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ab := HaversineDistance(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			ba := HaversineDistance(tt.lat2, tt.lon2, tt.lat1, tt.lon1)
			if math.Abs(ab-ba) > 1e-6 {
				t.Errorf("distance not symmetric: %f vs %f", ab, ba)
			}
		})
	}
}

func TestHaversineDistanceIdenticalPoints(t *testing.T) {
	if d := HaversineDistance(51.50, -0.10, 51.50, -0.10); d != 0 {
		t.Errorf("expected zero distance for identical points, got %f", d)
	}
}

func TestHaversineDistanceKnownValue(t *testing.T) {
	// Waterloo station to Bank station is roughly 2.4 km.
	d := HaversineDistance(51.5031, -0.1132, 51.5133, -0.0886)
	if d < 2000 || d > 2500 {
		t.Errorf("expected roughly 2.4km, got %f m", d)
	}
}

func TestIsValidLatLon(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		want     bool
	}{
		{"valid london", 51.50, -0.10, true},
		{"null island treated invalid", 0, 0, false},
		{"latitude out of range", 91, 0.5, false},
		{"longitude out of range", 51.5, 181, false},
		{"southern hemisphere", -33.86, 151.21, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidLatLon(tt.lat, tt.lon); got != tt.want {
				t.Errorf("IsValidLatLon(%f, %f) = %v, want %v", tt.lat, tt.lon, got, tt.want)
			}
		})
	}
}

func TestComputeBoundingBox(t *testing.T) {
	docks := []models.Dock{
		{ID: "1", Lat: 51.50, Lon: -0.10},
		{ID: "2", Lat: 51.52, Lon: -0.14},
		{ID: "3", Lat: 51.49, Lon: -0.08},
		{ID: "4", Lat: 0, Lon: 0}, // uninitialized, skipped
	}

	bbox, err := ComputeBoundingBox(docks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if bbox.MinLat != 51.49 || bbox.MaxLat != 51.52 {
		t.Errorf("unexpected latitude bounds: %+v", bbox)
	}
	if bbox.MinLon != -0.14 || bbox.MaxLon != -0.08 {
		t.Errorf("unexpected longitude bounds: %+v", bbox)
	}

	if !bbox.Contains(51.50, -0.10) {
		t.Error("expected bounding box to contain interior point")
	}
	if bbox.Contains(51.60, -0.10) {
		t.Error("expected bounding box to exclude exterior point")
	}
}

func TestComputeBoundingBoxNoValidCoordinates(t *testing.T) {
	if _, err := ComputeBoundingBox(nil); err == nil {
		t.Error("expected error for empty dock list")
	}
	if _, err := ComputeBoundingBox([]models.Dock{{Lat: 0, Lon: 0}}); err == nil {
		t.Error("expected error when no dock has valid coordinates")
	}
}
