package geo

import (
	"fmt"
	"math"

	"github.com/golang/geo/s2"

	"dockwatch.cycleshare.org/internal/models"
)

// earthRadiusInMeters is the Earth's volumetric mean radius, commonly used
// for spherical distance approximations.
//
// Reference: NASA Planetary Fact Sheet – Earth
// https://nssdc.gsfc.nasa.gov/planetary/factsheet/earthfact.html
const earthRadiusInMeters = 6371000

// HaversineDistance returns the great-circle distance in meters between two
// coordinates given in degrees. This is the single shared implementation;
// every surface that needs a distance goes through it.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * earthRadiusInMeters
}

// IsValidLatLon returns true if the given latitude and longitude fall
// within valid geographic bounds.
//
// Note: (0,0) is treated as invalid even though it is a real location in
// the Gulf of Guinea. Dock feeds commonly report uninitialized coordinates
// as (0,0), and no bike-share operator serves that spot.
func IsValidLatLon(lat, lon float64) bool {
	if lat == 0 && lon == 0 {
		return false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return false
	}
	return true
}

// BoundingBox defines the corners of a lat/lon box.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// Contains checks whether the given latitude and longitude are within the
// bounding box.
func (b *BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// ComputeBoundingBox computes the bounding box of all docks in a feed
// snapshot. Docks with invalid coordinates are skipped.
func ComputeBoundingBox(docks []models.Dock) (BoundingBox, error) {
	if len(docks) == 0 {
		return BoundingBox{}, fmt.Errorf("no docks to compute bounding box")
	}

	minLat := math.MaxFloat64
	maxLat := -math.MaxFloat64
	minLon := math.MaxFloat64
	maxLon := -math.MaxFloat64

	for _, dock := range docks {
		if !IsValidLatLon(dock.Lat, dock.Lon) {
			continue
		}
		if dock.Lat < minLat {
			minLat = dock.Lat
		}
		if dock.Lat > maxLat {
			maxLat = dock.Lat
		}
		if dock.Lon < minLon {
			minLon = dock.Lon
		}
		if dock.Lon > maxLon {
			maxLon = dock.Lon
		}
	}

	if minLat == math.MaxFloat64 || maxLat == -math.MaxFloat64 ||
		minLon == math.MaxFloat64 || maxLon == -math.MaxFloat64 {
		return BoundingBox{}, fmt.Errorf("no valid latitude/longitude found in docks")
	}

	return BoundingBox{
		MinLat: minLat,
		MaxLat: maxLat,
		MinLon: minLon,
		MaxLon: maxLon,
	}, nil
}
