package geofence

import (
	"math"
	"testing"

	"github.com/farhanj21/ArduinoLocationTracker/internal/data"
)

func TestDistanceKnownPoints(t *testing.T) {
	// Karachi city center to a point roughly 1.57km east
	d := Distance(24.8607, 67.0011, 24.8607, 67.0166)
	if math.Abs(d-1566) > 30 {
		t.Errorf("distance = %.0fm, want ~1566m", d)
	}

	if d := Distance(24.8607, 67.0011, 24.8607, 67.0011); d != 0 {
		t.Errorf("distance to self = %v, want 0", d)
	}
}

func TestContains(t *testing.T) {
	fence := data.Geofence{Lat: 24.8607, Lng: 67.0011, Radius: 500}

	if !Contains(fence, data.LocationData{Lat: 24.8607, Lng: 67.0011}) {
		t.Error("center must be inside")
	}
	// ~110m north
	if !Contains(fence, data.LocationData{Lat: 24.8617, Lng: 67.0011}) {
		t.Error("point 110m away must be inside a 500m fence")
	}
	// ~1.1km north
	if Contains(fence, data.LocationData{Lat: 24.8707, Lng: 67.0011}) {
		t.Error("point 1.1km away must be outside a 500m fence")
	}
}
