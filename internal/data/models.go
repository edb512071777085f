// internal/data/models.go
package data

import "time"

// LocationData - Last known device position
type LocationData struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// SignalStrength values reported on the status topic
const (
	SignalGood   = "good"
	SignalMedium = "medium"
	SignalPoor   = "poor"
)

// DeviceStatus - Fields are merged per-message; an absent field in an
// incoming status message keeps its previous value.
type DeviceStatus struct {
	Battery        int     `json:"battery"`        // percentage
	SignalStrength string  `json:"signalStrength"` // good | medium | poor
	DeviceID       string  `json:"deviceId"`
	SpeedKmh       float64 `json:"speed"` // km/h, also fed by location messages
}

// Geofence - circular boundary around a center point
type Geofence struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Radius float64 `json:"radius"` // meters
}

// TrackPoint - a single recorded position for the recent-track buffer
type TrackPoint struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	SpeedKmh  float64   `json:"speed,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
