// internal/geofence/geofence.go
package geofence

import (
	"math"

	"github.com/farhanj21/ArduinoLocationTracker/internal/data"
)

const earthRadiusM = 6371e3

// Distance returns the great-circle distance in meters between two
// coordinates using the haversine formula.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusM * c
}

// Contains reports whether a point lies inside the fence boundary.
func Contains(fence data.Geofence, point data.LocationData) bool {
	return Distance(point.Lat, point.Lng, fence.Lat, fence.Lng) <= fence.Radius
}
