package itinerary

import (
	"math"

	"github.com/pierosc/japan-itinerary/internal/types"
)

// Assumed travel speeds per mode, used only for rough leg hints shown
// between consecutive places; real durations come from the routing
// collaborator or the user.
var speedsKmh = map[types.TravelMode]float64{
	types.ModeWalk:  4.5,
	types.ModeTrain: 60,
	types.ModeCar:   35,
}

const earthRadiusKm = 6371

// HaversineKm returns the great-circle distance between two coordinates.
func HaversineKm(a, b types.Coordinate) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	la := a.Lat * math.Pi / 180
	lb := b.Lat * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(la)*math.Cos(lb)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// EstimateLeg returns the straight-line distance and an approximate travel
// time in minutes between two coordinates for the given mode. Unknown modes
// fall back to walking speed.
func EstimateLeg(from, to types.Coordinate, mode types.TravelMode) (km float64, minutes int) {
	km = HaversineKm(from, to)
	speed, ok := speedsKmh[mode]
	if !ok {
		speed = speedsKmh[types.ModeWalk]
	}
	minutes = int(math.Round(km / speed * 60))
	return km, minutes
}
