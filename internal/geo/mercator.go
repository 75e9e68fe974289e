package geo

import "math"

const (
	// EarthRadius is the spherical Mercator radius (EPSG:3857).
	EarthRadius = 6378137.0

	// maxLatitude keeps the projection finite near the poles.
	maxLatitude = 85.0511287798

	deg2rad = math.Pi / 180.0
)

// Forward projects a lon/lat pair (degrees) to spherical Mercator meters.
func Forward(lon, lat float64) (x, y float64) {
	if lat > maxLatitude {
		lat = maxLatitude
	} else if lat < -maxLatitude {
		lat = -maxLatitude
	}
	x = EarthRadius * lon * deg2rad
	sin := math.Sin(lat * deg2rad)
	y = EarthRadius * math.Log((1+sin)/(1-sin)) / 2
	return x, y
}

// Inverse unprojects spherical Mercator meters back to lon/lat degrees.
func Inverse(x, y float64) (lon, lat float64) {
	lon = x / EarthRadius / deg2rad
	lat = (2*math.Atan(math.Exp(y/EarthRadius)) - math.Pi/2) / deg2rad
	return lon, lat
}
