// Package geo converts coordinates between WGS84, GCJ-02 and spherical
// Mercator, including the composed projections used by the tile pipeline.
//
// The GCJ-02 offset series below reproduces the empirical constants used by
// Chinese map providers. The exact coefficients are load-bearing: any
// deviation shifts tiles visibly against upstream imagery.
package geo

import "math"

// Krasovsky 1940 ellipsoid, the reference ellipsoid of the GCJ-02 datum.
const (
	krasovskyA  = 6378245.0
	krasovskyE2 = 0.00669342162296594323
)

// China bounding region. Outside it GCJ-02 and WGS84 are identical.
const (
	chinaLonMin = 72.004
	chinaLonMax = 137.8347
	chinaLatMin = 0.8293
	chinaLatMax = 55.8271
)

// OutOfChina reports whether the point lies outside the region where the
// GCJ-02 offset applies.
func OutOfChina(lon, lat float64) bool {
	return lon < chinaLonMin || lon > chinaLonMax || lat < chinaLatMin || lat > chinaLatMax
}

// delta computes the GCJ-02 offset in degrees for a WGS84 point. The series
// is anchored at (105E, 35N) and scaled by the ellipsoid curvature at the
// point's latitude.
func delta(lon, lat float64) (dLon, dLat float64) {
	dLat = transformLat(lon-105.0, lat-35.0)
	dLon = transformLon(lon-105.0, lat-35.0)

	radLat := lat / 180.0 * math.Pi
	magic := math.Sin(radLat)
	magic = 1 - krasovskyE2*magic*magic
	sqrtMagic := math.Sqrt(magic)

	dLat = (dLat * 180.0) / ((krasovskyA * (1 - krasovskyE2)) / (magic * sqrtMagic) * math.Pi)
	dLon = (dLon * 180.0) / (krasovskyA / sqrtMagic * math.Cos(radLat) * math.Pi)
	return dLon, dLat
}

func transformLat(x, y float64) float64 {
	ret := -100.0 + 2.0*x + 3.0*y + 0.2*y*y +
		0.1*x*y + 0.2*math.Sqrt(math.Abs(x))
	ret += (20.0*math.Sin(6.0*x*math.Pi) + 20.0*math.Sin(2.0*x*math.Pi)) * 2.0 / 3.0
	ret += (20.0*math.Sin(y*math.Pi) + 40.0*math.Sin(y/3.0*math.Pi)) * 2.0 / 3.0
	ret += (160.0*math.Sin(y/12.0*math.Pi) + 320.0*math.Sin(y*math.Pi/30.0)) * 2.0 / 3.0
	return ret
}

func transformLon(x, y float64) float64 {
	ret := 300.0 + x + 2.0*y + 0.1*x*x +
		0.1*x*y + 0.1*math.Sqrt(math.Abs(x))
	ret += (20.0*math.Sin(6.0*x*math.Pi) + 20.0*math.Sin(2.0*x*math.Pi)) * 2.0 / 3.0
	ret += (20.0*math.Sin(x*math.Pi) + 40.0*math.Sin(x/3.0*math.Pi)) * 2.0 / 3.0
	ret += (150.0*math.Sin(x/12.0*math.Pi) + 300.0*math.Sin(x/30.0*math.Pi)) * 2.0 / 3.0
	return ret
}

// FromWGS84 converts a WGS84 point to GCJ-02. Points outside China pass
// through unchanged.
func FromWGS84(lon, lat float64) (float64, float64) {
	if OutOfChina(lon, lat) {
		return lon, lat
	}
	dLon, dLat := delta(lon, lat)
	return lon + dLon, lat + dLat
}

// ToWGS84 converts a GCJ-02 point back to WGS84 by applying the negated
// offset. The offset is evaluated at the GCJ-02 point, so the round trip is
// accurate to within a couple of meters rather than exact.
func ToWGS84(lon, lat float64) (float64, float64) {
	if OutOfChina(lon, lat) {
		return lon, lat
	}
	dLon, dLat := delta(lon, lat)
	return lon - dLon, lat - dLat
}
