package geo

import (
	"math"
	"testing"
)

func TestFromWGS84_ShiftsInsideChina(t *testing.T) {
	// Shanghai. The GCJ-02 offset there is on the order of hundreds of meters.
	lon, lat := FromWGS84(121.473701, 31.230416)
	dLon := math.Abs(lon - 121.473701)
	dLat := math.Abs(lat - 31.230416)
	if dLon == 0 && dLat == 0 {
		t.Fatalf("expected non-zero offset inside China, got identity")
	}
	// Roughly 1e-5 deg ~ 1 m; the offset should be tens to hundreds of meters.
	if dLon < 1e-4 || dLon > 1e-1 || dLat < 1e-5 || dLat > 1e-1 {
		t.Fatalf("offset out of plausible range: dLon=%g dLat=%g", dLon, dLat)
	}
}

func TestOffset_IdentityOutsideChina(t *testing.T) {
	pts := [][2]float64{
		{-74.0, 40.7},    // New York
		{2.3522, 48.86},  // Paris
		{139.69, -35.68}, // lon beyond the east edge
		{100.0, 0.5},     // below the south edge
	}
	for _, p := range pts {
		if lon, lat := FromWGS84(p[0], p[1]); lon != p[0] || lat != p[1] {
			t.Fatalf("FromWGS84(%v) = (%g,%g), want identity", p, lon, lat)
		}
		if lon, lat := ToWGS84(p[0], p[1]); lon != p[0] || lat != p[1] {
			t.Fatalf("ToWGS84(%v) = (%g,%g), want identity", p, lon, lat)
		}
	}
}

func TestOffset_RoundTripInsideChina(t *testing.T) {
	pts := [][2]float64{
		{121.473701, 31.230416}, // Shanghai
		{116.397128, 39.916527}, // Beijing
		{104.066541, 30.572269}, // Chengdu
		{87.616848, 43.825592},  // Urumqi
	}
	// The offset is not perfectly involutive; a couple of meters of slack.
	const eps = 1e-4
	for _, p := range pts {
		gLon, gLat := FromWGS84(p[0], p[1])
		wLon, wLat := ToWGS84(gLon, gLat)
		if math.Abs(wLon-p[0]) > eps || math.Abs(wLat-p[1]) > eps {
			t.Fatalf("round trip of %v drifted to (%g,%g)", p, wLon, wLat)
		}
	}
}

func TestOutOfChina_Edges(t *testing.T) {
	cases := []struct {
		lon, lat float64
		out      bool
	}{
		{72.004, 35, false},
		{137.8347, 35, false},
		{105, 0.8293, false},
		{105, 55.8271, false},
		{72.0039, 35, true},
		{137.8348, 35, true},
		{105, 0.8292, true},
		{105, 55.8272, true},
	}
	for _, c := range cases {
		if got := OutOfChina(c.lon, c.lat); got != c.out {
			t.Fatalf("OutOfChina(%g,%g) = %v, want %v", c.lon, c.lat, got, c.out)
		}
	}
}
