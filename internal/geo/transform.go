package geo

// PointFunc transforms the first two components of a coordinate tuple.
type PointFunc func(x, y float64) (float64, float64)

// Apply runs fn over src at stride dim, writing results into dst and
// returning it. Only the first two components of each tuple are read and
// written; anything beyond that is opaque payload.
//
// A nil dst allocates: for dim == 2 a fresh slice of the same length, for
// wider tuples a clone of src so the payload components survive. dst may
// alias src (including dst == src) for in-place chaining.
func Apply(fn PointFunc, src, dst []float64, dim int) []float64 {
	if dim < 2 {
		dim = 2
	}
	if dst == nil {
		if dim == 2 {
			dst = make([]float64, len(src))
		} else {
			dst = append([]float64(nil), src...)
		}
	}
	for i := 0; i+1 < len(src); i += dim {
		dst[i], dst[i+1] = fn(src[i], src[i+1])
	}
	return dst
}

// Composed projection-to-projection conversions. Each stage feeds the
// previous stage's result directly, so the slice forms below reuse one
// buffer throughout.

// WGS84ToGCJMercator projects a WGS84 lon/lat to GCJ-02 Mercator meters.
func WGS84ToGCJMercator(lon, lat float64) (float64, float64) {
	return Forward(FromWGS84(lon, lat))
}

// GCJMercatorToWGS84 unprojects GCJ-02 Mercator meters to WGS84 lon/lat.
func GCJMercatorToWGS84(x, y float64) (float64, float64) {
	return ToWGS84(Inverse(x, y))
}

// MercatorToGCJMercator re-projects standard Web-Mercator meters into the
// GCJ-02 Mercator plane.
func MercatorToGCJMercator(x, y float64) (float64, float64) {
	lon, lat := Inverse(x, y)
	return Forward(FromWGS84(lon, lat))
}

// GCJMercatorToMercator re-projects GCJ-02 Mercator meters back into the
// standard Web-Mercator plane.
func GCJMercatorToMercator(x, y float64) (float64, float64) {
	lon, lat := Inverse(x, y)
	return Forward(ToWGS84(lon, lat))
}
