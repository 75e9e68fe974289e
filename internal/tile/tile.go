// Package tile defines the structured tile key shared by every cache tier
// and the helpers that map geographic regions onto the tile pyramid.
package tile

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/maptile/tilecover"
)

// MaxZoom bounds the pyramid depth accepted anywhere in the service.
const MaxZoom = 30

// Key addresses one raster tile across all cache tiers. Integer fields keep
// the key collision-free; string keys built by concatenation are derived
// from it in exactly one place each.
type Key struct {
	Z, X, Y int
	Format  string
}

func New(z, x, y int, format string) Key {
	return Key{Z: z, X: x, Y: y, Format: format}
}

// Valid reports whether the key addresses a real tile: zoom within bounds
// and x/y inside the 2^z grid.
func (k Key) Valid() bool {
	if k.Z < 0 || k.Z > MaxZoom {
		return false
	}
	n := 1 << uint(k.Z)
	return k.X >= 0 && k.X < n && k.Y >= 0 && k.Y < n
}

// String renders the conventional z/x/y.format path form.
func (k Key) String() string {
	return fmt.Sprintf("%d/%d/%d.%s", k.Z, k.X, k.Y, k.Format)
}

// StoreKey renders the durable-store key. Fields are delimited so distinct
// triples can never collide.
func (k Key) StoreKey() string {
	return fmt.Sprintf("tiles:%s:%d:%d:%d", k.Format, k.Z, k.X, k.Y)
}

// FillTemplate substitutes the key into a URL template containing
// {z}, {x}, {y} and {format} placeholders.
func (k Key) FillTemplate(tpl string) string {
	r := strings.NewReplacer(
		"{z}", fmt.Sprintf("%d", k.Z),
		"{x}", fmt.Sprintf("%d", k.X),
		"{y}", fmt.Sprintf("%d", k.Y),
		"{format}", k.Format,
	)
	return r.Replace(tpl)
}

// ContentType returns the MIME type for the key's raster format.
func ContentType(format string) string {
	switch strings.ToLower(format) {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// Coverage returns every tile key intersecting the WGS84 bounding box over
// the inclusive zoom range, one set per zoom level.
func Coverage(minLon, minLat, maxLon, maxLat float64, zoomMin, zoomMax int, format string) []Key {
	if zoomMin < 0 {
		zoomMin = 0
	}
	if zoomMax > MaxZoom {
		zoomMax = MaxZoom
	}
	if zoomMin > zoomMax {
		return nil
	}

	bound := orb.Bound{
		Min: orb.Point{minLon, minLat},
		Max: orb.Point{maxLon, maxLat},
	}

	var out []Key
	for z := zoomMin; z <= zoomMax; z++ {
		set := tilecover.Bound(bound, maptile.Zoom(z))
		for t := range set {
			out = append(out, Key{Z: int(t.Z), X: int(t.X), Y: int(t.Y), Format: format})
		}
	}
	return out
}
