// Package invalidation defines the tile invalidation event schema.
package invalidation

import (
	"fmt"
	"strings"
	"time"
)

const (
	OpFlush  = "flush"
	OpTile   = "tile"
	OpRegion = "region"
)

// Event is one invalidation message. Seq orders retried deliveries of
// the same logical event so consumers can drop stale replays.
type Event struct {
	Version int       `json:"version"`
	Op      string    `json:"op"`
	TS      time.Time `json:"ts"`
	Source  string    `json:"source,omitempty"`
	Seq     uint64    `json:"seq"`

	// Tile addressing, used by op=tile.
	Z      int    `json:"z,omitempty"`
	X      int    `json:"x,omitempty"`
	Y      int    `json:"y,omitempty"`
	Format string `json:"format,omitempty"`

	// BBox in WGS84 degrees, used by op=region.
	BBox *BBox `json:"bbox,omitempty"`
}

type BBox struct {
	X1   float64 `json:"x1"`
	Y1   float64 `json:"y1"`
	X2   float64 `json:"x2"`
	Y2   float64 `json:"y2"`
	SRID string  `json:"srid"`
}

func (e Event) Validate() error {
	if e.Version != 1 {
		return fmt.Errorf("version must be 1")
	}
	if e.TS.IsZero() {
		return fmt.Errorf("ts is required")
	}
	switch e.Op {
	case OpFlush:
		return nil
	case OpTile:
		if e.Z < 0 || e.Z > 30 {
			return fmt.Errorf("z out of range")
		}
		max := 1 << uint(e.Z)
		if e.X < 0 || e.X >= max || e.Y < 0 || e.Y >= max {
			return fmt.Errorf("x/y out of range for zoom %d", e.Z)
		}
		return nil
	case OpRegion:
		if e.BBox == nil {
			return fmt.Errorf("region event requires bbox")
		}
		bb := *e.BBox
		if bb.SRID != "" && bb.SRID != "EPSG:4326" {
			return fmt.Errorf("bbox.srid must be EPSG:4326")
		}
		if !(bb.X1 >= -180 && bb.X1 <= 180 && bb.X2 >= -180 && bb.X2 <= 180) {
			return fmt.Errorf("bbox longitude out of range")
		}
		if !(bb.Y1 >= -90 && bb.Y1 <= 90 && bb.Y2 >= -90 && bb.Y2 <= 90) {
			return fmt.Errorf("bbox latitude out of range")
		}
		if !(bb.X2 > bb.X1 && bb.Y2 > bb.Y1) {
			return fmt.Errorf("bbox must satisfy x2>x1 and y2>y1")
		}
		return nil
	default:
		return fmt.Errorf("op must be flush|tile|region")
	}
}

// DedupeKey identifies the logical target of the event, so that Seq can
// be compared per target.
func (e Event) DedupeKey() string {
	switch e.Op {
	case OpTile:
		return fmt.Sprintf("tile:%s:%d:%d:%d", strings.ToLower(e.Format), e.Z, e.X, e.Y)
	case OpRegion:
		return fmt.Sprintf("region:%.6f:%.6f:%.6f:%.6f", e.BBox.X1, e.BBox.Y1, e.BBox.X2, e.BBox.Y2)
	default:
		return "flush"
	}
}
