// Package geo provides coordinates, bounds and the viewport projection used by the beacon map
package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// Coordinate is a WGS84 position: X is longitude, Y is latitude (degrees)
type Coordinate struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Lng returns the longitude
func (c Coordinate) Lng() float64 { return c.X }

// Lat returns the latitude
func (c Coordinate) Lat() float64 { return c.Y }

// Valid reports whether both components are finite numbers
func (c Coordinate) Valid() bool {
	return !math.IsNaN(c.X) && !math.IsNaN(c.Y) && !math.IsInf(c.X, 0) && !math.IsInf(c.Y, 0)
}

// Point converts the coordinate to an orb point
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.X, c.Y}
}

// Bounds is a geographic rectangle
type Bounds struct {
	South float64 `json:"south"`
	North float64 `json:"north"`
	West  float64 `json:"west"`
	East  float64 `json:"east"`
}

// BoundsFromOrb converts an orb bound
func BoundsFromOrb(b orb.Bound) Bounds {
	return Bounds{
		South: b.Bottom(),
		North: b.Top(),
		West:  b.Left(),
		East:  b.Right(),
	}
}

// Bound converts to an orb bound
func (b Bounds) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.West, b.South},
		Max: orb.Point{b.East, b.North},
	}
}

// Union returns the smallest bounds containing both b and o
func (b Bounds) Union(o Bounds) Bounds {
	return BoundsFromOrb(b.Bound().Union(o.Bound()))
}

// Extend returns b grown to include c
func (b Bounds) Extend(c Coordinate) Bounds {
	return BoundsFromOrb(b.Bound().Extend(c.Point()))
}

// Contains reports whether c lies inside b (edges included)
func (b Bounds) Contains(c Coordinate) bool {
	return b.Bound().Contains(c.Point())
}

// Center returns the midpoint of the bounds
func (b Bounds) Center() Coordinate {
	return Coordinate{X: (b.West + b.East) / 2, Y: (b.South + b.North) / 2}
}

// Finite reports whether every edge is a finite number
func (b Bounds) Finite() bool {
	for _, v := range []float64{b.South, b.North, b.West, b.East} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// CoordinatesBounds returns the bounding box of the valid coordinates.
// ok is false when no valid coordinate is present.
func CoordinatesBounds(coords []Coordinate) (b Bounds, ok bool) {
	mp := make(orb.MultiPoint, 0, len(coords))
	for _, c := range coords {
		if c.Valid() {
			mp = append(mp, c.Point())
		}
	}
	if len(mp) == 0 {
		return Bounds{}, false
	}
	return BoundsFromOrb(mp.Bound()), true
}

// ViewState describes what the host map currently shows
type ViewState struct {
	Bounds Bounds
	Zoom   int
	Width  int
	Height int
	// CellAspect is the height/width ratio of one viewport cell (2 for most terminal fonts)
	CellAspect float64
}

// Aspect returns the cell aspect, treating unset values as square cells
func (v ViewState) Aspect() float64 {
	if v.CellAspect <= 0 || math.IsNaN(v.CellAspect) || math.IsInf(v.CellAspect, 0) {
		return 1
	}
	return v.CellAspect
}

// Empty reports whether the viewport has no drawable area
func (v ViewState) Empty() bool {
	return v.Width <= 0 || v.Height <= 0
}
