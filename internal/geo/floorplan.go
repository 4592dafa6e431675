package geo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Landmark is a named point on a floor plan (room label, door, etc.)
type Landmark struct {
	Coordinate
	Label string
}

// FloorPlan holds the outlines drawn under the grid and track
type FloorPlan struct {
	Name       string
	Lines      [][]Coordinate
	Landmarks  []Landmark
	SourceFile string
}

// Bounds returns the bounding box of every outline vertex and landmark
func (f *FloorPlan) Bounds() (Bounds, bool) {
	if f == nil {
		return Bounds{}, false
	}
	var all []Coordinate
	for _, line := range f.Lines {
		all = append(all, line...)
	}
	for _, l := range f.Landmarks {
		all = append(all, l.Coordinate)
	}
	return CoordinatesBounds(all)
}

// LoadFloorPlan reads a GeoJSON FeatureCollection (or a bare Feature) from disk
func LoadFloorPlan(path string) (*FloorPlan, error) {
	path = os.ExpandEnv(path)
	if strings.HasPrefix(path, "~") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[1:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read floor plan: %w", err)
	}

	plan, err := ParseFloorPlan(data)
	if err != nil {
		return nil, fmt.Errorf("parse floor plan %s: %w", path, err)
	}
	if plan.Name == "" {
		plan.Name = filepath.Base(path)
	}
	plan.SourceFile = path
	return plan, nil
}

// ParseFloorPlan decodes GeoJSON bytes into a floor plan
func ParseFloorPlan(data []byte) (*FloorPlan, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil || len(fc.Features) == 0 {
		// A single Feature is also accepted
		f, ferr := geojson.UnmarshalFeature(data)
		if ferr != nil {
			if err != nil {
				return nil, err
			}
			return nil, ferr
		}
		fc = geojson.NewFeatureCollection()
		fc.Append(f)
	}

	plan := &FloorPlan{}
	if fc.ExtraMembers != nil {
		plan.Name = fc.ExtraMembers.MustString("name", "")
	}

	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		label := featureLabel(f.Properties)
		addGeometry(plan, f.Geometry, label)
	}
	return plan, nil
}

func featureLabel(props geojson.Properties) string {
	for _, key := range []string{"name", "NAME", "Name", "label", "id"} {
		if s := props.MustString(key, ""); s != "" {
			return s
		}
	}
	return ""
}

func addGeometry(plan *FloorPlan, g orb.Geometry, label string) {
	switch geom := g.(type) {
	case orb.Point:
		plan.Landmarks = append(plan.Landmarks, Landmark{
			Coordinate: Coordinate{X: geom.X(), Y: geom.Y()},
			Label:      label,
		})
	case orb.MultiPoint:
		for _, p := range geom {
			addGeometry(plan, p, label)
		}
	case orb.LineString:
		addLine(plan, geom)
	case orb.MultiLineString:
		for _, ls := range geom {
			addLine(plan, ls)
		}
	case orb.Ring:
		addLine(plan, closeRing(geom))
	case orb.Polygon:
		if len(geom) > 0 {
			addLine(plan, closeRing(geom[0]))
		}
	case orb.MultiPolygon:
		for _, poly := range geom {
			addGeometry(plan, poly, label)
		}
	case orb.Collection:
		for _, inner := range geom {
			addGeometry(plan, inner, label)
		}
	}
}

func closeRing(r orb.Ring) orb.LineString {
	ls := orb.LineString(r)
	if len(ls) > 0 && !ls[0].Equal(ls[len(ls)-1]) {
		ls = append(ls, ls[0])
	}
	return ls
}

func addLine(plan *FloorPlan, ls orb.LineString) {
	line := make([]Coordinate, 0, len(ls))
	for _, p := range ls {
		c := Coordinate{X: p.X(), Y: p.Y()}
		if c.Valid() {
			line = append(line, c)
		}
	}
	if len(line) > 1 {
		plan.Lines = append(plan.Lines, line)
	}
}
