package overlay

import (
	"math"

	"github.com/charmbracelet/lipgloss"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"

	"github.com/beaconmap/beaconmap-go/internal/canvas"
	"github.com/beaconmap/beaconmap-go/internal/geo"
	"github.com/beaconmap/beaconmap-go/internal/theme"
)

// Scene glyphs
const (
	GlyphBeacon    = '▲'
	GlyphPath      = '·'
	GlyphTrack     = '•'
	GlyphTrackHead = '◉'
	GlyphFloorPlan = '░'
	GlyphLandmark  = '◇'
)

// Scene is the data drawn over the grid. Nil or empty layers are skipped.
type Scene struct {
	FloorPlan *geo.FloorPlan
	Path      []geo.Coordinate
	Track     []geo.Coordinate
	Beacons   []geo.Beacon
	// DeviceID labels the current track position
	DeviceID string
}

// DrawScene paints the scene layers bottom to top: floor plan, path, track,
// beacons, then the current track position.
func DrawScene(s *canvas.Surface, p geo.Projector, sc Scene, th *theme.Theme) {
	if s == nil || th == nil {
		return
	}

	if sc.FloorPlan != nil {
		for _, line := range sc.FloorPlan.Lines {
			drawPolyline(s, p, line, GlyphFloorPlan, th.FloorPlan, false)
		}
		for _, lm := range sc.FloorPlan.Landmarks {
			if x, y, ok := p.Cell(lm.Coordinate); ok {
				s.Set(x, y, GlyphLandmark, th.Landmark)
				s.Text(x+2, y, lm.Label, th.Landmark)
			}
		}
	}

	drawPolyline(s, p, sc.Path, GlyphPath, th.Path, true)
	drawPolyline(s, p, sc.Track, GlyphTrack, th.Track, false)

	for _, b := range sc.Beacons {
		if x, y, ok := p.Cell(b.Position); ok {
			s.Set(x, y, GlyphBeacon, th.Beacon)
			s.Text(x+1, y, b.ID, th.Beacon)
		}
	}

	if head, ok := lastValid(sc.Track); ok {
		if x, y, ok := p.Cell(head); ok {
			s.Set(x, y, GlyphTrackHead, th.TrackHead)
			if sc.DeviceID != "" {
				s.Text(x+2, y, sc.DeviceID, th.TrackHead)
			}
		}
	}
}

// drawPolyline connects consecutive valid points with Bresenham segments,
// clipped to the surface first so off-screen endpoints still draw their
// visible part. Dotted lines only set every other cell of each segment.
func drawPolyline(s *canvas.Surface, p geo.Projector, pts []geo.Coordinate, ch rune, color lipgloss.Color, dotted bool) {
	view := orb.Bound{
		Min: orb.Point{-1, -1},
		Max: orb.Point{float64(s.Width()), float64(s.Height())},
	}

	var run orb.LineString
	flush := func() {
		switch len(run) {
		case 0:
		case 1:
			if view.Contains(run[0]) {
				s.Set(int(math.Floor(run[0][0])), int(math.Floor(run[0][1])), ch, color)
			}
		default:
			for _, part := range clip.LineString(view, run) {
				rasterize(s, part, ch, color, dotted)
			}
		}
		run = nil
	}

	for _, c := range pts {
		if !c.Valid() {
			continue
		}
		px := p.ToPixel(c)
		if !finite(px.X) || !finite(px.Y) {
			flush()
			continue
		}
		run = append(run, orb.Point{px.X, px.Y})
	}
	flush()
}

func rasterize(s *canvas.Surface, ls orb.LineString, ch rune, color lipgloss.Color, dotted bool) {
	for i := range ls {
		x := int(math.Floor(ls[i][0]))
		y := int(math.Floor(ls[i][1]))
		if i == 0 {
			s.Set(x, y, ch, color)
			continue
		}
		px := int(math.Floor(ls[i-1][0]))
		py := int(math.Floor(ls[i-1][1]))
		for j, pt := range geo.BresenhamLine(px, py, x, y) {
			if dotted && j%2 == 1 {
				continue
			}
			s.Set(pt[0], pt[1], ch, color)
		}
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func lastValid(pts []geo.Coordinate) (geo.Coordinate, bool) {
	for i := len(pts) - 1; i >= 0; i-- {
		if pts[i].Valid() {
			return pts[i], true
		}
	}
	return geo.Coordinate{}, false
}
