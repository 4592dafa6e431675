package overlay

import (
	"math"
	"strings"
	"testing"

	"github.com/beaconmap/beaconmap-go/internal/canvas"
	"github.com/beaconmap/beaconmap-go/internal/geo"
	"github.com/beaconmap/beaconmap-go/internal/mapview"
	"github.com/beaconmap/beaconmap-go/internal/theme"
)

func TestDrawScene_EmptyDrawsGridOnly(t *testing.T) {
	view := newView()
	h := newRenderer().Mount(view)
	defer h.Close()

	gridOnly := h.Surface()
	frame := gridOnly.Clone()
	DrawScene(frame, view.Projector(), Scene{}, theme.Get("mono"))

	if frame.Plain() != gridOnly.Plain() {
		t.Error("expected an empty scene to leave the grid untouched")
	}
	for _, g := range []string{string(GlyphBeacon), string(GlyphTrack), string(GlyphTrackHead), string(GlyphPath)} {
		if strings.Contains(frame.Plain(), g) {
			t.Errorf("unexpected marker %q on empty scene", g)
		}
	}
}

func TestDrawScene_Beacons(t *testing.T) {
	view := newView()
	proj := view.Projector()
	s := canvas.New(120, 40)

	pos := proj.FromPixel(geo.Pixel{X: 30.5, Y: 10.5})
	DrawScene(s, proj, Scene{
		Beacons: []geo.Beacon{
			{ID: "B1", Position: pos},
			{ID: "OFF", Position: geo.Coordinate{X: 10, Y: 10}},
		},
	}, theme.Get("mono"))

	c, _ := s.At(30, 10)
	if c.Char != GlyphBeacon {
		t.Errorf("expected beacon glyph at (30,10), got %q", c.Char)
	}
	row := strings.Split(s.Plain(), "\n")[10]
	if !strings.Contains(row, "▲B1") {
		t.Errorf("expected beacon id next to marker, got %q", row)
	}
	if strings.Contains(s.Plain(), "OFF") {
		t.Error("off-screen beacon must not be drawn")
	}
}

func TestDrawScene_TrackAndHead(t *testing.T) {
	view := newView()
	proj := view.Projector()
	s := canvas.New(120, 40)

	a := proj.FromPixel(geo.Pixel{X: 10.5, Y: 20.5})
	b := proj.FromPixel(geo.Pixel{X: 20.5, Y: 20.5})
	DrawScene(s, proj, Scene{
		Track:    []geo.Coordinate{a, b},
		DeviceID: "tracker_1",
	}, theme.Get("mono"))

	for x := 10; x < 20; x++ {
		c, _ := s.At(x, 20)
		if c.Char != GlyphTrack {
			t.Errorf("expected track glyph at (%d,20), got %q", x, c.Char)
		}
	}
	head, _ := s.At(20, 20)
	if head.Char != GlyphTrackHead {
		t.Errorf("expected head marker at last point, got %q", head.Char)
	}
	if !strings.Contains(s.Plain(), "tracker_1") {
		t.Error("expected device id next to the head marker")
	}
}

func TestDrawScene_PathIsDotted(t *testing.T) {
	view := newView()
	proj := view.Projector()
	s := canvas.New(120, 40)

	a := proj.FromPixel(geo.Pixel{X: 10.5, Y: 5.5})
	b := proj.FromPixel(geo.Pixel{X: 20.5, Y: 5.5})
	DrawScene(s, proj, Scene{Path: []geo.Coordinate{a, b}}, theme.Get("mono"))

	row := []rune(strings.Split(s.Plain(), "\n")[5])
	if row[10] != GlyphPath || row[11] != ' ' || row[12] != GlyphPath {
		t.Errorf("expected dotted path, got %q", string(row[8:22]))
	}
}

func TestDrawScene_FloorPlan(t *testing.T) {
	view := newView()
	proj := view.Projector()
	s := canvas.New(120, 40)

	a := proj.FromPixel(geo.Pixel{X: 40.5, Y: 2.5})
	b := proj.FromPixel(geo.Pixel{X: 40.5, Y: 8.5})
	lm := proj.FromPixel(geo.Pixel{X: 50.5, Y: 30.5})
	DrawScene(s, proj, Scene{FloorPlan: &geo.FloorPlan{
		Lines:     [][]geo.Coordinate{{a, b}},
		Landmarks: []geo.Landmark{{Coordinate: lm, Label: "Exit"}},
	}}, theme.Get("mono"))

	for y := 2; y <= 8; y++ {
		c, _ := s.At(40, y)
		if c.Char != GlyphFloorPlan {
			t.Errorf("expected wall glyph at (40,%d), got %q", y, c.Char)
		}
	}
	c, _ := s.At(50, 30)
	if c.Char != GlyphLandmark {
		t.Errorf("expected landmark glyph, got %q", c.Char)
	}
	if !strings.Contains(s.Plain(), "Exit") {
		t.Error("expected landmark label")
	}
}

func TestDrawScene_SkipsInvalidPoints(t *testing.T) {
	view := newView()
	proj := view.Projector()
	s := canvas.New(120, 40)

	a := proj.FromPixel(geo.Pixel{X: 5.5, Y: 5.5})
	nan := geo.Coordinate{X: math.NaN(), Y: 55}
	DrawScene(s, proj, Scene{Track: []geo.Coordinate{a, nan}}, theme.Get("mono"))

	c, _ := s.At(5, 5)
	if c.Char != GlyphTrackHead {
		t.Errorf("expected last valid point as head, got %q", c.Char)
	}

	DrawScene(nil, proj, Scene{}, theme.Get("mono"))
}

func TestDrawScene_ClipsOffscreenSegments(t *testing.T) {
	view := mapview.New(mapview.Options{
		Center:     geo.Coordinate{X: 82.93, Y: 55.0},
		Zoom:       18,
		Width:      40,
		Height:     10,
		CellAspect: 2,
	})
	proj := view.Projector()
	s := canvas.New(40, 10)

	far := proj.FromPixel(geo.Pixel{X: -3e6, Y: 5.5})
	near := proj.FromPixel(geo.Pixel{X: 30.5, Y: 5.5})
	west := proj.FromPixel(geo.Pixel{X: -20000, Y: 2.5})
	east := proj.FromPixel(geo.Pixel{X: 20000, Y: 2.5})
	DrawScene(s, proj, Scene{
		Track: []geo.Coordinate{far, near},
		Path:  []geo.Coordinate{west, east},
	}, theme.Get("mono"))

	for x := 0; x < 30; x++ {
		c, _ := s.At(x, 5)
		if c.Char != GlyphTrack {
			t.Errorf("expected track glyph at (%d,5), got %q", x, c.Char)
		}
	}
	if head, _ := s.At(30, 5); head.Char != GlyphTrackHead {
		t.Errorf("expected head marker at (30,5), got %q", head.Char)
	}

	dots := strings.Count(strings.Split(s.Plain(), "\n")[2], string(GlyphPath))
	if dots < 18 {
		t.Errorf("expected a dotted path across row 2, got %d dots", dots)
	}
}
