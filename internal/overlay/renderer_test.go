package overlay

import (
	"math"
	"strings"
	"testing"

	"github.com/beaconmap/beaconmap-go/internal/canvas"
	"github.com/beaconmap/beaconmap-go/internal/geo"
	"github.com/beaconmap/beaconmap-go/internal/grid"
	"github.com/beaconmap/beaconmap-go/internal/mapview"
	"github.com/beaconmap/beaconmap-go/internal/theme"
)

func newView() *mapview.View {
	return mapview.New(mapview.Options{
		Center:     geo.Coordinate{X: 82.9357, Y: 55.0084},
		Zoom:       13,
		Width:      120,
		Height:     40,
		CellAspect: 2,
	})
}

func newRenderer() *Renderer {
	return NewRenderer(Options{
		Grid:       grid.DefaultOptions(),
		Theme:      theme.Get("mono"),
		ShowGrid:   true,
		ShowLabels: true,
	})
}

// gridColumns returns the columns carrying a vertical grid glyph on a row that
// has no latitude line and no labels.
func gridColumns(t *testing.T, s *canvas.Surface, plan grid.Plan) []int {
	t.Helper()
	latRows := map[int]bool{}
	for _, l := range plan.Latitudes {
		latRows[int(math.Floor(l.Offset))] = true
	}
	row := -1
	for y := 1; y < s.Height()-1; y++ {
		if !latRows[y] {
			row = y
			break
		}
	}
	if row < 0 {
		t.Fatal("no free row to inspect")
	}
	var cols []int
	for x := 0; x < s.Width(); x++ {
		c, _ := s.At(x, row)
		if c.Char == glyphVertical || c.Char == glyphIntersection {
			cols = append(cols, x)
		}
	}
	return cols
}

func visibleColumns(plan grid.Plan, width int) []int {
	var cols []int
	for _, l := range plan.Longitudes {
		if x, ok := cellIndex(l.Offset, width); ok {
			cols = append(cols, x)
		}
	}
	return cols
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMount_PaintsGrid(t *testing.T) {
	view := newView()
	r := newRenderer()
	h := r.Mount(view)
	defer h.Close()

	if r.ActiveSurfaces() != 1 {
		t.Errorf("expected 1 active surface, got %d", r.ActiveSurfaces())
	}
	if view.ListenerCount() != 1 {
		t.Errorf("expected 1 view listener, got %d", view.ListenerCount())
	}

	s := h.Surface()
	if s.Width() != 120 || s.Height() != 40 {
		t.Errorf("expected surface sized to viewport, got %dx%d", s.Width(), s.Height())
	}

	plan := h.Plan()
	if plan.Empty() {
		t.Fatal("expected grid lines at zoom 13")
	}
	cols := gridColumns(t, s, plan)
	if len(cols) == 0 {
		t.Fatal("expected vertical grid lines on the surface")
	}
	if want := visibleColumns(plan, s.Width()); !equalInts(cols, want) {
		t.Errorf("surface columns %v do not match plan %v", cols, want)
	}
	if h.Redraws() != 1 {
		t.Errorf("expected a single paint on mount, got %d", h.Redraws())
	}
}

func TestViewChange_RepaintsWithoutAccumulation(t *testing.T) {
	view := newView()
	h := newRenderer().Mount(view)
	defer h.Close()

	before := h.Redraws()
	view.Pan(3, 0)
	view.ZoomIn()
	view.ZoomOut()
	if got := h.Redraws() - before; got != 3 {
		t.Errorf("expected 3 repaints, got %d", got)
	}

	s := h.Surface()
	plan := h.Plan()
	cols := gridColumns(t, s, plan)
	if want := visibleColumns(plan, s.Width()); !equalInts(cols, want) {
		t.Errorf("stale lines left on surface: got %v, plan %v", cols, want)
	}
	if h.State().Bounds != view.State().Bounds {
		t.Error("expected last painted state to match the view")
	}
}

func TestResize_FollowsViewport(t *testing.T) {
	view := newView()
	h := newRenderer().Mount(view)
	defer h.Close()

	view.Resize(60, 20)
	s := h.Surface()
	if s.Width() != 60 || s.Height() != 20 {
		t.Errorf("expected 60x20 surface, got %dx%d", s.Width(), s.Height())
	}

	view.Resize(0, 0)
	if !h.Plan().Empty() {
		t.Error("expected no lines for a zero-size viewport")
	}
	if h.Surface().Plain() != "" {
		t.Error("expected empty surface for a zero-size viewport")
	}
}

func TestClose_ReleasesEverything(t *testing.T) {
	view := newView()
	r := newRenderer()
	h := r.Mount(view)

	h.Close()
	h.Close()

	if r.ActiveSurfaces() != 0 {
		t.Errorf("expected no active surfaces, got %d", r.ActiveSurfaces())
	}
	if view.ListenerCount() != 0 {
		t.Errorf("expected no view listeners, got %d", view.ListenerCount())
	}
	if !h.Closed() {
		t.Error("expected handle to report closed")
	}

	redraws := h.Redraws()
	view.Pan(5, 5)
	h.Redraw(TriggerManual)
	h.SetBeacons([]geo.Beacon{{ID: "B1", Position: geo.Coordinate{X: 82.9, Y: 55}}})
	if h.Redraws() != redraws {
		t.Error("closed handle must not repaint")
	}
	if s := h.Surface(); s.Width() != 0 || s.Height() != 0 {
		t.Error("expected released surface")
	}

	var nilHandle *Handle
	nilHandle.Close()
}

func TestRemount_NoLeaks(t *testing.T) {
	view := newView()
	r := newRenderer()

	for i := 0; i < 5; i++ {
		h := r.Mount(view)
		view.Pan(1, 0)
		h.Close()
	}
	if r.ActiveSurfaces() != 0 {
		t.Errorf("expected no leaked surfaces, got %d", r.ActiveSurfaces())
	}
	if view.ListenerCount() != 0 {
		t.Errorf("expected no leaked listeners, got %d", view.ListenerCount())
	}
}

func TestSetBeacons_ExtendsGridRange(t *testing.T) {
	view := newView()
	h := newRenderer().Mount(view)
	defer h.Close()

	far := []geo.Beacon{{ID: "FAR", Position: geo.Coordinate{X: 83.2, Y: 55.1}}}
	h.SetBeacons(far)

	rng := h.Plan().Range
	if rng.East < 83.2 || rng.North < 55.1 {
		t.Errorf("expected range to include far beacon, got %+v", rng)
	}

	got := h.Beacons()
	got[0].ID = "changed"
	if h.Beacons()[0].ID != "FAR" {
		t.Error("Beacons must return a copy")
	}

	h.SetBeacons(nil)
	if len(h.Beacons()) != 0 {
		t.Error("expected beacon set to be cleared")
	}
	if h.Plan().Range != view.State().Bounds {
		t.Error("expected range to fall back to the visible bounds")
	}
}

func TestToggles(t *testing.T) {
	view := newView()
	h := newRenderer().Mount(view)
	defer h.Close()

	h.SetLabelsVisible(false)
	if h.LabelsVisible() {
		t.Error("expected labels hidden")
	}
	for _, l := range h.Plan().Latitudes {
		if strings.Contains(h.Surface().Plain(), l.Label) {
			t.Errorf("label %s drawn while labels are hidden", l.Label)
		}
	}

	h.SetGridVisible(false)
	if h.GridVisible() {
		t.Error("expected grid hidden")
	}
	if strings.TrimSpace(h.Surface().Plain()) != "" {
		t.Error("expected blank surface with grid hidden")
	}
	if !h.Plan().Empty() {
		t.Error("expected empty plan with grid hidden")
	}

	h.SetGridVisible(true)
	h.SetLabelsVisible(true)
	found := false
	for _, l := range h.Plan().Latitudes {
		if strings.Contains(h.Surface().Plain(), l.Label) {
			found = true
		}
	}
	if !found {
		t.Error("expected at least one latitude label")
	}
}

func TestSetTheme(t *testing.T) {
	view := newView()
	r := newRenderer()
	h := r.Mount(view)
	defer h.Close()

	th := theme.Get("blueprint")
	r.SetTheme(th)
	r.SetTheme(nil)
	h.Redraw(TriggerManual)

	plan := h.Plan()
	x, ok := cellIndex(plan.Longitudes[len(plan.Longitudes)/2].Offset, 120)
	if !ok {
		t.Skip("middle longitude line off screen")
	}
	c, _ := h.Surface().At(x, 1)
	if c.Color != th.Grid && c.Color != th.GridLabel {
		t.Errorf("expected blueprint grid color, got %q", c.Color)
	}
}

func TestMount_FarBeaconsKeepVisibleGrid(t *testing.T) {
	view := mapview.New(mapview.Options{
		Center:     geo.Coordinate{X: 82.93, Y: 55.5},
		Zoom:       17,
		Width:      80,
		Height:     24,
		CellAspect: 2,
	})
	h := newRenderer().Mount(view)
	defer h.Close()

	h.SetBeacons([]geo.Beacon{{ID: "B1", Position: geo.Coordinate{X: 82.93, Y: 55.00}}})
	plan := h.Plan()
	if !plan.Truncated {
		t.Fatal("expected the beacon union to exceed the line cap")
	}

	s := h.Surface()
	rows := 0
	for _, l := range plan.Latitudes {
		y, ok := cellIndex(l.Offset, s.Height())
		if !ok {
			continue
		}
		rows++
		if y == s.Height()-1 {
			// longitude labels share the bottom row
			continue
		}
		c, _ := s.At(s.Width()-1, y)
		if c.Char != glyphHorizontal && c.Char != glyphIntersection {
			t.Errorf("row %d should carry a latitude line, got %q", y, c.Char)
		}
	}
	if rows == 0 {
		t.Error("expected latitude lines inside the viewport")
	}
}

// resizingHost changes the view while the overlay subscribes
type resizingHost struct {
	*mapview.View
}

func (h resizingHost) Subscribe(fn func(mapview.Change)) *mapview.Subscription {
	h.View.Resize(60, 20)
	return h.View.Subscribe(fn)
}

func TestMount_SeesChangeDuringSubscribe(t *testing.T) {
	view := newView()
	h := newRenderer().Mount(resizingHost{view})
	defer h.Close()

	s := h.Surface()
	if s.Width() != 60 || s.Height() != 20 {
		t.Errorf("expected surface to follow the resize, got %dx%d", s.Width(), s.Height())
	}
	if st := h.State(); st.Width != 60 || st.Height != 20 {
		t.Errorf("expected painted state 60x20, got %dx%d", st.Width, st.Height)
	}
}
