// Package overlay paints the adaptive coordinate grid over the host map.
//
// A Renderer hands out one Handle per mounted view. The handle owns a single
// drawing surface sized to the viewport and a view-change subscription; both
// are released by Handle.Close.
package overlay

import (
	"log/slog"
	"math"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/beaconmap/beaconmap-go/internal/canvas"
	"github.com/beaconmap/beaconmap-go/internal/geo"
	"github.com/beaconmap/beaconmap-go/internal/grid"
	"github.com/beaconmap/beaconmap-go/internal/mapview"
	"github.com/beaconmap/beaconmap-go/internal/metrics"
	"github.com/beaconmap/beaconmap-go/internal/theme"
)

// Grid glyphs
const (
	glyphVertical     = '│'
	glyphHorizontal   = '─'
	glyphIntersection = '┼'
)

// Redraw triggers reported to metrics
const (
	TriggerMount   = "mount"
	TriggerBeacons = "beacons"
	TriggerManual  = "manual"
)

// Host is the map the overlay is attached to
type Host interface {
	State() geo.ViewState
	Subscribe(fn func(mapview.Change)) *mapview.Subscription
}

// Options configures a Renderer
type Options struct {
	Grid       grid.Options
	Theme      *theme.Theme
	ShowGrid   bool
	ShowLabels bool
	Logger     *slog.Logger
}

// Renderer creates overlay handles and tracks how many surfaces are live
type Renderer struct {
	planner *grid.Planner
	theme   atomic.Pointer[theme.Theme]
	logger  *slog.Logger
	opts    Options

	active atomic.Int64
}

// NewRenderer creates a renderer
func NewRenderer(opts Options) *Renderer {
	if opts.Theme == nil {
		opts.Theme = theme.Get(theme.DefaultTheme)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	r := &Renderer{
		planner: grid.NewPlanner(opts.Grid),
		logger:  opts.Logger,
		opts:    opts,
	}
	r.theme.Store(opts.Theme)
	return r
}

// Planner returns the grid planner used for every handle
func (r *Renderer) Planner() *grid.Planner {
	return r.planner
}

// SetTheme changes the colors used by subsequent repaints
func (r *Renderer) SetTheme(t *theme.Theme) {
	if t != nil {
		r.theme.Store(t)
	}
}

// ActiveSurfaces returns the number of mounted, not yet closed handles
func (r *Renderer) ActiveSurfaces() int {
	return int(r.active.Load())
}

// Mount acquires a surface sized to the host viewport, subscribes it to view
// changes and then paints it once. The caller must Close the handle on unmount.
func (r *Renderer) Mount(host Host) *Handle {
	state := host.State()
	h := &Handle{
		r:          r,
		host:       host,
		surface:    canvas.New(state.Width, state.Height),
		showGrid:   r.opts.ShowGrid,
		showLabels: r.opts.ShowLabels,
	}
	empty := []geo.Beacon{}
	h.beacons.Store(&empty)

	r.active.Add(1)
	metrics.OverlaySurfaces.Inc()

	h.sub = host.Subscribe(func(c mapview.Change) {
		h.paint(c.State, c.Kind.String())
	})
	// read after subscribing; any later change repaints through the listener
	state = host.State()
	h.paint(state, TriggerMount)
	r.logger.Debug("overlay mounted", "width", state.Width, "height", state.Height)
	return h
}

// Handle is one mounted overlay
type Handle struct {
	r    *Renderer
	host Host
	sub  *mapview.Subscription

	// beacons is swapped whole so a repaint sees either the old or the new set
	beacons atomic.Pointer[[]geo.Beacon]

	mu         sync.Mutex
	surface    *canvas.Surface
	state      geo.ViewState
	plan       grid.Plan
	showGrid   bool
	showLabels bool
	redraws    int
	closed     bool
}

// SetBeacons replaces the beacon set and repaints
func (h *Handle) SetBeacons(beacons []geo.Beacon) {
	next := slices.Clone(beacons)
	if next == nil {
		next = []geo.Beacon{}
	}
	h.beacons.Store(&next)
	h.Redraw(TriggerBeacons)
}

// Beacons returns the current beacon set
func (h *Handle) Beacons() []geo.Beacon {
	return slices.Clone(*h.beacons.Load())
}

// SetGridVisible toggles grid lines and repaints
func (h *Handle) SetGridVisible(show bool) {
	h.mu.Lock()
	h.showGrid = show
	h.mu.Unlock()
	h.Redraw(TriggerManual)
}

// SetLabelsVisible toggles grid labels and repaints
func (h *Handle) SetLabelsVisible(show bool) {
	h.mu.Lock()
	h.showLabels = show
	h.mu.Unlock()
	h.Redraw(TriggerManual)
}

// GridVisible reports whether grid lines are drawn
func (h *Handle) GridVisible() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.showGrid
}

// LabelsVisible reports whether grid labels are drawn
func (h *Handle) LabelsVisible() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.showLabels
}

// Redraw repaints from the host's current state
func (h *Handle) Redraw(trigger string) {
	if h.Closed() || h.host == nil {
		return
	}
	h.paint(h.host.State(), trigger)
}

func (h *Handle) paint(state geo.ViewState, trigger string) {
	beacons := *h.beacons.Load()
	th := h.r.theme.Load()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}

	if h.surface.Width() != state.Width || h.surface.Height() != state.Height {
		h.surface.Resize(state.Width, state.Height)
	} else {
		h.surface.Clear()
	}
	h.state = state
	h.plan = grid.Plan{}
	if h.showGrid {
		h.plan = h.r.planner.Plan(state, beacons)
		drawGrid(h.surface, h.plan, th, h.showLabels)
	}
	h.redraws++
	metrics.OverlayRedraws.WithLabelValues(trigger).Inc()
}

// Surface returns a copy of the current grid layer
func (h *Handle) Surface() *canvas.Surface {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return canvas.New(0, 0)
	}
	return h.surface.Clone()
}

// Plan returns the grid plan of the last repaint
func (h *Handle) Plan() grid.Plan {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.plan
}

// State returns the view state of the last repaint
func (h *Handle) State() geo.ViewState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Redraws returns how many times the surface has been painted
func (h *Handle) Redraws() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.redraws
}

// Closed reports whether Close has been called
func (h *Handle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Close detaches the view listener and releases the surface. Safe to call
// more than once.
func (h *Handle) Close() {
	if h == nil {
		return
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.surface = nil
	h.mu.Unlock()

	h.sub.Close()
	h.r.active.Add(-1)
	metrics.OverlaySurfaces.Dec()
	h.r.logger.Debug("overlay closed")
}

// drawGrid paints grid lines, then labels on top
func drawGrid(s *canvas.Surface, plan grid.Plan, th *theme.Theme, labels bool) {
	w, h := s.Width(), s.Height()

	var cols, rows []int
	for _, l := range plan.Longitudes {
		if x, ok := cellIndex(l.Offset, w); ok {
			s.VLine(x, 0, h-1, glyphVertical, th.Grid)
			cols = append(cols, x)
		}
	}
	for _, l := range plan.Latitudes {
		if y, ok := cellIndex(l.Offset, h); ok {
			for x := 0; x < w; x++ {
				ch := glyphHorizontal
				if c, _ := s.At(x, y); c.Char == glyphVertical {
					ch = glyphIntersection
				}
				s.Set(x, y, ch, th.Grid)
			}
			rows = append(rows, y)
		}
	}
	if !labels {
		return
	}

	// Latitude labels sit on their line at the left edge
	i := 0
	for _, l := range plan.Latitudes {
		if _, ok := cellIndex(l.Offset, h); !ok {
			continue
		}
		s.Text(0, rows[i], l.Label, th.GridLabel)
		i++
	}

	// Longitude labels run along the bottom row, skipping ones that would overlap
	nextFree := 0
	i = 0
	for _, l := range plan.Longitudes {
		if _, ok := cellIndex(l.Offset, w); !ok {
			continue
		}
		x := cols[i] + 1
		i++
		if x < nextFree || h == 0 {
			continue
		}
		s.Text(x, h-1, l.Label, th.GridLabel)
		nextFree = x + len([]rune(l.Label)) + 1
	}
}

func cellIndex(offset float64, size int) (int, bool) {
	if math.IsNaN(offset) || math.IsInf(offset, 0) {
		return 0, false
	}
	i := math.Floor(offset)
	if i < 0 || i >= float64(size) {
		return 0, false
	}
	return int(i), true
}
