// Package mapview implements the host map: a pannable, zoomable web mercator view
// that publishes view-changed events to explicit subscriptions.
package mapview

import (
	"math"
	"slices"
	"sync"

	"github.com/beaconmap/beaconmap-go/internal/geo"
	"github.com/beaconmap/beaconmap-go/internal/metrics"
)

// Zoom limits used when none are configured
const (
	DefaultMinZoom = 3
	DefaultMaxZoom = 20
)

// ChangeKind identifies what triggered a view change
type ChangeKind int

const (
	ChangeMove ChangeKind = iota
	ChangeZoom
	ChangeResize
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeMove:
		return "move"
	case ChangeZoom:
		return "zoom"
	case ChangeResize:
		return "resize"
	default:
		return "unknown"
	}
}

// Change is delivered to subscribers after the view state has been updated
type Change struct {
	Kind  ChangeKind
	State geo.ViewState
}

// Options configures a View
type Options struct {
	Center     geo.Coordinate
	Zoom       int
	MinZoom    int
	MaxZoom    int
	Width      int
	Height     int
	CellAspect float64
}

// View is the host map state
type View struct {
	mu      sync.Mutex
	center  geo.Coordinate
	zoom    int
	minZoom int
	maxZoom int
	width   int
	height  int
	aspect  float64

	listeners map[uint64]func(Change)
	nextID    uint64
}

// New creates a view. Zoom is clamped into [MinZoom, MaxZoom].
func New(opts Options) *View {
	minZoom, maxZoom := opts.MinZoom, opts.MaxZoom
	if minZoom <= 0 && maxZoom <= 0 {
		minZoom, maxZoom = DefaultMinZoom, DefaultMaxZoom
	}
	if maxZoom < minZoom {
		maxZoom = minZoom
	}
	aspect := opts.CellAspect
	if aspect <= 0 {
		aspect = 1
	}
	v := &View{
		center:    opts.Center,
		minZoom:   minZoom,
		maxZoom:   maxZoom,
		width:     max(0, opts.Width),
		height:    max(0, opts.Height),
		aspect:    aspect,
		listeners: make(map[uint64]func(Change)),
	}
	v.zoom = v.clampZoom(opts.Zoom)
	return v
}

// State returns the current visible bounds, zoom and viewport size
func (v *View) State() geo.ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stateLocked()
}

func (v *View) stateLocked() geo.ViewState {
	wx, wy := geo.WorldPixel(v.center, v.zoom)
	halfW := float64(v.width) / 2
	halfH := float64(v.height) * v.aspect / 2
	nw := geo.FromWorldPixel(wx-halfW, wy-halfH, v.zoom)
	se := geo.FromWorldPixel(wx+halfW, wy+halfH, v.zoom)
	return geo.ViewState{
		Bounds: geo.Bounds{
			South: se.Y,
			North: nw.Y,
			West:  nw.X,
			East:  se.X,
		},
		Zoom:       v.zoom,
		Width:      v.width,
		Height:     v.height,
		CellAspect: v.aspect,
	}
}

// Projector returns the coordinate/pixel transform for the current state
func (v *View) Projector() geo.Projector {
	return geo.NewProjector(v.State())
}

// Center returns the current center coordinate
func (v *View) Center() geo.Coordinate {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.center
}

// Zoom returns the current zoom level
func (v *View) Zoom() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.zoom
}

// Pan shifts the view by dx, dy cells (positive dx east, positive dy south)
func (v *View) Pan(dx, dy int) {
	if dx == 0 && dy == 0 {
		return
	}
	v.mu.Lock()
	wx, wy := geo.WorldPixel(v.center, v.zoom)
	v.center = geo.FromWorldPixel(wx+float64(dx), wy+float64(dy)*v.aspect, v.zoom)
	v.mu.Unlock()
	v.emit(ChangeMove)
}

// CenterOn moves the view center to c
func (v *View) CenterOn(c geo.Coordinate) {
	if !c.Valid() {
		return
	}
	v.mu.Lock()
	if v.center == c {
		v.mu.Unlock()
		return
	}
	v.center = c
	v.mu.Unlock()
	v.emit(ChangeMove)
}

// ZoomIn increases the zoom level by one
func (v *View) ZoomIn() { v.SetZoom(v.Zoom() + 1) }

// ZoomOut decreases the zoom level by one
func (v *View) ZoomOut() { v.SetZoom(v.Zoom() - 1) }

// SetZoom changes the zoom level around the current center
func (v *View) SetZoom(zoom int) {
	v.mu.Lock()
	zoom = v.clampZoom(zoom)
	if zoom == v.zoom {
		v.mu.Unlock()
		return
	}
	v.zoom = zoom
	v.mu.Unlock()
	v.emit(ChangeZoom)
}

// Resize sets the viewport size in cells
func (v *View) Resize(width, height int) {
	width, height = max(0, width), max(0, height)
	v.mu.Lock()
	if width == v.width && height == v.height {
		v.mu.Unlock()
		return
	}
	v.width, v.height = width, height
	v.mu.Unlock()
	v.emit(ChangeResize)
}

// FitBounds centers on b and picks the largest zoom at which b is fully visible
func (v *View) FitBounds(b geo.Bounds) {
	if !b.Finite() {
		return
	}
	v.mu.Lock()
	zoom := v.minZoom
	for z := v.maxZoom; z >= v.minZoom; z-- {
		x1, y1 := geo.WorldPixel(geo.Coordinate{X: b.West, Y: b.North}, z)
		x2, y2 := geo.WorldPixel(geo.Coordinate{X: b.East, Y: b.South}, z)
		if math.Abs(x2-x1) <= float64(v.width) && math.Abs(y2-y1) <= float64(v.height)*v.aspect {
			zoom = z
			break
		}
	}
	x1, y1 := geo.WorldPixel(geo.Coordinate{X: b.West, Y: b.North}, zoom)
	x2, y2 := geo.WorldPixel(geo.Coordinate{X: b.East, Y: b.South}, zoom)
	v.center = geo.FromWorldPixel((x1+x2)/2, (y1+y2)/2, zoom)
	kind := ChangeMove
	if zoom != v.zoom {
		kind = ChangeZoom
	}
	v.zoom = zoom
	v.mu.Unlock()
	v.emit(kind)
}

func (v *View) clampZoom(z int) int {
	if z < v.minZoom {
		return v.minZoom
	}
	if z > v.maxZoom {
		return v.maxZoom
	}
	return z
}

// Subscribe registers fn for view-changed events. The returned subscription
// must be closed to detach fn.
func (v *View) Subscribe(fn func(Change)) *Subscription {
	v.mu.Lock()
	defer v.mu.Unlock()
	id := v.nextID
	v.nextID++
	v.listeners[id] = fn
	metrics.ViewListeners.Inc()
	return &Subscription{view: v, id: id}
}

// ListenerCount returns the number of attached subscribers
func (v *View) ListenerCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.listeners)
}

func (v *View) unsubscribe(id uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.listeners[id]; ok {
		delete(v.listeners, id)
		metrics.ViewListeners.Dec()
	}
}

// emit delivers a change to a snapshot of the listeners, outside the lock so
// handlers may read the view or close their own subscription.
func (v *View) emit(kind ChangeKind) {
	v.mu.Lock()
	state := v.stateLocked()
	ids := make([]uint64, 0, len(v.listeners))
	for id := range v.listeners {
		ids = append(ids, id)
	}
	v.mu.Unlock()

	slices.Sort(ids)
	change := Change{Kind: kind, State: state}
	for _, id := range ids {
		v.mu.Lock()
		fn, ok := v.listeners[id]
		v.mu.Unlock()
		if ok {
			fn(change)
		}
	}
}

// Subscription is the handle returned by Subscribe
type Subscription struct {
	view *View
	id   uint64
	once sync.Once
}

// Close detaches the handler; calling it more than once is a no-op
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.view.unsubscribe(s.id)
	})
}
