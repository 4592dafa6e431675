// Package grid plans the latitude/longitude reference lines drawn over the map.
//
// The grid step follows the zoom level: baseStep * 2^(referenceZoom - zoom), so
// the on-screen spacing between lines stays roughly constant while the map is
// zoomed. The covered range is the visible bounds extended to include every
// beacon, which keeps reference points in context while the view is panned away.
package grid

import (
	"math"
	"strconv"
	"strings"

	"github.com/beaconmap/beaconmap-go/internal/geo"
)

// Defaults used for zero-valued Options fields
const (
	DefaultBaseStep      = 0.01
	DefaultReferenceZoom = 13
	DefaultPrecision     = 4
	DefaultMaxLines      = 512
)

// Axis identifies the direction a grid line encodes
type Axis int

const (
	// Latitude lines run east-west and carry a y offset
	Latitude Axis = iota
	// Longitude lines run north-south and carry an x offset
	Longitude
)

func (a Axis) String() string {
	if a == Latitude {
		return "latitude"
	}
	return "longitude"
}

// Line is one grid line
type Line struct {
	Axis   Axis
	Value  float64
	Offset float64
	Label  string
}

// Plan is the full set of grid lines for one view state
type Plan struct {
	Step       float64
	Range      geo.Bounds
	Latitudes  []Line
	Longitudes []Line
	// Truncated is set when an axis hit the MaxLines cap
	Truncated bool
}

// Empty reports whether the plan has no lines at all
func (p Plan) Empty() bool {
	return len(p.Latitudes) == 0 && len(p.Longitudes) == 0
}

// Options tunes the planner
type Options struct {
	BaseStep      float64
	ReferenceZoom int
	Precision     int
	MaxLines      int
}

// DefaultOptions returns the standard grid settings
func DefaultOptions() Options {
	return Options{
		BaseStep:      DefaultBaseStep,
		ReferenceZoom: DefaultReferenceZoom,
		Precision:     DefaultPrecision,
		MaxLines:      DefaultMaxLines,
	}
}

// Planner computes grid plans. It holds no state besides its options.
type Planner struct {
	opts Options
}

// NewPlanner creates a planner; zero fields take their defaults. A negative
// BaseStep is kept and yields empty plans.
func NewPlanner(opts Options) *Planner {
	if opts.BaseStep == 0 {
		opts.BaseStep = DefaultBaseStep
	}
	if opts.ReferenceZoom == 0 {
		opts.ReferenceZoom = DefaultReferenceZoom
	}
	if opts.Precision <= 0 {
		opts.Precision = DefaultPrecision
	}
	if opts.MaxLines <= 0 {
		opts.MaxLines = DefaultMaxLines
	}
	return &Planner{opts: opts}
}

// Options returns the effective options
func (p *Planner) Options() Options {
	return p.opts
}

// Step returns the grid spacing in degrees at the given zoom level
func (p *Planner) Step(zoom int) float64 {
	return p.opts.BaseStep * math.Pow(2, float64(p.opts.ReferenceZoom-zoom))
}

// Range returns the visible bounds extended to cover every valid beacon
func (p *Planner) Range(state geo.ViewState, beacons []geo.Beacon) geo.Bounds {
	rng := state.Bounds
	if b, ok := geo.CoordinatesBounds(geo.BeaconCoordinates(beacons)); ok {
		rng = rng.Union(b)
	}
	return rng
}

// Plan computes the grid lines for the view state and beacon set.
// Degenerate inputs (empty viewport, non-finite bounds, unusable step) give an empty plan.
func (p *Planner) Plan(state geo.ViewState, beacons []geo.Beacon) Plan {
	if state.Empty() || !state.Bounds.Finite() {
		return Plan{}
	}
	step := p.Step(state.Zoom)
	if !(step > 0) || math.IsInf(step, 0) {
		return Plan{}
	}

	rng := p.Range(state, beacons)
	proj := geo.NewProjector(state)
	plan := Plan{Step: step, Range: rng}

	lats, truncLat := lineValues(rng.South, rng.North, state.Bounds.South, state.Bounds.North, step, p.opts.MaxLines)
	plan.Latitudes = make([]Line, len(lats))
	for i, v := range lats {
		px := proj.ToPixel(geo.Coordinate{X: rng.West, Y: v})
		plan.Latitudes[i] = Line{Axis: Latitude, Value: v, Offset: px.Y, Label: p.label(v)}
	}

	lngs, truncLng := lineValues(rng.West, rng.East, state.Bounds.West, state.Bounds.East, step, p.opts.MaxLines)
	plan.Longitudes = make([]Line, len(lngs))
	for i, v := range lngs {
		px := proj.ToPixel(geo.Coordinate{X: v, Y: rng.North})
		plan.Longitudes[i] = Line{Axis: Longitude, Value: v, Offset: px.X, Label: p.label(v)}
	}

	plan.Truncated = truncLat || truncLng
	return plan
}

// lineValues returns the multiples of step within [lo, hi], at most limit of
// them. When the cap is hit the kept window covers [visLo, visHi] first and the
// rest of the budget goes to whichever side of it still has lines.
func lineValues(lo, hi, visLo, visHi, step float64, limit int) ([]float64, bool) {
	if hi < lo {
		return nil, false
	}
	// tolerance absorbs representation error such as 55.00/0.01 = 5499.999...
	eps := 1e-9
	first := math.Ceil(lo/step - eps)
	last := math.Floor(hi/step + eps)
	if last < first {
		return nil, false
	}

	n := float64(limit)
	truncated := false
	if last-first+1 > n {
		truncated = true
		vFirst := math.Max(first, math.Ceil(visLo/step-eps))
		vLast := math.Min(last, math.Floor(visHi/step+eps))
		start := math.Floor((vFirst+vLast)/2 - (n-1)/2)
		if vLast-vFirst+1 <= n {
			start = math.Floor(vFirst - (n-(vLast-vFirst+1))/2)
		}
		start = math.Max(first, math.Min(start, last-n+1))
		first = start
	} else {
		n = last - first + 1
	}

	out := make([]float64, int(n))
	for i := range out {
		out[i] = (first + float64(i)) * step
	}
	return out, truncated
}

func (p *Planner) label(v float64) string {
	s := strconv.FormatFloat(v, 'f', p.opts.Precision, 64)
	if strings.HasPrefix(s, "-") && strings.Trim(s, "-0.") == "" {
		s = s[1:]
	}
	return s
}
