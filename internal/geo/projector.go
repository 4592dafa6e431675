package geo

import "math"

const (
	// TileSize is the edge of a zoom-0 web mercator tile, in viewport cells
	TileSize = 32
	// MaxLatitude is the web mercator latitude limit
	MaxLatitude = 85.05112878
)

// Pixel is a viewport position; X grows right and Y grows down
type Pixel struct {
	X float64
	Y float64
}

// WorldPixel converts a coordinate to web mercator world pixels at the given zoom level
func WorldPixel(c Coordinate, zoom int) (float64, float64) {
	size := worldSize(zoom)
	lat := math.Max(-MaxLatitude, math.Min(MaxLatitude, c.Y))
	latRad := lat * math.Pi / 180
	x := size * (c.X + 180) / 360
	y := size * (1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2
	return x, y
}

// FromWorldPixel converts world pixels at the given zoom level back to a coordinate
func FromWorldPixel(x, y float64, zoom int) Coordinate {
	size := worldSize(zoom)
	lng := x/size*360 - 180
	n := math.Pi * (1 - 2*y/size)
	lat := 180 / math.Pi * math.Atan(math.Sinh(n))
	return Coordinate{X: lng, Y: lat}
}

func worldSize(zoom int) float64 {
	return TileSize * math.Pow(2, float64(zoom))
}

// Projector converts between coordinates and viewport pixels for one ViewState.
// The host map derives its own transform from the same ViewState, so anything
// projected here lines up with what the map draws.
type Projector struct {
	zoom    int
	originX float64
	originY float64
	aspect  float64
	width   int
	height  int
}

// NewProjector builds a projector anchored at the north-west corner of the view
func NewProjector(v ViewState) Projector {
	ox, oy := WorldPixel(Coordinate{X: v.Bounds.West, Y: v.Bounds.North}, v.Zoom)
	return Projector{
		zoom:    v.Zoom,
		originX: ox,
		originY: oy,
		aspect:  v.Aspect(),
		width:   v.Width,
		height:  v.Height,
	}
}

// ToPixel projects a coordinate into the viewport; the result may be off-screen
func (p Projector) ToPixel(c Coordinate) Pixel {
	wx, wy := WorldPixel(c, p.zoom)
	return Pixel{
		X: wx - p.originX,
		Y: (wy - p.originY) / p.aspect,
	}
}

// FromPixel converts a viewport pixel back to a coordinate
func (p Projector) FromPixel(px Pixel) Coordinate {
	return FromWorldPixel(px.X+p.originX, px.Y*p.aspect+p.originY, p.zoom)
}

// Cell returns the integer cell containing the coordinate and whether it is on screen
func (p Projector) Cell(c Coordinate) (int, int, bool) {
	px := p.ToPixel(c)
	if math.IsNaN(px.X) || math.IsNaN(px.Y) {
		return -1, -1, false
	}
	x := int(math.Floor(px.X))
	y := int(math.Floor(px.Y))
	return x, y, p.InViewport(px)
}

// InViewport reports whether the pixel falls inside the viewport
func (p Projector) InViewport(px Pixel) bool {
	return px.X >= 0 && px.X < float64(p.width) && px.Y >= 0 && px.Y < float64(p.height)
}

// Zoom returns the zoom level the projector was built for
func (p Projector) Zoom() int { return p.zoom }
