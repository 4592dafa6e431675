// Package canvas provides the terminal cell surface the map is drawn on
package canvas

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Blank is the rune of an empty cell
const Blank = ' '

// Cell is a single surface cell with character and color
type Cell struct {
	Char  rune
	Color lipgloss.Color
}

// Empty reports whether nothing has been drawn in the cell
func (c Cell) Empty() bool {
	return c.Char == Blank || c.Char == 0
}

// Surface is a fixed-size grid of cells; one cell is one viewport pixel
type Surface struct {
	width  int
	height int
	cells  [][]Cell
}

// New creates a blank surface. Negative sizes are treated as zero.
func New(width, height int) *Surface {
	s := &Surface{}
	s.Resize(width, height)
	return s
}

// Width returns the surface width in cells
func (s *Surface) Width() int { return s.width }

// Height returns the surface height in cells
func (s *Surface) Height() int { return s.height }

// Resize reallocates the surface; previous contents are discarded
func (s *Surface) Resize(width, height int) {
	s.width, s.height = max(0, width), max(0, height)
	s.cells = make([][]Cell, s.height)
	for y := range s.cells {
		s.cells[y] = make([]Cell, s.width)
	}
	s.Clear()
}

// Clear blanks every cell
func (s *Surface) Clear() {
	for y := range s.cells {
		for x := range s.cells[y] {
			s.cells[y][x] = Cell{Char: Blank}
		}
	}
}

func (s *Surface) inside(x, y int) bool {
	return x >= 0 && x < s.width && y >= 0 && y < s.height
}

// Set draws ch at (x, y); out of range writes are ignored
func (s *Surface) Set(x, y int, ch rune, color lipgloss.Color) bool {
	if !s.inside(x, y) {
		return false
	}
	s.cells[y][x] = Cell{Char: ch, Color: color}
	return true
}

// SetIfEmpty draws ch only where nothing has been drawn yet
func (s *Surface) SetIfEmpty(x, y int, ch rune, color lipgloss.Color) bool {
	if !s.inside(x, y) || !s.cells[y][x].Empty() {
		return false
	}
	s.cells[y][x] = Cell{Char: ch, Color: color}
	return true
}

// At returns the cell at (x, y)
func (s *Surface) At(x, y int) (Cell, bool) {
	if !s.inside(x, y) {
		return Cell{}, false
	}
	return s.cells[y][x], true
}

// Text writes text starting at (x, y), clipped to the surface. It returns the
// number of runes written.
func (s *Surface) Text(x, y int, text string, color lipgloss.Color) int {
	n := 0
	for i, r := range []rune(text) {
		if s.Set(x+i, y, r, color) {
			n++
		}
	}
	return n
}

// HLine draws a horizontal run from x0 to x1 inclusive
func (s *Surface) HLine(y, x0, x1 int, ch rune, color lipgloss.Color) {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	x0, x1 = max(x0, 0), min(x1, s.width-1)
	for x := x0; x <= x1; x++ {
		s.Set(x, y, ch, color)
	}
}

// VLine draws a vertical run from y0 to y1 inclusive
func (s *Surface) VLine(x, y0, y1 int, ch rune, color lipgloss.Color) {
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	y0, y1 = max(y0, 0), min(y1, s.height-1)
	for y := y0; y <= y1; y++ {
		s.Set(x, y, ch, color)
	}
}

// CopyFrom copies the overlapping region of o into s
func (s *Surface) CopyFrom(o *Surface) {
	if o == nil {
		return
	}
	for y := 0; y < min(s.height, o.height); y++ {
		copy(s.cells[y], o.cells[y][:min(s.width, o.width)])
	}
}

// Clone returns an independent copy of the surface
func (s *Surface) Clone() *Surface {
	c := New(s.width, s.height)
	c.CopyFrom(s)
	return c
}

// Plain returns the surface rows as unstyled text
func (s *Surface) Plain() string {
	var sb strings.Builder
	for y, row := range s.cells {
		if y > 0 {
			sb.WriteString("\n")
		}
		for _, c := range row {
			if c.Char == 0 {
				sb.WriteRune(Blank)
				continue
			}
			sb.WriteRune(c.Char)
		}
	}
	return sb.String()
}

// Render returns the surface styled with lipgloss. Cells without a color use
// fallback. Adjacent cells of the same color are rendered as one run.
func (s *Surface) Render(fallback lipgloss.Color) string {
	var sb strings.Builder
	for y, row := range s.cells {
		if y > 0 {
			sb.WriteString("\n")
		}
		var run []rune
		var runColor lipgloss.Color
		flush := func() {
			if len(run) == 0 {
				return
			}
			style := lipgloss.NewStyle().Foreground(runColor)
			sb.WriteString(style.Render(string(run)))
			run = run[:0]
		}
		for _, c := range row {
			color := c.Color
			if color == "" {
				color = fallback
			}
			ch := c.Char
			if ch == 0 {
				ch = Blank
			}
			if color != runColor {
				flush()
				runColor = color
			}
			run = append(run, ch)
		}
		flush()
	}
	return sb.String()
}
