package widgets

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Braille is a drawing surface of w×h terminal cells, each holding a 2×4
// dot braille character. Coordinates are in dots: (0,0) is top left.
type Braille struct {
	cols, rows int
	dots       []uint8
	colors     [][3]uint8
}

// dot bits indexed by [y%4][x%2]
var brailleBits = [4][2]uint8{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

func NewBraille(cols, rows int) *Braille {
	b := &Braille{}
	b.Resize(cols, rows)
	return b
}

// Resize changes the cell dimensions and clears the canvas
func (b *Braille) Resize(cols, rows int) {
	b.cols, b.rows = max(cols, 0), max(rows, 0)
	b.dots = make([]uint8, b.cols*b.rows)
	b.colors = make([][3]uint8, b.cols*b.rows)
}

// Size returns the drawable area in dots
func (b *Braille) Size() (int, int) { return b.cols * 2, b.rows * 4 }

func (b *Braille) Clear() {
	clear(b.dots)
	clear(b.colors)
}

// Set lights one dot. Dots outside the canvas are ignored.
func (b *Braille) Set(x, y int, rgb [3]uint8) {
	if x < 0 || y < 0 || x >= b.cols*2 || y >= b.rows*4 {
		return
	}
	i := (y/4)*b.cols + x/2
	b.dots[i] |= brailleBits[y%4][x%2]
	b.colors[i] = rgb
}

// Line draws with Bresenham between the rounded end points
func (b *Braille) Line(x0, y0, x1, y1 float64, rgb [3]uint8) {
	if s := x0 + y0 + x1 + y1; math.IsNaN(s) || math.IsInf(s, 0) {
		return
	}
	ax, ay := int(math.Round(x0)), int(math.Round(y0))
	bx, by := int(math.Round(x1)), int(math.Round(y1))

	dx, dy := abs(bx-ax), -abs(by-ay)
	sx, sy := 1, 1
	if ax > bx {
		sx = -1
	}
	if ay > by {
		sy = -1
	}
	e := dx + dy
	for {
		b.Set(ax, ay, rgb)
		if ax == bx && ay == by {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			ax += sx
		}
		if e2 <= dx {
			e += dx
			ay += sy
		}
	}
}

// Lit reports whether the dot at x, y is set
func (b *Braille) Lit(x, y int) bool {
	if x < 0 || y < 0 || x >= b.cols*2 || y >= b.rows*4 {
		return false
	}
	return b.dots[(y/4)*b.cols+x/2]&brailleBits[y%4][x%2] != 0
}

// String renders the canvas, one styled run per colour change
func (b *Braille) String() string {
	var out strings.Builder
	for row := 0; row < b.rows; row++ {
		if row > 0 {
			out.WriteByte('\n')
		}
		var run strings.Builder
		var runColor [3]uint8
		flush := func() {
			if run.Len() == 0 {
				return
			}
			style := lipgloss.NewStyle().Foreground(lipgloss.Color(rgbToHex(runColor)))
			out.WriteString(style.Render(run.String()))
			run.Reset()
		}
		for col := 0; col < b.cols; col++ {
			i := row*b.cols + col
			if b.dots[i] == 0 {
				flush()
				out.WriteByte(' ')
				continue
			}
			if run.Len() > 0 && b.colors[i] != runColor {
				flush()
			}
			runColor = b.colors[i]
			run.WriteRune(rune(0x2800 + int(b.dots[i])))
		}
		flush()
	}
	return out.String()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func rgbToHex(c [3]uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}
