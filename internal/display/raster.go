package display

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const brailleBase = 0x2800

// brailleDots[row][col] is the dot bit for a pixel inside a 2x4 cell.
var brailleDots = [4][2]uint8{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// Raster is a pixel surface backed by braille cells. Each cell keeps one
// colour (the last one drawn) and an optional text rune that hides the dots.
type Raster struct {
	width, height int
	cols, rows    int
	dots          []uint8
	colour        []Colour
	text          []rune
	styles        []lipgloss.Style
}

func NewRaster(width, height int) *Raster {
	r := &Raster{}
	r.Resize(width, height)
	return r
}

// Resize reallocates the cell arena and clears it.
func (r *Raster) Resize(width, height int) {
	r.width, r.height = max(0, width), max(0, height)
	r.cols, r.rows = (r.width+1)/2, (r.height+3)/4
	n := r.cols * r.rows
	r.dots = make([]uint8, n)
	r.colour = make([]Colour, n)
	r.text = make([]rune, n)
	if r.styles == nil {
		r.styles = make([]lipgloss.Style, len(Palette))
		for i, c := range Palette {
			r.styles[i] = lipgloss.NewStyle().Foreground(c)
		}
	}
}

func (r *Raster) Width() int  { return r.width }
func (r *Raster) Height() int { return r.height }
func (r *Raster) Rows() int   { return r.rows }
func (r *Raster) Cols() int   { return r.cols }

func (r *Raster) bounds() Rect { return Rect{W: r.width, H: r.height} }

func (r *Raster) SetPixel(x, y int, c Colour) {
	if x < 0 || y < 0 || x >= r.width || y >= r.height {
		return
	}
	i := (y/4)*r.cols + x/2
	r.dots[i] |= brailleDots[y%4][x%2]
	r.colour[i] = c
}

// Pixel reports whether the dot at x, y is set.
func (r *Raster) Pixel(x, y int) bool {
	if x < 0 || y < 0 || x >= r.width || y >= r.height {
		return false
	}
	return r.dots[(y/4)*r.cols+x/2]&brailleDots[y%4][x%2] != 0
}

// Clear unsets every dot inside rect and drops text from the cells it touches.
func (r *Raster) Clear(rect Rect) {
	rect = rect.Intersect(r.bounds())
	if rect.Empty() {
		return
	}
	for y := rect.Y; y < rect.Bottom(); y++ {
		row := (y / 4) * r.cols
		for x := rect.X; x < rect.Right(); x++ {
			i := row + x/2
			r.dots[i] &^= brailleDots[y%4][x%2]
			r.text[i] = 0
			if r.dots[i] == 0 {
				r.colour[i] = Background
			}
		}
	}
}

func (r *Raster) FillRect(rect Rect, c Colour) {
	rect = rect.Intersect(r.bounds())
	for y := rect.Y; y < rect.Bottom(); y++ {
		for x := rect.X; x < rect.Right(); x++ {
			r.SetPixel(x, y, c)
		}
	}
}

// DrawLine draws a Bresenham line including both end points.
func (r *Raster) DrawLine(x0, y0, x1, y1 int, c Colour) {
	if (x0 < 0 && x1 < 0) || (x0 >= r.width && x1 >= r.width) ||
		(y0 < 0 && y1 < 0) || (y0 >= r.height && y1 >= r.height) {
		return
	}
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		r.SetPixel(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// DrawText writes s into the cells starting at the cell containing x, y.
func (r *Raster) DrawText(x, y int, s string, c Colour) {
	if y < 0 || y >= r.height {
		return
	}
	col, row := x/2, y/4
	if x < 0 {
		col = (x - 1) / 2
	}
	for _, ch := range s {
		if col >= r.cols {
			return
		}
		if col >= 0 {
			i := row*r.cols + col
			r.text[i] = ch
			r.colour[i] = c
		}
		col++
	}
}

// Cell returns the rune shown at a cell and its colour.
func (r *Raster) Cell(col, row int) (rune, Colour) {
	if col < 0 || row < 0 || col >= r.cols || row >= r.rows {
		return ' ', Background
	}
	i := row*r.cols + col
	if t := r.text[i]; t != 0 {
		return t, r.colour[i]
	}
	if d := r.dots[i]; d != 0 {
		return rune(brailleBase + int(d)), r.colour[i]
	}
	return ' ', Background
}

// RenderRow styles one row of cells, grouping runs of equal colour.
func (r *Raster) RenderRow(row int) string {
	if row < 0 || row >= r.rows {
		return ""
	}
	var sb strings.Builder
	var run []rune
	runColour := Background
	flush := func() {
		if len(run) == 0 {
			return
		}
		if runColour == Background {
			sb.WriteString(string(run))
		} else {
			sb.WriteString(r.styles[runColour].Render(string(run)))
		}
		run = run[:0]
	}
	for col := 0; col < r.cols; col++ {
		ch, c := r.Cell(col, row)
		if c != runColour {
			flush()
			runColour = c
		}
		run = append(run, ch)
	}
	flush()
	return sb.String()
}

// Plain returns the rows without styling, for tests and logs.
func (r *Raster) Plain(from, to int) []string {
	from, to = max(0, from), min(r.rows, to)
	out := make([]string, 0, max(0, to-from))
	for row := from; row < to; row++ {
		var sb strings.Builder
		for col := 0; col < r.cols; col++ {
			ch, _ := r.Cell(col, row)
			sb.WriteRune(ch)
		}
		out = append(out, sb.String())
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
