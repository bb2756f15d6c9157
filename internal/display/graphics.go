// Package display turns a circular sample buffer into a sweeping multichannel
// trace view.
//
// Coordinates are pixels. With the braille Raster a pixel is one braille dot,
// so a terminal cell is 2 pixels wide and 4 pixels tall.
package display

import "github.com/charmbracelet/lipgloss"

// Colour indexes Palette. Zero is the background.
type Colour uint8

const (
	Background Colour = iota
	GridColour
	LabelColour
	CursorColour
	SelectionColour
	ScaleColour
	firstChannelColour
)

// Palette maps a Colour to a terminal colour. Channel colours follow the UI
// colours and are assigned round robin.
var Palette = []lipgloss.TerminalColor{
	Background:      lipgloss.NoColor{},
	GridColour:      lipgloss.Color("#282828"),
	LabelColour:     lipgloss.Color("#646464"),
	CursorColour:    lipgloss.Color("#ffff00"),
	SelectionColour: lipgloss.Color("#d3d3d3"),
	ScaleColour:     lipgloss.AdaptiveColor{Light: "#555", Dark: "#888"},

	lipgloss.Color("#e0b924"),
	lipgloss.Color("#d6d2b6"),
	lipgloss.Color("#f37721"),
	lipgloss.Color("#ba9da8"),
	lipgloss.Color("#ed2524"),
	lipgloss.Color("#b37a4f"),
	lipgloss.Color("#d92eab"),
	lipgloss.Color("#d98bc4"),
	lipgloss.Color("#651fff"),
	lipgloss.Color("#8d6fb5"),
	lipgloss.Color("#3075ff"),
	lipgloss.Color("#b8c6e0"),
	lipgloss.Color("#74e39c"),
	lipgloss.Color("#969e9b"),
	lipgloss.Color("#52ad00"),
	lipgloss.Color("#7d6320"),
}

// ChannelColour returns the trace colour of channel i.
func ChannelColour(i int) Colour {
	n := len(Palette) - int(firstChannelColour)
	return firstChannelColour + Colour(i%n)
}

// Rect is a pixel rectangle. W and H may be zero.
type Rect struct {
	X, Y, W, H int
}

func (r Rect) Bottom() int { return r.Y + r.H }
func (r Rect) Right() int  { return r.X + r.W }

// Intersect clips r to o.
func (r Rect) Intersect(o Rect) Rect {
	x0, y0 := max(r.X, o.X), max(r.Y, o.Y)
	x1, y1 := min(r.Right(), o.Right()), min(r.Bottom(), o.Bottom())
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Graphics is the drawing surface components paint into.
type Graphics interface {
	Clear(r Rect)
	SetPixel(x, y int, c Colour)
	DrawLine(x0, y0, x1, y1 int, c Colour)
	FillRect(r Rect, c Colour)
	DrawText(x, y int, s string, c Colour)
}

// Component is anything the canvas lays out and paints: the time scale, the
// display panel and each channel view.
type Component interface {
	Resized(bounds Rect)
	Paint(g Graphics, w RedrawWindow)
}

// VisibleRange is the slice of content rows the viewport shows, in pixels.
type VisibleRange struct {
	Top, Bottom int
}

// Intersects reports whether [top, bottom] overlaps the range; both ends inclusive.
func (v VisibleRange) Intersects(top, bottom int) bool {
	return v.Top <= bottom && v.Bottom >= top
}
