package display

import (
	"math"
	"strconv"
)

// Trace is the screen buffer as seen by a channel view.
type Trace interface {
	YCoord(channel, x int) float32
	Width() int
}

// clipPad is how far a trace may run past its channel's bounds.
const clipPad = 2

// ChannelView paints one channel's trace inside its bounds.
type ChannelView struct {
	index  int
	label  string
	colour Colour
	trace  Trace
	margin int

	rangeUV  float32
	height   int
	overlap  int
	selected bool
	bounds   Rect

	fullRedraw bool
}

func NewChannelView(trace Trace, index, leftMargin int) *ChannelView {
	return &ChannelView{
		index:   index,
		label:   strconv.Itoa(index + 1),
		colour:  ChannelColour(index),
		trace:   trace,
		margin:  leftMargin,
		rangeUV: 1000,
		height:  40,
		overlap: 60,
	}
}

func (c *ChannelView) Index() int          { return c.index }
func (c *ChannelView) Colour() Colour      { return c.colour }
func (c *ChannelView) Range() float32      { return c.rangeUV }
func (c *ChannelView) Selected() bool      { return c.selected }
func (c *ChannelView) Select()             { c.selected = true }
func (c *ChannelView) Deselect()           { c.selected = false }
func (c *ChannelView) Bounds() Rect        { return c.bounds }
func (c *ChannelView) ChannelHeight() int  { return c.height }
func (c *ChannelView) ChannelOverlap() int { return c.overlap }

// SetRange sets the amplitude that maps to one channel height.
func (c *ChannelView) SetRange(r float32) {
	if r > 0 {
		c.rangeUV = r
	}
}

// SetChannelHeight also resets the overlap to half the height.
func (c *ChannelView) SetChannelHeight(h int) {
	c.height = max(1, h)
	c.overlap = c.height / 2
}

// RequestFullRedraw makes the next Paint cover the whole width.
func (c *ChannelView) RequestFullRedraw() { c.fullRedraw = true }

func (c *ChannelView) Resized(bounds Rect) { c.bounds = bounds }

// Center is the baseline row of the trace.
func (c *ChannelView) Center() int { return c.bounds.Y + c.bounds.H/2 }

// PixelY maps a raw value to a row: value/range*height + center, held
// within clipPad rows of the bounds. NaN and infinities sit on the centre line.
func (c *ChannelView) PixelY(v float32) int {
	y := float64(v) / float64(c.rangeUV) * float64(c.height)
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return c.Center()
	}
	top, bottom := float64(c.bounds.Y-clipPad), float64(c.bounds.Bottom()+clipPad)
	return int(math.Round(min(max(float64(c.Center())+y, top), bottom)))
}

// OutOfBand reports whether v is drawn outside the channel's own height.
func (c *ChannelView) OutOfBand(v float32) bool {
	return v > c.rangeUV/2 || v < -c.rangeUV/2
}

// Paint redraws the part of the channel covered by w. A pending full redraw
// widens w to the whole trace once.
func (c *ChannelView) Paint(g Graphics, w RedrawWindow) {
	width := c.trace.Width()
	if c.fullRedraw {
		w = FullWindow(width, w.Cursor)
		c.fullRedraw = false
	}
	if w.Empty() || width <= 0 {
		return
	}
	from, to := max(0, w.From), min(width-1, w.To)
	center := c.Center()

	if x := w.Cursor + 1; w.Contains(x) {
		g.DrawLine(x, c.bounds.Y, x, c.bounds.Bottom()-c.overlap, CursorColour)
	}

	if c.selected {
		top, bottom := center-c.height/2, center+c.height/2
		g.DrawLine(from, top, to, top, SelectionColour)
		g.DrawLine(from, bottom, to, bottom, SelectionColour)
		if from < 2 {
			g.FillRect(Rect{X: 0, Y: top, W: 2, H: c.height}, SelectionColour)
		}
	}

	g.DrawLine(from, center, to, center, GridColour)

	end := width - 1
	if !w.Full {
		end = min(end, w.Cursor-1)
	}
	for i := max(from, c.margin); i < end; i++ {
		g.DrawLine(i, c.PixelY(c.trace.YCoord(c.index, i)), i+1, c.PixelY(c.trace.YCoord(c.index, i+1)), c.colour)
	}

	if from < 2+2*len(c.label) {
		g.DrawText(2, center, c.label, c.colour)
	}
}
