package display

// CursorTrace is a Trace that also knows where the last update started and ended.
type CursorTrace interface {
	Trace
	Cursor() int
	LastCursor() int
}

// RepaintStats summarises one DisplayPanel.Refresh.
type RepaintStats struct {
	Painted int
	Culled  int
	Full    bool
	Window  RedrawWindow
}

// DisplayPanel stacks the channel views vertically and repaints the visible
// ones each frame.
type DisplayPanel struct {
	trace  CursorTrace
	margin int

	channels      []*ChannelView
	width         int
	totalHeight   int
	rangeUV       float32
	channelHeight int
	selected      int

	fullRedraw bool
}

func NewDisplayPanel(trace CursorTrace, leftMargin int) *DisplayPanel {
	return &DisplayPanel{
		trace:         trace,
		margin:        leftMargin,
		rangeUV:       1000,
		channelHeight: 40,
		selected:      -1,
	}
}

// SetNumChannels discards every channel view and builds n new ones.
func (p *DisplayPanel) SetNumChannels(n int) {
	n = max(0, n)
	p.channels = make([]*ChannelView, n)
	p.totalHeight = 0
	for i := range p.channels {
		c := NewChannelView(p.trace, i, p.margin)
		c.SetRange(p.rangeUV)
		c.SetChannelHeight(p.channelHeight)
		p.channels[i] = c
		p.totalHeight += c.ChannelHeight()
	}
	p.selected = -1
	p.layout()
}

func (p *DisplayPanel) NumChannels() int { return len(p.channels) }

// Channel returns the view of channel i or nil.
func (p *DisplayPanel) Channel(i int) *ChannelView {
	if i < 0 || i >= len(p.channels) {
		return nil
	}
	return p.channels[i]
}

// TotalHeight is the sum of the channel heights.
func (p *DisplayPanel) TotalHeight() int { return p.totalHeight }

func (p *DisplayPanel) Width() int { return p.width }

// Resized lays the channels out top to bottom. Each view extends half its
// overlap above and below its slot.
func (p *DisplayPanel) Resized(bounds Rect) {
	p.width = bounds.W
	p.layout()
}

func (p *DisplayPanel) layout() {
	y := 0
	for _, c := range p.channels {
		c.Resized(Rect{
			X: 0,
			Y: y - c.ChannelOverlap()/2,
			W: p.width,
			H: c.ChannelHeight() + c.ChannelOverlap(),
		})
		y += c.ChannelHeight()
	}
	p.totalHeight = y
	p.fullRedraw = true
}

// SetRange changes the vertical scale of every channel.
func (p *DisplayPanel) SetRange(r float32) {
	if r <= 0 {
		return
	}
	p.rangeUV = r
	for _, c := range p.channels {
		c.SetRange(r)
	}
}

func (p *DisplayPanel) Range() float32 { return p.rangeUV }

// SetChannelHeight changes every channel's height and relays out.
func (p *DisplayPanel) SetChannelHeight(h int) {
	p.channelHeight = max(1, h)
	for _, c := range p.channels {
		c.SetChannelHeight(p.channelHeight)
	}
	p.layout()
}

func (p *DisplayPanel) ChannelHeight() int { return p.channelHeight }

func (p *DisplayPanel) RequestFullRedraw() { p.fullRedraw = true }

// FullRedrawPending reports whether the next Refresh repaints everything.
func (p *DisplayPanel) FullRedrawPending() bool { return p.fullRedraw }

// Select makes channel i the only selected one. Out of range deselects all.
func (p *DisplayPanel) Select(i int) {
	for _, c := range p.channels {
		c.Deselect()
	}
	p.selected = -1
	if c := p.Channel(i); c != nil {
		c.Select()
		p.selected = i
	}
	p.fullRedraw = true
}

// Selected is the selected channel or -1.
func (p *DisplayPanel) Selected() int { return p.selected }

// ChannelAt returns the channel drawn at content row y. Views overlap, the
// later one is on top.
func (p *DisplayPanel) ChannelAt(y int) int {
	for i := len(p.channels) - 1; i >= 0; i-- {
		b := p.channels[i].Bounds()
		if y >= b.Y && y < b.Bottom() {
			return i
		}
	}
	return -1
}

// Refresh repaints the channels intersecting view: everything after a
// layout, scroll or selection change, otherwise only the pixels the last
// screen buffer update touched.
func (p *DisplayPanel) Refresh(g Graphics, view VisibleRange) RepaintStats {
	full := p.fullRedraw
	p.fullRedraw = false

	stats := RepaintStats{Full: full}
	if full {
		stats.Window = FullWindow(p.width, p.trace.Cursor())
	} else {
		stats.Window = PartialWindow(p.trace.LastCursor(), p.trace.Cursor())
	}
	if stats.Window.Empty() || p.width <= 0 {
		stats.Culled = len(p.channels)
		return stats
	}
	g.Clear(stats.Window.Rect(view.Top, view.Bottom+1))

	for _, c := range p.channels {
		b := c.Bounds()
		if !view.Intersects(b.Y, b.Bottom()) {
			stats.Culled++
			continue
		}
		if full {
			c.RequestFullRedraw()
		}
		c.Paint(g, stats.Window)
		stats.Painted++
	}
	return stats
}

// Paint repaints every channel in full.
func (p *DisplayPanel) Paint(g Graphics, _ RedrawWindow) {
	p.fullRedraw = true
	p.Refresh(g, VisibleRange{Top: 0, Bottom: p.totalHeight})
}

var (
	_ Component = (*DisplayPanel)(nil)
	_ Component = (*TimeScale)(nil)
	_ Component = (*ChannelView)(nil)
)
