package display

import (
	"github.com/keilerkonzept/lfpscope/internal/acquisition"
	"github.com/keilerkonzept/lfpscope/internal/settings"
	"github.com/sirupsen/logrus"
)

// ElementName is the settings element the canvas saves itself under.
const ElementName = "lfpdisplay"

// Options configure a Canvas.
type Options struct {
	LeftMargin        int
	MaxValuesPerFrame int
	TimebaseID        int
	RangeID           int
	SpreadID          int
	Logger            logrus.FieldLogger
}

// Frame is the result of one Canvas.Refresh.
type Frame struct {
	Update  Update
	Repaint RepaintStats
	Rebuilt bool
}

// Canvas owns the screen buffer, the channel panel and the time scale, and
// runs the per-frame resample and repaint cycle.
type Canvas struct {
	src acquisition.Source
	log logrus.FieldLogger

	generation uint64
	nChans     int
	sampleRate float64

	screen    *ScreenBuffer
	resampler Resampler
	panel     *DisplayPanel
	timescale *TimeScale
	raster    *Raster
	scale     *Raster

	timebase *Selector
	rangeSel *Selector
	spread   *Selector

	width, viewHeight int
	scrollX, scrollY  int
	animating         bool
}

func NewCanvas(src acquisition.Source, opts Options) *Canvas {
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	c := &Canvas{
		src:       src,
		log:       log.WithField("component", "canvas"),
		screen:    NewScreenBuffer(0, 0),
		resampler: Resampler{LeftMargin: opts.LeftMargin, MaxValues: opts.MaxValuesPerFrame},
		timebase:  NewSelector("Timebase", "s", Timebases, DefaultTimebaseID),
		rangeSel:  NewSelector("Voltage range", "uV", VoltageRanges, DefaultRangeID),
		spread:    NewSelector("Spread", "px", Spreads, DefaultSpreadID),
		raster:    NewRaster(0, 0),
		scale:     NewRaster(0, 4),
	}
	c.timebase.SetID(opts.TimebaseID)
	c.rangeSel.SetID(opts.RangeID)
	c.spread.SetID(opts.SpreadID)

	c.panel = NewDisplayPanel(c.screen, opts.LeftMargin)
	c.panel.SetRange(float32(c.rangeSel.Value()))
	c.panel.SetChannelHeight(int(c.spread.Value()))
	c.timescale = NewTimeScale(c.timebase.Value())
	c.Update()
	return c
}

// Update re-reads the channel count and sample rate, clears the screen
// buffer and rebuilds every channel view.
func (c *Canvas) Update() {
	c.generation = c.src.Generation()
	c.nChans = c.src.NumChannels()
	c.sampleRate = c.src.SampleRate()
	c.log.WithFields(logrus.Fields{
		"channels":    c.nChans,
		"sample_rate": c.sampleRate,
		"capacity":    c.src.Capacity(),
	}).Info("display layout updated")

	c.refreshScreenBuffer()
	c.resampler.Resync(c.src)
	c.panel.SetNumChannels(c.nChans)
	c.layout()
}

func (c *Canvas) refreshScreenBuffer() {
	c.screen.Resize(c.nChans, c.width)
}

// Resized sets the trace area size in pixels. A width change clears the
// screen buffer.
func (c *Canvas) Resized(width, viewHeight int) {
	width, viewHeight = max(0, width), max(0, viewHeight)
	if width != c.width {
		c.width = width
		c.refreshScreenBuffer()
	}
	c.viewHeight = viewHeight
	c.layout()
}

func (c *Canvas) layout() {
	if c.raster.Width() != c.width || c.raster.Height() != c.panel.TotalHeight() {
		c.raster.Resize(c.width, c.panel.TotalHeight())
	}
	if c.scale.Width() != c.width {
		c.scale.Resize(c.width, 4)
	}
	c.panel.Resized(Rect{W: c.width, H: c.panel.TotalHeight()})
	c.timescale.Resized(Rect{W: c.width, H: 4})
	c.paint(c.scale, c.timescale)
	c.ScrollTo(c.scrollX, c.scrollY)
	c.panel.RequestFullRedraw()
	c.paintIdle()
}

// paint redraws each component in full.
func (c *Canvas) paint(g Graphics, comps ...Component) {
	w := FullWindow(c.width, c.screen.Cursor())
	for _, comp := range comps {
		comp.Paint(g, w)
	}
}

// paintIdle repaints the panel while no frames are refreshing it.
func (c *Canvas) paintIdle() {
	if !c.animating {
		c.paint(c.raster, c.panel)
	}
}

// BeginAnimation starts consuming samples from the current write position.
func (c *Canvas) BeginAnimation() {
	c.log.Info("beginning animation")
	c.RefreshState()
	c.animating = true
}

// EndAnimation stops consuming samples; Refresh becomes a no-op.
func (c *Canvas) EndAnimation() {
	c.log.Info("ending animation")
	c.animating = false
}

func (c *Canvas) Animating() bool { return c.animating }

// RefreshState realigns the read cursor with the producer and restarts the
// sweep, as after the view was hidden.
func (c *Canvas) RefreshState() {
	c.resampler.Resync(c.src)
	c.screen.cursor, c.screen.last = 0, 0
	c.panel.RequestFullRedraw()
}

// Refresh resamples new data and repaints what changed.
func (c *Canvas) Refresh() Frame {
	var f Frame
	if !c.animating {
		return f
	}
	if c.src.Generation() != c.generation {
		c.Update()
		f.Rebuilt = true
	}
	f.Update = c.resampler.Update(c.src, c.screen, c.timebase.Value())
	if f.Update.Skip == SkipBurst {
		// the frame is dropped, not retried
		c.log.WithField("samples", f.Update.Samples).Debug("skipping burst")
		c.resampler.Resync(c.src)
	}
	f.Repaint = c.panel.Refresh(c.raster, c.Visible())
	return f
}

// Visible is the content range the viewport shows.
func (c *Canvas) Visible() VisibleRange {
	return VisibleRange{Top: c.scrollY, Bottom: c.scrollY + c.viewHeight}
}

// ScrollTo moves the viewport, clamped to the content, and forces a full
// redraw when it moved.
func (c *Canvas) ScrollTo(x, y int) {
	x = max(0, x)
	y = min(max(0, y), max(0, c.panel.TotalHeight()-c.viewHeight))
	if x != c.scrollX || y != c.scrollY {
		c.scrollX, c.scrollY = x, y
		c.panel.RequestFullRedraw()
		c.paintIdle()
	}
}

func (c *Canvas) ScrollX() int { return c.scrollX }
func (c *Canvas) ScrollY() int { return c.scrollY }

// SetTimebaseID changes the seconds shown across the width from the next refresh.
func (c *Canvas) SetTimebaseID(id int) bool {
	if !c.timebase.SetID(id) {
		return false
	}
	c.applyTimebase()
	return true
}

func (c *Canvas) applyTimebase() {
	c.timescale.SetTimebase(c.timebase.Value())
	c.paint(c.scale, c.timescale)
}

// SetRangeID changes the vertical scale used at paint time.
func (c *Canvas) SetRangeID(id int) bool {
	if !c.rangeSel.SetID(id) {
		return false
	}
	c.applyRange()
	return true
}

func (c *Canvas) applyRange() {
	c.panel.SetRange(float32(c.rangeSel.Value()))
	c.panel.RequestFullRedraw()
	c.paintIdle()
}

// SetSpreadID changes the channel height, relays out and redraws everything.
func (c *Canvas) SetSpreadID(id int) bool {
	if !c.spread.SetID(id) {
		return false
	}
	c.applySpread()
	return true
}

func (c *Canvas) applySpread() {
	c.panel.SetChannelHeight(int(c.spread.Value()))
	c.layout()
}

// StepTimebase, StepRange and StepSpread move a selector by delta.
func (c *Canvas) StepTimebase(delta int) bool { return c.SetTimebaseID(c.timebase.ID() + delta) }
func (c *Canvas) StepRange(delta int) bool    { return c.SetRangeID(c.rangeSel.ID() + delta) }
func (c *Canvas) StepSpread(delta int) bool   { return c.SetSpreadID(c.spread.ID() + delta) }

func (c *Canvas) Timebase() *Selector     { return c.timebase }
func (c *Canvas) VoltageRange() *Selector { return c.rangeSel }
func (c *Canvas) Spread() *Selector       { return c.spread }

// ChannelHeight is the current spread in pixels.
func (c *Canvas) ChannelHeight() int { return int(c.spread.Value()) }

// Select selects channel i and redraws.
func (c *Canvas) Select(i int) {
	c.panel.Select(i)
	c.paintIdle()
}

// SelectAt selects the channel under the viewport row y and returns it.
func (c *Canvas) SelectAt(y int) int {
	i := c.panel.ChannelAt(c.scrollY + y)
	if i >= 0 {
		c.Select(i)
	}
	return i
}

// StepSelection moves the selection up or down, wrapping around.
func (c *Canvas) StepSelection(delta int) int {
	n := c.panel.NumChannels()
	if n == 0 {
		return -1
	}
	i := c.panel.Selected()
	if i < 0 {
		i = 0
		if delta < 0 {
			i = n - 1
		}
	} else {
		i = ((i+delta)%n + n) % n
	}
	c.ScrollIntoView(i)
	c.Select(i)
	return i
}

// ScrollIntoView scrolls so that channel i is visible.
func (c *Canvas) ScrollIntoView(i int) {
	ch := c.panel.Channel(i)
	if ch == nil {
		return
	}
	top := ch.Center() - ch.ChannelHeight()/2
	bottom := top + ch.ChannelHeight()
	switch {
	case top < c.scrollY:
		c.ScrollTo(c.scrollX, top)
	case bottom > c.scrollY+c.viewHeight:
		c.ScrollTo(c.scrollX, bottom-c.viewHeight)
	}
}

func (c *Canvas) Selected() int { return c.panel.Selected() }

func (c *Canvas) NumChannels() int    { return c.nChans }
func (c *Canvas) SampleRate() float64 { return c.sampleRate }
func (c *Canvas) Width() int          { return c.width }

// TotalHeight is the content height of all channels in pixels.
func (c *Canvas) TotalHeight() int { return c.panel.TotalHeight() }

func (c *Canvas) Panel() *DisplayPanel     { return c.panel }
func (c *Canvas) Screen() *ScreenBuffer    { return c.screen }
func (c *Canvas) TimeScale() *TimeScale    { return c.timescale }
func (c *Canvas) Raster() *Raster          { return c.raster }
func (c *Canvas) ScaleRaster() *Raster     { return c.scale }
func (c *Canvas) ReadIndex() int           { return c.resampler.ReadIndex() }
func (c *Canvas) RequestFullRedraw()       { c.panel.RequestFullRedraw() }
func (c *Canvas) XCoord(ch, x int) int     { return c.screen.XCoord(ch, x) }
func (c *Canvas) YCoord(ch, x int) float32 { return c.screen.YCoord(ch, x) }

// OutOfBand counts, per channel, the pixels of u whose trace leaves the
// channel's own height.
func (c *Canvas) OutOfBand(u Update, fn func(channel, pixels int)) {
	if u.To <= u.From {
		return
	}
	for ch := 0; ch < c.panel.NumChannels(); ch++ {
		view := c.panel.Channel(ch)
		row := c.screen.Row(ch)
		n := 0
		for x := u.From; x < u.To && x < len(row); x++ {
			if view.OutOfBand(row[x]) {
				n++
			}
		}
		if n > 0 {
			fn(ch, n)
		}
	}
}

// SaveParameters stores the selector ids and scroll position in doc.
func (c *Canvas) SaveParameters(doc *settings.Document) {
	doc.SetElement(ElementName, settings.Attributes{
		"range":    c.rangeSel.ID(),
		"timebase": c.timebase.ID(),
		"spread":   c.spread.ID(),
		"scroll_x": c.scrollX,
		"scroll_y": c.scrollY,
	})
}

// LoadParameters restores what SaveParameters stored. A missing element,
// missing attributes and unknown ids are ignored.
func (c *Canvas) LoadParameters(doc *settings.Document) {
	e, ok := doc.Element(ElementName)
	if !ok {
		return
	}
	if id, ok := e.Int("range"); ok {
		c.SetRangeID(id)
	}
	if id, ok := e.Int("timebase"); ok {
		c.SetTimebaseID(id)
	}
	if id, ok := e.Int("spread"); ok {
		c.SetSpreadID(id)
	}
	x, hasX := e.Int("scroll_x")
	y, hasY := e.Int("scroll_y")
	if !hasX {
		x = c.scrollX
	}
	if !hasY {
		y = c.scrollY
	}
	c.ScrollTo(x, y)
	c.log.WithFields(logrus.Fields{
		"timebase": c.timebase.Label(),
		"range":    c.rangeSel.Label(),
		"spread":   c.spread.Label(),
	}).Debug("parameters loaded")
}
