package display

import (
	"strings"
	"testing"

	"github.com/keilerkonzept/lfpscope/internal/acquisition"
	"github.com/keilerkonzept/lfpscope/internal/settings"
)

func newTestCanvas(t *testing.T, channels int, opts Options) (*Canvas, *acquisition.DisplayBuffer) {
	t.Helper()
	buf := acquisition.NewDisplayBuffer(channels, 10000, 1000)
	if opts.LeftMargin == 0 {
		opts.LeftMargin = 10
	}
	if opts.TimebaseID == 0 {
		opts.TimebaseID = DefaultTimebaseID
	}
	if opts.RangeID == 0 {
		opts.RangeID = DefaultRangeID
	}
	if opts.SpreadID == 0 {
		opts.SpreadID = DefaultSpreadID
	}
	c := NewCanvas(buf, opts)
	c.Resized(200, 80)
	return c, buf
}

func appendFrames(buf *acquisition.DisplayBuffer, n int) {
	frame := make([]float32, buf.NumChannels())
	for i := 0; i < n; i++ {
		buf.Append(frame)
	}
}

func TestCanvasRefresh(t *testing.T) {
	c, buf := newTestCanvas(t, 4, Options{})
	c.BeginAnimation()

	// 1000 Hz over 1 s across 200 pixels: 5 samples per pixel
	appendFrames(buf, 100)
	f := c.Refresh()
	if f.Update.From != 0 || f.Update.To != 20 {
		t.Fatalf("update = %+v, want 0..20", f.Update)
	}
	if !f.Repaint.Full {
		t.Error("first frame after layout was not a full redraw")
	}

	appendFrames(buf, 50)
	f = c.Refresh()
	if f.Repaint.Full || f.Repaint.Window.From != 17 || f.Repaint.Window.To != 31 {
		t.Errorf("second frame = %+v, want partial 17..31", f.Repaint)
	}
	if c.ReadIndex() != buf.WriteIndex() {
		t.Errorf("read index %d, write index %d", c.ReadIndex(), buf.WriteIndex())
	}
}

func TestCanvasPausedRefreshIsNoop(t *testing.T) {
	c, buf := newTestCanvas(t, 2, Options{})
	appendFrames(buf, 100)
	if f := c.Refresh(); f.Update.Values != 0 || f.Repaint.Painted != 0 {
		t.Errorf("refresh before BeginAnimation = %+v", f)
	}
	c.BeginAnimation()
	if c.ReadIndex() != buf.WriteIndex() {
		t.Error("BeginAnimation did not resync the read cursor")
	}
	c.EndAnimation()
	appendFrames(buf, 100)
	if f := c.Refresh(); f.Update.Values != 0 {
		t.Errorf("refresh after EndAnimation = %+v", f)
	}
}

func TestCanvasPaintsWhileIdle(t *testing.T) {
	c, _ := newTestCanvas(t, 2, Options{})
	center := c.Panel().Channel(0).Center()
	if !c.Raster().Pixel(100, center) {
		t.Error("centre line missing before the first animation")
	}
	if c.Panel().FullRedrawPending() {
		t.Error("idle paint left the full redraw pending")
	}

	c.Select(0)
	if !c.Raster().Pixel(0, center) {
		t.Error("selection block not painted while idle")
	}

	c.Resized(300, 80)
	if !c.Raster().Pixel(250, center) {
		t.Error("resize while idle did not repaint the new width")
	}
	if got := strings.Join(c.ScaleRaster().Plain(0, 1), ""); !strings.Contains(got, "ms") {
		t.Errorf("time scale = %q, want the ms caption", got)
	}
}

func TestCanvasDropsBurst(t *testing.T) {
	c, buf := newTestCanvas(t, 2, Options{MaxValuesPerFrame: 10})
	c.BeginAnimation()
	appendFrames(buf, 100)
	f := c.Refresh()
	if f.Update.Skip != SkipBurst {
		t.Fatalf("skip = %v, want burst", f.Update.Skip)
	}
	if c.ReadIndex() != buf.WriteIndex() {
		t.Errorf("read index %d not resynced to %d", c.ReadIndex(), buf.WriteIndex())
	}
	if c.Screen().Cursor() != 0 {
		t.Errorf("cursor = %d, want 0", c.Screen().Cursor())
	}
}

func TestCanvasRebuildsOnReconfigure(t *testing.T) {
	c, buf := newTestCanvas(t, 8, Options{})
	c.BeginAnimation()
	c.Select(3)
	buf.Reconfigure(16, 10000, 2000)
	f := c.Refresh()
	if !f.Rebuilt {
		t.Fatal("layout change not noticed")
	}
	if c.NumChannels() != 16 || c.Panel().NumChannels() != 16 || c.Screen().Channels() != 16 {
		t.Errorf("channels = %d/%d/%d, want 16", c.NumChannels(), c.Panel().NumChannels(), c.Screen().Channels())
	}
	if c.SampleRate() != 2000 {
		t.Errorf("sample rate = %v", c.SampleRate())
	}
	if c.Selected() != -1 {
		t.Errorf("selection survived the rebuild: %d", c.Selected())
	}
	if c.TotalHeight() != 16*c.ChannelHeight() {
		t.Errorf("total height = %d", c.TotalHeight())
	}
}

func TestCanvasResizeClearsScreenBuffer(t *testing.T) {
	c, buf := newTestCanvas(t, 1, Options{})
	c.BeginAnimation()
	for i := 0; i < 100; i++ {
		buf.Append([]float32{1})
	}
	c.Refresh()
	if c.YCoord(0, 5) != 1 {
		t.Fatalf("pixel 5 = %v, want 1", c.YCoord(0, 5))
	}
	c.Resized(300, 80)
	if c.Screen().Width() != 300 || c.YCoord(0, 5) != 0 || c.Screen().Cursor() != 0 {
		t.Error("width change did not clear the screen buffer")
	}
	if c.XCoord(0, 17) != 17 {
		t.Error("XCoord is not identity")
	}
}

func TestCanvasScrollAndSelect(t *testing.T) {
	c, _ := newTestCanvas(t, 8, Options{})
	// 8 channels of 50 pixels in an 80 pixel view
	c.ScrollTo(0, 1000)
	if c.ScrollY() != 320 {
		t.Errorf("scroll = %d, want 320", c.ScrollY())
	}
	c.ScrollTo(0, -5)
	if c.ScrollY() != 0 {
		t.Errorf("scroll = %d, want 0", c.ScrollY())
	}
	if got := c.SelectAt(75); got != 1 || c.Selected() != 1 {
		t.Errorf("SelectAt(75) = %d, want 1", got)
	}
	if got := c.StepSelection(-2); got != 7 {
		t.Errorf("StepSelection(-2) = %d, want 7", got)
	}
	if c.ScrollY() == 0 {
		t.Error("selecting the last channel did not scroll it into view")
	}
}

func TestCanvasSelectorsApply(t *testing.T) {
	c, _ := newTestCanvas(t, 4, Options{})
	if !c.SetSpreadID(2) || c.TotalHeight() != 4*20 {
		t.Errorf("total height = %d, want 80", c.TotalHeight())
	}
	if c.SetSpreadID(42) {
		t.Error("unknown spread accepted")
	}
	if !c.SetRangeID(1) || c.Panel().Channel(0).Range() != 50 {
		t.Errorf("range = %v, want 50", c.Panel().Channel(0).Range())
	}
	if !c.StepTimebase(1) || c.TimeScale().Timebase() != 2 {
		t.Errorf("timebase = %v, want 2", c.TimeScale().Timebase())
	}
}

func TestCanvasParametersRoundTrip(t *testing.T) {
	c, _ := newTestCanvas(t, 8, Options{})
	c.SetTimebaseID(5)
	c.SetRangeID(2)
	c.SetSpreadID(6)
	c.ScrollTo(0, 100)

	doc := settings.NewDocument()
	c.SaveParameters(doc)

	d, _ := newTestCanvas(t, 8, Options{})
	d.LoadParameters(doc)
	if d.Timebase().ID() != 5 || d.VoltageRange().ID() != 2 || d.Spread().ID() != 6 {
		t.Errorf("ids = %d/%d/%d, want 5/2/6", d.Timebase().ID(), d.VoltageRange().ID(), d.Spread().ID())
	}
	if d.ScrollY() != 100 {
		t.Errorf("scroll = %d, want 100", d.ScrollY())
	}
}

func TestCanvasLoadIgnoresBadParameters(t *testing.T) {
	c, _ := newTestCanvas(t, 2, Options{})
	c.LoadParameters(settings.NewDocument())
	if c.VoltageRange().ID() != DefaultRangeID {
		t.Error("missing element changed the range")
	}

	doc := settings.NewDocument()
	doc.SetElement(ElementName, settings.Attributes{"range": 99, "timebase": 1})
	c.LoadParameters(doc)
	if c.VoltageRange().ID() != DefaultRangeID {
		t.Errorf("range id = %d, want %d", c.VoltageRange().ID(), DefaultRangeID)
	}
	if c.Timebase().ID() != 1 {
		t.Errorf("timebase id = %d, want 1", c.Timebase().ID())
	}
}

func TestCanvasOutOfBand(t *testing.T) {
	c, buf := newTestCanvas(t, 2, Options{})
	c.BeginAnimation()
	for i := 0; i < 100; i++ {
		buf.Append([]float32{0, 5000})
	}
	f := c.Refresh()
	got := map[int]int{}
	c.OutOfBand(f.Update, func(ch, n int) { got[ch] = n })
	if len(got) != 1 || got[1] != 20 {
		t.Errorf("out of band = %v, want channel 1 with 20 pixels", got)
	}
}
