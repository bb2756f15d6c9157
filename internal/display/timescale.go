package display

import (
	"math"
	"strconv"
)

// TimeScale draws the millisecond labels above the traces.
type TimeScale struct {
	timebase float64
	labels   []string
	bounds   Rect
}

func NewTimeScale(timebase float64) *TimeScale {
	t := &TimeScale{}
	t.SetTimebase(timebase)
	return t
}

// SetTimebase regenerates the nine labels at tenths of the width.
func (t *TimeScale) SetTimebase(timebase float64) {
	t.timebase = timebase
	t.labels = t.labels[:0]
	for i := 1; i < 10; i++ {
		t.labels = append(t.labels, TimeLabel(timebase, i))
	}
}

func (t *TimeScale) Timebase() float64 { return t.timebase }
func (t *TimeScale) Labels() []string  { return t.labels }

// TimeLabel is the time in ms at the i-th tenth of the width, cut to four characters.
func TimeLabel(timebase float64, i int) string {
	ms := math.Round(timebase/10*1000*float64(i)*100) / 100
	s := strconv.FormatFloat(ms, 'f', -1, 64)
	if len(s) > 4 {
		s = s[:4]
	}
	return s
}

func (t *TimeScale) Resized(bounds Rect) { t.bounds = bounds }

// TickX is the pixel of the i-th tick.
func (t *TimeScale) TickX(i int) int {
	return t.bounds.X + t.bounds.W*i/10
}

// Paint always redraws the whole scale; it is one text row.
func (t *TimeScale) Paint(g Graphics, _ RedrawWindow) {
	b := t.bounds
	g.Clear(b)
	g.DrawText(b.X, b.Y, "ms:", LabelColour)
	for i := 1; i < 10; i++ {
		x := t.TickX(i)
		g.DrawLine(x, b.Y, x, b.Bottom()-1, ScaleColour)
		if i == 5 {
			g.DrawLine(x+1, b.Y, x+1, b.Bottom()-1, ScaleColour)
		}
		g.DrawText(x+2, b.Y, t.labels[i-1], LabelColour)
	}
}
