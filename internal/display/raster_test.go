package display

import (
	"reflect"
	"strings"
	"testing"
)

func TestRasterBrailleEncoding(t *testing.T) {
	r := NewRaster(4, 4)
	if r.Cols() != 2 || r.Rows() != 1 {
		t.Fatalf("cells = %dx%d, want 2x1", r.Cols(), r.Rows())
	}
	r.SetPixel(0, 0, LabelColour)
	r.SetPixel(1, 3, LabelColour)
	r.SetPixel(2, 1, GridColour)

	want := []string{string([]rune{0x2881, 0x2802})}
	if got := r.Plain(0, 1); !reflect.DeepEqual(got, want) {
		t.Errorf("Plain = %q, want %q", got, want)
	}
	if _, c := r.Cell(1, 0); c != GridColour {
		t.Errorf("cell colour = %d, want %d", c, GridColour)
	}
	if !r.Pixel(1, 3) || r.Pixel(1, 2) {
		t.Error("Pixel disagrees with SetPixel")
	}
}

func TestRasterClipsOutOfBounds(t *testing.T) {
	r := NewRaster(4, 4)
	r.SetPixel(-1, 0, LabelColour)
	r.SetPixel(4, 0, LabelColour)
	r.DrawLine(-5, -5, 10, 10, LabelColour)
	r.DrawText(-4, 0, "abcdef", LabelColour)
	r.DrawText(0, 9, "x", LabelColour)
	if got := r.Plain(0, 1); len(got) != 1 {
		t.Fatalf("rows = %d, want 1", len(got))
	}
}

func TestRasterTextHidesDotsUntilCleared(t *testing.T) {
	r := NewRaster(8, 4)
	r.DrawLine(0, 0, 7, 0, GridColour)
	r.DrawText(2, 0, "7", LabelColour)
	if got := r.Plain(0, 1)[0]; !strings.ContainsRune(got, '7') {
		t.Fatalf("row = %q, want the label", got)
	}
	r.Clear(Rect{X: 2, Y: 0, W: 2, H: 4})
	got := []rune(r.Plain(0, 1)[0])
	if got[1] != ' ' {
		t.Errorf("cleared cell = %q, want blank", got[1])
	}
	if got[0] != rune(brailleBase|0x09) {
		t.Errorf("untouched cell = %q", got[0])
	}
}

func TestRasterDrawLineEndpoints(t *testing.T) {
	r := NewRaster(10, 12)
	r.DrawLine(1, 1, 8, 10, LabelColour)
	if !r.Pixel(1, 1) || !r.Pixel(8, 10) {
		t.Error("line misses an end point")
	}
	r.Clear(Rect{W: 10, H: 12})
	r.DrawLine(3, 0, 3, 11, LabelColour)
	for y := 0; y < 12; y++ {
		if !r.Pixel(3, y) {
			t.Fatalf("vertical line has a gap at y=%d", y)
		}
	}
}

func TestTimeLabels(t *testing.T) {
	for _, tc := range []struct {
		timebase float64
		i        int
		want     string
	}{
		{1, 1, "100"},
		{0.2, 1, "20"},
		{0.2, 7, "140"},
		{0.5, 3, "150"},
		{10, 9, "9000"},
		{20, 9, "1800"},
		{0.01, 3, "3"},
		{0.001, 1, "0.1"},
	} {
		if got := TimeLabel(tc.timebase, tc.i); got != tc.want {
			t.Errorf("TimeLabel(%v, %d) = %q, want %q", tc.timebase, tc.i, got, tc.want)
		}
	}
	ts := NewTimeScale(2)
	if len(ts.Labels()) != 9 || ts.Labels()[4] != "1000" {
		t.Errorf("labels = %v", ts.Labels())
	}
}

func TestTimeScalePaint(t *testing.T) {
	ts := NewTimeScale(1)
	ts.Resized(Rect{W: 100, H: 4})
	if ts.TickX(5) != 50 {
		t.Errorf("TickX(5) = %d, want 50", ts.TickX(5))
	}
	g := &recorder{}
	ts.Paint(g, RedrawWindow{})
	// nine ticks, the middle one doubled
	if got := g.count(ScaleColour); got != 10 {
		t.Errorf("tick lines = %d, want 10", got)
	}
	if len(g.texts) != 10 || g.texts[0] != "ms:" {
		t.Errorf("texts = %v", g.texts)
	}
}

func TestSelector(t *testing.T) {
	s := NewSelector("Timebase", "s", Timebases, DefaultTimebaseID)
	if s.Value() != 1 || s.Label() != "1.0" {
		t.Fatalf("default = %v %q, want 1 1.0", s.Value(), s.Label())
	}
	if s.SetID(0) || s.SetID(7) || s.SetID(3) {
		t.Error("invalid or unchanged id reported a change")
	}
	if !s.SetID(6) || s.Value() != 10 {
		t.Errorf("SetID(6) value = %v, want 10", s.Value())
	}
	if s.Step(1) || s.ID() != 6 {
		t.Error("Step past the end changed the selection")
	}
	if !s.Step(-10) || s.ID() != 1 {
		t.Errorf("Step(-10) id = %d, want 1", s.ID())
	}
	if got := s.String(); got != "Timebase 0.2 s" {
		t.Errorf("String = %q", got)
	}
	if NewSelector("x", "", Spreads, 99).ID() != 1 {
		t.Error("invalid initial id not ignored")
	}
}
