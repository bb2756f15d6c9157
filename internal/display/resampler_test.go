package display

import (
	"testing"

	"github.com/keilerkonzept/lfpscope/internal/acquisition"
)

func ramp(buf *acquisition.DisplayBuffer, from, n int) {
	for i := from; i < from+n; i++ {
		buf.Append([]float32{float32(i)})
	}
}

func TestNewSamplesWraps(t *testing.T) {
	for _, tc := range []struct{ write, read, capacity, want int }{
		{10, 990, 1000, 20},
		{50, 50, 1000, 0},
		{0, 999, 1000, 1},
		{100, 0, 1000, 100},
		{5, 0, 0, 0},
	} {
		if got := NewSamples(tc.write, tc.read, tc.capacity); got != tc.want {
			t.Errorf("NewSamples(%d, %d, %d) = %d, want %d", tc.write, tc.read, tc.capacity, got, tc.want)
		}
	}
}

func TestResamplerRatioTwo(t *testing.T) {
	buf := acquisition.NewDisplayBuffer(1, 1000, 1000)
	ramp(buf, 0, 100)
	sb := NewScreenBuffer(1, 500)
	var r Resampler

	u := r.Update(buf, sb, 1)
	if u.Ratio != 2 {
		t.Fatalf("ratio = %v, want 2", u.Ratio)
	}
	if u.From != 0 || u.To != 50 || sb.Cursor() != 50 {
		t.Fatalf("update = %+v, cursor %d; want 0..50", u, sb.Cursor())
	}
	if r.ReadIndex() != 100 {
		t.Errorf("read index = %d, want 100", r.ReadIndex())
	}
	for x := 0; x < 50; x++ {
		if got, want := sb.YCoord(0, x), float32(2*x); got != want {
			t.Fatalf("pixel %d = %v, want %v", x, got, want)
		}
	}
}

func TestResamplerNoNewDataIsIdempotent(t *testing.T) {
	buf := acquisition.NewDisplayBuffer(1, 1000, 1000)
	ramp(buf, 0, 100)
	sb := NewScreenBuffer(1, 500)
	var r Resampler
	r.Update(buf, sb, 1)

	u := r.Update(buf, sb, 1)
	if u.Skip != SkipNoData {
		t.Errorf("skip = %v, want no-data", u.Skip)
	}
	if sb.Cursor() != 50 || r.ReadIndex() != 100 {
		t.Errorf("cursor %d read %d, want 50 and 100", sb.Cursor(), r.ReadIndex())
	}
	if sb.LastCursor() != sb.Cursor() {
		t.Errorf("last cursor = %d, want %d", sb.LastCursor(), sb.Cursor())
	}
}

func TestResamplerReadIndexWraps(t *testing.T) {
	buf := acquisition.NewDisplayBuffer(1, 1000, 1000)
	ramp(buf, 0, 990)
	sb := NewScreenBuffer(1, 1000)
	r := Resampler{MaxValues: 2000}
	r.Resync(buf)
	ramp(buf, 990, 20)
	if buf.WriteIndex() != 10 {
		t.Fatalf("write index = %d, want 10", buf.WriteIndex())
	}

	// ratio 1: one pixel per sample
	u := r.Update(buf, sb, 1)
	if u.Samples != 20 || u.Values != 20 {
		t.Fatalf("update = %+v, want 20 samples and values", u)
	}
	if r.ReadIndex() != 10 {
		t.Errorf("read index = %d, want 10", r.ReadIndex())
	}
	if got := sb.YCoord(0, 9); got != 999 {
		t.Errorf("pixel 9 = %v, want 999", got)
	}
	if got := sb.YCoord(0, 10); got != 1000 {
		t.Errorf("pixel 10 = %v, want 1000", got)
	}
}

func TestResamplerCropsAtRightEdgeAndWrapsToMargin(t *testing.T) {
	buf := acquisition.NewDisplayBuffer(1, 1000, 100)
	sb := NewScreenBuffer(1, 100)
	r := Resampler{LeftMargin: 10}

	ramp(buf, 0, 150)
	u := r.Update(buf, sb, 1)
	if u.To != 100 || u.Values != 100 {
		t.Fatalf("update = %+v, want 100 values up to the edge", u)
	}
	if r.ReadIndex() != 100 {
		t.Fatalf("read index = %d, want 100", r.ReadIndex())
	}

	u = r.Update(buf, sb, 1)
	if u.From != 10 || u.To != 60 {
		t.Fatalf("update = %+v, want 10..60 after wrapping", u)
	}
	if got := sb.YCoord(0, 10); got != 100 {
		t.Errorf("pixel 10 = %v, want 100", got)
	}
}

func TestResamplerCarriesFraction(t *testing.T) {
	buf := acquisition.NewDisplayBuffer(1, 1000, 150)
	sb := NewScreenBuffer(1, 100)
	var r Resampler

	ramp(buf, 0, 3)
	r.Update(buf, sb, 1)
	ramp(buf, 3, 3)
	r.Update(buf, sb, 1)

	want := []float32{0, 1.5, 3}
	for x, w := range want {
		if got := sb.YCoord(0, x); got != w {
			t.Errorf("pixel %d = %v, want %v", x, got, w)
		}
	}
}

func TestResamplerSkipsBurst(t *testing.T) {
	buf := acquisition.NewDisplayBuffer(1, 1000, 100)
	sb := NewScreenBuffer(1, 100)
	r := Resampler{MaxValues: 10}

	ramp(buf, 0, 20)
	u := r.Update(buf, sb, 1)
	if u.Skip != SkipBurst {
		t.Fatalf("skip = %v, want burst", u.Skip)
	}
	if sb.Cursor() != 0 || r.ReadIndex() != 0 {
		t.Errorf("cursor %d read %d, want both unchanged", sb.Cursor(), r.ReadIndex())
	}
}

func TestResamplerBurstBoundary(t *testing.T) {
	for _, tc := range []struct {
		samples int
		skip    SkipReason
		values  int
	}{
		{9, SkipNone, 9},
		{10, SkipBurst, 0},
		{11, SkipBurst, 0},
	} {
		buf := acquisition.NewDisplayBuffer(1, 1000, 100)
		sb := NewScreenBuffer(1, 100)
		r := Resampler{MaxValues: 10}
		ramp(buf, 0, tc.samples)
		u := r.Update(buf, sb, 1)
		if u.Skip != tc.skip || u.Values != tc.values {
			t.Errorf("%d samples: skip %v values %d, want %v %d", tc.samples, u.Skip, u.Values, tc.skip, tc.values)
		}
	}
}

func TestResamplerNoWidth(t *testing.T) {
	buf := acquisition.NewDisplayBuffer(1, 1000, 100)
	ramp(buf, 0, 20)
	var r Resampler
	if u := r.Update(buf, NewScreenBuffer(1, 0), 1); u.Skip != SkipNoWidth {
		t.Errorf("skip = %v, want no-width", u.Skip)
	}
}

func TestLerp(t *testing.T) {
	if got := Lerp(3.25, 100, 0); got != 3.25 {
		t.Errorf("Lerp at 0 = %v, want 3.25", got)
	}
	if got := Lerp(0, 10, 0.5); got != 5 {
		t.Errorf("Lerp at 0.5 = %v, want 5", got)
	}
}
