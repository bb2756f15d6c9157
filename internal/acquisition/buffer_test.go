package acquisition

import (
	"context"
	"strings"
	"sync"
	"testing"
)

func TestDisplayBufferAppendWraps(t *testing.T) {
	b := NewDisplayBuffer(2, 4, 1000)
	for i := 0; i < 6; i++ {
		b.Append([]float32{float32(i), float32(-i)})
	}
	if got := b.WriteIndex(); got != 2 {
		t.Fatalf("write index = %d, want 2", got)
	}
	// slots 0 and 1 were overwritten by frames 4 and 5
	if got := b.Sample(0, 0); got != 4 {
		t.Errorf("Sample(0,0) = %v, want 4", got)
	}
	if got := b.Sample(1, 1); got != -5 {
		t.Errorf("Sample(1,1) = %v, want -5", got)
	}
	if got := b.Sample(0, 3); got != 3 {
		t.Errorf("Sample(0,3) = %v, want 3", got)
	}
	if got := b.Written(); got != 6 {
		t.Errorf("Written = %d, want 6", got)
	}
}

func TestDisplayBufferOutOfRangeReadsZero(t *testing.T) {
	b := NewDisplayBuffer(1, 4, 1000)
	b.Append([]float32{7})
	for _, tc := range []struct{ ch, idx int }{{-1, 0}, {1, 0}, {0, -1}, {0, 4}} {
		if got := b.Sample(tc.ch, tc.idx); got != 0 {
			t.Errorf("Sample(%d,%d) = %v, want 0", tc.ch, tc.idx, got)
		}
	}
}

func TestDisplayBufferShortFramePadsZero(t *testing.T) {
	b := NewDisplayBuffer(3, 4, 1000)
	b.Append([]float32{1, 2, 3})
	b.Append([]float32{9})
	if got := b.Sample(1, 1); got != 0 {
		t.Errorf("missing channel = %v, want 0", got)
	}
}

func TestReconfigureBumpsGeneration(t *testing.T) {
	b := NewDisplayBuffer(2, 8, 1000)
	gen := b.Generation()
	b.Append([]float32{1, 1})
	b.Reconfigure(4, 8, 2000)
	if b.Generation() == gen {
		t.Fatal("generation did not change")
	}
	if b.NumChannels() != 4 || b.SampleRate() != 2000 || b.WriteIndex() != 0 {
		t.Errorf("layout = %d ch @ %v Hz idx %d", b.NumChannels(), b.SampleRate(), b.WriteIndex())
	}
}

func TestConcurrentReadersDoNotBlockWriter(t *testing.T) {
	b := NewDisplayBuffer(4, 256, 1000)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		frame := []float32{1, 2, 3, 4}
		for i := 0; i < 10000; i++ {
			b.Append(frame)
		}
	}()
	for i := 0; i < 1000; i++ {
		idx := b.WriteIndex()
		if idx < 0 || idx >= b.Capacity() {
			t.Fatalf("write index %d out of range", idx)
		}
		_ = b.Sample(i%4, idx)
	}
	wg.Wait()
}

func TestStreamReaderText(t *testing.T) {
	b := NewDisplayBuffer(2, 16, 1000)
	in := "# header\n1,2\n\n3 4\nbad line\n5\t6\n"
	r := NewStreamReader(b, nil, StreamOptions{})
	if err := r.Read(context.Background(), strings.NewReader(in)); err != nil {
		t.Fatal(err)
	}
	if b.WriteIndex() != 3 {
		t.Fatalf("frames = %d, want 3", b.WriteIndex())
	}
	if r.Skipped() != 1 {
		t.Errorf("skipped = %d, want 1", r.Skipped())
	}
	if got := b.Sample(1, 2); got != 6 {
		t.Errorf("Sample(1,2) = %v, want 6", got)
	}
}

func TestStreamReaderChannelCountChange(t *testing.T) {
	b := NewDisplayBuffer(2, 16, 1000)
	gen := b.Generation()
	r := NewStreamReader(b, nil, StreamOptions{})
	if err := r.Read(context.Background(), strings.NewReader("1 2\n1 2 3\n")); err != nil {
		t.Fatal(err)
	}
	if b.NumChannels() != 3 {
		t.Errorf("channels = %d, want 3", b.NumChannels())
	}
	if b.Generation() == gen {
		t.Error("generation unchanged after channel count change")
	}
}

func TestStreamReaderJSON(t *testing.T) {
	b := NewDisplayBuffer(2, 16, 1000)
	in := `{"samples":[1,2]} {"samples":[3,4],"sample_rate":500} {"samples":[]}`
	r := NewStreamReader(b, nil, StreamOptions{JSON: true})
	if err := r.Read(context.Background(), strings.NewReader(in)); err != nil {
		t.Fatal(err)
	}
	if b.SampleRate() != 500 {
		t.Errorf("sample rate = %v, want 500", b.SampleRate())
	}
	if r.Skipped() != 1 {
		t.Errorf("skipped = %d, want 1", r.Skipped())
	}
}

func TestStreamReaderSkipsNonFinite(t *testing.T) {
	b := NewDisplayBuffer(2, 16, 1000)
	in := "1 2\nNaN 2\n3 +Inf\n-inf 0\n1e39 0\n1e38 4\n"
	r := NewStreamReader(b, nil, StreamOptions{})
	if err := r.Read(context.Background(), strings.NewReader(in)); err != nil {
		t.Fatal(err)
	}
	if b.WriteIndex() != 2 {
		t.Fatalf("frames = %d, want 2", b.WriteIndex())
	}
	if r.Skipped() != 4 {
		t.Errorf("skipped = %d, want 4", r.Skipped())
	}
	if got := b.Sample(1, 1); got != 4 {
		t.Errorf("Sample(1,1) = %v, want 4", got)
	}
}

func TestStreamReaderMaxFrames(t *testing.T) {
	b := NewDisplayBuffer(1, 16, 1000)
	r := NewStreamReader(b, nil, StreamOptions{MaxFrames: 2})
	if err := r.Read(context.Background(), strings.NewReader("1\n2\n3\n4\n")); err != nil {
		t.Fatal(err)
	}
	if b.WriteIndex() != 2 {
		t.Errorf("frames = %d, want 2", b.WriteIndex())
	}
}

func TestSyntheticFill(t *testing.T) {
	b := NewDisplayBuffer(4, 100, 1000)
	s := NewSynthetic(b, nil, 1)
	s.Fill(150)
	if b.WriteIndex() != 50 {
		t.Errorf("write index = %d, want 50", b.WriteIndex())
	}
	b.Reconfigure(8, 100, 1000)
	s.Fill(1)
	if len(s.frame) != 8 {
		t.Errorf("generator did not follow the new channel count")
	}
}

func TestGate(t *testing.T) {
	g := NewGate()
	if !g.Toggle() || !g.Paused() {
		t.Fatal("expected paused")
	}
	done := make(chan bool)
	go func() { done <- g.Wait() }()
	g.Toggle()
	if !<-done {
		t.Error("Wait returned false on an open gate")
	}
	g.Toggle()
	go func() { done <- g.Wait() }()
	g.Close()
	if <-done {
		t.Error("Wait returned true on a closed gate")
	}
}
