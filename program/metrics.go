package main

import (
	"sync/atomic"
	"time"

	"github.com/keilerkonzept/lfpscope/internal/display"
)

type durationRing struct {
	buf   []time.Duration
	idx   int
	count int
}

func newDurationRing(n int) *durationRing {
	if n < 1 {
		n = 1
	}
	return &durationRing{buf: make([]time.Duration, n)}
}

func (r *durationRing) add(d time.Duration) {
	r.buf[r.idx] = d
	r.idx++
	if r.idx >= len(r.buf) {
		r.idx = 0
	}
	if r.count < len(r.buf) {
		r.count++
	}
}

type durationStats struct {
	last time.Duration
	max  time.Duration
	avg  time.Duration
	n    int
}

func (r *durationRing) snapshot() durationStats {
	if r.count == 0 {
		return durationStats{}
	}
	var sum, longest time.Duration
	for i := 0; i < r.count; i++ {
		d := r.buf[i]
		sum += d
		longest = max(longest, d)
	}

	lastIdx := r.idx - 1
	if lastIdx < 0 {
		lastIdx = len(r.buf) - 1
	}
	return durationStats{
		last: r.buf[lastIdx],
		max:  longest,
		avg:  sum / time.Duration(r.count),
		n:    r.count,
	}
}

// frameMetrics counts what the render loop did. Only the render loop writes
// the ring; counters are atomics so the stats block can be read anywhere.
type frameMetrics struct {
	enabled atomic.Bool

	startedNs atomic.Int64
	frames    atomic.Uint64
	full      atomic.Uint64
	partial   atomic.Uint64
	values    atomic.Uint64
	bursts    atomic.Uint64
	idle      atomic.Uint64
	rebuilds  atomic.Uint64

	frameTime *durationRing
}

func newFrameMetrics(window int) *frameMetrics {
	m := &frameMetrics{frameTime: newDurationRing(window)}
	m.startedNs.Store(time.Now().UnixNano())
	return m
}

func (m *frameMetrics) setEnabled(v bool) { m.enabled.Store(v) }
func (m *frameMetrics) isEnabled() bool   { return m.enabled.Load() }

func (m *frameMetrics) observeFrame(d time.Duration, f display.Frame) {
	if !m.isEnabled() {
		return
	}
	m.frameTime.add(d)
	m.frames.Add(1)
	m.values.Add(uint64(f.Update.Values))
	switch f.Update.Skip {
	case display.SkipBurst:
		m.bursts.Add(1)
	case display.SkipNoData:
		m.idle.Add(1)
	}
	if f.Rebuilt {
		m.rebuilds.Add(1)
	}
	switch {
	case f.Repaint.Painted == 0:
	case f.Repaint.Full:
		m.full.Add(1)
	default:
		m.partial.Add(1)
	}
}

type snapshot struct {
	started   time.Time
	frames    uint64
	fps       uint64
	full      uint64
	partial   uint64
	values    uint64
	bursts    uint64
	idle      uint64
	rebuilds  uint64
	frameTime durationStats
}

func (m *frameMetrics) snapshot(now time.Time) snapshot {
	if !m.isEnabled() {
		return snapshot{}
	}
	started := time.Unix(0, m.startedNs.Load())
	frames := m.frames.Load()
	var fps uint64
	if active := now.Sub(started); active > 0 {
		fps = uint64(float64(frames)/active.Seconds() + 0.5)
	}
	return snapshot{
		started:   started,
		frames:    frames,
		fps:       fps,
		full:      m.full.Load(),
		partial:   m.partial.Load(),
		values:    m.values.Load(),
		bursts:    m.bursts.Load(),
		idle:      m.idle.Load(),
		rebuilds:  m.rebuilds.Load(),
		frameTime: m.frameTime.snapshot(),
	}
}
