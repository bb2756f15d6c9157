// Package acquisition holds the circular display buffer that the visualizer
// reads from and the sources that fill it.
//
// The buffer is written by a single producer goroutine and read by the render
// loop without locks. Readers may observe samples that are being overwritten
// or a write index that is one chunk stale; both self-correct on the next
// frame because every frame re-reads the indices.
package acquisition

import (
	"math"
	"sync/atomic"
)

// Source is what the visualizer needs from the acquisition side.
type Source interface {
	NumChannels() int
	SampleRate() float64
	Capacity() int
	WriteIndex() int
	Sample(channel, index int) float32
	// Generation changes whenever the channel count or sample rate changes.
	Generation() uint64
}

type layout struct {
	channels   int
	capacity   int
	sampleRate float64
	samples    []atomic.Uint32
}

// DisplayBuffer is a fixed-capacity circular buffer of interleaved channel samples.
type DisplayBuffer struct {
	layout     atomic.Pointer[layout]
	writeIndex atomic.Int64
	generation atomic.Uint64
	written    atomic.Uint64
}

// NewDisplayBuffer creates a buffer holding capacity samples per channel.
func NewDisplayBuffer(channels, capacity int, sampleRate float64) *DisplayBuffer {
	b := &DisplayBuffer{}
	b.Reconfigure(channels, capacity, sampleRate)
	return b
}

// Reconfigure publishes a new layout and resets the write cursor. Readers
// holding the previous layout keep reading it until their next frame.
func (b *DisplayBuffer) Reconfigure(channels, capacity int, sampleRate float64) {
	channels = max(1, channels)
	capacity = max(2, capacity)
	if sampleRate <= 0 {
		sampleRate = 1
	}
	l := &layout{
		channels:   channels,
		capacity:   capacity,
		sampleRate: sampleRate,
		samples:    make([]atomic.Uint32, channels*capacity),
	}
	b.writeIndex.Store(0)
	b.layout.Store(l)
	b.generation.Add(1)
}

func (b *DisplayBuffer) NumChannels() int    { return b.layout.Load().channels }
func (b *DisplayBuffer) SampleRate() float64 { return b.layout.Load().sampleRate }
func (b *DisplayBuffer) Capacity() int       { return b.layout.Load().capacity }
func (b *DisplayBuffer) Generation() uint64  { return b.generation.Load() }

// WriteIndex is the position the next frame will be written to.
func (b *DisplayBuffer) WriteIndex() int { return int(b.writeIndex.Load()) }

// Written is the total number of frames appended since creation.
func (b *DisplayBuffer) Written() uint64 { return b.written.Load() }

// Sample returns the sample of channel at index. Out-of-range arguments read as 0.
func (b *DisplayBuffer) Sample(channel, index int) float32 {
	l := b.layout.Load()
	if channel < 0 || channel >= l.channels || index < 0 || index >= l.capacity {
		return 0
	}
	return math.Float32frombits(l.samples[index*l.channels+channel].Load())
}

// Append writes one frame (one sample per channel) and advances the write
// cursor. Missing channels are written as 0, extra values are ignored.
func (b *DisplayBuffer) Append(frame []float32) {
	l := b.layout.Load()
	idx := int(b.writeIndex.Load())
	if idx >= l.capacity {
		idx = 0
	}
	base := idx * l.channels
	for ch := 0; ch < l.channels; ch++ {
		var v float32
		if ch < len(frame) {
			v = frame[ch]
		}
		l.samples[base+ch].Store(math.Float32bits(v))
	}
	b.writeIndex.Store(int64((idx + 1) % l.capacity))
	b.written.Add(1)
}

// AppendBlock writes frames stored channel-interleaved in block.
func (b *DisplayBuffer) AppendBlock(block []float32, channels int) {
	if channels < 1 {
		return
	}
	for i := 0; i+channels <= len(block); i += channels {
		b.Append(block[i : i+channels])
	}
}
