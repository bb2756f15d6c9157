package acquisition

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Synthetic generates LFP-like test signals: a few oscillations per channel
// plus noise and sparse spikes, written in real time.
type Synthetic struct {
	buf    *DisplayBuffer
	gate   *Gate
	rng    *rand.Rand
	period time.Duration

	phase  []float64
	freqs  [][3]float64
	amps   [][3]float64
	frame  []float32
	sample uint64
}

// NewSynthetic prepares a generator for the buffer's current layout.
func NewSynthetic(buf *DisplayBuffer, gate *Gate, seed int64) *Synthetic {
	s := &Synthetic{
		buf:    buf,
		gate:   gate,
		rng:    rand.New(rand.NewSource(seed)),
		period: 10 * time.Millisecond,
	}
	s.reset(buf.NumChannels())
	return s
}

func (s *Synthetic) reset(channels int) {
	s.phase = make([]float64, channels)
	s.freqs = make([][3]float64, channels)
	s.amps = make([][3]float64, channels)
	s.frame = make([]float32, channels)
	for ch := 0; ch < channels; ch++ {
		s.phase[ch] = s.rng.Float64() * 2 * math.Pi
		// theta, alpha and low gamma bands
		s.freqs[ch] = [3]float64{4 + 4*s.rng.Float64(), 8 + 4*s.rng.Float64(), 30 + 20*s.rng.Float64()}
		s.amps[ch] = [3]float64{150 + 150*s.rng.Float64(), 50 + 100*s.rng.Float64(), 10 + 30*s.rng.Float64()}
	}
}

// Fill writes n frames into the buffer.
func (s *Synthetic) Fill(n int) {
	if ch := s.buf.NumChannels(); ch != len(s.frame) {
		s.reset(ch)
	}
	rate := s.buf.SampleRate()
	for i := 0; i < n; i++ {
		t := float64(s.sample) / rate
		for ch := range s.frame {
			v := 0.0
			for k := 0; k < 3; k++ {
				v += s.amps[ch][k] * math.Sin(2*math.Pi*s.freqs[ch][k]*t+s.phase[ch]*float64(k+1))
			}
			v += s.rng.NormFloat64() * 20
			if s.rng.Float64() < 0.0005 {
				v -= 400 + 400*s.rng.Float64()
			}
			s.frame[ch] = float32(v)
		}
		s.buf.Append(s.frame)
		s.sample++
	}
}

// Run produces samples at the buffer's sample rate until ctx is done.
func (s *Synthetic) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()
	last := time.Now()
	var carry float64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if !s.gate.Wait() {
				return nil
			}
			gap := now.Sub(last)
			if gap > 4*s.period {
				// resumed after a pause or a stall, do not replay the gap
				gap = s.period
			}
			carry += gap.Seconds() * s.buf.SampleRate()
			last = now
			n := int(carry)
			carry -= float64(n)
			s.Fill(n)
		}
	}
}
