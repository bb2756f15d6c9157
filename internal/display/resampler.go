package display

// MaxValuesPerFrame bounds the pixels produced by one update. Larger requests
// come from buffer resets and are dropped.
const MaxValuesPerFrame = 1000

// SampleSource is the read side of the display buffer.
type SampleSource interface {
	NumChannels() int
	SampleRate() float64
	Capacity() int
	WriteIndex() int
	Sample(channel, index int) float32
}

// SkipReason tells why an update wrote nothing.
type SkipReason int

const (
	SkipNone SkipReason = iota
	SkipNoData
	SkipBurst
	SkipNoWidth
)

func (s SkipReason) String() string {
	switch s {
	case SkipNone:
		return "none"
	case SkipNoData:
		return "no-data"
	case SkipBurst:
		return "burst"
	case SkipNoWidth:
		return "no-width"
	}
	return "unknown"
}

// Update describes what one resampling pass did.
type Update struct {
	// From and To bound the pixels written, To exclusive.
	From, To int
	Samples  int
	Values   int
	Ratio    float64
	Skip     SkipReason
}

// Resampler converts new display buffer samples into screen buffer pixels.
// Its read cursor persists between calls.
type Resampler struct {
	LeftMargin int
	MaxValues  int

	readIndex int
	subSample float64
}

// NewSamples is the number of samples written since read, wrapping at capacity.
func NewSamples(write, read, capacity int) int {
	if capacity <= 0 {
		return 0
	}
	return ((write-read)%capacity + capacity) % capacity
}

// Ratio is the number of samples per pixel.
func Ratio(sampleRate, timebase float64, width int) float64 {
	if width <= 0 {
		return 0
	}
	return sampleRate * timebase / float64(width)
}

// ValuesNeeded is the number of pixels nSamples cover at ratio.
func ValuesNeeded(nSamples int, ratio float64) int {
	if ratio <= 0 {
		return 0
	}
	return int(float64(nSamples) / ratio)
}

// Lerp blends a towards b; alpha 0 returns a exactly.
func Lerp(a, b, alpha float32) float32 {
	return a*(1-alpha) + b*alpha
}

// ReadIndex is the consumer cursor into the display buffer.
func (r *Resampler) ReadIndex() int { return r.readIndex }

// Resync moves the read cursor to the producer's write cursor, dropping any backlog.
func (r *Resampler) Resync(src SampleSource) {
	r.readIndex = src.WriteIndex()
	r.subSample = 0
}

func (r *Resampler) maxValues() int {
	if r.MaxValues > 0 {
		return r.MaxValues
	}
	return MaxValuesPerFrame
}

// Update appends the samples written since the last call to sb, starting at
// its cursor. The cursor wraps to the left margin once it reached the right
// edge; values that would pass the edge are left for the next call.
func (r *Resampler) Update(src SampleSource, sb *ScreenBuffer, timebase float64) Update {
	width := sb.Width()
	if sb.cursor >= width {
		sb.cursor = min(max(0, r.LeftMargin), max(0, width-1))
	}
	sb.last = sb.cursor

	u := Update{From: sb.cursor, To: sb.cursor}
	if width <= 0 {
		u.Skip = SkipNoWidth
		return u
	}

	capacity := src.Capacity()
	if r.readIndex >= capacity {
		r.readIndex = 0
	}
	u.Samples = NewSamples(src.WriteIndex(), r.readIndex, capacity)
	u.Ratio = Ratio(src.SampleRate(), timebase, width)

	need := ValuesNeeded(u.Samples, u.Ratio)
	if sb.cursor+need > width {
		need = width - sb.cursor
	}
	if need <= 0 {
		u.Skip = SkipNoData
		return u
	}
	if need >= r.maxValues() {
		u.Skip = SkipBurst
		return u
	}

	channels := min(sb.channels, src.NumChannels())
	next := (r.readIndex + 1) % capacity
	for i := 0; i < need; i++ {
		alpha := float32(r.subSample)
		for ch := 0; ch < channels; ch++ {
			sb.set(ch, sb.cursor, Lerp(src.Sample(ch, r.readIndex), src.Sample(ch, next), alpha))
		}
		r.subSample += u.Ratio
		for r.subSample >= 1 {
			r.readIndex = next
			next = (r.readIndex + 1) % capacity
			r.subSample--
		}
		sb.cursor++
	}

	u.To = sb.cursor
	u.Values = need
	return u
}
