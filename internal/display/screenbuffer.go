package display

// ScreenBuffer holds one resampled value per channel per horizontal pixel.
// It is written left to right by the Resampler and wraps to the left margin.
type ScreenBuffer struct {
	channels, width int
	data            []float32
	cursor, last    int
}

func NewScreenBuffer(channels, width int) *ScreenBuffer {
	b := &ScreenBuffer{}
	b.Resize(channels, width)
	return b
}

// Resize reallocates the arena when the geometry changes and always clears it.
func (b *ScreenBuffer) Resize(channels, width int) {
	channels, width = max(0, channels), max(0, width)
	if channels != b.channels || width != b.width {
		b.channels, b.width = channels, width
		b.data = make([]float32, channels*width)
	}
	b.Clear()
}

// Clear zeroes all values and rewinds the cursor.
func (b *ScreenBuffer) Clear() {
	clear(b.data)
	b.cursor, b.last = 0, 0
}

func (b *ScreenBuffer) Channels() int { return b.channels }
func (b *ScreenBuffer) Width() int    { return b.width }

// Cursor is the pixel the next value will be written to.
func (b *ScreenBuffer) Cursor() int { return b.cursor }

// LastCursor is the cursor as it was before the most recent update.
func (b *ScreenBuffer) LastCursor() int { return b.last }

// YCoord returns the raw value at pixel x of channel, 0 outside the buffer.
func (b *ScreenBuffer) YCoord(channel, x int) float32 {
	if channel < 0 || channel >= b.channels || x < 0 || x >= b.width {
		return 0
	}
	return b.data[channel*b.width+x]
}

// XCoord maps a buffer position to a horizontal pixel; the mapping is identity.
func (b *ScreenBuffer) XCoord(_, x int) int { return x }

// Row exposes the values of one channel. Callers must not keep it across a Resize.
func (b *ScreenBuffer) Row(channel int) []float32 {
	if channel < 0 || channel >= b.channels {
		return nil
	}
	return b.data[channel*b.width : (channel+1)*b.width]
}

func (b *ScreenBuffer) set(channel, x int, v float32) {
	b.data[channel*b.width+x] = v
}
