package acquisition

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// StreamOptions controls how recorded frames are replayed into a buffer.
type StreamOptions struct {
	// JSON selects {"samples":[...],"sample_rate":N} records instead of text lines.
	JSON bool
	// Pace is slept between frames; 0 writes as fast as the reader allows.
	Pace time.Duration
	// MaxFrames stops after this many frames (0 = unlimited).
	MaxFrames int
}

// StreamReader replays frames from r. A text line holds one sample per
// channel separated by spaces, tabs or commas. A frame with a different
// number of channels reconfigures the buffer.
type StreamReader struct {
	buf     *DisplayBuffer
	gate    *Gate
	opts    StreamOptions
	frame   []float32
	skipped int
}

func NewStreamReader(buf *DisplayBuffer, gate *Gate, opts StreamOptions) *StreamReader {
	return &StreamReader{buf: buf, gate: gate, opts: opts}
}

// Skipped is the number of malformed lines ignored so far.
func (s *StreamReader) Skipped() int { return s.skipped }

// Read consumes r until EOF, ctx cancellation, or MaxFrames.
func (s *StreamReader) Read(ctx context.Context, r io.Reader) error {
	if s.opts.JSON {
		return s.readJSON(ctx, r)
	}
	return s.readText(ctx, r)
}

func (s *StreamReader) readText(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for scanner.Scan() {
		if !s.gate.Wait() || ctx.Err() != nil {
			return ctx.Err()
		}
		if s.opts.MaxFrames > 0 && n >= s.opts.MaxFrames {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		frame, ok := s.parseLine(line)
		if !ok {
			s.skipped++
			continue
		}
		s.push(frame, 0)
		n++
		if s.opts.Pace > 0 {
			time.Sleep(s.opts.Pace)
		}
	}
	return scanner.Err()
}

func (s *StreamReader) readJSON(ctx context.Context, r io.Reader) error {
	dec := json.NewDecoder(bufio.NewReader(r))
	n := 0
	for {
		record := struct {
			Samples    []float32 `json:"samples"`
			SampleRate float64   `json:"sample_rate"`
		}{}

		if !s.gate.Wait() || ctx.Err() != nil {
			return ctx.Err()
		}
		if s.opts.MaxFrames > 0 && n >= s.opts.MaxFrames {
			return nil
		}
		if err := dec.Decode(&record); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("decode frame %d: %w", n+1, err)
		}
		if len(record.Samples) == 0 || !finite(record.Samples) {
			s.skipped++
			continue
		}
		s.push(record.Samples, record.SampleRate)
		n++
		if s.opts.Pace > 0 {
			time.Sleep(s.opts.Pace)
		}
	}
}

func (s *StreamReader) parseLine(line string) ([]float32, bool) {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == ';'
	})
	if len(fields) == 0 {
		return nil, false
	}
	s.frame = s.frame[:0]
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, false
		}
		s.frame = append(s.frame, float32(v))
	}
	return s.frame, true
}

func finite(frame []float32) bool {
	for _, v := range frame {
		if f := float64(v); math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

func (s *StreamReader) push(frame []float32, sampleRate float64) {
	rate := s.buf.SampleRate()
	if sampleRate <= 0 {
		sampleRate = rate
	}
	if len(frame) != s.buf.NumChannels() || sampleRate != rate {
		s.buf.Reconfigure(len(frame), s.buf.Capacity(), sampleRate)
	}
	s.buf.Append(frame)
}
