// Package activity ranks channels by how often their trace leaves its own
// band, over a sliding time window.
package activity

import (
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/keilerkonzept/topk"
	"github.com/keilerkonzept/topk/heap"
	"github.com/keilerkonzept/topk/sliding"
)

type Config struct {
	K            int
	Width        int
	Depth        int
	Decay        float64
	DecayLUTSize int
	Tick         time.Duration
	Window       time.Duration
	FullRefresh  time.Duration
	PartialSize  int
}

var DefaultConfig = Config{
	K:            16,
	Width:        1024,
	Depth:        3,
	Decay:        0.9,
	DecayLUTSize: 8192,
	Tick:         time.Second,
	Window:       30 * time.Second,
	FullRefresh:  2 * time.Second,
}

func (c Config) Validate() error {
	if c.K < 1 {
		return fmt.Errorf("activity k must be >= 1")
	}
	if c.Width < 1 || c.Depth < 1 {
		return fmt.Errorf("activity sketch width and depth must be >= 1")
	}
	if c.Decay < 0 || c.Decay > 1 {
		return fmt.Errorf("activity decay must be in [0,1]")
	}
	if c.DecayLUTSize < 1 {
		return fmt.Errorf("activity decay LUT size must be >= 1")
	}
	if c.Tick <= 0 {
		return fmt.Errorf("activity tick must be > 0")
	}
	if c.Window < c.Tick {
		return fmt.Errorf("activity window must be >= tick")
	}
	if c.Window%c.Tick != 0 {
		return fmt.Errorf("activity window must be a multiple of tick (got window=%s tick=%s)", c.Window, c.Tick)
	}
	return nil
}

// ChannelItem is the sketch key of channel i, its 1-based label.
func ChannelItem(i int) string { return strconv.Itoa(i + 1) }

// ChannelIndex reverses ChannelItem; it returns -1 for foreign keys.
func ChannelIndex(item string) int {
	n, err := strconv.Atoi(item)
	if err != nil || n < 1 {
		return -1
	}
	return n - 1
}

// Tracker counts out-of-band pixels per channel in a sliding top-K sketch.
// The sketch is guarded by a mutex; the ranking belongs to the caller's
// goroutine.
type Tracker struct {
	cfg Config

	mu     sync.Mutex
	sketch *sliding.Sketch
	ranker *Ranker
	last   time.Time
	total  uint64
}

func New(cfg Config) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Tracker{
		cfg:    cfg,
		sketch: newSketch(cfg),
		ranker: NewRanker(cfg.K, cfg.FullRefresh, cfg.PartialSize),
	}, nil
}

func newSketch(cfg Config) *sliding.Sketch {
	return sliding.New(cfg.K,
		int(cfg.Window/cfg.Tick),
		sliding.WithWidth(cfg.Width),
		sliding.WithDepth(cfg.Depth),
		sliding.WithDecay(float32(cfg.Decay)),
		sliding.WithDecayLUTSize(cfg.DecayLUTSize),
	)
}

func (t *Tracker) Config() Config { return t.cfg }

// Observe adds pixels out-of-band pixels for channel.
func (t *Tracker) Observe(channel, pixels int) {
	if channel < 0 || pixels <= 0 {
		return
	}
	t.mu.Lock()
	t.sketch.Add(ChannelItem(channel), uint32(pixels))
	t.total += uint64(pixels)
	t.mu.Unlock()
}

// Total is the number of pixels observed since the last Reset.
func (t *Tracker) Total() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Advance moves the window by the whole ticks elapsed since the previous
// call and returns how many it moved.
func (t *Tracker) Advance(now time.Time) int {
	now = now.Truncate(t.cfg.Tick)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last.IsZero() {
		t.last = now
		return 0
	}
	ticks := int(now.Sub(t.last) / t.cfg.Tick)
	if ticks > 0 {
		t.sketch.Ticks(ticks)
		t.last = now
	}
	return max(0, ticks)
}

// Count is the windowed count of channel.
func (t *Tracker) Count(channel int) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sketch.Count(ChannelItem(channel))
}

// Ranking returns the busiest channels, most active first.
func (t *Tracker) Ranking(now time.Time, visible int) ([]heap.Item, bool) {
	return t.ranker.Refresh(now, visible,
		func() []heap.Item {
			t.mu.Lock()
			defer t.mu.Unlock()
			return t.sketch.SortedSlice()
		},
		func(items []heap.Item, limit int) {
			t.mu.Lock()
			defer t.mu.Unlock()
			for i := 0; i < limit; i++ {
				items[i].Count = t.sketch.Count(items[i].Item)
			}
		},
	)
}

// HistoryLength is the number of buckets History fills.
func (t *Tracker) HistoryLength() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sketch.BucketHistoryLength
}

// History writes the per-tick counts of item into series, newest last.
// Counts of colliding buckets are combined with max; logScale applies ln.
func (t *Tracker) History(item heap.Item, series []float64, logScale bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	bucketIdx := make([]int, 0, t.sketch.Depth)
	for k := 0; k < t.sketch.Depth; k++ {
		idx := topk.BucketIndex(item.Item, k, t.sketch.Width)
		b := t.sketch.Buckets[idx]
		if b.Fingerprint == item.Fingerprint && len(b.Counts) > 0 {
			bucketIdx = append(bucketIdx, idx)
		}
	}
	if len(bucketIdx) == 0 {
		clear(series)
		return
	}
	for j := range series {
		var maxCount uint32
		for _, idx := range bucketIdx {
			b := t.sketch.Buckets[idx]
			maxCount = max(maxCount, b.Counts[(int(b.First)+j)%len(b.Counts)])
		}
		v := float64(maxCount)
		if logScale {
			v = math.Log(max(1, v))
		}
		series[len(series)-1-j] = v
	}
}

// SetChannels restricts the ranking to the channels of the current layout.
func (t *Tracker) SetChannels(n int) { t.ranker.SetChannels(n) }

// Reset drops all counts, as after the channel layout changed.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sketch = newSketch(t.cfg)
	t.ranker.Reset()
	t.total = 0
}
