package activity

import (
	"cmp"
	"slices"
	"time"

	"github.com/keilerkonzept/topk/heap"
)

// Ranker orders channels by out-of-band activity. The order is rebuilt from
// the sketch every rebuildEvery; in between only the leading entries get
// fresh counts and are re-sorted among themselves.
type Ranker struct {
	k            int
	channels     int
	rebuildEvery time.Duration
	partial      int

	rebuiltAt time.Time
	order     []heap.Item
}

// NewRanker keeps at most k channels. A zero rebuildEvery rebuilds on every
// call; partial caps how many entries a refresh between rebuilds recounts.
func NewRanker(k int, rebuildEvery time.Duration, partial int) *Ranker {
	if rebuildEvery < 0 {
		rebuildEvery = 2 * time.Second
	}
	return &Ranker{
		k:            max(1, k),
		rebuildEvery: rebuildEvery,
		partial:      max(0, partial),
	}
}

// SetChannels limits the ranking to channels [0, n); n <= 0 accepts any
// channel. A change drops the current order.
func (r *Ranker) SetChannels(n int) {
	if n != r.channels {
		r.channels = n
		r.Reset()
	}
}

// Reset forces the next Refresh to rebuild.
func (r *Ranker) Reset() {
	r.order = nil
	r.rebuiltAt = time.Time{}
}

// byActivity sorts by count, busiest first, then by channel number.
func byActivity(a, b heap.Item) int {
	if c := cmp.Compare(b.Count, a.Count); c != 0 {
		return c
	}
	return cmp.Compare(ChannelIndex(a.Item), ChannelIndex(b.Item))
}

func (r *Ranker) inLayout(item heap.Item) bool {
	i := ChannelIndex(item.Item)
	return i >= 0 && (r.channels <= 0 || i < r.channels)
}

func (r *Ranker) due(now time.Time) bool {
	return len(r.order) == 0 || r.rebuiltAt.IsZero() || now.Sub(r.rebuiltAt) >= r.rebuildEvery
}

func (r *Ranker) rebuild(now time.Time, top []heap.Item) {
	r.order = r.order[:0]
	for _, item := range top {
		if r.inLayout(item) {
			r.order = append(r.order, item)
		}
	}
	slices.SortStableFunc(r.order, byActivity)
	r.order = r.order[:min(len(r.order), r.k)]
	r.rebuiltAt = now
}

// recountLimit is how many leading entries a refresh between rebuilds touches.
func (r *Ranker) recountLimit(visible int) int {
	n := len(r.order)
	if visible > 0 {
		n = min(n, visible)
	}
	if r.partial > 0 {
		n = min(n, r.partial)
	}
	return n
}

// Refresh returns a copy of the ranking and whether it was rebuilt. top
// returns the sketch's current top-K; recount refreshes the Count of the
// first limit items in place.
func (r *Ranker) Refresh(now time.Time, visible int, top func() []heap.Item, recount func(items []heap.Item, limit int)) ([]heap.Item, bool) {
	if now.IsZero() {
		now = time.Now()
	}
	if r.due(now) {
		r.rebuild(now, top())
		return slices.Clone(r.order), true
	}
	n := r.recountLimit(visible)
	recount(r.order, n)
	slices.SortStableFunc(r.order[:n], byActivity)
	return slices.Clone(r.order), false
}
