package display

const (
	// Lookback pixels are redrawn before the last cursor so the
	// interpolated line joins the part painted in the previous frame.
	Lookback = 3
	// Epsilon pixels past the cursor cover the sweep marker.
	Epsilon = 1
)

// RedrawWindow is the pixel interval a channel repaints this frame. From and
// To are inclusive. Cursor is the screen buffer cursor the window was built
// from; trace segments stop before it.
type RedrawWindow struct {
	From, To int
	Cursor   int
	Full     bool
}

// PartialWindow covers the pixels written between two cursors.
func PartialWindow(last, cursor int) RedrawWindow {
	if cursor <= last {
		return RedrawWindow{From: last, To: last - 1, Cursor: cursor}
	}
	return RedrawWindow{From: max(0, last-Lookback), To: cursor + Epsilon, Cursor: cursor}
}

// FullWindow covers the whole width.
func FullWindow(width, cursor int) RedrawWindow {
	return RedrawWindow{From: 0, To: width - 1, Cursor: cursor, Full: true}
}

// Empty reports whether there is nothing to redraw.
func (w RedrawWindow) Empty() bool { return !w.Full && w.To < w.From }

// Contains reports whether x is inside the window.
func (w RedrawWindow) Contains(x int) bool { return x >= w.From && x <= w.To }

// Rect is the window as a rectangle spanning top..bottom.
func (w RedrawWindow) Rect(top, bottom int) Rect {
	if w.Empty() {
		return Rect{}
	}
	return Rect{X: w.From, Y: top, W: w.To - w.From + 1, H: bottom - top}
}
