package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tui "github.com/charmbracelet/bubbletea"
	styles "github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
	plot "github.com/chriskim06/drawille-go"
	"github.com/keilerkonzept/lfpscope/internal/acquisition"
	"github.com/keilerkonzept/lfpscope/internal/activity"
	"github.com/keilerkonzept/lfpscope/internal/display"
	"github.com/keilerkonzept/lfpscope/internal/settings"
	"github.com/keilerkonzept/topk/heap"
	"github.com/sirupsen/logrus"
)

const (
	headerLines    = 2 // selector line + time scale
	inspectorLines = 8
	activityWidth  = 20
)

type model struct {
	width, height int
	listWidth     int
	traceRows     int

	ctx    context.Context
	cancel context.CancelFunc
	buf    *acquisition.DisplayBuffer
	gate   *acquisition.Gate

	canvas   *display.Canvas
	viewport viewport.Model
	help     help.Model

	tracker      *activity.Tracker
	ranking      []heap.Item
	showActivity bool
	list         list.Model
	listStyle    styles.Style

	showInspector  bool
	inspectHistory bool
	logScale       bool
	plot           *plot.Canvas
	plotData       [][]float64

	metrics   *frameMetrics
	lastFrame display.Frame
	paused    bool
	inputDone string
	err       error
}

func newModel(ctx context.Context, doc *settings.Document) (*model, error) {
	const (
		defaultWidth  = 80
		defaultHeight = 24
	)

	tracker, err := activity.New(config.Activity)
	if err != nil {
		return nil, err
	}
	buf := acquisition.NewDisplayBuffer(config.Channels, config.BufferSize, config.SampleRate)
	canvas := display.NewCanvas(buf, display.Options{
		LeftMargin:        config.LeftMargin,
		MaxValuesPerFrame: config.MaxValues,
		TimebaseID:        config.TimebaseID,
		RangeID:           config.RangeID,
		SpreadID:          config.SpreadID,
		Logger:            logrus.StandardLogger(),
	})
	canvas.LoadParameters(doc)
	tracker.SetChannels(canvas.NumChannels())

	d := list.NewDefaultDelegate()
	d.Styles.SelectedTitle = styles.NewStyle().
		Border(styles.NormalBorder(), false, false, false, true).
		BorderForeground(borderColor).
		Foreground(selectedColor).
		Padding(0, 0, 0, 1)
	d.Styles.SelectedDesc = d.Styles.SelectedTitle.
		Foreground(selectedColor)
	d.ShowDescription = true

	l := list.New(make([]list.Item, 0), d, activityWidth, defaultHeight)
	l.Styles.NoItems = l.Styles.NoItems.
		Padding(0, 2)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)

	vp := viewport.New(defaultWidth, defaultHeight-headerLines)
	vp.MouseWheelEnabled = true
	vp.MouseWheelDelta = 1

	p := plot.NewCanvas(defaultWidth, inspectorLines)
	p.ShowAxis = false

	metrics := newFrameMetrics(config.StatsWindow)
	metrics.setEnabled(config.StatsEnabled)

	ctx, cancel := context.WithCancel(ctx)
	m := &model{
		ctx:           ctx,
		cancel:        cancel,
		buf:           buf,
		gate:          acquisition.NewGate(),
		canvas:        canvas,
		viewport:      vp,
		help:          help.New(),
		tracker:       tracker,
		showActivity:  config.ShowActivity,
		list:          l,
		showInspector: config.Inspector,
		logScale:      config.LogScale,
		plot:          &p,
		metrics:       metrics,
	}
	m.resize(defaultWidth, defaultHeight)
	canvas.BeginAnimation()
	return m, nil
}

// shutdown stops the producer; the canvas keeps its parameters for saving.
func (m *model) shutdown() {
	m.canvas.EndAnimation()
	m.cancel()
	m.gate.Close()
}

type FrameTickMsg time.Time

func doFrameTick() tui.Cmd {
	return tui.Every(time.Second/time.Duration(config.FPS), func(t time.Time) tui.Msg {
		return FrameTickMsg(t)
	})
}

type ActivityTickMsg time.Time

func doActivityTick() tui.Cmd {
	return tui.Every(config.Activity.Tick, func(t time.Time) tui.Msg {
		return ActivityTickMsg(t)
	})
}

type errMsg struct{ err error }

type inputDoneMsg struct {
	source  string
	skipped int
}

func (m *model) Init() tui.Cmd {
	return tui.Batch(m.acquire(), doFrameTick(), doActivityTick())
}

// acquire runs the producer: recorded frames from -in or piped stdin,
// otherwise the synthetic generator.
func (m *model) acquire() tui.Cmd {
	return func() tui.Msg {
		r, name, ok, err := m.openInput()
		if err != nil {
			return errMsg{err}
		}
		if !ok {
			seed := config.Seed
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			logrus.Infof("Generating %d synthetic channels at %g Hz", config.Channels, config.SampleRate)
			synth := acquisition.NewSynthetic(m.buf, m.gate, seed)
			if err := synth.Run(m.ctx); err != nil && !errors.Is(err, context.Canceled) {
				return errMsg{err}
			}
			return nil
		}
		defer func() { _ = r.Close() }()
		logrus.Infof("Reading frames from %s", name)
		sr := acquisition.NewStreamReader(m.buf, m.gate, acquisition.StreamOptions{
			JSON:      config.JSON,
			Pace:      config.Pace,
			MaxFrames: config.MaxFrames,
		})
		if err := sr.Read(m.ctx, r); err != nil && !errors.Is(err, context.Canceled) {
			return errMsg{fmt.Errorf("read %s: %w", name, err)}
		}
		return inputDoneMsg{source: name, skipped: sr.Skipped()}
	}
}

func (m *model) openInput() (io.ReadCloser, string, bool, error) {
	if config.InputPath != "" {
		f, err := os.Open(config.InputPath)
		if err != nil {
			return nil, "", false, err
		}
		return f, config.InputPath, true, nil
	}
	if term.IsTerminal(os.Stdin.Fd()) {
		return nil, "", false, nil
	}
	return io.NopCloser(os.Stdin), "stdin", true, nil
}

func (m *model) Update(msg tui.Msg) (tui.Model, tui.Cmd) {
	switch msg := msg.(type) {
	case errMsg:
		logrus.Errorf("Input failed: %v", msg.err)
		m.err = msg.err
		return m, nil
	case inputDoneMsg:
		logrus.Infof("Finished reading %s (%d malformed frames skipped)", msg.source, msg.skipped)
		m.inputDone = fmt.Sprintf("%s done, %d skipped", msg.source, msg.skipped)
		return m, nil
	case FrameTickMsg:
		m.refresh()
		return m, doFrameTick()
	case ActivityTickMsg:
		if !m.paused {
			m.tracker.Advance(time.Time(msg))
			m.updateRanking(time.Time(msg))
		}
		return m, doActivityTick()
	case tui.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case tui.MouseMsg:
		return m, m.handleMouse(msg)
	case tui.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tui.Quit
		case key.Matches(msg, keys.Pause):
			m.togglePause()
			return m, nil
		case key.Matches(msg, keys.TimebaseUp):
			m.canvas.StepTimebase(1)
			return m, nil
		case key.Matches(msg, keys.TimebaseDown):
			m.canvas.StepTimebase(-1)
			return m, nil
		case key.Matches(msg, keys.RangeUp):
			m.canvas.StepRange(1)
			return m, nil
		case key.Matches(msg, keys.RangeDown):
			m.canvas.StepRange(-1)
			return m, nil
		case key.Matches(msg, keys.SpreadUp):
			m.canvas.StepSpread(1)
			m.syncViewport()
			return m, nil
		case key.Matches(msg, keys.SpreadDown):
			m.canvas.StepSpread(-1)
			m.syncViewport()
			return m, nil
		case key.Matches(msg, keys.NextChannel):
			m.canvas.StepSelection(1)
			m.viewport.SetYOffset(m.canvas.ScrollY() / 4)
			return m, nil
		case key.Matches(msg, keys.PrevChannel):
			m.canvas.StepSelection(-1)
			m.viewport.SetYOffset(m.canvas.ScrollY() / 4)
			return m, nil
		case key.Matches(msg, keys.Activity):
			m.showActivity = !m.showActivity
			m.resize(m.width, m.height)
			return m, nil
		case key.Matches(msg, keys.ActivityUp):
			m.list.CursorUp()
			return m, nil
		case key.Matches(msg, keys.ActivityDown):
			m.list.CursorDown()
			return m, nil
		case key.Matches(msg, keys.Jump):
			m.jumpToListedChannel()
			return m, nil
		case key.Matches(msg, keys.Inspector):
			m.showInspector = !m.showInspector
			m.resize(m.width, m.height)
			return m, nil
		case key.Matches(msg, keys.History):
			m.inspectHistory = !m.inspectHistory
			return m, nil
		case key.Matches(msg, keys.Scale):
			m.logScale = !m.logScale
			return m, nil
		case key.Matches(msg, keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			m.resize(m.width, m.height)
			return m, nil
		}
	}
	var cmd tui.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	m.canvas.ScrollTo(0, m.viewport.YOffset*4)
	return m, cmd
}

func (m *model) handleMouse(msg tui.MouseMsg) tui.Cmd {
	if msg.Action == tui.MouseActionPress && msg.Button == tui.MouseButtonLeft {
		row := msg.Y - headerLines
		if msg.X >= m.listWidth && row >= 0 && row < m.traceRows {
			// middle of the cell
			i := m.canvas.SelectAt(row*4 + 2)
			logrus.Debugf("Clicked row %d, channel %d", row, i)
		}
		return nil
	}
	var cmd tui.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	m.canvas.ScrollTo(0, m.viewport.YOffset*4)
	return cmd
}

func (m *model) togglePause() {
	m.paused = m.gate.Toggle()
	if m.paused {
		m.canvas.EndAnimation()
	} else {
		m.canvas.BeginAnimation()
	}
}

// refresh runs one frame: resample, repaint, count activity and hand the
// visible rows to the viewport.
func (m *model) refresh() {
	if m.paused {
		// the canvas repaints itself while idle
		m.setViewportContent()
		return
	}
	start := time.Now()
	f := m.canvas.Refresh()
	if f.Rebuilt {
		m.tracker.Reset()
		m.tracker.SetChannels(m.canvas.NumChannels())
		m.ranking = nil
		m.syncViewport()
	}
	m.canvas.OutOfBand(f.Update, m.tracker.Observe)
	m.setViewportContent()
	m.metrics.observeFrame(time.Since(start), f)
	m.lastFrame = f
	if m.showInspector {
		m.updatePlot()
	}
}

func (m *model) setViewportContent() {
	r := m.canvas.Raster()
	lines := make([]string, r.Rows())
	top := m.viewport.YOffset
	for row := max(0, top); row < min(len(lines), top+m.viewport.Height); row++ {
		lines[row] = r.RenderRow(row)
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
}

// syncViewport pushes the canvas scroll position to the viewport after the
// content height changed.
func (m *model) syncViewport() {
	m.setViewportContent()
	m.viewport.SetYOffset(m.canvas.ScrollY() / 4)
	m.canvas.ScrollTo(0, m.viewport.YOffset*4)
}

func (m *model) resize(width, height int) {
	m.width, m.height = width, height
	m.listWidth = 0
	if m.showActivity && width >= 2*activityWidth {
		m.listWidth = activityWidth
	}

	bottom := 1 // help
	if m.help.ShowAll {
		bottom = 4
	}
	if config.StatsEnabled {
		bottom += 6
	}
	if m.showInspector {
		bottom += inspectorLines + 2
	}
	m.traceRows = max(1, height-headerLines-bottom)
	traceCols := max(1, width-m.listWidth)

	m.list.SetSize(max(1, m.listWidth), m.traceRows+headerLines)
	m.listStyle = styles.NewStyle().Width(m.listWidth).Height(m.traceRows + headerLines)

	m.viewport.Width = traceCols
	m.viewport.Height = m.traceRows
	m.canvas.Resized(traceCols*2, m.traceRows*4)
	m.syncViewport()

	p := plot.NewCanvas(max(1, width-2), inspectorLines)
	p.NumDataPoints = m.plot.NumDataPoints
	p.ShowAxis = m.plot.ShowAxis
	p.LineColors = m.plot.LineColors
	m.plot = &p
}

func (m *model) updateRanking(now time.Time) {
	// each entry takes a title, a description and a spacer line
	items, didFull := m.tracker.Ranking(now, max(1, m.list.Height()/3))
	logrus.Debugf("Ranking refreshed: %d channels, full=%v", len(items), didFull)
	m.ranking = items

	listItems := make([]list.Item, len(items))
	for i, item := range items {
		listItems[i] = listItem{Rank: i + 1, Item: item}
	}
	selected := m.list.SelectedItem()
	m.list.SetItems(listItems)
	if selected != nil {
		for i, item := range items {
			if item.Item == selected.(listItem).Item.Item {
				m.list.Select(i)
				break
			}
		}
	}
}

func (m *model) jumpToListedChannel() {
	selected, ok := m.list.SelectedItem().(listItem)
	if !ok {
		return
	}
	i := activity.ChannelIndex(selected.Item.Item)
	if i < 0 || i >= m.canvas.NumChannels() {
		return
	}
	m.canvas.Select(i)
	m.canvas.ScrollIntoView(i)
	m.viewport.SetYOffset(m.canvas.ScrollY() / 4)
}

// updatePlot fills the inspector with either the selected channel's trace in
// sweep order or its activity history.
func (m *model) updatePlot() {
	var highlight, dim plot.Color
	if styles.DefaultRenderer().HasDarkBackground() {
		highlight, dim = plot.Red, plot.DimGray
	} else {
		highlight, dim = plot.Black, plot.LightGray
	}

	ch := m.canvas.Selected()
	if ch < 0 {
		m.plot.NumDataPoints = 0
		return
	}

	var series []float64
	if m.inspectHistory {
		series = make([]float64, m.tracker.HistoryLength())
		item := heap.Item{Item: activity.ChannelItem(ch)}
		for _, it := range m.ranking {
			if it.Item == item.Item {
				item = it
				break
			}
		}
		m.tracker.History(item, series, m.logScale)
	} else {
		series = sweepOrder(m.canvas.Screen().Row(ch), m.canvas.Screen().Cursor(), config.LeftMargin)
	}
	if len(series) == 0 {
		m.plot.NumDataPoints = 0
		return
	}

	// a flat baseline keeps the vertical scale symmetric around zero
	baseline := make([]float64, len(series))
	m.plotData = [][]float64{baseline, series}
	m.plot.NumDataPoints = len(series)
	m.plot.LineColors = []plot.Color{dim, highlight}
	m.plot.Fill(m.plotData)
}

// sweepOrder returns the trace oldest first: the part right of the cursor
// was drawn in the previous sweep.
func sweepOrder(row []float32, cursor, margin int) []float64 {
	if len(row) == 0 {
		return nil
	}
	margin = min(max(0, margin), len(row))
	cursor = min(max(margin, cursor), len(row))
	out := make([]float64, 0, len(row)-margin)
	for _, v := range row[cursor:] {
		out = append(out, float64(v))
	}
	for _, v := range row[margin:cursor] {
		out = append(out, float64(v))
	}
	return out
}

func (m *model) View() string {
	header := m.headerView()
	scale := strings.Join(m.canvas.ScaleRaster().Plain(0, 1), "")
	traces := styles.JoinVertical(styles.Left, header, borderFg.Render(scale), m.viewport.View())

	view := traces
	if m.listWidth > 0 {
		left := m.listStyle.Render(m.list.View())
		view = styles.JoinHorizontal(styles.Top, left, traces)
	}

	parts := []string{view}
	if m.showInspector {
		inspector := m.plot.String()
		if m.canvas.Selected() < 0 || inspector == "" {
			inspector = borderFg.Render("select a channel to inspect")
		}
		parts = append(parts, plotStyle.Render(inspector))
	}
	if m.err != nil {
		errStyle := styles.NewStyle().Foreground(styles.AdaptiveColor{Light: "1", Dark: "9"})
		parts = append(parts, errStyle.Render("ERROR: "+m.err.Error()))
	}
	if config.StatsEnabled {
		parts = append(parts, m.statsView())
	}
	parts = append(parts, m.help.View(keys))
	return styles.JoinVertical(styles.Left, parts...)
}

func (m *model) headerView() string {
	state := selectedFg.Render("RUNNING")
	if m.paused {
		state = borderFg.Render("PAUSED")
	}
	source := fmt.Sprintf("%d ch @ %g Hz", m.canvas.NumChannels(), m.canvas.SampleRate())
	if m.inputDone != "" {
		source += " (" + m.inputDone + ")"
	}
	sep := borderFg.Render(" | ")
	return strings.Join([]string{
		state,
		m.canvas.Timebase().String(),
		m.canvas.VoltageRange().String(),
		m.canvas.Spread().String(),
		source,
	}, sep)
}

func (m *model) statsView() string {
	snap := m.metrics.snapshot(time.Now())
	title := "RENDER STATS (RUNNING)"
	if m.paused {
		title = "RENDER STATS (PAUSED)"
	}
	top := "-"
	if len(m.ranking) > 0 {
		top = fmt.Sprintf("ch %s (%d px)", m.ranking[0].Item, m.ranking[0].Count)
	}
	stats := []string{
		title,
		fmt.Sprintf("frames: %d (%d fps), redraws full %d / partial %d", snap.frames, snap.fps, snap.full, snap.partial),
		fmt.Sprintf("frame time avg %s max %s", formatMetricDuration(snap.frameTime.avg), formatMetricDuration(snap.frameTime.max)),
		fmt.Sprintf("pixels: %d, bursts dropped: %d, idle frames: %d, rebuilds: %d", snap.values, snap.bursts, snap.idle, snap.rebuilds),
		fmt.Sprintf("samples: %d written, read cursor %d / write %d", m.buf.Written(), m.canvas.ReadIndex(), m.buf.WriteIndex()),
		fmt.Sprintf("out of range: %d px, busiest %s", m.tracker.Total(), top),
	}
	statsStyle := styles.NewStyle().Foreground(styles.AdaptiveColor{Light: "1", Dark: "9"})
	return statsStyle.Render(strings.Join(stats, "\n"))
}

type listItem struct {
	Rank int
	heap.Item
}

func (i listItem) Title() string       { return fmt.Sprintf("#%-2d ch %s", i.Rank, i.Item.Item) }
func (i listItem) Description() string { return fmt.Sprintf("    %d px", i.Count) }
func (i listItem) FilterValue() string { return i.Item.Item }

type keyMap struct {
	TimebaseUp   key.Binding
	TimebaseDown key.Binding
	RangeUp      key.Binding
	RangeDown    key.Binding
	SpreadUp     key.Binding
	SpreadDown   key.Binding
	NextChannel  key.Binding
	PrevChannel  key.Binding
	Activity     key.Binding
	ActivityUp   key.Binding
	ActivityDown key.Binding
	Jump         key.Binding
	Inspector    key.Binding
	History      key.Binding
	Scale        key.Binding
	Pause        key.Binding
	Help         key.Binding
	Quit         key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Pause, k.TimebaseUp, k.RangeUp, k.SpreadUp, k.NextChannel, k.Help}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Quit, k.Pause, k.Help},
		{k.TimebaseUp, k.TimebaseDown, k.RangeUp, k.RangeDown, k.SpreadUp, k.SpreadDown},
		{k.NextChannel, k.PrevChannel, k.Activity, k.ActivityUp, k.ActivityDown, k.Jump},
		{k.Inspector, k.History, k.Scale},
	}
}

var keys = keyMap{
	TimebaseUp: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t/T", "timebase"),
	),
	TimebaseDown: key.NewBinding(
		key.WithKeys("T"),
		key.WithHelp("T", "shorter timebase"),
	),
	RangeUp: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r/R", "range"),
	),
	RangeDown: key.NewBinding(
		key.WithKeys("R"),
		key.WithHelp("R", "smaller range"),
	),
	SpreadUp: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s/S", "spread"),
	),
	SpreadDown: key.NewBinding(
		key.WithKeys("S"),
		key.WithHelp("S", "smaller spread"),
	),
	NextChannel: key.NewBinding(
		key.WithKeys("tab", "n"),
		key.WithHelp("tab/n", "next channel"),
	),
	PrevChannel: key.NewBinding(
		key.WithKeys("shift+tab", "N"),
		key.WithHelp("shift+tab/N", "previous channel"),
	),
	Activity: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "activity"),
	),
	ActivityUp: key.NewBinding(
		key.WithKeys("["),
		key.WithHelp("[", "activity up"),
	),
	ActivityDown: key.NewBinding(
		key.WithKeys("]"),
		key.WithHelp("]", "activity down"),
	),
	Jump: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "go to channel"),
	),
	Inspector: key.NewBinding(
		key.WithKeys("i"),
		key.WithHelp("i", "inspector"),
	),
	History: key.NewBinding(
		key.WithKeys("H"),
		key.WithHelp("H", "trace/history"),
	),
	Scale: key.NewBinding(
		key.WithKeys("L"),
		key.WithHelp("L", "log/lin"),
	),
	Pause: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "pause"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q/ctrl+c", "quit"),
	),
}
