package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	tui "github.com/charmbracelet/bubbletea"
	styles "github.com/charmbracelet/lipgloss"
	"github.com/keilerkonzept/lfpscope/internal/activity"
	"github.com/keilerkonzept/lfpscope/internal/display"
	"github.com/keilerkonzept/lfpscope/internal/settings"
	"github.com/sirupsen/logrus"
)

type Config struct {
	// acquisition
	Channels   int
	SampleRate float64
	BufferSize int
	InputPath  string
	JSON       bool
	Pace       time.Duration
	MaxFrames  int
	Seed       int64

	// display
	FPS        int
	TimebaseID int
	RangeID    int
	SpreadID   int
	LeftMargin int
	MaxValues  int
	StatePath  string

	// activity
	Activity     activity.Config
	ShowActivity bool
	Inspector    bool
	LogScale     bool

	// diagnostics
	LogPath      string
	Debug        bool
	StatsEnabled bool
	StatsWindow  int

	AltScreen bool
}

var config = Config{
	Channels:   16,
	SampleRate: 1000,
	BufferSize: 10000,

	FPS:        30,
	TimebaseID: display.DefaultTimebaseID,
	RangeID:    display.DefaultRangeID,
	SpreadID:   display.DefaultSpreadID,
	LeftMargin: 10,
	MaxValues:  display.MaxValuesPerFrame,
	StatePath:  "lfpscope.yaml",

	Activity:     activity.DefaultConfig,
	ShowActivity: true,

	StatsEnabled: false,
	StatsWindow:  256,

	AltScreen: true,
}

var (
	selectedColor = styles.AdaptiveColor{Light: "0", Dark: "9"}
	borderColor   = styles.AdaptiveColor{Light: "#555", Dark: "#555"}
	selectedFg    = styles.NewStyle().Foreground(selectedColor)
	borderFg      = styles.NewStyle().Foreground(borderColor)
	plotStyle     = styles.NewStyle().
			BorderStyle(styles.NormalBorder()).
			Foreground(borderColor).
			BorderForeground(borderColor)
)

func main() {
	log.SetOutput(os.Stdout)
	flag.IntVar(&config.Channels, "channels", config.Channels, "Number of channels of the synthetic source")
	flag.Float64Var(&config.SampleRate, "sample-rate", config.SampleRate, "Sample rate in Hz (input may override it)")
	flag.IntVar(&config.BufferSize, "buffer", config.BufferSize, "Display buffer capacity in samples per channel")
	flag.StringVar(&config.InputPath, "in", config.InputPath, "Read frames from this file instead of stdin or the synthetic source")
	flag.BoolVar(&config.JSON, "json", config.JSON, "Read JSON frames {samples,[sample_rate]} instead of text lines")
	flag.DurationVar(&config.Pace, "pace", config.Pace, "Sleep between input frames (e.g. 1ms)")
	flag.IntVar(&config.MaxFrames, "max-frames", config.MaxFrames, "Stop after reading this many input frames (0 = unlimited)")
	flag.Int64Var(&config.Seed, "seed", config.Seed, "Seed of the synthetic source (0 = time based)")

	flag.IntVar(&config.FPS, "fps", config.FPS, "Display refresh rate (frames per second)")
	flag.IntVar(&config.TimebaseID, "timebase", config.TimebaseID, "Initial timebase id [1,6] (0.2s .. 10s)")
	flag.IntVar(&config.RangeID, "range", config.RangeID, "Initial voltage range id [1,6] (50uV .. 5000uV)")
	flag.IntVar(&config.SpreadID, "spread", config.SpreadID, "Initial spread id [1,6] (10px .. 60px)")
	flag.IntVar(&config.LeftMargin, "left-margin", config.LeftMargin, "Pixels left of the trace reserved for labels")
	flag.IntVar(&config.MaxValues, "max-values", config.MaxValues, "Drop updates producing this many pixels or more")
	flag.StringVar(&config.StatePath, "state", config.StatePath, "Load and save display parameters here (empty disables)")

	flag.IntVar(&config.Activity.K, "activity-k", config.Activity.K, "Rank the top K channels by out-of-range activity")
	flag.DurationVar(&config.Activity.Window, "activity-window", config.Activity.Window, "Activity window size")
	flag.DurationVar(&config.Activity.Tick, "activity-tick", config.Activity.Tick, "Activity window tick size")
	flag.DurationVar(&config.Activity.FullRefresh, "activity-full-refresh", config.Activity.FullRefresh, "How often to re-rank from scratch (0 = always)")
	flag.BoolVar(&config.ShowActivity, "activity", config.ShowActivity, "Show the activity leaderboard")
	flag.BoolVar(&config.Inspector, "inspector", config.Inspector, "Show the selected channel inspector")
	flag.BoolVar(&config.LogScale, "log-scale", config.LogScale, "Logarithmic scale for activity history in the inspector")

	flag.StringVar(&config.LogPath, "log", config.LogPath, "Write logs to this file (empty discards them)")
	flag.BoolVar(&config.Debug, "debug", config.Debug, "Debug logging")
	flag.BoolVar(&config.StatsEnabled, "stats", config.StatsEnabled, "Show render statistics")
	flag.IntVar(&config.StatsWindow, "stats-window", config.StatsWindow, "Number of recent frames kept for statistics")
	flag.BoolVar(&config.AltScreen, "alt-screen", config.AltScreen, "Use the terminal alternate screen buffer")

	flag.Parse()

	if err := validateAndNormalizeConfig(); err != nil {
		log.Fatal(err)
	}

	closeLog, err := setupLogging(config.LogPath, config.Debug)
	if err != nil {
		log.Fatal(err)
	}
	defer closeLog()

	doc, err := loadState(config.StatePath)
	if err != nil {
		logrus.Warnf("Ignoring state file: %v", err)
		doc = settings.NewDocument()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m, err := newModel(ctx, doc)
	if err != nil {
		log.Fatal(err)
	}
	opts := []tui.ProgramOption{tui.WithInputTTY(), tui.WithMouseCellMotion()}
	if config.AltScreen {
		opts = append(opts, tui.WithAltScreen())
	}
	if _, err := tui.NewProgram(m, opts...).Run(); err != nil {
		log.Fatal(err)
	}
	m.shutdown()
	if err := saveState(config.StatePath, m.canvas, doc); err != nil {
		logrus.Errorf("Unable to save state file: %v", err)
	}
}

func validateAndNormalizeConfig() error {
	if config.Channels < 1 {
		return fmt.Errorf("-channels must be >= 1")
	}
	if config.SampleRate <= 0 {
		return fmt.Errorf("-sample-rate must be > 0")
	}
	if config.BufferSize < 2 {
		return fmt.Errorf("-buffer must be >= 2")
	}
	if config.Pace < 0 {
		return fmt.Errorf("-pace must be >= 0")
	}
	if config.MaxFrames < 0 {
		return fmt.Errorf("-max-frames must be >= 0")
	}
	if config.FPS < 1 {
		return fmt.Errorf("-fps must be >= 1")
	}
	if !display.NewSelector("", "", display.Timebases, 1).Valid(config.TimebaseID) {
		return fmt.Errorf("-timebase must be in [1,%d]", len(display.Timebases))
	}
	if !display.NewSelector("", "", display.VoltageRanges, 1).Valid(config.RangeID) {
		return fmt.Errorf("-range must be in [1,%d]", len(display.VoltageRanges))
	}
	if !display.NewSelector("", "", display.Spreads, 1).Valid(config.SpreadID) {
		return fmt.Errorf("-spread must be in [1,%d]", len(display.Spreads))
	}
	if config.LeftMargin < 0 {
		return fmt.Errorf("-left-margin must be >= 0")
	}
	if config.MaxValues < 1 {
		return fmt.Errorf("-max-values must be >= 1")
	}
	if err := config.Activity.Validate(); err != nil {
		return err
	}

	config.FPS = min(120, config.FPS)
	if config.StatsWindow < 16 {
		config.StatsWindow = 16
	}
	if config.Activity.K > config.Channels && config.InputPath == "" {
		config.Activity.K = config.Channels
	}
	return nil
}

func setupLogging(path string, debug bool) (func(), error) {
	logrus.SetFormatter(&logrus.TextFormatter{DisableColors: true})
	if debug {
		logrus.SetLevel(logrus.DebugLevel)
		logrus.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true, TimestampFormat: time.RFC3339Nano})
	}
	if path == "" {
		logrus.SetOutput(io.Discard)
		return func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	logrus.SetOutput(f)
	logrus.Debugf("Debug mode activated")
	return func() { _ = f.Close() }, nil
}

func loadState(path string) (*settings.Document, error) {
	if path == "" {
		return settings.NewDocument(), nil
	}
	doc, err := settings.Load(path)
	if err != nil {
		return nil, err
	}
	for _, name := range doc.Dropped() {
		logrus.Warnf("Dropped malformed state element %q", name)
	}
	logrus.Infof("Loaded state file: %s", path)
	return doc, nil
}

func saveState(path string, c *display.Canvas, doc *settings.Document) error {
	if path == "" {
		return nil
	}
	c.SaveParameters(doc)
	if err := doc.Save(path); err != nil {
		return err
	}
	logrus.Infof("Saved state file: %s", path)
	return nil
}

func formatMetricDuration(d time.Duration) string {
	if d <= 0 {
		return "0.000ms"
	}
	return fmt.Sprintf("%.3fms", float64(d)/float64(time.Millisecond))
}
