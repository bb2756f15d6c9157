package display

import "fmt"

// Option is one entry of a selector.
type Option struct {
	Label string
	Value float64
}

// Selector picks one value from a fixed list. IDs are 1-based.
type Selector struct {
	Name    string
	Unit    string
	options []Option
	id      int
}

var (
	Timebases = []Option{
		{"0.2", 0.2}, {"0.5", 0.5}, {"1.0", 1}, {"2.0", 2}, {"5.0", 5}, {"10.0", 10},
	}
	VoltageRanges = []Option{
		{"50", 50}, {"100", 100}, {"500", 500}, {"1000", 1000}, {"2000", 2000}, {"5000", 5000},
	}
	Spreads = []Option{
		{"10", 10}, {"20", 20}, {"30", 30}, {"40", 40}, {"50", 50}, {"60", 60},
	}
)

const (
	DefaultTimebaseID = 3
	DefaultRangeID    = 4
	DefaultSpreadID   = 5
)

func NewSelector(name, unit string, options []Option, id int) *Selector {
	s := &Selector{Name: name, Unit: unit, options: options, id: 1}
	s.SetID(id)
	return s
}

func (s *Selector) ID() int           { return s.id }
func (s *Selector) Len() int          { return len(s.options) }
func (s *Selector) Options() []Option { return s.options }
func (s *Selector) Value() float64    { return s.options[s.id-1].Value }
func (s *Selector) Label() string     { return s.options[s.id-1].Label }
func (s *Selector) Valid(id int) bool { return id >= 1 && id <= len(s.options) }
func (s *Selector) String() string    { return fmt.Sprintf("%s %s %s", s.Name, s.Label(), s.Unit) }

// SetID selects id. Unknown ids leave the selection unchanged and report false.
func (s *Selector) SetID(id int) bool {
	if !s.Valid(id) || id == s.id {
		return false
	}
	s.id = id
	return true
}

// Step moves the selection by delta, stopping at either end.
func (s *Selector) Step(delta int) bool {
	return s.SetID(min(len(s.options), max(1, s.id+delta)))
}
