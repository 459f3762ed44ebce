package clock

import (
	"fmt"
	"time"

	"github.com/alejandrodnm/tabot/internal/ports"
)

// Backtest is a deterministic simulated clock. now always lies in
// [First, Last] once started.
type Backtest struct {
	interval time.Duration
	padding  int
	history  ports.History

	symbols map[string]struct{}
	order   []string

	now     time.Time
	started bool
}

// NewBacktest builds a clock that advances by interval and reserves
// paddingIntervals ticks of history for indicator warm-up.
func NewBacktest(interval time.Duration, paddingIntervals int, history ports.History) *Backtest {
	return &Backtest{
		interval: interval,
		padding:  paddingIntervals,
		history:  history,
		symbols:  make(map[string]struct{}),
	}
}

// AddSymbols registers the universe whose history bounds the clock.
func (c *Backtest) AddSymbols(symbols ...string) {
	for _, s := range symbols {
		if _, ok := c.symbols[s]; ok {
			continue
		}
		c.symbols[s] = struct{}{}
		c.order = append(c.order, s)
	}
}

// First is the latest first bar across all symbols plus the warm-up padding.
func (c *Backtest) First() (time.Time, error) {
	if len(c.order) == 0 {
		return time.Time{}, ErrNoSymbols
	}
	var first time.Time
	for _, s := range c.order {
		t, err := c.history.FirstBarTime(s)
		if err != nil {
			return time.Time{}, fmt.Errorf("clock.First: %s: %w", s, err)
		}
		if t.After(first) {
			first = t
		}
	}
	return first.Add(c.interval * time.Duration(c.padding)), nil
}

// Last is the earliest last bar across all symbols.
func (c *Backtest) Last() (time.Time, error) {
	if len(c.order) == 0 {
		return time.Time{}, ErrNoSymbols
	}
	var last time.Time
	for i, s := range c.order {
		t, err := c.history.LastBarTime(s)
		if err != nil {
			return time.Time{}, fmt.Errorf("clock.Last: %s: %w", s, err)
		}
		if i == 0 || t.Before(last) {
			last = t
		}
	}
	return last, nil
}

func (c *Backtest) Now() time.Time {
	return c.now
}

func (c *Backtest) Interval() time.Duration {
	return c.interval
}

// SetNow moves the clock. Times outside [First, Last] are rejected and leave
// now unchanged.
func (c *Backtest) SetNow(t time.Time) error {
	first, last, err := c.bounds()
	if err != nil {
		return err
	}
	if t.Before(first) || t.After(last) {
		return fmt.Errorf("clock.SetNow: %s not in [%s, %s]: %w",
			t.Format(time.RFC3339), first.Format(time.RFC3339), last.Format(time.RFC3339), ErrOutOfRange)
	}
	c.now = t
	c.started = true
	return nil
}

// Start positions the clock at First.
func (c *Backtest) Start() error {
	first, err := c.First()
	if err != nil {
		return err
	}
	if err := c.SetNow(first); err != nil {
		return fmt.Errorf("clock.Start: %w", err)
	}
	return nil
}

// Tick advances now by one interval. A step that would overshoot Last lands
// on Last; ticking from Last fails and keeps the clock at EOF.
func (c *Backtest) Tick() error {
	if !c.started {
		return ErrNotStarted
	}
	last, err := c.Last()
	if err != nil {
		return err
	}
	if !c.now.Before(last) {
		return fmt.Errorf("clock.Tick: already at %s: %w", last.Format(time.RFC3339), ErrOutOfRange)
	}
	next := c.now.Add(c.interval)
	if next.After(last) {
		next = last
	}
	c.now = next
	return nil
}

// EOF reports whether now has reached Last.
func (c *Backtest) EOF() bool {
	if !c.started {
		return false
	}
	last, err := c.Last()
	if err != nil {
		return false
	}
	return !c.now.Before(last)
}

func (c *Backtest) bounds() (time.Time, time.Time, error) {
	first, err := c.First()
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	last, err := c.Last()
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return first, last, nil
}
