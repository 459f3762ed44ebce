package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/alejandrodnm/tabot/internal/domain"
	"github.com/alejandrodnm/tabot/internal/ports"
)

var (
	ErrNoData   = errors.New("no bars for symbol")
	ErrNoClock  = errors.New("feed has no clock bound")
	ErrNoBarYet = errors.New("no bar at or before now")
)

// Feed serves in-memory bars without ever looking past the clock.
type Feed struct {
	clock ports.TimeSource
	bars  map[string][]domain.Bar
}

func NewFeed() *Feed {
	return &Feed{bars: make(map[string][]domain.Bar)}
}

// BindClock sets the time source. The clock itself is usually built from the
// feed's history bounds, hence the two-step wiring.
func (f *Feed) BindClock(c ports.TimeSource) {
	f.clock = c
}

// Add stores bars for symbol, replacing what was there.
func (f *Feed) Add(symbol string, bars []domain.Bar) {
	sorted := append([]domain.Bar(nil), bars...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })
	f.bars[symbol] = sorted
}

func (f *Feed) series(symbol string) ([]domain.Bar, error) {
	b, ok := f.bars[symbol]
	if !ok || len(b) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNoData)
	}
	return b, nil
}

func (f *Feed) FirstBarTime(symbol string) (time.Time, error) {
	b, err := f.series(symbol)
	if err != nil {
		return time.Time{}, err
	}
	return b[0].Time, nil
}

func (f *Feed) LastBarTime(symbol string) (time.Time, error) {
	b, err := f.series(symbol)
	if err != nil {
		return time.Time{}, err
	}
	return b[len(b)-1].Time, nil
}

// visible returns the bars at or before now.
func (f *Feed) visible(symbol string) ([]domain.Bar, error) {
	if f.clock == nil {
		return nil, ErrNoClock
	}
	b, err := f.series(symbol)
	if err != nil {
		return nil, err
	}
	now := f.clock.Now()
	n := sort.Search(len(b), func(i int) bool { return b[i].Time.After(now) })
	return b[:n], nil
}

func (f *Feed) Latest(_ context.Context, symbol string) (domain.Bar, error) {
	b, err := f.visible(symbol)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("marketdata.Latest: %w", err)
	}
	if len(b) == 0 {
		return domain.Bar{}, fmt.Errorf("marketdata.Latest: %s: %w", symbol, ErrNoBarYet)
	}
	return b[len(b)-1], nil
}

func (f *Feed) Range(_ context.Context, symbol string, from, to time.Time) ([]domain.Bar, error) {
	b, err := f.visible(symbol)
	if err != nil {
		return nil, fmt.Errorf("marketdata.Range: %w", err)
	}
	lo := sort.Search(len(b), func(i int) bool { return !b[i].Time.Before(from) })
	hi := sort.Search(len(b), func(i int) bool { return b[i].Time.After(to) })
	if lo >= hi {
		return nil, nil
	}
	return append([]domain.Bar(nil), b[lo:hi]...), nil
}

func (f *Feed) Recent(_ context.Context, symbol string, n int) ([]domain.Bar, error) {
	b, err := f.visible(symbol)
	if err != nil {
		return nil, fmt.Errorf("marketdata.Recent: %w", err)
	}
	if n > 0 && len(b) > n {
		b = b[len(b)-n:]
	}
	return append([]domain.Bar(nil), b...), nil
}

var _ ports.MarketData = (*Feed)(nil)
