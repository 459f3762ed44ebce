package strategy

import (
	"context"
	"fmt"

	"github.com/montanaflynn/stats"

	"github.com/alejandrodnm/tabot/internal/application/play"
	"github.com/alejandrodnm/tabot/internal/domain"
)

// SMACrossover fires when the fast SMA crosses above the slow SMA. The stop
// loss is the lowest low of the slow window.
type SMACrossover struct {
	Fast, Slow int
}

func NewSMACrossover(p domain.Params) (play.Signal, error) {
	s := &SMACrossover{Fast: p.Int("fast_period", 10), Slow: p.Int("slow_period", 30)}
	if s.Fast <= 0 || s.Slow <= s.Fast {
		return nil, fmt.Errorf("strategy.NewSMACrossover: invalid periods %d/%d", s.Fast, s.Slow)
	}
	return s, nil
}

func (s *SMACrossover) Name() string  { return "sma_crossover" }
func (s *SMACrossover) Lookback() int { return s.Slow + 1 }

func (s *SMACrossover) Check(_ context.Context, bars []domain.Bar) (play.Entry, bool, error) {
	if len(bars) < s.Slow+1 {
		return play.Entry{}, false, nil
	}
	closes := domain.Closes(bars)
	fast, err := SMA(closes, s.Fast)
	if err != nil {
		return play.Entry{}, false, err
	}
	slow, err := SMA(closes, s.Slow)
	if err != nil {
		return play.Entry{}, false, err
	}
	fast = fast[len(fast)-len(slow):]
	if !crossedAbove(fast, slow, len(slow)-1) {
		return play.Entry{}, false, nil
	}
	lows := domain.Lows(bars[len(bars)-s.Slow:])
	stop, err := stats.Min(lows)
	if err != nil {
		return play.Entry{}, false, fmt.Errorf("strategy.SMACrossover: stop loss: %w", err)
	}
	return play.Entry{Price: closes[len(closes)-1], StopLoss: stop}, true, nil
}
