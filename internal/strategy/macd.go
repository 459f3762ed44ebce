package strategy

import (
	"context"
	"fmt"

	"github.com/montanaflynn/stats"

	"github.com/alejandrodnm/tabot/internal/application/play"
	"github.com/alejandrodnm/tabot/internal/domain"
)

// MACDCrossover fires when the MACD line crosses above its signal line while
// still below zero. Optionally the SMA must be higher than it was
// SMAComparisonPeriod bars ago. The stop loss is the lowest close since the
// previous upward crossover.
type MACDCrossover struct {
	Fast, Slow, SignalPeriod int
	CheckSMA                 bool
	SMAPeriod                int
	SMAComparisonPeriod      int
	Bars                     int
}

// NewMACDCrossover reads the signal settings from play params.
func NewMACDCrossover(p domain.Params) (play.Signal, error) {
	s := &MACDCrossover{
		Fast:                p.Int("fast_period", 12),
		Slow:                p.Int("slow_period", 26),
		SignalPeriod:        p.Int("signal_period", 9),
		CheckSMA:            p.Bool("check_sma", true),
		SMAPeriod:           p.Int("sma_period", 30),
		SMAComparisonPeriod: p.Int("sma_comparison_period", 20),
		Bars:                p.Int("lookback", 200),
	}
	if s.Fast <= 0 || s.Slow <= s.Fast || s.SignalPeriod <= 0 {
		return nil, fmt.Errorf("strategy.NewMACDCrossover: invalid periods %d/%d/%d", s.Fast, s.Slow, s.SignalPeriod)
	}
	if need := s.Slow + s.SignalPeriod + 1; s.Bars < need {
		s.Bars = need
	}
	if need := s.SMAPeriod + s.SMAComparisonPeriod; s.CheckSMA && s.Bars < need {
		s.Bars = need
	}
	return s, nil
}

func (s *MACDCrossover) Name() string  { return "macd_crossover" }
func (s *MACDCrossover) Lookback() int { return s.Bars }

func (s *MACDCrossover) Check(_ context.Context, bars []domain.Bar) (play.Entry, bool, error) {
	closes := domain.Closes(bars)
	macd, sig, err := MACD(closes, s.Fast, s.Slow, s.SignalPeriod)
	if err != nil {
		return play.Entry{}, false, err
	}
	last := len(macd) - 1
	if last < 1 {
		return play.Entry{}, false, nil
	}
	if !crossedAbove(macd, sig, last) || macd[last] >= 0 {
		return play.Entry{}, false, nil
	}

	if s.CheckSMA {
		sma, err := SMA(closes, s.SMAPeriod)
		if err != nil {
			return play.Entry{}, false, err
		}
		if len(sma) <= s.SMAComparisonPeriod {
			return play.Entry{}, false, nil
		}
		if sma[len(sma)-1] <= sma[len(sma)-s.SMAComparisonPeriod] {
			return play.Entry{}, false, nil
		}
	}

	prev := 0
	for i := last - 1; i > 0; i-- {
		if crossedAbove(macd, sig, i) {
			prev = i
			break
		}
	}
	offset := len(closes) - len(macd)
	stop, err := stats.Min(closes[offset+prev : offset+last+1])
	if err != nil {
		return play.Entry{}, false, fmt.Errorf("strategy.MACDCrossover: stop loss: %w", err)
	}
	return play.Entry{Price: closes[len(closes)-1], StopLoss: stop}, true, nil
}
