package strategy

import (
	"fmt"

	"github.com/montanaflynn/stats"
)

// SMA returns the simple moving average of values. The result is aligned to
// the end of values: out[len(out)-1] averages the last period values.
func SMA(values []float64, period int) ([]float64, error) {
	if period <= 0 || len(values) < period {
		return nil, nil
	}
	out := make([]float64, 0, len(values)-period+1)
	for i := period; i <= len(values); i++ {
		m, err := stats.Mean(values[i-period : i])
		if err != nil {
			return nil, fmt.Errorf("strategy.SMA: %w", err)
		}
		out = append(out, m)
	}
	return out, nil
}

// EMA returns the exponential moving average seeded with the SMA of the
// first period values, aligned to the end of values.
func EMA(values []float64, period int) ([]float64, error) {
	seed, err := SMA(values[:min(period, len(values))], period)
	if err != nil || len(seed) == 0 {
		return nil, err
	}
	k := 2.0 / float64(period+1)
	out := make([]float64, 0, len(values)-period+1)
	prev := seed[0]
	out = append(out, prev)
	for _, v := range values[period:] {
		prev = v*k + prev*(1-k)
		out = append(out, prev)
	}
	return out, nil
}

// MACD returns the MACD line and its signal line, both aligned to the end of
// values and of equal length.
func MACD(values []float64, fast, slow, signal int) (macd, sig []float64, err error) {
	if fast >= slow {
		return nil, nil, fmt.Errorf("strategy.MACD: fast period %d must be below slow %d", fast, slow)
	}
	emaFast, err := EMA(values, fast)
	if err != nil {
		return nil, nil, err
	}
	emaSlow, err := EMA(values, slow)
	if err != nil || len(emaSlow) == 0 {
		return nil, nil, err
	}
	line := make([]float64, len(emaSlow))
	shift := slow - fast
	for i := range emaSlow {
		line[i] = emaFast[i+shift] - emaSlow[i]
	}
	sig, err = EMA(line, signal)
	if err != nil || len(sig) == 0 {
		return nil, nil, err
	}
	return line[signal-1:], sig, nil
}

// crossedAbove reports whether a[i] > b[i] while a[i-1] <= b[i-1].
func crossedAbove(a, b []float64, i int) bool {
	return i > 0 && a[i] > b[i] && a[i-1] <= b[i-1]
}
