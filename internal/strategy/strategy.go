// Package strategy holds the pluggable entry signals and the indicator math
// they use.
package strategy

import "github.com/alejandrodnm/tabot/internal/application/play"

// Register adds every signal in this package to reg.
func Register(reg *play.Registry) {
	reg.RegisterSignal("macd_crossover", NewMACDCrossover)
	reg.RegisterSignal("sma_crossover", NewSMACrossover)
}
