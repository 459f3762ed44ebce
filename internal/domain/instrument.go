package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	DefaultMinPriceIncrement    = 0.001
	DefaultMinQuantityIncrement = 1.0
	DefaultMinQuantity          = 1.0
)

// Instrument holds the trading rules for one symbol. Alignment is done in
// decimal space so that aligning an already aligned value is a no-op.
type Instrument struct {
	Symbol               string
	MinPriceIncrement    float64
	MinQuantityIncrement float64
	MinQuantity          float64
	// NotionalUnits allows fractional quantities (crypto style).
	NotionalUnits bool
}

// NewInstrument returns an instrument with the default alignment rules.
func NewInstrument(symbol string) Instrument {
	return Instrument{
		Symbol:               symbol,
		MinPriceIncrement:    DefaultMinPriceIncrement,
		MinQuantityIncrement: DefaultMinQuantityIncrement,
		MinQuantity:          DefaultMinQuantity,
	}
}

// WithDefaults fills zero-valued rules with the defaults.
func (i Instrument) WithDefaults() Instrument {
	if i.MinPriceIncrement <= 0 {
		i.MinPriceIncrement = DefaultMinPriceIncrement
	}
	if i.MinQuantityIncrement <= 0 {
		i.MinQuantityIncrement = DefaultMinQuantityIncrement
	}
	if i.MinQuantity < 0 {
		i.MinQuantity = 0
	}
	return i
}

// AlignPrice rounds p to the nearest price increment.
func (i Instrument) AlignPrice(p float64) float64 {
	inc := decimal.NewFromFloat(i.MinPriceIncrement)
	steps := decimal.NewFromFloat(p).Div(inc).Round(0)
	f, _ := steps.Mul(inc).Float64()
	return f
}

// AlignQuantityIncrement truncates q down to the quantity increment without
// enforcing the minimum order size.
func (i Instrument) AlignQuantityIncrement(q float64) float64 {
	inc := decimal.NewFromFloat(i.MinQuantityIncrement)
	steps := decimal.NewFromFloat(q).Div(inc).Floor()
	f, _ := steps.Mul(inc).Float64()
	return f
}

// AlignQuantity truncates q to the quantity increment and fails when the
// result is below the instrument's minimum order size.
func (i Instrument) AlignQuantity(q float64) (float64, error) {
	aligned := i.AlignQuantityIncrement(q)
	if aligned <= 0 || aligned < i.MinQuantity {
		return 0, fmt.Errorf("%w: %s quantity %v aligns to %v (minimum %v)",
			ErrInsufficientQuantity, i.Symbol, q, aligned, i.MinQuantity)
	}
	return aligned, nil
}

// SumQuantities adds quantities without accumulating float error.
func SumQuantities(qs ...float64) float64 {
	total := decimal.Zero
	for _, q := range qs {
		total = total.Add(decimal.NewFromFloat(q))
	}
	f, _ := total.Float64()
	return f
}

// SubQuantities returns a - b computed in decimal space.
func SubQuantities(a, b float64) float64 {
	f, _ := decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Float64()
	return f
}
