package domain

// InstrumentRules is the library file form of an Instrument.
type InstrumentRules struct {
	MinPriceIncrement    float64 `yaml:"min_price_increment" toml:"min_price_increment"`
	MinQuantityIncrement float64 `yaml:"min_quantity_increment" toml:"min_quantity_increment"`
	MinQuantity          float64 `yaml:"min_quantity" toml:"min_quantity"`
	NotionalUnits        bool    `yaml:"notional_units" toml:"notional_units"`
}

// LibraryDocument is the on-disk play library: which symbols belong to each
// category, the known market conditions, per-symbol instrument rules and the
// candidate play configs for every category and condition.
type LibraryDocument struct {
	Categories  map[string][]string                `yaml:"categories" toml:"categories"`
	Conditions  []string                           `yaml:"conditions" toml:"conditions"`
	Instruments map[string]InstrumentRules         `yaml:"instruments" toml:"instruments"`
	Plays       map[string]map[string][]PlayConfig `yaml:"plays" toml:"plays"`
}

// Instrument builds the Instrument for symbol, falling back to the default
// rules when the document does not list it.
func (d LibraryDocument) Instrument(symbol string) Instrument {
	r, ok := d.Instruments[symbol]
	if !ok {
		return NewInstrument(symbol)
	}
	return Instrument{
		Symbol:               symbol,
		MinPriceIncrement:    r.MinPriceIncrement,
		MinQuantityIncrement: r.MinQuantityIncrement,
		MinQuantity:          r.MinQuantity,
		NotionalUnits:        r.NotionalUnits,
	}.WithDefaults()
}
