package library_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alejandrodnm/tabot/internal/adapters/library"
	"github.com/alejandrodnm/tabot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlDoc = `
categories:
  crypto: [BTC, ETH]
conditions: [bull, choppy]
instruments:
  BTC:
    min_price_increment: 0.01
    min_quantity_increment: 0.0001
    min_quantity: 0.0001
    notional_units: true
plays:
  crypto:
    bull:
      - name: macd_fast
        max_play_size: 1000
        buy_order_type: market
        take_profit_risk_multiplier: 1.5
        take_profit_pct_to_sell: 0.5
        stop_loss_trigger_pct: 0.05
        signal: macd_crossover
        state_waiting: waiting
        params:
          fast_period: 8
          check_sma: true
`

const tomlDoc = `
conditions = ["bull", "choppy"]

[categories]
crypto = ["BTC", "ETH"]

[instruments.BTC]
min_price_increment = 0.01
notional_units = true

[[plays.crypto.choppy]]
name = "sma_slow"
max_play_size = 500.0
buy_order_type = "limit"
buy_timeout_intervals = 3
take_profit_risk_multiplier = 2.0
take_profit_pct_to_sell = 1.0
stop_loss_trigger_pct = 0.02
signal = "sma_crossover"
state_terminated = "terminated"

[plays.crypto.choppy.params]
slow_period = 40
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestFile_LoadYAML(t *testing.T) {
	doc, err := library.NewFile(writeFile(t, "plays.yaml", yamlDoc)).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"BTC", "ETH"}, doc.Categories["crypto"])
	assert.Equal(t, []string{"bull", "choppy"}, doc.Conditions)

	records := doc.Plays["crypto"]["bull"]
	require.Len(t, records, 1)
	pc := records[0]
	assert.Equal(t, "macd_fast", pc.Name)
	assert.Equal(t, "crypto", pc.Category)
	assert.Equal(t, "bull", pc.Condition)
	assert.Equal(t, domain.OrderTypeMarket, pc.BuyOrderType)
	assert.Equal(t, "waiting", pc.StateNames.Waiting)
	assert.Equal(t, 8, pc.Params.Int("fast_period", 12))
	assert.True(t, pc.Params.Bool("check_sma", false))

	btc := doc.Instrument("BTC")
	assert.True(t, btc.NotionalUnits)
	assert.InDelta(t, 0.01, btc.MinPriceIncrement, 1e-12)

	eth := doc.Instrument("ETH")
	assert.Equal(t, domain.NewInstrument("ETH"), eth)
}

func TestFile_LoadTOML(t *testing.T) {
	doc, err := library.NewFile(writeFile(t, "plays.toml", tomlDoc)).Load(context.Background())
	require.NoError(t, err)

	records := doc.Plays["crypto"]["choppy"]
	require.Len(t, records, 1)
	pc := records[0]
	assert.Equal(t, "sma_slow", pc.Name)
	assert.Equal(t, "choppy", pc.Condition)
	assert.Equal(t, 3, pc.BuyTimeoutIntervals)
	assert.Equal(t, "terminated", pc.StateNames.Terminated)
	assert.Equal(t, 40, pc.Params.Int("slow_period", 30))

	// Unlisted rules fall back to defaults
	btc := doc.Instrument("BTC")
	assert.InDelta(t, domain.DefaultMinQuantityIncrement, btc.MinQuantityIncrement, 1e-12)
}

func TestFile_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file", func(t *testing.T) {
		_, err := library.NewFile(filepath.Join(t.TempDir(), "nope.yaml")).Load(ctx)
		assert.Error(t, err)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := library.NewFile(writeFile(t, "plays.json", "{}")).Load(ctx)
		assert.ErrorContains(t, err, "unsupported extension")
	})

	t.Run("misspelled yaml key", func(t *testing.T) {
		_, err := library.DecodeYAML([]byte("condition: [bull]\n"))
		assert.Error(t, err)
	})

	t.Run("misspelled toml key", func(t *testing.T) {
		_, err := library.DecodeTOML([]byte("condition = [\"bull\"]\n"))
		assert.ErrorContains(t, err, "unknown keys")
	})
}
