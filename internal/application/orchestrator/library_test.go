package orchestrator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/tabot/internal/application/orchestrator"
	"github.com/alejandrodnm/tabot/internal/domain"
)

func TestLibrary_Accessors(t *testing.T) {
	doc := testDoc()
	doc.Categories["majors"] = []string{"BBB", "CCC"}
	doc.Instruments = map[string]domain.InstrumentRules{"CCC": {MinPriceIncrement: 0.5}}

	lib, err := orchestrator.NewLibrary(doc, testRegistry())
	require.NoError(t, err)

	assert.Equal(t, []string{"alt", "majors"}, lib.Categories())
	assert.Equal(t, []string{"bull", "choppy"}, lib.Conditions())
	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, lib.UniqueSymbols())

	syms, err := lib.Symbols("majors")
	require.NoError(t, err)
	assert.Equal(t, []string{"BBB", "CCC"}, syms)

	bull, err := lib.Configs("alt", "bull")
	require.NoError(t, err)
	require.Len(t, bull, 2)
	assert.Equal(t, "A", bull[0].Name)
	assert.Equal(t, "alt", bull[0].Category)
	assert.Equal(t, "bull", bull[0].Condition)
	assert.Equal(t, domain.OrderTypeMarket, bull[0].BuyOrderType)
	assert.Equal(t, 2, bull[0].BuyTimeoutIntervals, "defaults applied")

	empty, err := lib.Configs("majors", "choppy")
	require.NoError(t, err)
	assert.Empty(t, empty)

	assert.InDelta(t, 0.5, lib.Instrument("CCC").MinPriceIncrement, 1e-12)
	assert.InDelta(t, domain.DefaultMinPriceIncrement, lib.Instrument("AAA").MinPriceIncrement, 1e-12)
}

func TestLibrary_Errors(t *testing.T) {
	reg := testRegistry()

	t.Run("plays for unknown category", func(t *testing.T) {
		doc := testDoc()
		doc.Plays["ghost"] = map[string][]domain.PlayConfig{"bull": {record("X")}}
		_, err := orchestrator.NewLibrary(doc, reg)
		assert.ErrorIs(t, err, domain.ErrUnknownCategory)
	})

	t.Run("plays for unknown condition", func(t *testing.T) {
		doc := testDoc()
		doc.Plays["alt"]["sideways"] = []domain.PlayConfig{record("X")}
		_, err := orchestrator.NewLibrary(doc, reg)
		assert.ErrorIs(t, err, domain.ErrUnknownCondition)
	})

	t.Run("unknown signal", func(t *testing.T) {
		doc := testDoc()
		pc := record("X")
		pc.Signal = "astrology"
		doc.Plays["alt"]["bull"] = []domain.PlayConfig{pc}
		_, err := orchestrator.NewLibrary(doc, reg)
		assert.ErrorIs(t, err, domain.ErrUnknownSignal)
	})

	t.Run("state registered for another slot", func(t *testing.T) {
		doc := testDoc()
		pc := record("X")
		pc.StateNames.Waiting = "terminated"
		doc.Plays["alt"]["bull"] = []domain.PlayConfig{pc}
		_, err := orchestrator.NewLibrary(doc, reg)
		assert.ErrorIs(t, err, domain.ErrUnknownState)
	})

	t.Run("category without symbols", func(t *testing.T) {
		doc := testDoc()
		doc.Categories["empty"] = nil
		_, err := orchestrator.NewLibrary(doc, reg)
		assert.ErrorIs(t, err, domain.ErrNoSymbols)
	})

	t.Run("queries", func(t *testing.T) {
		lib, err := orchestrator.NewLibrary(testDoc(), reg)
		require.NoError(t, err)
		_, err = lib.Symbols("ghost")
		assert.ErrorIs(t, err, domain.ErrUnknownCategory)
		_, err = lib.Configs("alt", "sideways")
		assert.ErrorIs(t, err, domain.ErrUnknownCondition)
	})
}
