package notify_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/alejandrodnm/tabot/internal/adapters/notify"
	"github.com/alejandrodnm/tabot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(play string, gain float64) domain.InstanceSummary {
	return domain.InstanceSummary{
		InstanceID:       play,
		RunID:            "run-1",
		Symbol:           "BTC",
		SymbolGroup:      "crypto",
		PlayConfigName:   play,
		WeatherCondition: "bull",
		BoughtValue:      100,
		SoldValue:        100 + gain,
		TotalGain:        gain,
	}
}

func TestSummarize_GroupsAndStats(t *testing.T) {
	rows, err := notify.Summarize([]domain.InstanceSummary{
		result("macd", 10),
		result("macd", -2),
		result("macd", 4),
		result("sma", 1),
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	macd := rows[0]
	assert.Equal(t, "macd", macd.PlayConfig)
	assert.Equal(t, 3, macd.Instances)
	assert.Equal(t, 2, macd.Wins)
	assert.InDelta(t, 12.0, macd.TotalGain, 1e-9)
	assert.InDelta(t, 4.0, macd.MeanGain, 1e-9)
	assert.InDelta(t, 4.0, macd.MedianGain, 1e-9)
	assert.InDelta(t, 2.0/3.0, macd.WinRate(), 1e-9)
	assert.Greater(t, macd.StdDevGain, 0.0)

	sma := rows[1]
	assert.Equal(t, "sma", sma.PlayConfig)
	assert.InDelta(t, 0.0, sma.StdDevGain, 1e-9)
}

func TestConsole_Report(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf)

	err := n.Report(context.Background(), "run-1", []domain.InstanceSummary{
		result("macd", 10),
		result("sma", -5),
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "RUN run-1")
	assert.Contains(t, out, "macd")
	assert.Contains(t, out, "sma")
	assert.Contains(t, out, "Win rate:    50.0%")
	assert.Contains(t, out, "Total gain:  5.00")
}

func TestConsole_ReportEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, notify.NewConsoleWriter(&buf).Report(context.Background(), "run-x", nil))
	assert.Contains(t, buf.String(), "no terminated instances")
}
