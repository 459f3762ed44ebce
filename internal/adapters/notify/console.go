package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/montanaflynn/stats"
	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/tabot/internal/domain"
	"github.com/alejandrodnm/tabot/internal/ports"
)

// Console implements ports.Notifier by printing a run report.
type Console struct {
	out io.Writer
}

// NewConsole creates a notifier that writes to stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter creates a notifier that writes to w, used by tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// ConfigStats summarises the instances of one play config.
type ConfigStats struct {
	Category   string
	Condition  string
	PlayConfig string
	Instances  int
	Wins       int
	TotalGain  float64
	MeanGain   float64
	MedianGain float64
	StdDevGain float64
	Bought     float64
	Sold       float64
}

// WinRate is the share of instances that closed with a positive gain.
func (s ConfigStats) WinRate() float64 {
	if s.Instances == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Instances)
}

// Summarize groups results by (category, condition, play config) and computes
// gain statistics for each group, sorted by total gain descending.
func Summarize(results []domain.InstanceSummary) ([]ConfigStats, error) {
	type key struct{ cat, cond, name string }
	groups := make(map[key][]domain.InstanceSummary)
	for _, r := range results {
		k := key{r.SymbolGroup, r.WeatherCondition, r.PlayConfigName}
		groups[k] = append(groups[k], r)
	}

	out := make([]ConfigStats, 0, len(groups))
	for k, rs := range groups {
		gains := make(stats.Float64Data, 0, len(rs))
		s := ConfigStats{Category: k.cat, Condition: k.cond, PlayConfig: k.name, Instances: len(rs)}
		for _, r := range rs {
			gains = append(gains, r.TotalGain)
			s.Bought += r.BoughtValue
			s.Sold += r.SoldValue
			if r.Won() {
				s.Wins++
			}
		}

		var err error
		if s.TotalGain, err = stats.Sum(gains); err != nil {
			return nil, fmt.Errorf("notify.Summarize: %s: sum: %w", k.name, err)
		}
		if s.MeanGain, err = stats.Mean(gains); err != nil {
			return nil, fmt.Errorf("notify.Summarize: %s: mean: %w", k.name, err)
		}
		if s.MedianGain, err = stats.Median(gains); err != nil {
			return nil, fmt.Errorf("notify.Summarize: %s: median: %w", k.name, err)
		}
		if s.StdDevGain, err = stats.StandardDeviation(gains); err != nil {
			return nil, fmt.Errorf("notify.Summarize: %s: stddev: %w", k.name, err)
		}
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalGain != out[j].TotalGain {
			return out[i].TotalGain > out[j].TotalGain
		}
		return out[i].PlayConfig < out[j].PlayConfig
	})
	return out, nil
}

// Report prints one row per play config followed by the run totals.
func (c *Console) Report(_ context.Context, runID string, results []domain.InstanceSummary) error {
	fmt.Fprintf(c.out, "\n=== RUN %s ===\n", runID)
	if len(results) == 0 {
		fmt.Fprintf(c.out, "  no terminated instances recorded\n\n")
		return nil
	}

	rows, err := Summarize(results)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Category", "Condition", "Play", "N", "Win%", "Gain", "Mean", "Median", "StdDev")
	for i, s := range rows {
		table.Append(
			fmt.Sprintf("%d", i+1),
			s.Category,
			s.Condition,
			s.PlayConfig,
			fmt.Sprintf("%d", s.Instances),
			fmt.Sprintf("%.1f%%", s.WinRate()*100),
			fmt.Sprintf("%.2f", s.TotalGain),
			fmt.Sprintf("%.2f", s.MeanGain),
			fmt.Sprintf("%.2f", s.MedianGain),
			fmt.Sprintf("%.2f", s.StdDevGain),
		)
	}
	table.Render()

	var total, bought float64
	wins := 0
	for _, r := range results {
		total += r.TotalGain
		bought += r.BoughtValue
		if r.Won() {
			wins++
		}
	}
	fmt.Fprintf(c.out, "  Instances:   %d\n", len(results))
	fmt.Fprintf(c.out, "  Win rate:    %.1f%%\n", float64(wins)/float64(len(results))*100)
	fmt.Fprintf(c.out, "  Total gain:  %.2f\n", total)
	if bought > 0 {
		fmt.Fprintf(c.out, "  Return:      %.2f%% of capital deployed\n", total/bought*100)
	}
	fmt.Fprintln(c.out)
	return nil
}

var _ ports.Notifier = (*Console)(nil)
