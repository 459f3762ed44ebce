package marketdata

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/alejandrodnm/tabot/internal/domain"
)

// barDTO is one row of a bars CSV: time,open,high,low,close,volume.
type barDTO struct {
	Time   string  `csv:"time"`
	Open   float64 `csv:"open"`
	High   float64 `csv:"high"`
	Low    float64 `csv:"low"`
	Close  float64 `csv:"close"`
	Volume float64 `csv:"volume"`
}

func (d barDTO) toModel() (domain.Bar, error) {
	t, err := parseTime(d.Time)
	if err != nil {
		return domain.Bar{}, err
	}
	return domain.Bar{Time: t, Open: d.Open, High: d.High, Low: d.Low, Close: d.Close, Volume: d.Volume}, nil
}

var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}

// LoadCSV parses bars from r, sorted by time.
func LoadCSV(r io.Reader) ([]domain.Bar, error) {
	var rows []barDTO
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("marketdata.LoadCSV: %w", err)
	}
	bars := make([]domain.Bar, 0, len(rows))
	for i, row := range rows {
		b, err := row.toModel()
		if err != nil {
			return nil, fmt.Errorf("marketdata.LoadCSV: row %d: %w", i+1, err)
		}
		bars = append(bars, b)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

// LoadCSVDir loads <SYMBOL>.csv from dir for every requested symbol.
func LoadCSVDir(dir string, symbols []string) (map[string][]domain.Bar, error) {
	out := make(map[string][]domain.Bar, len(symbols))
	for _, s := range symbols {
		path := filepath.Join(dir, s+".csv")
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("marketdata.LoadCSVDir: open %q: %w", path, err)
		}
		bars, err := LoadCSV(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("marketdata.LoadCSVDir: %s: %w", s, err)
		}
		out[s] = bars
	}
	return out, nil
}
