package domain

import "time"

// Telemetry event names.
const (
	EventPlayStart          = "play start"
	EventInstanceTerminated = "instance terminated"
)

// PlayStart is emitted once when an orchestrator starts.
type PlayStart struct {
	PlayID         string
	RunType        RunType
	StartTimeLocal time.Time
	StartTimeUTC   time.Time
	Conditions     map[string]string // category to condition
}

// InstanceSummary is the closing report of one Instance.
type InstanceSummary struct {
	InstanceID           string
	RunID                string
	Symbol               string
	SymbolGroup          string
	PlayConfigName       string
	WeatherCondition     string
	Units                float64
	BoughtValue          float64
	SoldValue            float64
	TotalGain            float64
	AverageBuyPrice      float64
	AverageSellPrice     float64
	BuyOrderCount        int
	SellOrderCount       int
	SellOrderFilledCount int
	TerminatedAt         time.Time
}

// Won reports whether the instance closed with a positive gain.
func (s InstanceSummary) Won() bool {
	return s.TotalGain > 0
}
