package domain

import "fmt"

// RunType tags telemetry with how the orchestrator is driven.
type RunType string

const (
	RunBacktest RunType = "backtest"
	RunPaper    RunType = "paper"
	RunReal     RunType = "real"
)

// ParseRunType validates a config value.
func ParseRunType(s string) (RunType, error) {
	switch RunType(s) {
	case RunBacktest, RunPaper, RunReal:
		return RunType(s), nil
	}
	return "", fmt.Errorf("domain.ParseRunType: unknown run type %q", s)
}
