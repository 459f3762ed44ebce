package ports

import (
	"context"

	"github.com/alejandrodnm/tabot/internal/domain"
)

// Notifier presents the outcome of a run to the operator.
type Notifier interface {
	// Report prints the instance results of one run grouped by play config.
	// In the console implementation this is a formatted table.
	Report(ctx context.Context, runID string, results []domain.InstanceSummary) error
}
