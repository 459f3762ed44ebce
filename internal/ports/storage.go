package ports

import (
	"context"

	"github.com/alejandrodnm/tabot/internal/domain"
)

// ResultStore persists telemetry batches. Inserting a row whose primary key
// already exists is silently ignored.
type ResultStore interface {
	// SavePlayStarts stores orchestrator start records keyed by play id.
	SavePlayStarts(ctx context.Context, starts []domain.PlayStart) error

	// SaveInstanceResults stores instance summaries keyed by instance id.
	SaveInstanceResults(ctx context.Context, results []domain.InstanceSummary) error

	// InstanceResults returns every summary recorded for runID.
	InstanceResults(ctx context.Context, runID string) ([]domain.InstanceSummary, error)

	// LatestRunID returns the play id of the most recently started run.
	LatestRunID(ctx context.Context) (string, error)

	// Close releases the underlying connection.
	Close() error
}

// LibraryStore loads the play library document.
type LibraryStore interface {
	Load(ctx context.Context) (domain.LibraryDocument, error)
}
