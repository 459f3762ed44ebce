package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/tabot/internal/domain"
)

// TimeSource is the read side of the clock that adapters depend on.
type TimeSource interface {
	Now() time.Time
}

// History reports the span of bars available for a symbol.
type History interface {
	FirstBarTime(symbol string) (time.Time, error)
	LastBarTime(symbol string) (time.Time, error)
}

// MarketData serves bars up to the current clock time. Nothing after Now is
// ever visible.
type MarketData interface {
	History

	// Latest returns the most recent bar at or before now.
	Latest(ctx context.Context, symbol string) (domain.Bar, error)

	// Range returns the bars in [from, to], clipped to now.
	Range(ctx context.Context, symbol string, from, to time.Time) ([]domain.Bar, error)

	// Recent returns up to n bars ending at now, oldest first.
	Recent(ctx context.Context, symbol string, n int) ([]domain.Bar, error)
}
