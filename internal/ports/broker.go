package ports

import (
	"context"

	"github.com/alejandrodnm/tabot/internal/domain"
)

// Broker places and tracks orders. Every call returns the freshest snapshot
// of the affected order. Prices and units must already be aligned to the
// instrument rules.
type Broker interface {
	BuyOrderLimit(ctx context.Context, symbol string, units, unitPrice float64) (domain.Order, error)
	BuyOrderMarket(ctx context.Context, symbol string, units float64) (domain.Order, error)
	SellOrderLimit(ctx context.Context, symbol string, units, unitPrice float64) (domain.Order, error)
	SellOrderMarket(ctx context.Context, symbol string, units float64) (domain.Order, error)

	// CancelOrder requests cancellation and returns the resulting snapshot.
	// Cancelling an order that is already closed returns it unchanged.
	CancelOrder(ctx context.Context, orderID string) (domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
}
