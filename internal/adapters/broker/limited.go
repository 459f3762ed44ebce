package broker

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/tabot/internal/domain"
	"github.com/alejandrodnm/tabot/internal/ports"
)

// Limited throttles every call to the wrapped broker.
type Limited struct {
	next    ports.Broker
	limiter *rate.Limiter
}

// NewLimited wraps next with a token bucket of perSec tokens and burst size.
// A non-positive perSec disables throttling.
func NewLimited(next ports.Broker, perSec float64, burst int) *Limited {
	limit := rate.Limit(perSec)
	if perSec <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limited{next: next, limiter: rate.NewLimiter(limit, burst)}
}

func (l *Limited) wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("broker: rate limiter: %w", err)
	}
	return nil
}

func (l *Limited) BuyOrderLimit(ctx context.Context, symbol string, units, unitPrice float64) (domain.Order, error) {
	if err := l.wait(ctx); err != nil {
		return domain.Order{}, err
	}
	return l.next.BuyOrderLimit(ctx, symbol, units, unitPrice)
}

func (l *Limited) BuyOrderMarket(ctx context.Context, symbol string, units float64) (domain.Order, error) {
	if err := l.wait(ctx); err != nil {
		return domain.Order{}, err
	}
	return l.next.BuyOrderMarket(ctx, symbol, units)
}

func (l *Limited) SellOrderLimit(ctx context.Context, symbol string, units, unitPrice float64) (domain.Order, error) {
	if err := l.wait(ctx); err != nil {
		return domain.Order{}, err
	}
	return l.next.SellOrderLimit(ctx, symbol, units, unitPrice)
}

func (l *Limited) SellOrderMarket(ctx context.Context, symbol string, units float64) (domain.Order, error) {
	if err := l.wait(ctx); err != nil {
		return domain.Order{}, err
	}
	return l.next.SellOrderMarket(ctx, symbol, units)
}

func (l *Limited) CancelOrder(ctx context.Context, orderID string) (domain.Order, error) {
	if err := l.wait(ctx); err != nil {
		return domain.Order{}, err
	}
	return l.next.CancelOrder(ctx, orderID)
}

func (l *Limited) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	if err := l.wait(ctx); err != nil {
		return domain.Order{}, err
	}
	return l.next.GetOrder(ctx, orderID)
}

var _ ports.Broker = (*Limited)(nil)
