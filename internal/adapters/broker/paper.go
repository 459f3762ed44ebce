package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/tabot/internal/domain"
	"github.com/alejandrodnm/tabot/internal/ports"
)

var ErrUnknownOrder = errors.New("unknown order")

// Paper simulates an exchange against historical bars.
//
// Fill rules:
//   - market orders fill immediately at the latest close
//   - a limit buy fills at its limit once a bar after placement trades at or
//     below it; a limit sell once a bar trades at or above it
//   - limit orders start pending and are open from their first observation
type Paper struct {
	market ports.MarketData
	clock  ports.TimeSource

	mu     sync.Mutex
	orders map[string]*domain.Order
}

func NewPaper(market ports.MarketData, clock ports.TimeSource) *Paper {
	return &Paper{market: market, clock: clock, orders: make(map[string]*domain.Order)}
}

func (p *Paper) BuyOrderLimit(ctx context.Context, symbol string, units, unitPrice float64) (domain.Order, error) {
	return p.limit(ctx, symbol, domain.SideBuy, units, unitPrice)
}

func (p *Paper) BuyOrderMarket(ctx context.Context, symbol string, units float64) (domain.Order, error) {
	return p.marketOrder(ctx, symbol, domain.SideBuy, units)
}

func (p *Paper) SellOrderLimit(ctx context.Context, symbol string, units, unitPrice float64) (domain.Order, error) {
	return p.limit(ctx, symbol, domain.SideSell, units, unitPrice)
}

func (p *Paper) SellOrderMarket(ctx context.Context, symbol string, units float64) (domain.Order, error) {
	return p.marketOrder(ctx, symbol, domain.SideSell, units)
}

func (p *Paper) limit(_ context.Context, symbol string, side domain.OrderSide, units, price float64) (domain.Order, error) {
	if units <= 0 {
		return domain.Order{}, fmt.Errorf("broker.Paper: %s limit units %v: %w", side, units, domain.ErrInvalidQuantity)
	}
	if price <= 0 {
		return domain.Order{}, fmt.Errorf("broker.Paper: %s limit price %v: %w", side, price, domain.ErrInvalidPrice)
	}
	now := p.clock.Now()
	o := &domain.Order{
		ID:                uuid.NewString(),
		Symbol:            symbol,
		Side:              side,
		Type:              domain.OrderTypeLimit,
		Status:            domain.OrderPending,
		RequestedQuantity: units,
		OrderedUnitPrice:  price,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	p.mu.Lock()
	p.orders[o.ID] = o
	p.mu.Unlock()
	slog.Debug("paper order placed", o.LogAttrs()...)
	return *o, nil
}

func (p *Paper) marketOrder(ctx context.Context, symbol string, side domain.OrderSide, units float64) (domain.Order, error) {
	if units <= 0 {
		return domain.Order{}, fmt.Errorf("broker.Paper: %s market units %v: %w", side, units, domain.ErrInvalidQuantity)
	}
	bar, err := p.market.Latest(ctx, symbol)
	if err != nil {
		return domain.Order{}, fmt.Errorf("broker.Paper: market %s: %w", side, err)
	}
	now := p.clock.Now()
	o := &domain.Order{
		ID:                uuid.NewString(),
		Symbol:            symbol,
		Side:              side,
		Type:              domain.OrderTypeMarket,
		RequestedQuantity: units,
		CreatedAt:         now,
	}
	fill(o, bar.Close, now)
	p.mu.Lock()
	p.orders[o.ID] = o
	p.mu.Unlock()
	slog.Debug("paper order filled", o.LogAttrs()...)
	return *o, nil
}

// CancelOrder cancels an unresolved order. Fills that happened before the
// cancel are applied first; a closed order is returned unchanged.
func (p *Paper) CancelOrder(ctx context.Context, orderID string) (domain.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	o, err := p.refresh(ctx, orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("broker.Paper.CancelOrder: %w", err)
	}
	if !o.Closed {
		o.Status = domain.OrderCancelled
		o.Closed = true
		o.UpdatedAt = p.clock.Now()
	}
	return *o, nil
}

func (p *Paper) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	o, err := p.refresh(ctx, orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("broker.Paper.GetOrder: %w", err)
	}
	return *o, nil
}

// Orders returns a snapshot of every order placed, for reporting.
func (p *Paper) Orders() []domain.Order {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Order, 0, len(p.orders))
	for _, o := range p.orders {
		out = append(out, *o)
	}
	return out
}

// refresh applies the fill rules to a limit order. Caller holds mu.
func (p *Paper) refresh(ctx context.Context, orderID string) (*domain.Order, error) {
	o, ok := p.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", orderID, ErrUnknownOrder)
	}
	if o.Closed {
		return o, nil
	}
	now := p.clock.Now()
	bars, err := p.market.Range(ctx, o.Symbol, o.CreatedAt.Add(time.Nanosecond), now)
	if err != nil {
		return nil, err
	}
	for _, b := range bars {
		if (o.Side == domain.SideBuy && b.Low <= o.OrderedUnitPrice) ||
			(o.Side == domain.SideSell && b.High >= o.OrderedUnitPrice) {
			fill(o, o.OrderedUnitPrice, b.Time)
			return o, nil
		}
	}
	if o.Status == domain.OrderPending {
		o.Status = domain.OrderOpen
		o.UpdatedAt = now
	}
	return o, nil
}

func fill(o *domain.Order, price float64, at time.Time) {
	o.Status = domain.OrderFilled
	o.Closed = true
	o.FilledQuantity = o.RequestedQuantity
	o.FilledUnitPrice = price
	o.FilledTotalValue = o.RequestedQuantity * price
	o.UpdatedAt = at
}

var _ ports.Broker = (*Paper)(nil)
