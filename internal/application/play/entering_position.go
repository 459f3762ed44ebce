package play

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/alejandrodnm/tabot/internal/domain"
)

// enteringPosition submits the buy order on entry and waits for it to
// resolve, giving up after buy_timeout_intervals unresolved checks.
type enteringPosition struct {
	Base
	orderID   string
	remaining int
	// splitFills hands partial fills to a sibling instance.
	splitFills bool
	skipped    string
}

func newEnteringPosition(ctx context.Context, sc StateContext) (State, error) {
	inst := sc.Instance
	cfg := inst.cfg
	e := &enteringPosition{
		Base:       NewBase(KindEnteringPosition, sc),
		remaining:  cfg.BuyTimeoutIntervals,
		splitFills: cfg.Params.Bool("split_partial_fills", false),
	}

	orderType := sc.Args.OrderType
	if orderType == "" {
		orderType = cfg.BuyOrderType
	}

	last, err := inst.LastClose(ctx)
	if err != nil {
		return nil, err
	}
	price := last
	if sc.Args.LimitPrice > 0 {
		price = inst.instrument.AlignPrice(sc.Args.LimitPrice)
		if price != sc.Args.LimitPrice {
			return nil, fmt.Errorf("limit price %v (aligned %v): %w", sc.Args.LimitPrice, price, domain.ErrInvalidPrice)
		}
	}

	var units float64
	if sc.Args.Units > 0 {
		units = inst.instrument.AlignQuantityIncrement(sc.Args.Units)
		if units != sc.Args.Units {
			return nil, fmt.Errorf("units %v (aligned %v): %w", sc.Args.Units, units, domain.ErrInvalidQuantity)
		}
	} else {
		raw := cfg.MaxPlaySize / price
		if !inst.instrument.NotionalUnits {
			raw = math.Floor(raw)
		}
		units, err = inst.instrument.AlignQuantity(raw)
		if errors.Is(err, domain.ErrInsufficientQuantity) {
			e.skipped = "budget below minimum quantity"
			e.Log.Warn("buy skipped", "budget", cfg.MaxPlaySize, "price", price, "err", err)
			return e, nil
		}
		if err != nil {
			return nil, err
		}
	}

	var o domain.Order
	switch orderType {
	case domain.OrderTypeLimit:
		o, err = inst.BuyOrderLimit(ctx, units, price)
	case domain.OrderTypeMarket:
		o, err = inst.BuyOrderMarket(ctx, units)
	default:
		return nil, fmt.Errorf("buy order type %q", orderType)
	}
	if err != nil {
		return nil, err
	}
	e.orderID = o.ID
	e.Log.Info("buy order placed", o.LogAttrs()...)
	return e, nil
}

func (e *enteringPosition) CheckExit(ctx context.Context) (Transition, error) {
	if e.skipped != "" {
		return MoveTo(KindTerminated, Args{Reason: e.skipped}), nil
	}
	o, err := e.Inst.RefreshBuyOrder(ctx)
	if err != nil {
		return Transition{}, err
	}

	switch o.Status {
	case domain.OrderFilled:
		return MoveTo(KindTakingProfit, Args{}), nil
	case domain.OrderCancelled:
		e.Log.Warn("buy order cancelled by broker", o.LogAttrs()...)
		return MoveTo(KindTerminated, Args{Reason: "buy cancelled"}), nil
	case domain.OrderPending, domain.OrderOpen:
		if e.splitFills {
			if delta := domain.SubQuantities(o.FilledQuantity, e.Inst.forkedUnits); delta > 0 {
				return SplitTo(KindTakingProfit, Args{FilledUnits: delta, FilledPrice: o.FilledUnitPrice}), nil
			}
		}
		if e.remaining <= 0 {
			e.Log.Info("buy order timed out", o.LogAttrs()...)
			return MoveTo(KindTerminated, Args{Reason: "buy timeout"}), nil
		}
		e.remaining--
		return stay(), nil
	}
	return Transition{}, fmt.Errorf("buy order %s status %q: %w", o.ID, o.Status, domain.ErrUnknownOrderStatus)
}
