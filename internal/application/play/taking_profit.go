package play

import (
	"context"
	"fmt"
	"math"

	"github.com/alejandrodnm/tabot/internal/domain"
)

// takingProfit places a sell limit at entry + risk * multipliers for a
// fraction of the held units and watches both that order and the stop price.
type takingProfit struct {
	Base
	orderID   string
	nothing   bool
	belowStop int
}

func newTakingProfit(ctx context.Context, sc StateContext) (State, error) {
	inst := sc.Instance
	cfg := inst.cfg
	t := &takingProfit{Base: NewBase(KindTakingProfit, sc)}

	held := inst.UnitsHeld()
	units := sc.Args.Units
	if units > 0 {
		if aligned := inst.instrument.AlignQuantityIncrement(units); aligned != units {
			return nil, fmt.Errorf("units %v (aligned %v): %w", units, aligned, domain.ErrInvalidQuantity)
		}
	} else {
		units = inst.instrument.AlignQuantityIncrement(cfg.TakeProfitPctToSell * held)
		if units < inst.instrument.MinQuantity || units <= 0 {
			units = inst.instrument.AlignQuantityIncrement(held)
		}
	}
	if units > held {
		units = inst.instrument.AlignQuantityIncrement(held)
	}
	if units <= 0 {
		t.nothing = true
		return t, nil
	}

	target := sc.Args.TargetPrice
	if target > 0 {
		if aligned := inst.instrument.AlignPrice(target); aligned != target {
			return nil, fmt.Errorf("target price %v (aligned %v): %w", target, aligned, domain.ErrInvalidPrice)
		}
	} else {
		entry, ok := inst.EntryPrice()
		if !ok {
			return nil, fmt.Errorf("take profit before entry price is known")
		}
		risk := math.Abs(entry - inst.stopLossPrice)
		target = inst.instrument.AlignPrice(entry + risk*cfg.TakeProfitRiskMultiplier*inst.TakeProfitMultiplier())
	}

	o, err := inst.SellOrderLimit(ctx, units, target)
	if err != nil {
		return nil, err
	}
	t.orderID = o.ID
	t.Log.Info("take profit order placed", append(o.LogAttrs(), "held", held, "stop_loss", inst.stopLossPrice)...)
	return t, nil
}

func (t *takingProfit) CheckExit(ctx context.Context) (Transition, error) {
	if t.nothing {
		return MoveTo(KindTerminated, Args{Reason: "nothing held"}), nil
	}

	triggered, err := t.Inst.StopLossTriggered(ctx)
	if err != nil {
		return Transition{}, err
	}
	if triggered {
		t.belowStop++
		if t.belowStop >= t.Inst.cfg.StopLossHoldIntervals {
			return MoveTo(KindStoppingLoss, Args{}), nil
		}
	} else {
		t.belowStop = 0
	}

	o, err := t.Inst.RefreshSellOrder(ctx)
	if err != nil {
		return Transition{}, err
	}
	switch o.Status {
	case domain.OrderFilled:
		if t.Inst.instrument.AlignQuantityIncrement(t.Inst.UnitsHeld()) <= 0 {
			return MoveTo(KindTerminated, Args{Reason: "sold out"}), nil
		}
		return MoveTo(KindTakingProfit, Args{}), nil
	case domain.OrderCancelled:
		t.Log.Warn("take profit order cancelled by broker", o.LogAttrs()...)
		return MoveTo(KindTerminated, Args{Reason: "sell cancelled"}), nil
	case domain.OrderPending, domain.OrderOpen:
		return stay(), nil
	}
	return Transition{}, fmt.Errorf("sell order %s status %q: %w", o.ID, o.Status, domain.ErrUnknownOrderStatus)
}
