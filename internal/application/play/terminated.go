package play

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/tabot/internal/domain"
)

// terminated cancels what is still open, liquidates what is still held and
// reports the instance summary. It is a sink.
type terminated struct {
	Base
	reason string
}

func newTerminated(ctx context.Context, sc StateContext) (State, error) {
	inst := sc.Instance
	t := &terminated{Base: NewBase(KindTerminated, sc), reason: sc.Args.Reason}

	for _, o := range inst.unresolvedOrders() {
		c, err := inst.CancelOrder(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		if !c.Closed {
			return nil, fmt.Errorf("cancel %s returned %s: %w", c.ID, c.Status, domain.ErrUnhandledBroker)
		}
		t.Log.Debug("order cancelled", c.LogAttrs()...)
	}

	if qty := inst.instrument.AlignQuantityIncrement(inst.UnitsHeld()); qty > 0 {
		o, err := inst.SellOrderMarket(ctx, qty)
		if err != nil {
			return nil, err
		}
		if !o.Closed {
			return nil, fmt.Errorf("liquidation %s returned %s: %w", o.ID, o.Status, domain.ErrUnhandledBroker)
		}
		t.Log.Info("position liquidated", o.LogAttrs()...)
	}

	s := inst.summarize()
	inst.summary = &s
	t.Log.Info("instance terminated",
		"reason", t.reason,
		"previous", sc.Previous,
		"units", s.Units,
		"bought_value", s.BoughtValue,
		"sold_value", s.SoldValue,
		"total_gain", s.TotalGain,
	)
	if inst.env.Telemetry != nil {
		inst.env.Telemetry.Emit(domain.EventInstanceTerminated, s)
	}
	return t, nil
}

// Reason explains why the instance ended.
func (t *terminated) Reason() string {
	return t.reason
}

func (t *terminated) CheckExit(_ context.Context) (Transition, error) {
	return stay(), nil
}

func (t *terminated) Exit(_ context.Context) error {
	return domain.ErrTerminalState
}
