package play

import (
	"context"
	"fmt"
)

// waiting polls the trading signal and moves to EnteringPosition on a
// positive one. The stop price suggested by the signal is installed on exit.
type waiting struct {
	Base
	entry *Entry
}

func newWaiting(_ context.Context, sc StateContext) (State, error) {
	return &waiting{Base: NewBase(KindWaiting, sc)}, nil
}

func (w *waiting) CheckExit(ctx context.Context) (Transition, error) {
	sig := w.Inst.cfg.Signal()
	bars, err := w.Inst.Market().Recent(ctx, w.Inst.symbol, sig.Lookback())
	if err != nil {
		return Transition{}, fmt.Errorf("recent bars: %w", err)
	}
	entry, ok, err := sig.Check(ctx, bars)
	if err != nil {
		return Transition{}, fmt.Errorf("signal %s: %w", sig.Name(), err)
	}
	if !ok {
		return stay(), nil
	}
	w.entry = &entry
	w.Log.Info("entry signal", "signal", sig.Name(), "price", entry.Price, "stop_loss", entry.StopLoss)
	return MoveTo(KindEnteringPosition, Args{}), nil
}

func (w *waiting) Exit(ctx context.Context) error {
	if w.entry == nil {
		return nil
	}
	if w.entry.StopLoss > 0 {
		w.Inst.SetStopLoss(w.entry.StopLoss)
		return nil
	}
	last, err := w.Inst.LastClose(ctx)
	if err != nil {
		return err
	}
	w.Inst.SetStopLoss(last * (1 - w.Inst.cfg.StopLossTriggerPct))
	return nil
}
