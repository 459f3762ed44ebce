package play

import "context"

// stoppingLoss defers the liquidation to Terminated.
type stoppingLoss struct {
	Base
}

func newStoppingLoss(ctx context.Context, sc StateContext) (State, error) {
	s := &stoppingLoss{Base: NewBase(KindStoppingLoss, sc)}
	last, err := sc.Instance.LastClose(ctx)
	if err != nil {
		s.Log.Warn("stop loss triggered", "stop_loss", sc.Instance.stopLossPrice, "err", err)
		return s, nil
	}
	s.Log.Warn("stop loss triggered", "last_close", last, "stop_loss", sc.Instance.stopLossPrice)
	return s, nil
}

func (s *stoppingLoss) CheckExit(_ context.Context) (Transition, error) {
	return MoveTo(KindTerminated, Args{Reason: "stop loss"}), nil
}
