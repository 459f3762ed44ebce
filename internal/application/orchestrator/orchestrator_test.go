package orchestrator_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/tabot/internal/adapters/broker"
	"github.com/alejandrodnm/tabot/internal/adapters/marketdata"
	"github.com/alejandrodnm/tabot/internal/adapters/weather"
	"github.com/alejandrodnm/tabot/internal/application/orchestrator"
	"github.com/alejandrodnm/tabot/internal/application/play"
	"github.com/alejandrodnm/tabot/internal/clock"
	"github.com/alejandrodnm/tabot/internal/domain"
	"github.com/alejandrodnm/tabot/internal/ports"
)

const interval = 5 * time.Minute

var t0 = time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

// eager enters on every check with a stop 10% under the close.
type eager struct{}

func (eager) Name() string  { return "eager" }
func (eager) Lookback() int { return 1 }
func (eager) Check(_ context.Context, bars []domain.Bar) (play.Entry, bool, error) {
	if len(bars) == 0 {
		return play.Entry{}, false, nil
	}
	c := bars[len(bars)-1].Close
	return play.Entry{Price: c, StopLoss: c * 0.9}, true, nil
}

type recorder struct {
	events   []string
	payloads []any
}

func (r *recorder) Emit(name string, payload any) {
	r.events = append(r.events, name)
	r.payloads = append(r.payloads, payload)
}

func (r *recorder) summaries(condition string) []domain.InstanceSummary {
	var out []domain.InstanceSummary
	for _, p := range r.payloads {
		if s, ok := p.(domain.InstanceSummary); ok && s.WeatherCondition == condition {
			out = append(out, s)
		}
	}
	return out
}

func risingBars(n int) []domain.Bar {
	bars := make([]domain.Bar, n)
	for i := range bars {
		c := 10 + 0.01*float64(i)
		bars[i] = domain.Bar{
			Time:   t0.Add(time.Duration(i) * interval),
			Open:   c,
			High:   c + 0.02,
			Low:    c - 0.02,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func record(name string) domain.PlayConfig {
	return domain.PlayConfig{
		Name:                     name,
		MaxPlaySize:              100,
		BuyOrderType:             domain.OrderTypeMarket,
		TakeProfitRiskMultiplier: 1.5,
		TakeProfitPctToSell:      0.5,
		StopLossTriggerPct:       0.05,
		Signal:                   "eager",
	}
}

func testDoc() domain.LibraryDocument {
	return domain.LibraryDocument{
		Categories: map[string][]string{"alt": {"AAA", "BBB"}},
		Conditions: []string{"bull", "choppy"},
		Plays: map[string]map[string][]domain.PlayConfig{
			"alt": {
				"bull":   {record("A"), record("B")},
				"choppy": {record("C")},
			},
		},
	}
}

func testRegistry() *play.Registry {
	reg := play.NewRegistry()
	reg.RegisterSignal("eager", func(domain.Params) (play.Signal, error) { return eager{}, nil })
	return reg
}

type rig struct {
	orch  *orchestrator.PlayOrchestrator
	clock *clock.Backtest
	tel   *recorder
}

func newRig(t *testing.T, cond ports.ConditionReader, sched *weather.ScheduleFile) rig {
	t.Helper()
	lib, err := orchestrator.NewLibrary(testDoc(), testRegistry())
	require.NoError(t, err)

	feed := marketdata.NewFeed()
	feed.Add("AAA", risingBars(40))
	feed.Add("BBB", risingBars(40))
	clk := clock.NewBacktest(interval, 2, feed)
	feed.BindClock(clk)

	if sched != nil {
		cond = weather.NewSchedule(clk, *sched)
	}

	tel := &recorder{}
	o, err := orchestrator.New(context.Background(), orchestrator.Deps{
		Library:   lib,
		Clock:     clk,
		Broker:    broker.NewPaper(feed, clk),
		Market:    feed,
		Weather:   cond,
		Telemetry: tel,
		RunType:   domain.RunBacktest,
	})
	require.NoError(t, err)
	return rig{orch: o, clock: clk, tel: tel}
}

func TestPlayOrchestrator_HotSwapOnConditionChange(t *testing.T) {
	ctx := context.Background()
	change := t0.Add(20 * interval)
	r := newRig(t, nil, &weather.ScheduleFile{
		Default: map[string]string{"alt": "bull"},
		Changes: []weather.Change{{At: change, Conditions: map[string]string{"alt": "choppy"}}},
	})
	o := r.orch

	assert.Equal(t, map[string]string{"alt": "bull"}, o.Conditions())
	require.NoError(t, o.Start(ctx))
	require.Equal(t, domain.EventPlayStart, r.tel.events[0])
	start := r.tel.payloads[0].(domain.PlayStart)
	assert.Equal(t, o.RunID(), start.PlayID)
	assert.Equal(t, "bull", start.Conditions["alt"])

	bull, err := o.ActiveHandler("alt")
	require.NoError(t, err)
	assert.Equal(t, "bull", bull.Condition())
	require.Len(t, bull.Handlers(), 2)
	assert.ErrorIs(t, o.StartHandler(ctx, "alt", "bull"), domain.ErrHandlerActive)

	require.NoError(t, o.Run(ctx))
	for _, h := range bull.Handlers() {
		for _, p := range h.Plays() {
			insts := p.Instances()
			require.Len(t, insts, 1)
			assert.Equal(t, play.KindTakingProfit, insts[0].State().Kind())
		}
	}

	for r.clock.Now().Before(change) {
		require.NoError(t, o.Run(ctx))
	}

	inactive := o.InactiveHandlers()
	require.Len(t, inactive, 1)
	assert.Same(t, bull, inactive[0])
	assert.False(t, bull.Active(), "hard stop terminates every instance")
	for _, h := range bull.Handlers() {
		for _, p := range h.Plays() {
			for _, inst := range p.Retired() {
				assert.True(t, inst.Terminated())
				assert.InDelta(t, 0.0, inst.UnitsHeld(), 1e-9)
			}
		}
	}
	assert.Len(t, r.tel.summaries("bull"), 4)

	choppy, err := o.ActiveHandler("alt")
	require.NoError(t, err)
	assert.Equal(t, "choppy", choppy.Condition())
	require.Len(t, choppy.Handlers(), 1)
	assert.Equal(t, "C", choppy.Handlers()[0].Config().Name)
	assert.Equal(t, "choppy", o.Conditions()["alt"])

	require.NoError(t, o.RunBacktest(ctx))
	assert.True(t, o.EOF())
	_, err = o.ActiveHandler("alt")
	assert.ErrorIs(t, err, domain.ErrHandlerInactive)
	assert.Len(t, o.InactiveHandlers(), 2)
	assert.Len(t, r.tel.summaries("choppy"), 2)
}

func TestPlayOrchestrator_RunBeforeStart(t *testing.T) {
	r := newRig(t, weather.NewStatic(map[string]string{"alt": "bull"}), nil)
	err := r.orch.Run(context.Background())
	assert.ErrorIs(t, err, clock.ErrNotStarted)
}

func TestPlayOrchestrator_ClockBoundsAndEOF(t *testing.T) {
	ctx := context.Background()
	r := newRig(t, weather.NewStatic(map[string]string{"alt": "bull"}), nil)
	require.NoError(t, r.orch.Start(ctx))

	assert.Equal(t, t0.Add(2*interval), r.clock.Now(), "first bar plus padding")
	assert.ErrorIs(t, r.clock.SetNow(t0), clock.ErrOutOfRange)

	require.NoError(t, r.orch.RunBacktest(ctx))
	assert.True(t, r.orch.EOF())
	assert.Equal(t, t0.Add(39*interval), r.clock.Now())
	assert.ErrorIs(t, r.orch.Run(ctx), clock.ErrOutOfRange)
}

func TestPlayOrchestrator_RejectsBadConditions(t *testing.T) {
	lib, err := orchestrator.NewLibrary(testDoc(), testRegistry())
	require.NoError(t, err)

	newWith := func(cond map[string]string) error {
		feed := marketdata.NewFeed()
		feed.Add("AAA", risingBars(10))
		feed.Add("BBB", risingBars(10))
		clk := clock.NewBacktest(interval, 0, feed)
		feed.BindClock(clk)
		_, err := orchestrator.New(context.Background(), orchestrator.Deps{
			Library: lib,
			Clock:   clk,
			Broker:  broker.NewPaper(feed, clk),
			Market:  feed,
			Weather: weather.NewStatic(cond),
		})
		return err
	}

	assert.ErrorIs(t, newWith(map[string]string{"alt": "sideways"}), domain.ErrUnknownCondition)
	assert.ErrorIs(t, newWith(map[string]string{"other": "bull"}), domain.ErrUnknownCategory)
}

func TestPlayOrchestrator_ActiveHandlerUnknownCategory(t *testing.T) {
	r := newRig(t, weather.NewStatic(map[string]string{"alt": "bull"}), nil)
	_, err := r.orch.ActiveHandler("nope")
	assert.ErrorIs(t, err, domain.ErrUnknownCategory)

	_, err = r.orch.ActiveHandler("alt")
	assert.ErrorIs(t, err, domain.ErrHandlerInactive)
}

func TestPlayOrchestrator_Deterministic(t *testing.T) {
	run := func() []float64 {
		r := newRig(t, nil, &weather.ScheduleFile{
			Default: map[string]string{"alt": "bull"},
			Changes: []weather.Change{{At: t0.Add(15 * interval), Conditions: map[string]string{"alt": "choppy"}}},
		})
		require.NoError(t, r.orch.RunBacktest(context.Background()))
		var gains []float64
		for _, p := range r.tel.payloads {
			if s, ok := p.(domain.InstanceSummary); ok {
				gains = append(gains, s.TotalGain)
			}
		}
		return gains
	}
	assert.Equal(t, run(), run())
}
