package play_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/tabot/internal/application/play"
	"github.com/alejandrodnm/tabot/internal/domain"
)

var t0 = time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)

type fakeMarket struct {
	close float64
	now   time.Time
}

func (m *fakeMarket) Now() time.Time { return m.now }

func (m *fakeMarket) bar() domain.Bar {
	return domain.Bar{Time: m.now, Open: m.close, High: m.close, Low: m.close, Close: m.close}
}

func (m *fakeMarket) FirstBarTime(string) (time.Time, error) { return t0, nil }
func (m *fakeMarket) LastBarTime(string) (time.Time, error)  { return t0.Add(24 * time.Hour), nil }

func (m *fakeMarket) Latest(context.Context, string) (domain.Bar, error) { return m.bar(), nil }

func (m *fakeMarket) Range(context.Context, string, time.Time, time.Time) ([]domain.Bar, error) {
	return []domain.Bar{m.bar()}, nil
}

func (m *fakeMarket) Recent(context.Context, string, int) ([]domain.Bar, error) {
	return []domain.Bar{m.bar()}, nil
}

// fakeBroker fills market orders at the market close and leaves limit
// orders pending until the test fills them.
type fakeBroker struct {
	market          *fakeMarket
	orders          map[string]*domain.Order
	placed          []string
	seq             int
	cancelKeepsOpen bool
}

func newFakeBroker(m *fakeMarket) *fakeBroker {
	return &fakeBroker{market: m, orders: make(map[string]*domain.Order)}
}

func (b *fakeBroker) submit(symbol string, side domain.OrderSide, typ domain.OrderType, units, price float64) domain.Order {
	b.seq++
	o := &domain.Order{
		ID:                fmt.Sprintf("o-%d", b.seq),
		Symbol:            symbol,
		Side:              side,
		Type:              typ,
		Status:            domain.OrderPending,
		RequestedQuantity: units,
		OrderedUnitPrice:  price,
		CreatedAt:         b.market.now,
		UpdatedAt:         b.market.now,
	}
	if typ == domain.OrderTypeMarket {
		o.OrderedUnitPrice = 0
		b.fillAt(o, units, b.market.close)
	}
	b.orders[o.ID] = o
	b.placed = append(b.placed, o.ID)
	return *o
}

func (b *fakeBroker) fillAt(o *domain.Order, qty, price float64) {
	o.FilledQuantity += qty
	o.FilledUnitPrice = price
	o.FilledTotalValue = o.FilledQuantity * price
	if o.FilledQuantity >= o.RequestedQuantity {
		o.Status = domain.OrderFilled
		o.Closed = true
	} else {
		o.Status = domain.OrderOpen
	}
}

// fill fills qty of a limit order at its limit price.
func (b *fakeBroker) fill(id string, qty float64) {
	o := b.orders[id]
	b.fillAt(o, qty, o.OrderedUnitPrice)
}

func (b *fakeBroker) last() domain.Order {
	return *b.orders[b.placed[len(b.placed)-1]]
}

func (b *fakeBroker) BuyOrderLimit(_ context.Context, s string, units, price float64) (domain.Order, error) {
	return b.submit(s, domain.SideBuy, domain.OrderTypeLimit, units, price), nil
}

func (b *fakeBroker) BuyOrderMarket(_ context.Context, s string, units float64) (domain.Order, error) {
	return b.submit(s, domain.SideBuy, domain.OrderTypeMarket, units, 0), nil
}

func (b *fakeBroker) SellOrderLimit(_ context.Context, s string, units, price float64) (domain.Order, error) {
	return b.submit(s, domain.SideSell, domain.OrderTypeLimit, units, price), nil
}

func (b *fakeBroker) SellOrderMarket(_ context.Context, s string, units float64) (domain.Order, error) {
	return b.submit(s, domain.SideSell, domain.OrderTypeMarket, units, 0), nil
}

func (b *fakeBroker) CancelOrder(_ context.Context, id string) (domain.Order, error) {
	o, ok := b.orders[id]
	if !ok {
		return domain.Order{}, fmt.Errorf("unknown order %s", id)
	}
	if !o.Closed && !b.cancelKeepsOpen {
		o.Status = domain.OrderCancelled
		o.Closed = true
	}
	return *o, nil
}

func (b *fakeBroker) GetOrder(_ context.Context, id string) (domain.Order, error) {
	o, ok := b.orders[id]
	if !ok {
		return domain.Order{}, fmt.Errorf("unknown order %s", id)
	}
	return *o, nil
}

type event struct {
	name    string
	payload any
}

type fakeTelemetry struct{ events []event }

func (f *fakeTelemetry) Emit(name string, payload any) {
	f.events = append(f.events, event{name, payload})
}

func (f *fakeTelemetry) summaries() []domain.InstanceSummary {
	var out []domain.InstanceSummary
	for _, e := range f.events {
		if s, ok := e.payload.(domain.InstanceSummary); ok {
			out = append(out, s)
		}
	}
	return out
}

// stubSignal fires whenever fire is set.
type stubSignal struct {
	fire bool
	stop float64
}

func (s *stubSignal) Name() string  { return "stub" }
func (s *stubSignal) Lookback() int { return 1 }

func (s *stubSignal) Check(_ context.Context, bars []domain.Bar) (play.Entry, bool, error) {
	if !s.fire || len(bars) == 0 {
		return play.Entry{}, false, nil
	}
	return play.Entry{Price: bars[len(bars)-1].Close, StopLoss: s.stop}, true, nil
}

type harness struct {
	ctx     context.Context
	reg     *play.Registry
	market  *fakeMarket
	broker  *fakeBroker
	tel     *fakeTelemetry
	signal  *stubSignal
	env     play.Env
	handler *play.SymbolHandler
}

func basePlayConfig() domain.PlayConfig {
	return domain.PlayConfig{
		Name:                     "A",
		MaxPlaySize:              1000,
		BuyOrderType:             domain.OrderTypeMarket,
		BuyTimeoutIntervals:      2,
		TakeProfitRiskMultiplier: 1.5,
		TakeProfitPctToSell:      0.5,
		StopLossTriggerPct:       0.05,
		Signal:                   "stub",
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHarness(t *testing.T, mutate func(*domain.PlayConfig), setup ...func(*play.Registry)) *harness {
	t.Helper()
	h := &harness{
		ctx:    context.Background(),
		reg:    play.NewRegistry(),
		market: &fakeMarket{close: 10, now: t0},
		tel:    &fakeTelemetry{},
		signal: &stubSignal{stop: 9},
	}
	h.broker = newFakeBroker(h.market)
	h.reg.RegisterSignal("stub", func(domain.Params) (play.Signal, error) { return h.signal, nil })
	for _, f := range setup {
		f(h.reg)
	}

	pc := basePlayConfig()
	if mutate != nil {
		mutate(&pc)
	}
	cfg, err := h.reg.Resolve(pc)
	require.NoError(t, err)

	h.env = play.Env{
		Broker:    h.broker,
		Market:    h.market,
		Telemetry: h.tel,
		Clock:     h.market,
		RunID:     "run-1",
		Log:       quietLogger(),
	}
	h.handler = play.NewSymbolHandler(cfg, h.env, "alt", "bull")
	require.NoError(t, h.handler.AddSymbol("XYZ", domain.NewInstrument("XYZ")))
	require.NoError(t, h.handler.Start(h.ctx))
	return h
}

func (h *harness) play() *play.SymbolPlay {
	return h.handler.Plays()[0]
}

func (h *harness) instance(t *testing.T) *play.Instance {
	t.Helper()
	live := h.play().Instances()
	require.NotEmpty(t, live)
	return live[0]
}

func (h *harness) tick(t *testing.T) {
	t.Helper()
	h.market.now = h.market.now.Add(5 * time.Minute)
	require.NoError(t, h.handler.Run(h.ctx))
}

func requireHeldInvariant(t *testing.T, inst *play.Instance) {
	t.Helper()
	require.InDelta(t, inst.UnitsBought()-inst.UnitsSold(), inst.UnitsHeld(), 1e-9)
	require.GreaterOrEqual(t, inst.UnitsHeld(), 0.0)
}
