package play

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/tabot/internal/domain"
	"github.com/alejandrodnm/tabot/internal/ports"
)

// Env holds the collaborators shared, read-mostly, by every Instance of a run.
type Env struct {
	Broker    ports.Broker
	Market    ports.MarketData
	Telemetry ports.Telemetry
	Clock     ports.TimeSource
	RunID     string
	Log       *slog.Logger
}

func (e Env) logger() *slog.Logger {
	if e.Log == nil {
		return slog.Default()
	}
	return e.Log
}

// forker is the owning pool, asked to spawn a sibling on Split.
type forker interface {
	fork(ctx context.Context, parent *Instance, next Kind, args Args) error
}

// Instance is one attempt at taking and closing a single position. It fully
// owns its order cache and position fields.
type Instance struct {
	id         string
	symbol     string
	category   string
	condition  string
	cfg        *Config
	instrument domain.Instrument
	env        Env
	owner      forker
	log        *slog.Logger

	state State

	buyOrder *domain.Order
	// inheritedBuy marks a sibling created by Split: its buy order is a
	// synthetic snapshot of the parent's filled slice and is never sent to
	// the broker.
	inheritedBuy bool
	forkedUnits  float64

	sellOrders   map[string]domain.Order
	sellOrderIDs []string
	currentSell  string

	entryPrice    float64
	hasEntry      bool
	stopLossPrice float64

	summary *domain.InstanceSummary
}

type instanceOpts struct {
	symbol     string
	category   string
	condition  string
	cfg        *Config
	instrument domain.Instrument
	env        Env
	owner      forker
}

func newInstance(o instanceOpts) *Instance {
	id := uuid.NewString()
	return &Instance{
		id:         id,
		symbol:     o.symbol,
		category:   o.category,
		condition:  o.condition,
		cfg:        o.cfg,
		instrument: o.instrument,
		env:        o.env,
		owner:      o.owner,
		log: o.env.logger().With(
			"instance", id,
			"symbol", o.symbol,
			"play_config", o.cfg.Name,
			"run_id", o.env.RunID,
		),
		sellOrders: make(map[string]domain.Order),
	}
}

// enter installs the first state without running any exit hook.
func (i *Instance) enter(ctx context.Context, kind Kind, args Args) error {
	st, err := i.build(ctx, kind, "", args)
	if err != nil {
		return err
	}
	i.state = st
	return nil
}

func (i *Instance) build(ctx context.Context, kind Kind, previous string, args Args) (State, error) {
	name := i.cfg.StateName(kind)
	st, err := i.cfg.factory(kind)(ctx, StateContext{
		Instance: i,
		Log:      i.log.With("state", name),
		Name:     name,
		Previous: previous,
		Args:     args,
	})
	if err != nil {
		return nil, fmt.Errorf("enter %s: %w", name, err)
	}
	return st, nil
}

// Run checks the current state and applies transitions until a Stay or a
// Split. Moves cascade within the same call.
func (i *Instance) Run(ctx context.Context) error {
	for {
		tr, err := i.state.CheckExit(ctx)
		if err != nil {
			return fmt.Errorf("play.Instance.Run: %s check: %w", i.state.Name(), err)
		}
		switch tr.Action {
		case Stay:
			return nil
		case Move:
			if err := i.moveTo(ctx, tr.Next, tr.Args); err != nil {
				return fmt.Errorf("play.Instance.Run: %w", err)
			}
		case Split:
			if i.owner == nil {
				return fmt.Errorf("play.Instance.Run: split from %s without an owning pool", i.state.Name())
			}
			if err := i.owner.fork(ctx, i, tr.Next, tr.Args); err != nil {
				return fmt.Errorf("play.Instance.Run: split: %w", err)
			}
			return nil
		default:
			return fmt.Errorf("play.Instance.Run: unknown action %d", tr.Action)
		}
	}
}

func (i *Instance) moveTo(ctx context.Context, next Kind, args Args) error {
	prev := i.state
	if err := prev.Exit(ctx); err != nil {
		return fmt.Errorf("exit %s: %w", prev.Name(), err)
	}
	st, err := i.build(ctx, next, prev.Name(), args)
	if err != nil {
		return err
	}
	i.state = st
	i.log.Debug("state change", "from", prev.Name(), "to", st.Name())
	return nil
}

// Stop winds the instance down. Terminated is left alone; TakingProfit and
// StoppingLoss only terminate on a hard stop; every other state terminates.
func (i *Instance) Stop(ctx context.Context, hard bool) error {
	switch i.state.Kind() {
	case KindTerminated:
		return nil
	case KindTakingProfit, KindStoppingLoss:
		if !hard {
			return nil
		}
	}
	reason := "soft stop"
	if hard {
		reason = "hard stop"
	}
	if err := i.moveTo(ctx, KindTerminated, Args{Reason: reason}); err != nil {
		return fmt.Errorf("play.Instance.Stop: %w", err)
	}
	return nil
}

func (i *Instance) ID() string                       { return i.id }
func (i *Instance) Symbol() string                   { return i.symbol }
func (i *Instance) Category() string                 { return i.category }
func (i *Instance) Condition() string                { return i.condition }
func (i *Instance) Config() *Config                  { return i.cfg }
func (i *Instance) Instrument() domain.Instrument    { return i.instrument }
func (i *Instance) State() State                     { return i.state }
func (i *Instance) Terminated() bool                 { return i.state.Kind() == KindTerminated }
func (i *Instance) Summary() *domain.InstanceSummary { return i.summary }
func (i *Instance) StopLossPrice() float64           { return i.stopLossPrice }

// SetStopLoss stores the stop price aligned to the instrument.
func (i *Instance) SetStopLoss(p float64) {
	i.stopLossPrice = i.instrument.AlignPrice(p)
}

// EntryPrice is the buy fill price, defined once the buy order closed with a
// fill.
func (i *Instance) EntryPrice() (float64, bool) {
	return i.entryPrice, i.hasEntry
}

// BuyOrder returns the cached buy order snapshot.
func (i *Instance) BuyOrder() (domain.Order, bool) {
	if i.buyOrder == nil {
		return domain.Order{}, false
	}
	return *i.buyOrder, true
}

// SellOrders returns every sell order seen, oldest first.
func (i *Instance) SellOrders() []domain.Order {
	out := make([]domain.Order, 0, len(i.sellOrderIDs))
	for _, id := range i.sellOrderIDs {
		out = append(out, i.sellOrders[id])
	}
	return out
}

// CurrentSellOrder is the most recently opened sell order.
func (i *Instance) CurrentSellOrder() (domain.Order, bool) {
	if i.currentSell == "" {
		return domain.Order{}, false
	}
	return i.sellOrders[i.currentSell], true
}

func (i *Instance) UnitsBought() float64 {
	if i.buyOrder == nil {
		return 0
	}
	return domain.SubQuantities(i.buyOrder.FilledQuantity, i.forkedUnits)
}

// UnitsSold sums the fills of closed sell orders. A sell cancelled after a
// partial fill still counts what it sold.
func (i *Instance) UnitsSold() float64 {
	var qs []float64
	for _, o := range i.closedSells() {
		qs = append(qs, o.FilledQuantity)
	}
	return domain.SumQuantities(qs...)
}

func (i *Instance) closedSells() []domain.Order {
	var out []domain.Order
	for _, id := range i.sellOrderIDs {
		if o := i.sellOrders[id]; o.Closed && o.FilledQuantity > 0 {
			out = append(out, o)
		}
	}
	return out
}

func (i *Instance) UnitsHeld() float64 {
	return domain.SubQuantities(i.UnitsBought(), i.UnitsSold())
}

// TakeProfitMultiplier grows by one with every filled sell order.
func (i *Instance) TakeProfitMultiplier() float64 {
	n := 0
	for _, o := range i.sellOrders {
		if o.IsFilled() {
			n++
		}
	}
	return float64(1 + n)
}

// LastClose is the aligned close of the latest bar.
func (i *Instance) LastClose(ctx context.Context) (float64, error) {
	bar, err := i.env.Market.Latest(ctx, i.symbol)
	if err != nil {
		return 0, fmt.Errorf("latest bar %s: %w", i.symbol, err)
	}
	return i.instrument.AlignPrice(bar.Close), nil
}

// StopLossTriggered reports whether the last close is below the stop price.
func (i *Instance) StopLossTriggered(ctx context.Context) (bool, error) {
	last, err := i.LastClose(ctx)
	if err != nil {
		return false, err
	}
	return last < i.stopLossPrice, nil
}

// Market exposes the bar source to states.
func (i *Instance) Market() ports.MarketData {
	return i.env.Market
}

func (i *Instance) now() time.Time {
	if i.env.Clock == nil {
		return time.Now().UTC()
	}
	return i.env.Clock.Now()
}

// order passthroughs

func (i *Instance) BuyOrderLimit(ctx context.Context, units, unitPrice float64) (domain.Order, error) {
	if err := i.checkBuySlot(); err != nil {
		return domain.Order{}, err
	}
	o, err := i.env.Broker.BuyOrderLimit(ctx, i.symbol, units, unitPrice)
	if err != nil {
		return domain.Order{}, fmt.Errorf("buy limit %s: %w", i.symbol, err)
	}
	return o, i.setBuyOrder(o)
}

func (i *Instance) BuyOrderMarket(ctx context.Context, units float64) (domain.Order, error) {
	if err := i.checkBuySlot(); err != nil {
		return domain.Order{}, err
	}
	o, err := i.env.Broker.BuyOrderMarket(ctx, i.symbol, units)
	if err != nil {
		return domain.Order{}, fmt.Errorf("buy market %s: %w", i.symbol, err)
	}
	return o, i.setBuyOrder(o)
}

func (i *Instance) SellOrderLimit(ctx context.Context, units, unitPrice float64) (domain.Order, error) {
	if err := i.checkSellSlot(); err != nil {
		return domain.Order{}, err
	}
	o, err := i.env.Broker.SellOrderLimit(ctx, i.symbol, units, unitPrice)
	if err != nil {
		return domain.Order{}, fmt.Errorf("sell limit %s: %w", i.symbol, err)
	}
	i.openSell(o)
	return o, nil
}

func (i *Instance) SellOrderMarket(ctx context.Context, units float64) (domain.Order, error) {
	if err := i.checkSellSlot(); err != nil {
		return domain.Order{}, err
	}
	o, err := i.env.Broker.SellOrderMarket(ctx, i.symbol, units)
	if err != nil {
		return domain.Order{}, fmt.Errorf("sell market %s: %w", i.symbol, err)
	}
	i.openSell(o)
	return o, nil
}

// CancelOrder cancels one of this instance's orders and caches the result.
func (i *Instance) CancelOrder(ctx context.Context, orderID string) (domain.Order, error) {
	o, err := i.env.Broker.CancelOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("cancel %s: %w", orderID, err)
	}
	return o, i.cache(o)
}

// GetOrder refreshes one of this instance's orders from the broker.
func (i *Instance) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	o, err := i.env.Broker.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("get order %s: %w", orderID, err)
	}
	return o, i.cache(o)
}

// RefreshBuyOrder returns the latest buy order snapshot. An inherited buy
// order is never sent to the broker.
func (i *Instance) RefreshBuyOrder(ctx context.Context) (domain.Order, error) {
	if i.buyOrder == nil {
		return domain.Order{}, fmt.Errorf("refresh buy order: none placed")
	}
	if i.inheritedBuy || i.buyOrder.Closed {
		return *i.buyOrder, nil
	}
	return i.GetOrder(ctx, i.buyOrder.ID)
}

// RefreshSellOrder returns the latest snapshot of the current sell order.
func (i *Instance) RefreshSellOrder(ctx context.Context) (domain.Order, error) {
	o, ok := i.CurrentSellOrder()
	if !ok {
		return domain.Order{}, fmt.Errorf("refresh sell order: none placed")
	}
	if o.Closed {
		return o, nil
	}
	return i.GetOrder(ctx, o.ID)
}

func (i *Instance) checkBuySlot() error {
	if i.buyOrder != nil {
		return fmt.Errorf("%s: %w", i.buyOrder.ID, domain.ErrBuyOrderAlreadySet)
	}
	return nil
}

func (i *Instance) checkSellSlot() error {
	if o, ok := i.CurrentSellOrder(); ok && !o.Closed {
		return fmt.Errorf("%s is %s: %w", o.ID, o.Status, domain.ErrSellOrderAlreadySet)
	}
	return nil
}

// setBuyOrder is set-once by id; later snapshots of the same order replace
// the cached one.
func (i *Instance) setBuyOrder(o domain.Order) error {
	if i.buyOrder != nil && i.buyOrder.ID != o.ID {
		return fmt.Errorf("%s replaced by %s: %w", i.buyOrder.ID, o.ID, domain.ErrBuyOrderAlreadySet)
	}
	i.buyOrder = &o
	if o.Closed && !i.hasEntry && o.FilledQuantity > 0 {
		i.entryPrice = o.FilledUnitPrice
		i.hasEntry = true
	}
	return nil
}

func (i *Instance) openSell(o domain.Order) {
	i.updateSell(o)
	i.currentSell = o.ID
}

func (i *Instance) updateSell(o domain.Order) {
	if _, ok := i.sellOrders[o.ID]; !ok {
		i.sellOrderIDs = append(i.sellOrderIDs, o.ID)
	}
	i.sellOrders[o.ID] = o
}

func (i *Instance) cache(o domain.Order) error {
	switch o.Side {
	case domain.SideSell:
		if _, ok := i.sellOrders[o.ID]; !ok {
			return fmt.Errorf("sell order %s does not belong to instance %s", o.ID, i.id)
		}
		i.updateSell(o)
		return nil
	case domain.SideBuy:
		if i.buyOrder == nil || i.buyOrder.ID != o.ID {
			return fmt.Errorf("buy order %s does not belong to instance %s", o.ID, i.id)
		}
		return i.setBuyOrder(o)
	}
	return fmt.Errorf("order %s has no side", o.ID)
}

// unresolvedOrders are the orders Terminated must cancel.
func (i *Instance) unresolvedOrders() []domain.Order {
	var out []domain.Order
	if i.buyOrder != nil && !i.inheritedBuy && !i.buyOrder.Closed {
		out = append(out, *i.buyOrder)
	}
	for _, id := range i.sellOrderIDs {
		if o := i.sellOrders[id]; !o.Closed {
			out = append(out, o)
		}
	}
	return out
}

// inherit seeds a sibling with the filled slice handed over by a Split.
func (i *Instance) inherit(parent *Instance, units, price float64) {
	i.buyOrder = &domain.Order{
		ID:                parent.buyOrder.ID,
		Symbol:            parent.symbol,
		Side:              domain.SideBuy,
		Type:              parent.buyOrder.Type,
		Status:            domain.OrderFilled,
		Closed:            true,
		RequestedQuantity: units,
		FilledQuantity:    units,
		FilledUnitPrice:   price,
		FilledTotalValue:  units * price,
		CreatedAt:         parent.buyOrder.CreatedAt,
		UpdatedAt:         parent.now(),
	}
	i.inheritedBuy = true
	i.entryPrice = price
	i.hasEntry = true
	i.stopLossPrice = parent.stopLossPrice
	parent.forkedUnits = domain.SumQuantities(parent.forkedUnits, units)
}

// summarize computes the closing report of the instance.
func (i *Instance) summarize() domain.InstanceSummary {
	s := domain.InstanceSummary{
		InstanceID:       i.id,
		RunID:            i.env.RunID,
		Symbol:           i.symbol,
		SymbolGroup:      i.category,
		PlayConfigName:   i.cfg.Name,
		WeatherCondition: i.condition,
		Units:            i.UnitsBought(),
		TerminatedAt:     i.now(),
	}
	if i.buyOrder != nil && !i.inheritedBuy {
		s.BuyOrderCount = 1
	}
	if s.Units > 0 {
		s.AverageBuyPrice = i.entryPrice
		s.BoughtValue = s.Units * i.entryPrice
	}

	for _, o := range i.sellOrders {
		s.SellOrderCount++
		if o.IsFilled() {
			s.SellOrderFilledCount++
		}
	}
	var sold []float64
	for _, o := range i.closedSells() {
		s.SoldValue += o.FilledTotalValue
		sold = append(sold, o.FilledQuantity)
	}
	if units := domain.SumQuantities(sold...); units > 0 {
		s.AverageSellPrice = s.SoldValue / units
	}
	s.TotalGain = s.SoldValue - s.BoughtValue
	return s
}
