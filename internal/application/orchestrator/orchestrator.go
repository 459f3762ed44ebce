package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/tabot/internal/application/play"
	"github.com/alejandrodnm/tabot/internal/clock"
	"github.com/alejandrodnm/tabot/internal/domain"
	"github.com/alejandrodnm/tabot/internal/ports"
)

// Deps are the collaborators of a PlayOrchestrator. Broker and Market must
// already be bound to Clock.
type Deps struct {
	Library   *Library
	Clock     clock.Clock
	Broker    ports.Broker
	Market    ports.MarketData
	Weather   ports.ConditionReader
	Telemetry ports.Telemetry
	RunType   domain.RunType
	Log       *slog.Logger
}

// PlayOrchestrator is the top-level scheduler. One Run call is one tick: the
// clock advances, conditions are re-read and every active handler runs once.
type PlayOrchestrator struct {
	lib     *Library
	clock   clock.Clock
	weather ports.ConditionReader
	tel     ports.Telemetry
	runType domain.RunType
	runID   string
	env     play.Env
	log     *slog.Logger

	conditions map[string]string
	active     map[string]*play.CategoryHandler
	inactive   []*play.CategoryHandler
	started    bool
	ticks      int
}

// New registers the library's symbols with the clock and captures the
// initial condition of every category.
func New(ctx context.Context, d Deps) (*PlayOrchestrator, error) {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	runID := uuid.NewString()
	log = log.With("run_id", runID)

	o := &PlayOrchestrator{
		lib:     d.Library,
		clock:   d.Clock,
		weather: d.Weather,
		tel:     d.Telemetry,
		runType: d.RunType,
		runID:   runID,
		log:     log,
		active:  make(map[string]*play.CategoryHandler),
		env: play.Env{
			Broker:    d.Broker,
			Market:    d.Market,
			Telemetry: d.Telemetry,
			Clock:     d.Clock,
			RunID:     runID,
			Log:       log,
		},
	}

	o.clock.AddSymbols(o.lib.UniqueSymbols()...)

	conds, err := o.readConditions(ctx)
	if err != nil {
		return nil, fmt.Errorf("orchestrator.New: %w", err)
	}
	o.conditions = conds
	return o, nil
}

// Start starts the clock at its first timestamp, emits the play start event
// and starts one CategoryHandler per category.
func (o *PlayOrchestrator) Start(ctx context.Context) error {
	if o.started {
		return fmt.Errorf("orchestrator.Start: %w", domain.ErrAlreadyStarted)
	}
	if err := o.clock.Start(); err != nil {
		return fmt.Errorf("orchestrator.Start: clock: %w", err)
	}
	o.started = true

	now := time.Now()
	if o.tel != nil {
		o.tel.Emit(domain.EventPlayStart, domain.PlayStart{
			PlayID:         o.runID,
			RunType:        o.runType,
			StartTimeLocal: now,
			StartTimeUTC:   now.UTC(),
			Conditions:     maps.Clone(o.conditions),
		})
	}

	for _, cat := range o.lib.Categories() {
		if err := o.StartHandler(ctx, cat, o.conditions[cat]); err != nil {
			return fmt.Errorf("orchestrator.Start: %w", err)
		}
	}
	o.log.Info("play orchestrator started",
		"run_type", o.runType,
		"sim_time", o.clock.Now(),
		"categories", len(o.active),
	)
	return nil
}

// Run performs one scheduling tick.
func (o *PlayOrchestrator) Run(ctx context.Context) error {
	if err := o.clock.Tick(); err != nil {
		return fmt.Errorf("orchestrator.Run: tick: %w", err)
	}
	o.ticks++

	conds, err := o.readConditions(ctx)
	if err != nil {
		return fmt.Errorf("orchestrator.Run: %w", err)
	}

	for _, cat := range o.lib.Categories() {
		next := conds[cat]
		prev := o.conditions[cat]
		if next == prev {
			continue
		}
		o.log.Info("condition change", "category", cat, "from", prev, "to", next, "sim_time", o.clock.Now())
		if _, ok := o.active[cat]; ok {
			if err := o.StopHandler(ctx, cat, true); err != nil {
				return fmt.Errorf("orchestrator.Run: %w", err)
			}
		}
		if err := o.StartHandler(ctx, cat, next); err != nil {
			return fmt.Errorf("orchestrator.Run: %w", err)
		}
		o.conditions[cat] = next
	}

	for _, cat := range o.lib.Categories() {
		h, ok := o.active[cat]
		if !ok {
			continue
		}
		if err := h.Run(ctx); err != nil {
			return fmt.Errorf("orchestrator.Run: %w", err)
		}
	}
	return nil
}

// StartHandler starts a CategoryHandler for category using the configs of
// condition. A category may only have one active handler.
func (o *PlayOrchestrator) StartHandler(ctx context.Context, category, condition string) error {
	if _, ok := o.active[category]; ok {
		return fmt.Errorf("orchestrator.StartHandler: %s: %w", category, domain.ErrHandlerActive)
	}
	configs, err := o.lib.Configs(category, condition)
	if err != nil {
		return fmt.Errorf("orchestrator.StartHandler: %w", err)
	}
	symbols, err := o.lib.Symbols(category)
	if err != nil {
		return fmt.Errorf("orchestrator.StartHandler: %w", err)
	}

	h, err := play.NewCategoryHandler(category, condition, configs, symbols, o.lib.Instrument, o.env)
	if err != nil {
		return fmt.Errorf("orchestrator.StartHandler: %w", err)
	}
	if err := h.Start(ctx); err != nil {
		return fmt.Errorf("orchestrator.StartHandler: %w", err)
	}
	o.active[category] = h
	o.log.Info("category handler started",
		"category", category,
		"condition", condition,
		"configs", len(configs),
		"symbols", len(symbols),
	)
	return nil
}

// StopHandler stops the active handler of category and keeps it for
// inspection.
func (o *PlayOrchestrator) StopHandler(ctx context.Context, category string, hard bool) error {
	h, err := o.ActiveHandler(category)
	if err != nil {
		return fmt.Errorf("orchestrator.StopHandler: %w", err)
	}
	if err := h.Stop(ctx, hard); err != nil {
		return fmt.Errorf("orchestrator.StopHandler: %w", err)
	}
	delete(o.active, category)
	o.inactive = append(o.inactive, h)
	o.log.Info("category handler stopped",
		"category", category,
		"condition", h.Condition(),
		"hard", hard,
		"gain", h.Gain(),
	)
	return nil
}

// ActiveHandler returns the running handler of category.
func (o *PlayOrchestrator) ActiveHandler(category string) (*play.CategoryHandler, error) {
	if !slices.Contains(o.lib.categories, category) {
		return nil, fmt.Errorf("orchestrator.ActiveHandler: %q: %w", category, domain.ErrUnknownCategory)
	}
	h, ok := o.active[category]
	if !ok {
		return nil, fmt.Errorf("orchestrator.ActiveHandler: %q: %w", category, domain.ErrHandlerInactive)
	}
	return h, nil
}

// InactiveHandlers returns the handlers retired by condition changes or
// Shutdown, oldest first.
func (o *PlayOrchestrator) InactiveHandlers() []*play.CategoryHandler {
	return append([]*play.CategoryHandler(nil), o.inactive...)
}

// Shutdown hard-stops every active handler, liquidating open positions.
func (o *PlayOrchestrator) Shutdown(ctx context.Context) error {
	for _, cat := range o.lib.Categories() {
		if _, ok := o.active[cat]; !ok {
			continue
		}
		if err := o.StopHandler(ctx, cat, true); err != nil {
			return fmt.Errorf("orchestrator.Shutdown: %w", err)
		}
	}
	return nil
}

// RunBacktest starts the orchestrator, ticks until the clock reaches its
// last timestamp or ctx is done, then shuts down.
func (o *PlayOrchestrator) RunBacktest(ctx context.Context) error {
	if !o.started {
		if err := o.Start(ctx); err != nil {
			return err
		}
	}

	for !o.EOF() {
		if err := ctx.Err(); err != nil {
			o.log.Warn("backtest interrupted", "sim_time", o.clock.Now(), "ticks", o.ticks)
			break
		}
		if err := o.Run(ctx); err != nil {
			return err
		}
	}

	// Liquidation must not be skipped because the run was interrupted.
	if err := o.Shutdown(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	o.log.Info("backtest complete",
		"ticks", o.ticks,
		"sim_time", o.clock.Now(),
		"gain", o.Gain(),
	)
	return nil
}

// EOF reports whether the clock has reached its last timestamp.
func (o *PlayOrchestrator) EOF() bool { return o.clock.EOF() }

func (o *PlayOrchestrator) RunID() string { return o.runID }
func (o *PlayOrchestrator) Ticks() int    { return o.ticks }

// Conditions returns the last condition reading per category.
func (o *PlayOrchestrator) Conditions() map[string]string { return maps.Clone(o.conditions) }

// Gain is the realised gain of every handler, active or retired.
func (o *PlayOrchestrator) Gain() float64 {
	var g float64
	for _, cat := range o.lib.categories {
		if h, ok := o.active[cat]; ok {
			g += h.Gain()
		}
	}
	for _, h := range o.inactive {
		g += h.Gain()
	}
	return g
}

// readConditions reads the weather and checks that every library category
// has a known condition. Categories the library does not know are ignored.
func (o *PlayOrchestrator) readConditions(ctx context.Context) (map[string]string, error) {
	all, err := o.weather.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("read conditions: %w", err)
	}
	out := make(map[string]string, len(o.lib.categories))
	for _, cat := range o.lib.categories {
		cond, ok := all[cat]
		if !ok {
			return nil, fmt.Errorf("no condition for %q: %w", cat, domain.ErrUnknownCategory)
		}
		if !slices.Contains(o.lib.conditions, cond) {
			return nil, fmt.Errorf("category %q reports %q: %w", cat, cond, domain.ErrUnknownCondition)
		}
		out[cat] = cond
	}
	return out, nil
}
