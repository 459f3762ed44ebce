package play

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/tabot/internal/domain"
)

// SymbolPlay keeps one play config trading one symbol. Terminated instances
// are retired, and a fresh Waiting instance starts once none is left live,
// so the symbol never stops trading until Stop. Siblings forked by a Split
// share one position and do not each get a replacement.
type SymbolPlay struct {
	symbol     string
	category   string
	condition  string
	cfg        *Config
	instrument domain.Instrument
	env        Env
	log        *slog.Logger

	live    []*Instance
	retired []*Instance
	stopped bool
}

func newSymbolPlay(symbol string, instrument domain.Instrument, cfg *Config, env Env, category, condition string) *SymbolPlay {
	return &SymbolPlay{
		symbol:     symbol,
		category:   category,
		condition:  condition,
		cfg:        cfg,
		instrument: instrument,
		env:        env,
		log:        env.logger().With("symbol", symbol, "play_config", cfg.Name),
	}
}

// Start creates the first Waiting instance.
func (p *SymbolPlay) Start(ctx context.Context) error {
	if _, err := p.spawn(ctx); err != nil {
		return fmt.Errorf("play.SymbolPlay.Start: %w", err)
	}
	return nil
}

// Run runs every live instance once, then retires the terminated ones.
// Siblings forked during this call first run on the next call.
func (p *SymbolPlay) Run(ctx context.Context) error {
	current := append([]*Instance(nil), p.live...)
	for _, inst := range current {
		if inst.Terminated() {
			continue
		}
		if err := inst.Run(ctx); err != nil {
			return fmt.Errorf("play.SymbolPlay.Run: %s %s: %w", p.symbol, inst.id, err)
		}
	}
	if err := p.reap(ctx); err != nil {
		return fmt.Errorf("play.SymbolPlay.Run: %w", err)
	}
	return nil
}

// Stop asks every live instance to stop and disables replacement.
func (p *SymbolPlay) Stop(ctx context.Context, hard bool) error {
	p.stopped = true
	for _, inst := range p.live {
		if err := inst.Stop(ctx, hard); err != nil {
			return fmt.Errorf("play.SymbolPlay.Stop: %s %s: %w", p.symbol, inst.id, err)
		}
	}
	return p.reap(ctx)
}

// reap moves terminated instances to the retired list. When the last live
// instance is retired a fresh one takes its place.
func (p *SymbolPlay) reap(ctx context.Context) error {
	live := p.live[:0]
	var n int
	for _, inst := range p.live {
		if inst.Terminated() {
			p.retired = append(p.retired, inst)
			n++
			continue
		}
		live = append(live, inst)
	}
	p.live = live
	if n == 0 || p.stopped || len(p.live) > 0 {
		return nil
	}
	_, err := p.spawn(ctx)
	return err
}

func (p *SymbolPlay) spawn(ctx context.Context) (*Instance, error) {
	inst := newInstance(instanceOpts{
		symbol:     p.symbol,
		category:   p.category,
		condition:  p.condition,
		cfg:        p.cfg,
		instrument: p.instrument,
		env:        p.env,
		owner:      p,
	})
	if err := inst.enter(ctx, KindWaiting, Args{}); err != nil {
		return nil, err
	}
	p.live = append(p.live, inst)
	p.log.Debug("instance started", "instance", inst.id)
	return inst, nil
}

func (p *SymbolPlay) fork(ctx context.Context, parent *Instance, next Kind, args Args) error {
	if parent.buyOrder == nil {
		return fmt.Errorf("fork from %s without a buy order", parent.id)
	}
	if args.FilledUnits <= 0 {
		return fmt.Errorf("fork from %s without filled units", parent.id)
	}
	child := newInstance(instanceOpts{
		symbol:     p.symbol,
		category:   p.category,
		condition:  p.condition,
		cfg:        p.cfg,
		instrument: p.instrument,
		env:        p.env,
		owner:      p,
	})
	child.inherit(parent, args.FilledUnits, args.FilledPrice)
	ctorArgs := args
	ctorArgs.FilledUnits, ctorArgs.FilledPrice = 0, 0
	st, err := child.build(ctx, next, parent.state.Name(), ctorArgs)
	if err != nil {
		return err
	}
	child.state = st
	p.live = append(p.live, child)
	p.log.Info("instance forked", "parent", parent.id, "child", child.id,
		"units", args.FilledUnits, "price", args.FilledPrice, "state", st.Name())
	return nil
}

func (p *SymbolPlay) Symbol() string { return p.symbol }

// Active reports whether at least one instance is live.
func (p *SymbolPlay) Active() bool { return len(p.live) > 0 }

// Instances returns the live instances.
func (p *SymbolPlay) Instances() []*Instance { return append([]*Instance(nil), p.live...) }

// Retired returns the terminated instances, oldest first.
func (p *SymbolPlay) Retired() []*Instance { return append([]*Instance(nil), p.retired...) }

// Gain is the realised gain over retired instances.
func (p *SymbolPlay) Gain() float64 {
	var g float64
	for _, inst := range p.retired {
		if s := inst.Summary(); s != nil {
			g += s.TotalGain
		}
	}
	return g
}
