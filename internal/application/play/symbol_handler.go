package play

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/tabot/internal/domain"
	"github.com/alejandrodnm/tabot/internal/ports"
)

// SymbolHandler fans one play config out across a set of symbols.
type SymbolHandler struct {
	cfg       *Config
	env       Env
	category  string
	condition string
	log       *slog.Logger

	symbols     []string
	instruments map[string]domain.Instrument
	plays       []*SymbolPlay
	started     bool
}

func NewSymbolHandler(cfg *Config, env Env, category, condition string) *SymbolHandler {
	return &SymbolHandler{
		cfg:         cfg,
		env:         env,
		category:    category,
		condition:   condition,
		log:         env.logger().With("category", category, "condition", condition, "play_config", cfg.Name),
		instruments: make(map[string]domain.Instrument),
	}
}

// AddSymbol registers a symbol to trade. Not allowed once started.
func (h *SymbolHandler) AddSymbol(symbol string, instrument domain.Instrument) error {
	if h.started {
		return fmt.Errorf("play.SymbolHandler.AddSymbol: %s: %w", symbol, domain.ErrAlreadyStarted)
	}
	if _, ok := h.instruments[symbol]; !ok {
		h.symbols = append(h.symbols, symbol)
	}
	h.instruments[symbol] = instrument
	return nil
}

// SetConfig swaps the play config before start.
func (h *SymbolHandler) SetConfig(cfg *Config) error {
	if h.started {
		return fmt.Errorf("play.SymbolHandler.SetConfig: %w", domain.ErrAlreadyStarted)
	}
	h.cfg = cfg
	return nil
}

// SetBroker swaps the broker before start.
func (h *SymbolHandler) SetBroker(b ports.Broker) error {
	if h.started {
		return fmt.Errorf("play.SymbolHandler.SetBroker: %w", domain.ErrAlreadyStarted)
	}
	h.env.Broker = b
	return nil
}

// Start creates one SymbolPlay per registered symbol.
func (h *SymbolHandler) Start(ctx context.Context) error {
	if h.started {
		return fmt.Errorf("play.SymbolHandler.Start: %w", domain.ErrAlreadyStarted)
	}
	if len(h.symbols) == 0 {
		return fmt.Errorf("play.SymbolHandler.Start: %s: %w", h.cfg.Name, domain.ErrNoSymbols)
	}
	h.started = true
	for _, s := range h.symbols {
		p := newSymbolPlay(s, h.instruments[s], h.cfg, h.env, h.category, h.condition)
		if err := p.Start(ctx); err != nil {
			return fmt.Errorf("play.SymbolHandler.Start: %w", err)
		}
		h.plays = append(h.plays, p)
	}
	h.log.Info("symbol handler started", "symbols", len(h.symbols))
	return nil
}

func (h *SymbolHandler) Run(ctx context.Context) error {
	for _, p := range h.plays {
		if err := p.Run(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Stop stops every SymbolPlay. After a soft stop some instances may still be
// live (TakingProfit or StoppingLoss).
func (h *SymbolHandler) Stop(ctx context.Context, hard bool) error {
	for _, p := range h.plays {
		if err := p.Stop(ctx, hard); err != nil {
			return err
		}
	}
	if n := len(h.Active()); n > 0 {
		h.log.Warn("symbol handler stopped with live instances", "active", n, "hard", hard)
	}
	return nil
}

func (h *SymbolHandler) Started() bool        { return h.started }
func (h *SymbolHandler) Config() *Config      { return h.cfg }
func (h *SymbolHandler) Symbols() []string    { return append([]string(nil), h.symbols...) }
func (h *SymbolHandler) Plays() []*SymbolPlay { return append([]*SymbolPlay(nil), h.plays...) }

// Active returns the SymbolPlays with at least one live instance.
func (h *SymbolHandler) Active() []*SymbolPlay {
	var out []*SymbolPlay
	for _, p := range h.plays {
		if p.Active() {
			out = append(out, p)
		}
	}
	return out
}

// Gain sums the realised gain of every SymbolPlay.
func (h *SymbolHandler) Gain() float64 {
	var g float64
	for _, p := range h.plays {
		g += p.Gain()
	}
	return g
}
