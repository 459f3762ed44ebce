package play

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/tabot/internal/domain"
)

// CategoryHandler races several play configs on the same symbols of one
// category under one market condition.
type CategoryHandler struct {
	category  string
	condition string
	handlers  []*SymbolHandler
}

// NewCategoryHandler builds one SymbolHandler per config over symbols.
func NewCategoryHandler(category, condition string, configs []*Config, symbols []string,
	instruments func(symbol string) domain.Instrument, env Env) (*CategoryHandler, error) {
	c := &CategoryHandler{category: category, condition: condition}
	for _, cfg := range configs {
		h := NewSymbolHandler(cfg, env, category, condition)
		for _, s := range symbols {
			if err := h.AddSymbol(s, instruments(s)); err != nil {
				return nil, fmt.Errorf("play.NewCategoryHandler: %w", err)
			}
		}
		c.handlers = append(c.handlers, h)
	}
	return c, nil
}

func (c *CategoryHandler) Start(ctx context.Context) error {
	for _, h := range c.handlers {
		if err := h.Start(ctx); err != nil {
			return fmt.Errorf("play.CategoryHandler.Start: %s: %w", c.category, err)
		}
	}
	return nil
}

func (c *CategoryHandler) Run(ctx context.Context) error {
	for _, h := range c.handlers {
		if err := h.Run(ctx); err != nil {
			return fmt.Errorf("play.CategoryHandler.Run: %s: %w", c.category, err)
		}
	}
	return nil
}

func (c *CategoryHandler) Stop(ctx context.Context, hard bool) error {
	for _, h := range c.handlers {
		if err := h.Stop(ctx, hard); err != nil {
			return fmt.Errorf("play.CategoryHandler.Stop: %s: %w", c.category, err)
		}
	}
	return nil
}

func (c *CategoryHandler) Category() string  { return c.category }
func (c *CategoryHandler) Condition() string { return c.condition }
func (c *CategoryHandler) Handlers() []*SymbolHandler {
	return append([]*SymbolHandler(nil), c.handlers...)
}

// Active reports whether any instance is still live.
func (c *CategoryHandler) Active() bool {
	for _, h := range c.handlers {
		if len(h.Active()) > 0 {
			return true
		}
	}
	return false
}

func (c *CategoryHandler) Gain() float64 {
	var g float64
	for _, h := range c.handlers {
		g += h.Gain()
	}
	return g
}
