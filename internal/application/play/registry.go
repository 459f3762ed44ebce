package play

import (
	"context"
	"fmt"
	"sort"

	"github.com/alejandrodnm/tabot/internal/domain"
)

// Entry is a positive trading signal. StopLoss is zero when the signal does
// not suggest one.
type Entry struct {
	Price    float64
	StopLoss float64
}

// Signal decides when a Waiting instance should enter a position.
type Signal interface {
	Name() string
	// Lookback is the number of bars Check needs.
	Lookback() int
	Check(ctx context.Context, bars []domain.Bar) (Entry, bool, error)
}

// SignalFactory builds a Signal from the free-form params of a play record.
type SignalFactory func(params domain.Params) (Signal, error)

type stateEntry struct {
	kind    Kind
	factory StateFactory
}

// Registry maps the names used in the play library to state and signal
// constructors. It is built once at startup and injected into the library
// loader.
type Registry struct {
	states  map[string]stateEntry
	signals map[string]SignalFactory
}

// NewRegistry returns a registry with the built-in states registered under
// their kind names.
func NewRegistry() *Registry {
	r := &Registry{
		states:  make(map[string]stateEntry),
		signals: make(map[string]SignalFactory),
	}
	r.RegisterState(KindWaiting.String(), KindWaiting, newWaiting)
	r.RegisterState(KindEnteringPosition.String(), KindEnteringPosition, newEnteringPosition)
	r.RegisterState(KindTakingProfit.String(), KindTakingProfit, newTakingProfit)
	r.RegisterState(KindStoppingLoss.String(), KindStoppingLoss, newStoppingLoss)
	r.RegisterState(KindTerminated.String(), KindTerminated, newTerminated)
	return r
}

// RegisterState adds or replaces a state implementation.
func (r *Registry) RegisterState(name string, kind Kind, f StateFactory) {
	r.states[name] = stateEntry{kind: kind, factory: f}
}

// RegisterSignal adds or replaces a signal implementation.
func (r *Registry) RegisterSignal(name string, f SignalFactory) {
	r.signals[name] = f
}

// Signals returns the registered signal names, sorted.
func (r *Registry) Signals() []string {
	names := make([]string, 0, len(r.signals))
	for n := range r.signals {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve turns a play record into a runnable Config. Unknown names, or a
// state registered for a different kind than the slot it is used in, fail.
func (r *Registry) Resolve(pc domain.PlayConfig) (*Config, error) {
	pc = pc.WithDefaults()
	if err := pc.Validate(); err != nil {
		return nil, fmt.Errorf("play.Registry.Resolve: %w", err)
	}

	cfg := &Config{PlayConfig: pc}
	slots := [...]string{
		KindWaiting:          pc.StateNames.Waiting,
		KindEnteringPosition: pc.StateNames.EnteringPosition,
		KindTakingProfit:     pc.StateNames.TakingProfit,
		KindStoppingLoss:     pc.StateNames.StoppingLoss,
		KindTerminated:       pc.StateNames.Terminated,
	}
	for k, name := range slots {
		kind := Kind(k)
		if name == "" {
			name = kind.String()
		}
		e, ok := r.states[name]
		if !ok {
			return nil, fmt.Errorf("play.Registry.Resolve: %s: state %q: %w", pc.Name, name, domain.ErrUnknownState)
		}
		if e.kind != kind {
			return nil, fmt.Errorf("play.Registry.Resolve: %s: state %q is a %s, used as %s: %w",
				pc.Name, name, e.kind, kind, domain.ErrUnknownState)
		}
		cfg.names[kind] = name
		cfg.factories[kind] = e.factory
	}

	sf, ok := r.signals[pc.Signal]
	if !ok {
		return nil, fmt.Errorf("play.Registry.Resolve: %s: signal %q: %w", pc.Name, pc.Signal, domain.ErrUnknownSignal)
	}
	sig, err := sf(pc.Params)
	if err != nil {
		return nil, fmt.Errorf("play.Registry.Resolve: %s: build signal %q: %w", pc.Name, pc.Signal, err)
	}
	cfg.signal = sig
	return cfg, nil
}

// Config is a resolved play config: the parameters plus the constructors
// for each state and the trading signal.
type Config struct {
	domain.PlayConfig

	names     [5]string
	factories [5]StateFactory
	signal    Signal
}

// StateName is the registered name used for kind.
func (c *Config) StateName(kind Kind) string {
	return c.names[kind]
}

// Signal is the entry signal of this config.
func (c *Config) Signal() Signal {
	return c.signal
}

func (c *Config) factory(kind Kind) StateFactory {
	return c.factories[kind]
}
