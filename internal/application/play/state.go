// Package play implements the per-position state machine and the pools that
// keep it running per symbol, per play config and per category.
package play

import (
	"context"
	"log/slog"

	"github.com/alejandrodnm/tabot/internal/domain"
)

// Kind tags the five state variants.
type Kind int

const (
	KindWaiting Kind = iota
	KindEnteringPosition
	KindTakingProfit
	KindStoppingLoss
	KindTerminated
)

var kindNames = [...]string{"waiting", "entering_position", "taking_profit", "stopping_loss", "terminated"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Kinds lists every variant in lifecycle order.
func Kinds() []Kind {
	return []Kind{KindWaiting, KindEnteringPosition, KindTakingProfit, KindStoppingLoss, KindTerminated}
}

// Action is the verdict of a CheckExit.
type Action int

const (
	// Stay keeps the current state; Run returns.
	Stay Action = iota
	// Move replaces the current state; Run keeps looping.
	Move
	// Split asks the owning pool for a sibling Instance that starts in Next.
	Split
)

func (a Action) String() string {
	switch a {
	case Stay:
		return "stay"
	case Move:
		return "move"
	case Split:
		return "split"
	}
	return "unknown"
}

// Args are the explicit constructor arguments of a transition target. Zero
// values mean "use the configuration default".
type Args struct {
	OrderType   domain.OrderType
	LimitPrice  float64
	Units       float64
	TargetPrice float64

	// Split only: the filled slice handed to the sibling.
	FilledUnits float64
	FilledPrice float64

	// Reason is logged and reported when entering Terminated.
	Reason string
}

// Transition is what CheckExit returns.
type Transition struct {
	Action Action
	Next   Kind
	Args   Args
}

func stay() Transition {
	return Transition{Action: Stay}
}

// MoveTo builds a Move verdict.
func MoveTo(next Kind, args Args) Transition {
	return Transition{Action: Move, Next: next, Args: args}
}

// SplitTo builds a Split verdict.
func SplitTo(next Kind, args Args) Transition {
	return Transition{Action: Split, Next: next, Args: args}
}

// State is one immutable step of an Instance's lifecycle. The entry hook is
// the StateFactory that builds it; Exit runs on the outgoing state of a Move.
type State interface {
	Kind() Kind
	Name() string
	CheckExit(ctx context.Context) (Transition, error)
	Exit(ctx context.Context) error
}

// StateContext is what a StateFactory receives. Previous is the name of the
// outgoing state and is only used for logging.
type StateContext struct {
	Instance *Instance
	Log      *slog.Logger
	Name     string
	Previous string
	Args     Args
}

// StateFactory constructs a state, running its entry action.
type StateFactory func(ctx context.Context, sc StateContext) (State, error)

// Base carries the fields every state shares. Custom states embed it to get
// the default no-op Exit.
type Base struct {
	Inst     *Instance
	Log      *slog.Logger
	kind     Kind
	name     string
	previous string
}

// NewBase is used by state factories, including ones registered outside
// this package.
func NewBase(kind Kind, sc StateContext) Base {
	return Base{Inst: sc.Instance, Log: sc.Log, kind: kind, name: sc.Name, previous: sc.Previous}
}

func (b Base) Kind() Kind                   { return b.kind }
func (b Base) Name() string                 { return b.name }
func (b Base) Previous() string             { return b.previous }
func (b Base) Exit(_ context.Context) error { return nil }
