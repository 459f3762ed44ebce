// Package clock provides the time source that bounds and drives a run.
package clock

import (
	"errors"
	"time"

	"github.com/alejandrodnm/tabot/internal/ports"
)

var (
	ErrNotStarted          = errors.New("clock not started")
	ErrNoSymbols           = errors.New("no symbols registered with clock")
	ErrOutOfRange          = errors.New("time outside clock bounds")
	ErrRealtimeUnsupported = errors.New("realtime clock is not implemented")
)

// Clock is the scheduler's time source. Bounds are derived from the symbols
// registered through AddSymbols.
type Clock interface {
	ports.TimeSource

	AddSymbols(symbols ...string)
	First() (time.Time, error)
	Last() (time.Time, error)
	SetNow(t time.Time) error
	Start() error
	Tick() error
	EOF() bool
	Interval() time.Duration
}
