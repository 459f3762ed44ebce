package clock

import "time"

// Realtime follows the wall clock. Only Now is supported; everything that
// would move or bound the clock returns ErrRealtimeUnsupported.
type Realtime struct {
	interval time.Duration
}

func NewRealtime(interval time.Duration) *Realtime {
	return &Realtime{interval: interval}
}

func (r *Realtime) Now() time.Time            { return time.Now().UTC() }
func (r *Realtime) Interval() time.Duration   { return r.interval }
func (r *Realtime) AddSymbols(...string)      {}
func (r *Realtime) First() (time.Time, error) { return time.Time{}, ErrRealtimeUnsupported }
func (r *Realtime) Last() (time.Time, error)  { return time.Time{}, ErrRealtimeUnsupported }
func (r *Realtime) SetNow(time.Time) error    { return ErrRealtimeUnsupported }
func (r *Realtime) Start() error              { return ErrRealtimeUnsupported }
func (r *Realtime) Tick() error               { return ErrRealtimeUnsupported }
func (r *Realtime) EOF() bool                 { return false }

var (
	_ Clock = (*Backtest)(nil)
	_ Clock = (*Realtime)(nil)
)
