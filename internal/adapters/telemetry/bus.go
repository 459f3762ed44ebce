// Package telemetry fans structured run events out to subscribers.
package telemetry

import (
	"fmt"
	"log/slog"

	"github.com/asaskevich/EventBus"

	"github.com/alejandrodnm/tabot/internal/domain"
	"github.com/alejandrodnm/tabot/internal/ports"
)

// Topics are the events the core emits.
var Topics = []string{domain.EventPlayStart, domain.EventInstanceTerminated}

// Bus implements ports.Telemetry on top of an in-process event bus.
type Bus struct {
	bus EventBus.Bus
}

func NewBus() *Bus {
	return &Bus{bus: EventBus.New()}
}

// Emit publishes payload on the event topic. Async subscribers run on their
// own goroutines so Emit returns without waiting for them.
func (b *Bus) Emit(event string, payload any) {
	b.bus.Publish(event, payload)
}

// Subscribe registers a handler that runs inline with Emit.
func (b *Bus) Subscribe(event string, fn func(payload any)) error {
	if err := b.bus.Subscribe(event, fn); err != nil {
		return fmt.Errorf("telemetry.Subscribe: %s: %w", event, err)
	}
	return nil
}

// SubscribeAsync registers a handler that runs in the background, one call at
// a time.
func (b *Bus) SubscribeAsync(event string, fn func(payload any)) error {
	if err := b.bus.SubscribeAsync(event, fn, true); err != nil {
		return fmt.Errorf("telemetry.SubscribeAsync: %s: %w", event, err)
	}
	return nil
}

// Wait blocks until every async handler has drained.
func (b *Bus) Wait() {
	b.bus.WaitAsync()
}

// AttachLogger logs every event at debug level.
func AttachLogger(b *Bus, log *slog.Logger) error {
	for _, topic := range Topics {
		if err := b.Subscribe(topic, func(payload any) {
			log.Debug("telemetry", "event", topic, "payload", payload)
		}); err != nil {
			return err
		}
	}
	return nil
}

var _ ports.Telemetry = (*Bus)(nil)
