package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alejandrodnm/tabot/internal/domain"
	"github.com/alejandrodnm/tabot/internal/ports"
)

const defaultBatchSize = 50

// Recorder buffers telemetry events and writes them to a ResultStore in
// batches. Storage errors are logged and kept for Close; they never reach
// the emitter.
type Recorder struct {
	store     ports.ResultStore
	batchSize int

	mu      sync.Mutex
	starts  []domain.PlayStart
	results []domain.InstanceSummary
	err     error
}

func NewRecorder(store ports.ResultStore, batchSize int) *Recorder {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Recorder{store: store, batchSize: batchSize}
}

// Attach subscribes the recorder to every topic on b. Play starts are
// buffered inline with Emit so they are always ahead of the results of their
// run; results are handled in the background.
func (r *Recorder) Attach(b *Bus) error {
	for _, topic := range Topics {
		handler := func(payload any) { r.Handle(topic, payload) }
		var err error
		if topic == domain.EventPlayStart {
			err = b.Subscribe(topic, handler)
		} else {
			err = b.SubscribeAsync(topic, handler)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Handle buffers one event and flushes when the batch is full.
func (r *Recorder) Handle(event string, payload any) {
	r.mu.Lock()
	switch p := payload.(type) {
	case domain.PlayStart:
		r.starts = append(r.starts, p)
	case domain.InstanceSummary:
		r.results = append(r.results, p)
	default:
		r.mu.Unlock()
		slog.Warn("telemetry: unexpected payload", "event", event, "type", fmt.Sprintf("%T", payload))
		return
	}
	full := len(r.starts)+len(r.results) >= r.batchSize
	r.mu.Unlock()

	if full {
		if err := r.Flush(context.Background()); err != nil {
			slog.Error("telemetry flush failed", "err", err)
		}
	}
}

// Flush writes everything buffered. Play starts go first so instance rows
// always have their run recorded.
func (r *Recorder) Flush(ctx context.Context) error {
	r.mu.Lock()
	starts, results := r.starts, r.results
	r.starts, r.results = nil, nil
	r.mu.Unlock()

	var errs []error
	if len(starts) > 0 {
		if err := r.store.SavePlayStarts(ctx, starts); err != nil {
			errs = append(errs, fmt.Errorf("telemetry.Flush: play starts: %w", err))
		}
	}
	if len(results) > 0 {
		if err := r.store.SaveInstanceResults(ctx, results); err != nil {
			errs = append(errs, fmt.Errorf("telemetry.Flush: instance results: %w", err))
		}
	}
	err := errors.Join(errs...)
	if err != nil {
		r.mu.Lock()
		if r.err == nil {
			r.err = err
		}
		r.mu.Unlock()
	}
	return err
}

// Close flushes the remainder and returns the first storage error seen.
func (r *Recorder) Close(ctx context.Context) error {
	ferr := r.Flush(ctx)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	return ferr
}
