package telemetry_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alejandrodnm/tabot/internal/adapters/telemetry"
	"github.com/alejandrodnm/tabot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu      sync.Mutex
	starts  []domain.PlayStart
	results []domain.InstanceSummary
	calls   []string
	failOn  string
}

func (m *memStore) SavePlayStarts(_ context.Context, s []domain.PlayStart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "starts")
	if m.failOn == "starts" {
		return errors.New("disk full")
	}
	m.starts = append(m.starts, s...)
	return nil
}

func (m *memStore) SaveInstanceResults(_ context.Context, r []domain.InstanceSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "results")
	if m.failOn == "results" {
		return errors.New("disk full")
	}
	m.results = append(m.results, r...)
	return nil
}

func (m *memStore) InstanceResults(context.Context, string) ([]domain.InstanceSummary, error) {
	return m.results, nil
}

func (m *memStore) LatestRunID(context.Context) (string, error) { return "", nil }
func (m *memStore) Close() error                                { return nil }

func TestBus_SubscribeReceivesPayload(t *testing.T) {
	bus := telemetry.NewBus()
	var got []any
	require.NoError(t, bus.Subscribe(domain.EventPlayStart, func(p any) { got = append(got, p) }))

	bus.Emit(domain.EventPlayStart, domain.PlayStart{PlayID: "p1"})
	bus.Emit(domain.EventInstanceTerminated, domain.InstanceSummary{InstanceID: "i1"})

	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].(domain.PlayStart).PlayID)
}

func TestRecorder_FlushesOnCloseStartsFirst(t *testing.T) {
	store := &memStore{}
	bus := telemetry.NewBus()
	rec := telemetry.NewRecorder(store, 0)
	require.NoError(t, rec.Attach(bus))

	bus.Emit(domain.EventInstanceTerminated, domain.InstanceSummary{InstanceID: "i1", RunID: "p1"})
	bus.Emit(domain.EventPlayStart, domain.PlayStart{PlayID: "p1", StartTimeUTC: time.Now().UTC()})
	bus.Wait()

	assert.Empty(t, store.calls, "nothing written before the batch fills")

	require.NoError(t, rec.Close(context.Background()))
	assert.Equal(t, []string{"starts", "results"}, store.calls)
	assert.Len(t, store.starts, 1)
	assert.Len(t, store.results, 1)
}

func TestRecorder_PlayStartBufferedBeforeResults(t *testing.T) {
	store := &memStore{}
	bus := telemetry.NewBus()
	rec := telemetry.NewRecorder(store, 1)
	require.NoError(t, rec.Attach(bus))

	bus.Emit(domain.EventPlayStart, domain.PlayStart{PlayID: "p1"})
	store.mu.Lock()
	assert.Len(t, store.starts, 1, "written before Emit returns")
	store.mu.Unlock()

	bus.Emit(domain.EventInstanceTerminated, domain.InstanceSummary{InstanceID: "i1", RunID: "p1"})
	bus.Wait()
	require.NoError(t, rec.Close(context.Background()))
	assert.Equal(t, []string{"starts", "results"}, store.calls)
}

func TestRecorder_FlushesWhenBatchFull(t *testing.T) {
	store := &memStore{}
	rec := telemetry.NewRecorder(store, 2)

	rec.Handle(domain.EventInstanceTerminated, domain.InstanceSummary{InstanceID: "a"})
	assert.Empty(t, store.results)
	rec.Handle(domain.EventInstanceTerminated, domain.InstanceSummary{InstanceID: "b"})
	assert.Len(t, store.results, 2)

	rec.Handle(domain.EventInstanceTerminated, "not a summary")
	require.NoError(t, rec.Close(context.Background()))
	assert.Len(t, store.results, 2)
}

func TestRecorder_CloseReportsFirstError(t *testing.T) {
	store := &memStore{failOn: "results"}
	rec := telemetry.NewRecorder(store, 1)

	rec.Handle(domain.EventInstanceTerminated, domain.InstanceSummary{InstanceID: "a"})
	store.failOn = ""

	err := rec.Close(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
