package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/foguetinho/go/internal/storage"
	"github.com/mcdev12/foguetinho/go/internal/storage/memstore"
)

type fakePublisher struct {
	mu        sync.Mutex
	failures  map[string]int // event id -> remaining failures
	published []string
	attempts  int
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{failures: make(map[string]int)}
}

func (p *fakePublisher) Publish(_ context.Context, event storage.OutboxEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts++
	if n := p.failures[event.ID]; n > 0 {
		p.failures[event.ID] = n - 1
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, event.ID)
	return nil
}

func (p *fakePublisher) Published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.published...)
}

type recordingMetrics struct {
	mu       sync.Mutex
	attempts map[bool]int
	lag      int
	batches  []int
}

func (m *recordingMetrics) RecordEventProcessed(string, bool, time.Duration) {}

func (m *recordingMetrics) RecordBatchProcessed(count int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, count)
}

func (m *recordingMetrics) RecordOutboxLag(lag int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lag = lag
}

func (m *recordingMetrics) RecordPublishAttempt(_ string, _ int, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.attempts == nil {
		m.attempts = make(map[bool]int)
	}
	m.attempts[success]++
}

func seedOutbox(t *testing.T, store storage.OutboxStore, n int) []string {
	t.Helper()
	ids := make([]string, n)
	for i := range n {
		ids[i] = fmt.Sprintf("evt-%d", i)
		require.NoError(t, store.InsertOutbox(context.Background(), storage.OutboxEvent{
			ID:        ids[i],
			EventType: "round_end",
			Payload:   []byte(`{"type":"round_end"}`),
			CreatedAt: time.Date(2026, 3, 1, 12, 0, i, 0, time.UTC),
		}))
	}
	return ids
}

func TestWorker_ProcessOnce(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	ids := seedOutbox(t, store, 3)
	pub := newFakePublisher()
	metrics := &recordingMetrics{}

	w := NewWorker(store, pub, metrics, Config{BatchSize: 2, MaxRetries: 0}, clockwork.NewFakeClock())

	n, err := w.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = w.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = w.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Equal(t, ids, pub.Published())
	assert.Equal(t, []int{2, 1}, metrics.batches)
	assert.Equal(t, uint64(3), w.Health().EventsPublished)
}

func TestWorker_RetriesThenSucceeds(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	ids := seedOutbox(t, store, 1)
	pub := newFakePublisher()
	pub.failures[ids[0]] = 2
	metrics := &recordingMetrics{}

	w := NewWorker(store, pub, metrics, Config{MaxRetries: 3, RetryDelay: time.Millisecond}, clockwork.NewRealClock())

	n, err := w.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 3, pub.attempts)
	assert.Equal(t, 2, metrics.attempts[false])
	assert.Equal(t, 1, metrics.attempts[true])
	assert.Zero(t, metrics.lag)
}

func TestWorker_LeavesFailedEventsUnsent(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	ids := seedOutbox(t, store, 2)
	pub := newFakePublisher()
	pub.failures[ids[0]] = 5
	metrics := &recordingMetrics{}

	w := NewWorker(store, pub, metrics, Config{MaxRetries: 1, RetryDelay: time.Millisecond}, clockwork.NewRealClock())

	n, err := w.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, metrics.lag)

	pending, err := store.FetchUnsentOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, ids[0], pending[0].ID)
}

func TestWorker_PollsOnTicker(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := memstore.New()
	pub := newFakePublisher()
	clock := clockwork.NewFakeClock()
	w := NewWorker(store, pub, nil, Config{PollInterval: time.Second}, clock)

	require.NoError(t, w.Start(ctx))
	assert.Error(t, w.Start(ctx))
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	ids := seedOutbox(t, store, 2)
	clock.Advance(time.Second)

	assert.Eventually(t, func() bool {
		return len(pub.Published()) == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, ids, pub.Published())
	assert.True(t, w.Health().Running)

	require.NoError(t, w.Stop())
	assert.Error(t, w.Stop())
	assert.False(t, w.Health().Running)
}
