package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/foguetinho/go/internal/storage"
)

// Publisher delivers one outbox event to the message bus
type Publisher interface {
	Publish(ctx context.Context, event storage.OutboxEvent) error
}

// MetricsCollector receives relay measurements
type MetricsCollector interface {
	RecordEventProcessed(eventType string, success bool, duration time.Duration)
	RecordBatchProcessed(count int, duration time.Duration)
	RecordOutboxLag(lag int)
	RecordPublishAttempt(eventType string, attempt int, success bool)
}

type Config struct {
	PollInterval time.Duration
	BatchSize    int
	MaxRetries   int
	RetryDelay   time.Duration
}

func DefaultConfig() Config {
	return Config{
		PollInterval: time.Second,
		BatchSize:    100,
		MaxRetries:   3,
		RetryDelay:   500 * time.Millisecond,
	}
}

type Worker struct {
	store     storage.OutboxStore
	publisher Publisher
	metrics   MetricsCollector
	config    Config
	clock     clockwork.Clock

	mu            sync.Mutex
	running       bool
	stopChan      chan struct{}
	wg            sync.WaitGroup
	published     uint64
	lastPublishAt time.Time
}

func NewWorker(store storage.OutboxStore, publisher Publisher, metrics MetricsCollector, cfg Config, clock clockwork.Clock) *Worker {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Worker{
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		config:    cfg,
		clock:     clock,
		stopChan:  make(chan struct{}),
	}
}

func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("outbox worker already running")
	}
	w.running = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run(ctx)

	log.Info().
		Dur("poll_interval", w.config.PollInterval).
		Int("batch_size", w.config.BatchSize).
		Msg("outbox worker started")
	return nil
}

func (w *Worker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return fmt.Errorf("outbox worker not running")
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopChan)
	w.wg.Wait()

	log.Info().Msg("outbox worker stopped")
	return nil
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := w.clock.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	w.processOutbox(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.Chan():
			w.processOutbox(ctx)
		}
	}
}

func (w *Worker) processOutbox(ctx context.Context) {
	if _, err := w.ProcessOnce(ctx); err != nil {
		log.Error().Err(err).Msg("outbox poll failed")
	}
}

// ProcessOnce relays one batch and returns how many events were marked sent
func (w *Worker) ProcessOnce(ctx context.Context) (int, error) {
	start := w.clock.Now()

	batch, err := w.store.FetchUnsentOutbox(ctx, w.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch unsent events: %w", err)
	}
	if len(batch) == 0 {
		w.metrics.RecordOutboxLag(0)
		return 0, nil
	}

	var sent []string
	for _, event := range batch {
		eventStart := w.clock.Now()
		err := w.publishWithRetry(ctx, event)
		w.metrics.RecordEventProcessed(event.EventType, err == nil, w.clock.Since(eventStart))
		if err != nil {
			log.Error().Err(err).
				Str("event_id", event.ID).
				Str("event_type", event.EventType).
				Msg("failed to publish event")
			if ctx.Err() != nil {
				break
			}
			continue
		}
		sent = append(sent, event.ID)
	}

	if len(sent) > 0 {
		now := w.clock.Now().UTC()
		if err := w.store.MarkOutboxSent(ctx, sent, now); err != nil {
			return 0, fmt.Errorf("failed to mark events as sent: %w", err)
		}
		w.mu.Lock()
		w.published += uint64(len(sent))
		w.lastPublishAt = now
		w.mu.Unlock()
	}

	w.metrics.RecordBatchProcessed(len(batch), w.clock.Since(start))
	w.metrics.RecordOutboxLag(len(batch) - len(sent))

	log.Debug().
		Int("total", len(batch)).
		Int("successful", len(sent)).
		Msg("processed outbox events")
	return len(sent), nil
}

func (w *Worker) publishWithRetry(ctx context.Context, event storage.OutboxEvent) error {
	var lastErr error

	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-w.clock.After(w.config.RetryDelay * time.Duration(attempt)):
			}
		}

		if err := w.publisher.Publish(ctx, event); err != nil {
			lastErr = err
			w.metrics.RecordPublishAttempt(event.EventType, attempt+1, false)
			log.Warn().Err(err).
				Str("event_id", event.ID).
				Int("attempt", attempt+1).
				Msg("failed to publish event, retrying")
			continue
		}

		w.metrics.RecordPublishAttempt(event.EventType, attempt+1, true)
		return nil
	}

	return fmt.Errorf("failed after %d attempts: %w", w.config.MaxRetries+1, lastErr)
}

type noopMetrics struct{}

func (noopMetrics) RecordEventProcessed(string, bool, time.Duration) {}
func (noopMetrics) RecordBatchProcessed(int, time.Duration)          {}
func (noopMetrics) RecordOutboxLag(int)                              {}
func (noopMetrics) RecordPublishAttempt(string, int, bool)           {}
