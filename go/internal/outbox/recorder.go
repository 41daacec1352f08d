// Package outbox relays bus events to NATS JetStream through a persisted outbox
// table, so consumers outside the process see every round and wager event at
// least once.
package outbox

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/foguetinho/go/internal/events"
	"github.com/mcdev12/foguetinho/go/internal/storage"
)

// Recorder appends bus events to the outbox. Ticks are not recorded.
type Recorder struct {
	store storage.OutboxStore
	clock clockwork.Clock
}

// NewRecorder creates a Recorder writing to store
func NewRecorder(store storage.OutboxStore, clock clockwork.Clock) *Recorder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Recorder{store: store, clock: clock}
}

// HandleEvent implements events.Subscriber
func (r *Recorder) HandleEvent(ctx context.Context, ev events.Event) {
	if !Relayed(ev.EventType()) {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(ev.EventType())).Msg("failed to marshal outbox event")
		return
	}
	event := storage.OutboxEvent{
		ID:        uuid.NewString(),
		EventType: string(ev.EventType()),
		Payload:   payload,
		CreatedAt: r.clock.Now().UTC(),
	}
	if err := r.store.InsertOutbox(ctx, event); err != nil {
		log.Error().Err(err).
			Str("event_type", event.EventType).
			Msg("failed to record outbox event")
	}
}

// Relayed reports whether events of type t go through the outbox
func Relayed(t events.Type) bool {
	switch t {
	case events.TypeTick, events.TypeHello:
		return false
	default:
		return true
	}
}
