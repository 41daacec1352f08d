package outbox

import "time"

// HealthStatus summarises the relay for the /health endpoint
type HealthStatus struct {
	Running         bool      `json:"running"`
	EventsPublished uint64    `json:"eventsPublished"`
	LastPublishAt   time.Time `json:"lastPublishAt,omitzero"`
	NATSConnected   bool      `json:"natsConnected"`
}

type connectionChecker interface {
	Connected() bool
}

// Health reports the worker's counters and, when the publisher exposes it,
// the broker connection state.
func (w *Worker) Health() HealthStatus {
	w.mu.Lock()
	status := HealthStatus{
		Running:         w.running,
		EventsPublished: w.published,
		LastPublishAt:   w.lastPublishAt,
	}
	w.mu.Unlock()

	if c, ok := w.publisher.(connectionChecker); ok {
		status.NATSConnected = c.Connected()
	}
	return status
}

// Healthy is false when the worker stopped or lost its broker
func (s HealthStatus) Healthy() bool {
	return s.Running && s.NATSConnected
}
