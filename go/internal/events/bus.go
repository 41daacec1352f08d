package events

import (
	"context"
	"sync"
)

// Subscriber receives events published on a Bus.
type Subscriber interface {
	HandleEvent(ctx context.Context, ev Event)
}

// SubscriberFunc adapts a function to the Subscriber interface
type SubscriberFunc func(ctx context.Context, ev Event)

func (f SubscriberFunc) HandleEvent(ctx context.Context, ev Event) {
	f(ctx, ev)
}

// Publisher is what producers of events depend on
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Bus fans events out to subscribers synchronously, in subscription order, on the
// publishing goroutine. A subscriber blocks every later one, so slow consumers such
// as WebSocket writers hand off to their own goroutine.
type Bus struct {
	mu          sync.RWMutex
	subscribers []Subscriber
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers s for all subsequent events
func (b *Bus) Subscribe(s Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, s)
}

// Publish delivers ev to every subscriber
func (b *Bus) Publish(ctx context.Context, ev Event) {
	b.mu.RLock()
	subs := make([]Subscriber, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.RUnlock()

	for _, s := range subs {
		s.HandleEvent(ctx, ev)
	}
}
