// Package bus implements the in-process event bus that carries credential
// and lifecycle events between components.
package bus

import (
	"context"
	"sort"
	"sync"

	"github.com/bft-labs/wifikeeper/internal/domain"
	"github.com/bft-labs/wifikeeper/internal/ports"
)

// DefaultCapacity is the number of events that can wait for dispatch.
const DefaultCapacity = 64

type subscription struct {
	predicate func(domain.Event) bool
	handler   func(domain.Event)
}

// Bus is a bounded publish/subscribe queue. Publish never blocks; Run
// delivers events in publish order from a single goroutine, so a handler
// never runs concurrently with itself.
type Bus struct {
	queue  chan domain.Event
	logger ports.Logger

	mu     sync.RWMutex
	subs   map[uint64]subscription
	nextID uint64
}

// New creates a bus holding up to capacity undelivered events.
func New(capacity int, logger ports.Logger) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{
		queue:  make(chan domain.Event, capacity),
		logger: logger,
		subs:   make(map[uint64]subscription),
	}
}

// Publish enqueues event. It returns domain.ErrBusFull when the queue is full.
func (b *Bus) Publish(event domain.Event) error {
	select {
	case b.queue <- event:
		return nil
	default:
		return domain.ErrBusFull
	}
}

// Subscribe registers handler for events matching predicate. A nil predicate
// matches everything.
func (b *Bus) Subscribe(predicate func(domain.Event) bool, handler func(domain.Event)) func() {
	if predicate == nil {
		predicate = func(domain.Event) bool { return true }
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = subscription{predicate: predicate, handler: handler}
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Run dispatches queued events until ctx is cancelled.
func (b *Bus) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-b.queue:
			b.dispatch(event)
		}
	}
}

// Pending returns the number of events waiting for dispatch.
func (b *Bus) Pending() int {
	return len(b.queue)
}

func (b *Bus) dispatch(event domain.Event) {
	// Snapshot under the lock so handlers may subscribe or unsubscribe.
	b.mu.RLock()
	ids := make([]uint64, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	subs := make([]subscription, 0, len(ids))
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		subs = append(subs, b.subs[id])
	}
	b.mu.RUnlock()

	delivered := 0
	for _, s := range subs {
		if !s.predicate(event) {
			continue
		}
		s.handler(event)
		delivered++
	}

	if b.logger != nil {
		b.logger.Debug("event dispatched",
			ports.String("event", event.Type.String()),
			ports.Int("subscribers", delivered),
		)
	}
}
