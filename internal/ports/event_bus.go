package ports

import "github.com/bft-labs/wifikeeper/internal/domain"

// EventBus carries notifications between components.
type EventBus interface {
	// Publish enqueues an event for delivery to matching subscribers.
	Publish(event domain.Event) error

	// Subscribe registers handler for events matching predicate and returns
	// a function that removes the subscription.
	Subscribe(predicate func(domain.Event) bool, handler func(domain.Event)) (unsubscribe func())
}
