// Package pubsub provides the in-process event bus that services use to
// notify the UI layer about state changes.
package pubsub

import "context"

type EventType string

// Generic event types; services define their own more specific ones.
const (
	EventTypeCreated EventType = "created"
	EventTypeUpdated EventType = "updated"
	EventTypeDeleted EventType = "deleted"
)

type Event[T any] struct {
	Type    EventType
	Payload T
}

type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
