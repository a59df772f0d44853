// Package events defines the domain events the chat backend publishes for
// analytics consumers.
package events

import "time"

// Event defines the contract for all published events.
type Event interface {
	// EventType returns the unique code for this event (e.g. "CHAT_MESSAGE_RATED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the generic Event implementation used by publishers and
// rebuilt by subscribers.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}
