package client

import (
	"time"

	"github.com/spetersoncode/concierge"
)

// EventType identifies the kind of event occurring during client operations.
type EventType string

const (
	// EventRequestStart fires before a provider request begins.
	EventRequestStart EventType = "request_start"

	// EventRequestComplete fires after a provider request completes successfully.
	EventRequestComplete EventType = "request_complete"

	// EventRequestError fires when a provider request fails after retries.
	EventRequestError EventType = "request_error"
)

// Operations reported in events.
const (
	OperationGenerate = "generate"
	OperationEmbed    = "embed"
)

// Event represents an observable occurrence during client operations.
type Event struct {
	Type      EventType
	Operation string
	Provider  concierge.Provider

	// Duration is the elapsed time for finished requests.
	Duration time.Duration

	// Error contains the error for EventRequestError.
	Error error

	Timestamp time.Time
}

// emit sends an event with timestamp to the channel without blocking.
func emit(ch chan<- Event, event Event) {
	if ch == nil {
		return
	}
	event.Timestamp = time.Now()
	select {
	case ch <- event:
	default:
		// Channel full - don't block
	}
}
