// Package event defines the ordered output protocol of one workflow run.
//
// A run produces status events while steps complete, token events carrying
// the final text in order, at most one metadata event, and exactly one
// terminal done or error event:
//
//	status* token* metadata? (done | error)
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Kind identifies the kind of event.
type Kind string

const (
	// Status reports progress after a workflow step completes.
	Status Kind = "status"

	// Token carries one fragment of the final text.
	Token Kind = "token"

	// Metadata carries the workflow's structured results.
	Metadata Kind = "metadata"

	// Done terminates a successful run.
	Done Kind = "done"

	// Error terminates a failed run.
	Error Kind = "error"
)

// Terminal reports whether the kind ends a sequence.
func (k Kind) Terminal() bool {
	return k == Done || k == Error
}

// Stable error codes carried in the wire "error" field.
const (
	CodeGeneration = "generation_failed"
	CodeRetrieval  = "retrieval_failed"
	CodeStorage    = "storage_failed"
	CodeCancelled  = "cancelled"
	CodeInternal   = "internal_error"

	CodeUnknownWorkflow = "unknown_workflow"
)

// Event is one element of the output sequence. Events are values and are
// never modified after construction.
type Event struct {
	Kind Kind

	// Message is the human-readable text of status, done and error events.
	Message string

	// Content is the text fragment of a token event.
	Content string

	// Data is the payload of a metadata event.
	Data map[string]any

	// Code is the stable, non-sensitive error code of an error event.
	Code string

	// Cause is the internal failure behind an error event. It is kept for
	// in-process logging and never serialized.
	Cause error

	Timestamp time.Time
}

// NewStatus creates a status event.
func NewStatus(msg string) Event {
	return Event{Kind: Status, Message: msg, Timestamp: time.Now()}
}

// NewToken creates a token event.
func NewToken(content string) Event {
	return Event{Kind: Token, Content: content, Timestamp: time.Now()}
}

// NewMetadata creates a metadata event.
func NewMetadata(data map[string]any) Event {
	return Event{Kind: Metadata, Data: data, Timestamp: time.Now()}
}

// NewDone creates a done event.
func NewDone(msg string) Event {
	return Event{Kind: Done, Message: msg, Timestamp: time.Now()}
}

// NewError creates an error event with a stable code, a user-safe message
// and the internal cause.
func NewError(code, msg string, cause error) Event {
	return Event{Kind: Error, Code: code, Message: msg, Cause: cause, Timestamp: time.Now()}
}

// Send delivers e to ch, blocking until the receiver takes it or ctx is
// done. It reports whether the event was delivered. Nothing is sent once
// ctx is done, even to a ready receiver.
func Send(ctx context.Context, ch chan<- Event, e Event) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case ch <- e:
		return true
	case <-ctx.Done():
		return false
	}
}

type wire struct {
	Kind    Kind           `json:"kind"`
	Message string         `json:"message,omitempty"`
	Content *string        `json:"content,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// MarshalJSON encodes the kind-tagged wire shape.
func (e Event) MarshalJSON() ([]byte, error) {
	w := wire{Kind: e.Kind}
	switch e.Kind {
	case Status, Done:
		w.Message = e.Message
	case Token:
		w.Content = &e.Content
	case Metadata:
		data := e.Data
		if data == nil {
			data = map[string]any{}
		}
		return json.Marshal(struct {
			Kind Kind           `json:"kind"`
			Data map[string]any `json:"data"`
		}{e.Kind, data})
	case Error:
		w.Error = e.Code
		w.Message = e.Message
	default:
		return nil, fmt.Errorf("event: unknown kind %q", e.Kind)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the wire shape.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.Kind {
	case Status, Token, Metadata, Done, Error:
	default:
		return fmt.Errorf("event: unknown kind %q", w.Kind)
	}
	*e = Event{Kind: w.Kind, Message: w.Message, Data: w.Data, Code: w.Error}
	if w.Kind == Metadata && e.Data == nil {
		e.Data = map[string]any{}
	}
	if w.Content != nil {
		e.Content = *w.Content
	}
	return nil
}
