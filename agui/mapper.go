package agui

import (
	"context"
	"errors"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"

	"github.com/spetersoncode/concierge/event"
)

// Mapper converts concierge events to AG-UI events.
//
// Create a new Mapper for each run using NewMapper. The Mapper tracks the
// open text message, so it is not safe for concurrent use.
type Mapper struct {
	threadID  string
	runID     string
	messageID string
}

// NewMapper creates a new Mapper for a single run.
// The threadID and runID are used in lifecycle events (RUN_STARTED, RUN_FINISHED).
func NewMapper(threadID, runID string) *Mapper {
	if threadID == "" {
		threadID = events.GenerateThreadID()
	}
	if runID == "" {
		runID = events.GenerateRunID()
	}
	return &Mapper{
		threadID: threadID,
		runID:    runID,
	}
}

// ThreadID returns the thread ID for this mapper.
func (m *Mapper) ThreadID() string {
	return m.threadID
}

// RunID returns the run ID for this mapper.
func (m *Mapper) RunID() string {
	return m.runID
}

// RunStarted returns a RUN_STARTED event.
func (m *Mapper) RunStarted() events.Event {
	return events.NewRunStartedEvent(m.threadID, m.runID)
}

// RunFinished returns a RUN_FINISHED event.
func (m *Mapper) RunFinished() events.Event {
	return events.NewRunFinishedEvent(m.threadID, m.runID)
}

// RunError returns a RUN_ERROR event.
func (m *Mapper) RunError(err error) events.Event {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return events.NewRunErrorEvent(msg)
}

// Map converts one concierge event to zero or more AG-UI events.
func (m *Mapper) Map(e event.Event) []events.Event {
	switch e.Kind {
	case event.Status:
		return []events.Event{events.NewStepFinishedEvent(e.Message)}

	case event.Token:
		var out []events.Event
		if m.messageID == "" {
			m.messageID = events.GenerateMessageID()
			out = append(out, events.NewTextMessageStartEvent(m.messageID, events.WithRole(RoleAssistant)))
		}
		return append(out, events.NewTextMessageContentEvent(m.messageID, e.Content))

	case event.Metadata:
		return append(m.closeMessage(), events.NewStateSnapshotEvent(e.Data))

	case event.Done:
		return append(m.closeMessage(), m.RunFinished())

	case event.Error:
		msg := e.Message
		if msg == "" {
			msg = e.Code
		}
		return []events.Event{m.RunError(errors.New(msg))}

	default:
		return nil
	}
}

func (m *Mapper) closeMessage() []events.Event {
	if m.messageID == "" {
		return nil
	}
	id := m.messageID
	m.messageID = ""
	return []events.Event{events.NewTextMessageEndEvent(id)}
}

// MapStream converts a concierge event stream into an AG-UI event stream
// that opens with RUN_STARTED. The output channel closes when in closes or
// ctx is done.
func (m *Mapper) MapStream(ctx context.Context, in <-chan event.Event) <-chan events.Event {
	out := make(chan events.Event)
	go func() {
		defer close(out)
		send := func(ev events.Event) bool {
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}
		if !send(m.RunStarted()) {
			return
		}
		for e := range in {
			for _, ev := range m.Map(e) {
				if !send(ev) {
					return
				}
			}
		}
	}()
	return out
}
