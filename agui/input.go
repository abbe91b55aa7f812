package agui

import (
	"encoding/json"
	"errors"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"

	"github.com/spetersoncode/concierge/orchestrator"
)

// RunAgentInput represents the AG-UI protocol request for running an agent.
// This mirrors the AG-UI protocol specification and is transport-agnostic.
type RunAgentInput struct {
	ThreadID       string           `json:"thread_id"`
	RunID          string           `json:"run_id"`
	Messages       []events.Message `json:"messages"`
	Tools          []any            `json:"tools,omitempty"`
	Context        []any            `json:"context,omitempty"`
	State          any              `json:"state,omitempty"`
	ForwardedProps any              `json:"forwarded_props,omitempty"`
}

// RunState is the part of the frontend state the concierge reads.
type RunState struct {
	UserID   string `json:"user_id"`
	Workflow string `json:"workflow"`
}

// PreparedInput contains validated input ready for the orchestrator.
type PreparedInput struct {
	ThreadID string
	RunID    string
	UserID   string
	Message  string
	Workflow string
}

// ErrNoMessages is returned when the input contains no user message.
var ErrNoMessages = errors.New("no messages provided")

// Prepare validates the input and picks the latest user message. The
// user ID comes from the state and falls back to the thread ID.
func (r *RunAgentInput) Prepare() (*PreparedInput, error) {
	msg, ok := LastUserMessage(r.Messages)
	if !ok {
		return nil, ErrNoMessages
	}

	st, err := DecodeState[RunState](r.State)
	if err != nil {
		return nil, err
	}

	p := &PreparedInput{
		ThreadID: r.ThreadID,
		RunID:    r.RunID,
		UserID:   st.UserID,
		Message:  msg,
		Workflow: st.Workflow,
	}
	if p.UserID == "" {
		p.UserID = r.ThreadID
	}
	return p, nil
}

// Request returns the orchestrator request for the input.
func (p *PreparedInput) Request() orchestrator.Request {
	return orchestrator.Request{UserID: p.UserID, Message: p.Message, Workflow: p.Workflow}
}

// DecodeState decodes raw frontend state into a typed struct.
// Returns the zero value of T if state is nil.
func DecodeState[T any](state any) (T, error) {
	var result T
	if state == nil {
		return result, nil
	}

	// Re-marshal and unmarshal to get proper typing
	data, err := json.Marshal(state)
	if err != nil {
		return result, err
	}

	if err := json.Unmarshal(data, &result); err != nil {
		return result, err
	}

	return result, nil
}
