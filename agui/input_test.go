package agui

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"

	"github.com/spetersoncode/concierge"
)

func strPtr(s string) *string { return &s }

func TestRunAgentInput_Prepare(t *testing.T) {
	t.Run("latest user message with state", func(t *testing.T) {
		input := RunAgentInput{
			ThreadID: "thread-1",
			RunID:    "run-1",
			Messages: []events.Message{
				{ID: "m1", Role: RoleUser, Content: strPtr("Hello")},
				{ID: "m2", Role: RoleAssistant, Content: strPtr("Hi! How can I help?")},
				{ID: "m3", Role: RoleUser, Content: strPtr("  A silver bracelet please ")},
			},
			State: map[string]any{"user_id": "u-42", "workflow": "consultation"},
		}

		prepared, err := input.Prepare()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if prepared.Message != "A silver bracelet please" {
			t.Errorf("Message = %q", prepared.Message)
		}
		if prepared.UserID != "u-42" {
			t.Errorf("UserID = %q, want %q", prepared.UserID, "u-42")
		}

		req := prepared.Request()
		if req.Workflow != "consultation" || req.UserID != "u-42" || req.Message != prepared.Message {
			t.Errorf("Request() = %+v", req)
		}
	})

	t.Run("user ID falls back to thread ID", func(t *testing.T) {
		input := RunAgentInput{
			ThreadID: "thread-9",
			Messages: []events.Message{{ID: "m1", Role: RoleUser, Content: strPtr("hi")}},
		}
		prepared, err := input.Prepare()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if prepared.UserID != "thread-9" {
			t.Errorf("UserID = %q, want thread ID", prepared.UserID)
		}
		if prepared.Workflow != "" {
			t.Errorf("Workflow = %q, want empty", prepared.Workflow)
		}
	})

	t.Run("no user message returns error", func(t *testing.T) {
		for _, msgs := range [][]events.Message{
			nil,
			{},
			{{ID: "m1", Role: RoleAssistant, Content: strPtr("hello")}},
			{{ID: "m1", Role: RoleUser, Content: strPtr("   ")}},
			{{ID: "m1", Role: RoleUser}},
		} {
			input := RunAgentInput{ThreadID: "t", Messages: msgs}
			if _, err := input.Prepare(); err != ErrNoMessages {
				t.Errorf("error = %v, want ErrNoMessages for %d messages", err, len(msgs))
			}
		}
	})

	t.Run("invalid state returns error", func(t *testing.T) {
		input := RunAgentInput{
			Messages: []events.Message{{ID: "m1", Role: RoleUser, Content: strPtr("hi")}},
			State:    map[string]any{"user_id": 42},
		}
		if _, err := input.Prepare(); err == nil {
			t.Error("expected error for non-string user_id")
		}
	})
}

func TestRunAgentInput_JSON(t *testing.T) {
	raw := `{
		"thread_id": "thread-1",
		"run_id": "run-1",
		"messages": [{"id": "m1", "role": "user", "content": "Any vintage rings?"}],
		"state": {"user_id": "u-1"}
	}`
	var input RunAgentInput
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	prepared, err := input.Prepare()
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if prepared.Message != "Any vintage rings?" || prepared.UserID != "u-1" {
		t.Errorf("prepared = %+v", prepared)
	}
}

func TestDecodeState(t *testing.T) {
	st, err := DecodeState[RunState](nil)
	if err != nil || st != (RunState{}) {
		t.Errorf("DecodeState(nil) = %+v, %v", st, err)
	}

	st, err = DecodeState[RunState](map[string]any{"workflow": "trend", "extra": true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Workflow != "trend" {
		t.Errorf("Workflow = %q, want trend", st.Workflow)
	}
}

func TestFromRecords(t *testing.T) {
	msgs := FromRecords([]concierge.ConsultationRecord{
		{ID: "r1", Message: "hi", Response: "hello", CreatedAt: time.Now()},
		{ID: "r2", Message: "rings?", Response: "here are some"},
	})
	if len(msgs) != 4 {
		t.Fatalf("len = %d, want 4", len(msgs))
	}
	if msgs[0].Role != RoleUser || *msgs[0].Content != "hi" {
		t.Errorf("msgs[0] = %+v", msgs[0])
	}
	if msgs[3].Role != RoleAssistant || *msgs[3].Content != "here are some" || msgs[3].ID != "r2-assistant" {
		t.Errorf("msgs[3] = %+v", msgs[3])
	}
	if got := FromRecords(nil); len(got) != 0 {
		t.Errorf("FromRecords(nil) = %v", got)
	}
}
