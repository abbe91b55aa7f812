// Package agui adapts concierge event sequences to the AG-UI protocol.
//
// AG-UI (Agent-User Interface) is an open, event-based protocol that
// standardizes how agents connect to user-facing applications. This package
// converts the five concierge event kinds into AG-UI events so that any
// AG-UI frontend can render a consultation as it streams.
//
// # Overview
//
// This package provides:
//   - [RunAgentInput]: the AG-UI request body, reduced by [RunAgentInput.Prepare]
//     to the user ID, message and optional workflow of one request
//   - [Mapper]: stateful converter handling AG-UI's Start-Content-End pattern
//
// HTTP transport lives in cmd/serve.
//
// # Usage
//
//	prepared, err := input.Prepare()
//	mapper := agui.NewMapper(prepared.ThreadID, prepared.RunID)
//	evs := orch.InvokeStream(ctx, prepared.Request())
//	for ev := range mapper.MapStream(ctx, evs) {
//	    writeEvent(ev)
//	}
//
// # Event Mapping
//
//   - status → STEP_FINISHED named by the status message
//   - first token → TEXT_MESSAGE_START, TEXT_MESSAGE_CONTENT
//   - token → TEXT_MESSAGE_CONTENT
//   - metadata → TEXT_MESSAGE_END (if a message is open), STATE_SNAPSHOT
//   - done → TEXT_MESSAGE_END (if a message is open), RUN_FINISHED
//   - error → RUN_ERROR carrying the user-safe message
//
// # Thread Safety
//
// The Mapper is NOT safe for concurrent use. Each run should have its own
// Mapper instance.
package agui
