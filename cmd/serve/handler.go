package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	aguievents "github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"

	"github.com/spetersoncode/concierge"
	"github.com/spetersoncode/concierge/agui"
	"github.com/spetersoncode/concierge/emitter"
	"github.com/spetersoncode/concierge/event"
	"github.com/spetersoncode/concierge/orchestrator"
	"github.com/spetersoncode/concierge/store"
)

// chatRequest is the body of the chat endpoints.
type chatRequest struct {
	UserID   string `json:"user_id"`
	Message  string `json:"message"`
	Workflow string `json:"workflow,omitempty"`
}

type chatResponse struct {
	Workflow string         `json:"workflow"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
	Statuses []string       `json:"statuses"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// decodeChat parses and checks a chat request body. It writes the error
// response itself and reports whether the request is usable.
func decodeChat(w http.ResponseWriter, r *http.Request) (orchestrator.Request, bool) {
	if r.Method != http.MethodPost {
		slog.Warn("method not allowed", "method", r.Method, "path", r.URL.Path)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return orchestrator.Request{}, false
	}

	var body chatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		slog.Warn("invalid request body", "error", err)
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return orchestrator.Request{}, false
	}
	body.UserID = strings.TrimSpace(body.UserID)
	body.Message = strings.TrimSpace(body.Message)
	body.Workflow = strings.TrimSpace(body.Workflow)
	if body.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return orchestrator.Request{}, false
	}
	// A named workflow may run without a message (trend reports, quiz steps).
	if body.Message == "" && body.Workflow == "" {
		http.Error(w, "message is required unless a workflow is named", http.StatusBadRequest)
		return orchestrator.Request{}, false
	}

	return orchestrator.Request{UserID: body.UserID, Message: body.Message, Workflow: body.Workflow}, true
}

// ChatHandler runs a consultation and answers with a single JSON document.
type ChatHandler struct {
	orch *orchestrator.Orchestrator
}

// NewChatHandler creates a new handler for the given orchestrator.
func NewChatHandler(o *orchestrator.Orchestrator) *ChatHandler {
	return &ChatHandler{orch: o}
}

// ServeHTTP handles POST requests with a chatRequest body.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req, ok := decodeChat(w, r)
	if !ok {
		return
	}

	log := slog.With("user_id", req.UserID, "workflow", req.Workflow)
	log.Info("chat request started")

	resp, err := h.orch.Invoke(r.Context(), req)
	if err != nil {
		var failure *emitter.Failure
		if !errors.As(err, &failure) {
			failure = &emitter.Failure{Code: event.CodeInternal, Message: orchestrator.DefaultErrorMessage, Cause: err}
		}
		log.Warn("chat request failed",
			"duration_ms", time.Since(start).Milliseconds(),
			"code", failure.Code,
		)
		writeJSON(w, statusFor(failure.Code), errorResponse{Error: failure.Code, Message: failure.Message})
		return
	}

	statuses := resp.Statuses
	if statuses == nil {
		statuses = []string{}
	}
	writeJSON(w, http.StatusOK, chatResponse{
		Workflow: resp.Workflow,
		Text:     resp.Text,
		Metadata: resp.Metadata,
		Statuses: statuses,
	})
	log.Info("chat request completed",
		"duration_ms", time.Since(start).Milliseconds(),
		"routed_to", resp.Workflow,
	)
}

// statusFor maps a stable error code to an HTTP status.
func statusFor(code string) int {
	switch code {
	case event.CodeUnknownWorkflow:
		return http.StatusNotFound
	case event.CodeGeneration, event.CodeRetrieval, event.CodeStorage:
		return http.StatusBadGateway
	case event.CodeCancelled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// StreamHandler runs a consultation and streams its events over SSE.
type StreamHandler struct {
	orch *orchestrator.Orchestrator
}

// NewStreamHandler creates a new handler for the given orchestrator.
func NewStreamHandler(o *orchestrator.Orchestrator) *StreamHandler {
	return &StreamHandler{orch: o}
}

// ServeHTTP handles POST requests and writes one SSE frame per event.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req, ok := decodeChat(w, r)
	if !ok {
		return
	}

	log := slog.With("user_id", req.UserID, "workflow", req.Workflow)

	flusher, ok := startSSE(w)
	if !ok {
		log.Error("streaming not supported")
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	log.Info("stream request started")

	var eventCount int
	for ev := range h.orch.InvokeStream(r.Context(), req) {
		eventCount++
		data, err := json.Marshal(ev)
		if err != nil {
			log.Error("failed to serialize event", "error", err, "kind", ev.Kind)
			return
		}
		if err := writeFrame(w, flusher, string(ev.Kind), data); err != nil {
			log.Error("failed to write SSE event", "error", err, "kind", ev.Kind)
			return
		}
	}

	log.Info("stream request completed",
		"duration_ms", time.Since(start).Milliseconds(),
		"events_sent", eventCount,
	)
}

// AGUIHandler handles AG-UI run requests over SSE.
type AGUIHandler struct {
	orch *orchestrator.Orchestrator
}

// NewAGUIHandler creates a new handler for the given orchestrator.
func NewAGUIHandler(o *orchestrator.Orchestrator) *AGUIHandler {
	return &AGUIHandler{orch: o}
}

// ServeHTTP handles POST requests to run the concierge and stream AG-UI
// events via SSE.
func (h *AGUIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	// Only accept POST
	if r.Method != http.MethodPost {
		slog.Warn("method not allowed", "method", r.Method, "path", r.URL.Path)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Parse request body
	var input agui.RunAgentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		slog.Warn("invalid request body", "error", err)
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	// Create request-scoped logger
	log := slog.With(
		"run_id", input.RunID,
		"thread_id", input.ThreadID,
	)

	prepared, err := input.Prepare()
	if err != nil {
		log.Warn("invalid input", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	log.Info("request started", "user_id", prepared.UserID, "workflow", prepared.Workflow)

	flusher, ok := startSSE(w)
	if !ok {
		log.Error("streaming not supported")
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	mapper := agui.NewMapper(prepared.ThreadID, prepared.RunID)

	ctx := r.Context()
	var eventCount int
	for aguiEvent := range mapper.MapStream(ctx, h.orch.InvokeStream(ctx, prepared.Request())) {
		eventCount++
		log.Debug("sending SSE event",
			"event_type", aguiEvent.Type(),
			"event_num", eventCount,
		)

		if err := writeSSE(w, flusher, aguiEvent); err != nil {
			log.Error("failed to write SSE event", "error", err, "event_type", aguiEvent.Type())
			return
		}
	}

	log.Info("request completed",
		"duration_ms", time.Since(start).Milliseconds(),
		"events_sent", eventCount,
	)
}

// HistoryHandler returns a user's past consultations as AG-UI messages.
type HistoryHandler struct {
	repo concierge.Repository
}

// NewHistoryHandler creates a new handler reading from repo.
func NewHistoryHandler(repo concierge.Repository) *HistoryHandler {
	return &HistoryHandler{repo: repo}
}

// ServeHTTP handles GET /api/history?user_id=...&limit=...
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := store.History(r.Context(), h.repo, userID, limit)
	if err != nil {
		slog.Error("failed to load history", "user_id", userID, "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: event.CodeStorage, Message: orchestrator.DefaultErrorMessage})
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Messages []aguievents.Message `json:"messages"`
	}{agui.FromRecords(records)})
}

func startSSE(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return flusher, true
}

// writeSSE writes an AG-UI event in SSE format.
func writeSSE(w http.ResponseWriter, flusher http.Flusher, ev aguievents.Event) error {
	data, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}
	return writeFrame(w, flusher, string(ev.Type()), data)
}

// writeFrame writes SSE format: event: TYPE\ndata: {json}\n\n
func writeFrame(w http.ResponseWriter, flusher http.Flusher, name string, data []byte) error {
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	flusher.Flush()
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// corsMiddleware adds CORS headers for cross-origin frontend requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// healthHandler returns a simple health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
