package mcp

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spetersoncode/concierge/emitter"
	"github.com/spetersoncode/concierge/event"
	"github.com/spetersoncode/concierge/orchestrator"
)

type fakeConcierge struct {
	mu       sync.Mutex
	requests []orchestrator.Request
	resp     *orchestrator.Response
	err      error
}

func (f *fakeConcierge) Invoke(_ context.Context, req orchestrator.Request) (*orchestrator.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeConcierge) Route(req orchestrator.Request) string {
	if strings.Contains(req.Message, "trend") {
		return "trend"
	}
	return "consultation"
}

func (f *fakeConcierge) Workflows() []string {
	return []string{"analytics", "companion", "consultation", "taste", "trend"}
}

func connect(t *testing.T, c Concierge) *client.Client {
	t.Helper()
	s := NewServer(c, WithName("test-server"), WithVersion("1.0.0"))

	mc, err := client.NewInProcessClient(s)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, mc.Start(ctx))
	t.Cleanup(func() { mc.Close() })

	_, err = mc.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			Capabilities:    mcp.ClientCapabilities{},
			ClientInfo: mcp.Implementation{
				Name:    "test-client",
				Version: "1.0.0",
			},
		},
	})
	require.NoError(t, err)
	return mc
}

func callTool(t *testing.T, c *client.Client, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	result, err := c.CallTool(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	})
	require.NoError(t, err)
	return result
}

func firstText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return text.Text
}

func TestServerIntegration(t *testing.T) {
	t.Run("exposes concierge tools", func(t *testing.T) {
		c := connect(t, &fakeConcierge{})

		result, err := c.ListTools(context.Background(), mcp.ListToolsRequest{})
		require.NoError(t, err)

		names := make([]string, len(result.Tools))
		for i, tool := range result.Tools {
			names[i] = tool.Name
		}
		assert.ElementsMatch(t, []string{ToolConsult, ToolClassify, ToolListWorkflows}, names)
	})

	t.Run("consult returns text and metadata", func(t *testing.T) {
		fake := &fakeConcierge{resp: &orchestrator.Response{
			Workflow: "companion",
			Text:     "Hello! Looking for something special?",
			Metadata: map[string]any{"persona": "Aurora"},
		}}
		c := connect(t, fake)

		result := callTool(t, c, ToolConsult, map[string]any{
			"user_id":  "u1",
			"message":  "hi there",
			"workflow": "companion",
		})
		assert.False(t, result.IsError)
		require.Len(t, result.Content, 2)
		assert.Equal(t, "Hello! Looking for something special?", firstText(t, result))

		resp, err := FromCallToolResult(result)
		require.NoError(t, err)
		assert.Equal(t, "Aurora", resp.Metadata["persona"])

		require.Len(t, fake.requests, 1)
		assert.Equal(t, orchestrator.Request{UserID: "u1", Message: "hi there", Workflow: "companion"}, fake.requests[0])
	})

	t.Run("consult without metadata has a single content", func(t *testing.T) {
		c := connect(t, &fakeConcierge{resp: &orchestrator.Response{Text: "ok"}})
		result := callTool(t, c, ToolConsult, map[string]any{"user_id": "u1", "message": "hi"})
		assert.Len(t, result.Content, 1)
	})

	t.Run("consult requires user and message", func(t *testing.T) {
		fake := &fakeConcierge{resp: &orchestrator.Response{Text: "ok"}}
		c := connect(t, fake)

		result := callTool(t, c, ToolConsult, map[string]any{"message": "hi"})
		assert.True(t, result.IsError)
		assert.Contains(t, firstText(t, result), "required")
		assert.Empty(t, fake.requests)
	})

	t.Run("named workflow runs without a message", func(t *testing.T) {
		fake := &fakeConcierge{resp: &orchestrator.Response{Workflow: "trend", Text: ""}}
		c := connect(t, fake)

		result := callTool(t, c, ToolConsult, map[string]any{"user_id": "u1", "workflow": "trend"})
		assert.False(t, result.IsError)
		require.Len(t, fake.requests, 1)
		assert.Equal(t, orchestrator.Request{UserID: "u1", Workflow: "trend"}, fake.requests[0])
	})

	t.Run("workflow failure returns the safe message", func(t *testing.T) {
		c := connect(t, &fakeConcierge{err: &emitter.Failure{
			Code:    event.CodeRetrieval,
			Message: "Sorry, something went wrong.",
			Cause:   errors.New("index offline"),
		}})

		result := callTool(t, c, ToolConsult, map[string]any{"user_id": "u1", "message": "rings?"})
		assert.True(t, result.IsError)
		text := firstText(t, result)
		assert.Contains(t, text, "Sorry, something went wrong.")
		assert.Contains(t, text, event.CodeRetrieval)
		assert.NotContains(t, text, "index offline")
	})

	t.Run("classify reports the route", func(t *testing.T) {
		c := connect(t, &fakeConcierge{})
		result := callTool(t, c, ToolClassify, map[string]any{"message": "what's the trend this season?"})
		assert.False(t, result.IsError)
		assert.Equal(t, "trend", firstText(t, result))
	})

	t.Run("list_workflows returns JSON names", func(t *testing.T) {
		c := connect(t, &fakeConcierge{})
		result := callTool(t, c, ToolListWorkflows, nil)
		assert.JSONEq(t, `["analytics","companion","consultation","taste","trend"]`, firstText(t, result))
	})
}

func TestClient(t *testing.T) {
	ctx := context.Background()

	newClient := func(t *testing.T, c Concierge) *Client {
		t.Helper()
		mc, err := client.NewInProcessClient(NewServer(c))
		require.NoError(t, err)
		cl, err := NewClient(ctx, mc)
		require.NoError(t, err)
		t.Cleanup(func() { cl.Close() })
		return cl
	}

	t.Run("consult round trip", func(t *testing.T) {
		cl := newClient(t, &fakeConcierge{resp: &orchestrator.Response{
			Text:     "Try the rose gold hoops.",
			Metadata: map[string]any{"has_profile": true},
		}})

		resp, err := cl.Consult(ctx, orchestrator.Request{UserID: "u1", Message: "earrings?", Workflow: "consultation"})
		require.NoError(t, err)
		assert.Equal(t, "Try the rose gold hoops.", resp.Text)
		assert.Equal(t, "consultation", resp.Workflow)
		assert.Equal(t, true, resp.Metadata["has_profile"])
	})

	t.Run("consult failure becomes an error", func(t *testing.T) {
		cl := newClient(t, &fakeConcierge{err: &emitter.Failure{Code: event.CodeGeneration, Message: "Sorry"}})
		_, err := cl.Consult(ctx, orchestrator.Request{UserID: "u1", Message: "hi"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Sorry")
	})

	t.Run("classify and workflows", func(t *testing.T) {
		cl := newClient(t, &fakeConcierge{})

		route, err := cl.Classify(ctx, "trend report please")
		require.NoError(t, err)
		assert.Equal(t, "trend", route)

		names, err := cl.Workflows(ctx)
		require.NoError(t, err)
		assert.Len(t, names, 5)
		assert.Contains(t, names, "taste")
	})
}

func TestFromCallToolResult(t *testing.T) {
	t.Run("nil result", func(t *testing.T) {
		_, err := FromCallToolResult(nil)
		assert.Error(t, err)
	})

	t.Run("no text content", func(t *testing.T) {
		_, err := FromCallToolResult(&mcp.CallToolResult{})
		assert.Error(t, err)
	})

	t.Run("bad metadata", func(t *testing.T) {
		_, err := FromCallToolResult(&mcp.CallToolResult{Content: []mcp.Content{
			mcp.NewTextContent("hi"),
			mcp.NewTextContent("not json"),
		}})
		assert.Error(t, err)
	})
}
