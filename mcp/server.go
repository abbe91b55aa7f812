package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/spetersoncode/concierge/emitter"
	"github.com/spetersoncode/concierge/orchestrator"
)

// Concierge is the orchestrator surface the server exposes.
type Concierge interface {
	Invoke(ctx context.Context, req orchestrator.Request) (*orchestrator.Response, error)
	Route(req orchestrator.Request) string
	Workflows() []string
}

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	name    string
	version string
}

// WithName sets the server name reported to MCP clients.
func WithName(name string) ServerOption {
	return func(c *serverConfig) {
		c.name = name
	}
}

// WithVersion sets the server version reported to MCP clients.
func WithVersion(version string) ServerOption {
	return func(c *serverConfig) {
		c.version = version
	}
}

// NewServer creates an MCP server exposing the concierge as tools.
//
// Example:
//
//	mcpServer := mcp.NewServer(orch,
//	    mcp.WithName("jewelry-concierge"),
//	    mcp.WithVersion("1.0.0"),
//	)
//
//	server.ServeStdio(mcpServer)
func NewServer(c Concierge, opts ...ServerOption) *server.MCPServer {
	cfg := &serverConfig{
		name:    "concierge-mcp-server",
		version: "1.0.0",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	s := server.NewMCPServer(
		cfg.name,
		cfg.version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(consultTool(c.Workflows()), consultHandler(c))
	s.AddTool(classifyTool(), classifyHandler(c))
	s.AddTool(listWorkflowsTool(), func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		data, err := json.Marshal(c.Workflows())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	})

	return s
}

func consultHandler(c Concierge) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args ConsultArgs
		if err := decodeArgs(req.Params.Arguments, &args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if args.UserID == "" || (args.Message == "" && args.Workflow == "") {
			return mcp.NewToolResultError("user_id and message are required (message may be empty when workflow is set)"), nil
		}

		resp, err := c.Invoke(ctx, args.Request())
		if err != nil {
			var failure *emitter.Failure
			if errors.As(err, &failure) {
				return mcp.NewToolResultError(fmt.Sprintf("%s (%s)", failure.Message, failure.Code)), nil
			}
			return mcp.NewToolResultError(err.Error()), nil
		}

		result, err := ToCallToolResult(resp)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return result, nil
	}
}

func classifyHandler(c Concierge) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args struct {
			Message string `json:"message"`
		}
		if err := decodeArgs(req.Params.Arguments, &args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(c.Route(orchestrator.Request{Message: args.Message})), nil
	}
}

// ServeStdio starts an MCP server that communicates over stdin/stdout.
// This is the standard transport for MCP servers invoked as subprocesses.
func ServeStdio(c Concierge, opts ...ServerOption) error {
	return server.ServeStdio(NewServer(c, opts...))
}
