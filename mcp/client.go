package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/spetersoncode/concierge/orchestrator"
)

// Client calls the tools of a remote concierge MCP server.
type Client struct {
	client *client.Client
}

// Dial starts a concierge MCP server subprocess and connects to it via
// stdio. The command is the path to the server executable, and args are
// passed to it.
func Dial(ctx context.Context, command string, env []string, args ...string) (*Client, error) {
	c, err := client.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP client: %w", err)
	}
	return NewClient(ctx, c)
}

// DialSSE connects to a concierge MCP server via SSE.
func DialSSE(ctx context.Context, baseURL string) (*Client, error) {
	c, err := client.NewSSEMCPClient(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSE MCP client: %w", err)
	}
	return NewClient(ctx, c)
}

// NewClient starts and initializes an existing MCP client.
func NewClient(ctx context.Context, c *client.Client) (*Client, error) {
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start MCP client: %w", err)
	}

	_, err := c.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			Capabilities:    mcp.ClientCapabilities{},
			ClientInfo: mcp.Implementation{
				Name:    "concierge-mcp-client",
				Version: "1.0.0",
			},
		},
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize MCP session: %w", err)
	}

	return &Client{client: c}, nil
}

// Close closes the connection to the MCP server.
func (c *Client) Close() error {
	return c.client.Close()
}

// Consult runs a consultation on the remote server.
func (c *Client) Consult(ctx context.Context, req orchestrator.Request) (*orchestrator.Response, error) {
	args := map[string]any{
		"user_id": req.UserID,
		"message": req.Message,
	}
	if req.Workflow != "" {
		args["workflow"] = req.Workflow
	}

	result, err := c.call(ctx, ToolConsult, args)
	if err != nil {
		return nil, err
	}
	resp, err := FromCallToolResult(result)
	if err != nil {
		return nil, err
	}
	resp.Workflow = req.Workflow
	return resp, nil
}

// Classify returns the workflow the remote server would route message to.
func (c *Client) Classify(ctx context.Context, message string) (string, error) {
	result, err := c.call(ctx, ToolClassify, map[string]any{"message": message})
	if err != nil {
		return "", err
	}
	resp, err := FromCallToolResult(result)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Workflows lists the workflows of the remote server.
func (c *Client) Workflows(ctx context.Context) ([]string, error) {
	result, err := c.call(ctx, ToolListWorkflows, nil)
	if err != nil {
		return nil, err
	}
	resp, err := FromCallToolResult(result)
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal([]byte(resp.Text), &names); err != nil {
		return nil, fmt.Errorf("mcp: decode workflows: %w", err)
	}
	return names, nil
}

func (c *Client) call(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	result, err := c.client.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mcp: call %s: %w", name, err)
	}
	return result, nil
}
