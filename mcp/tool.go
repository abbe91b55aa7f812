// Package mcp provides MCP (Model Context Protocol) integration for the
// concierge.
//
// MCP is a protocol that enables AI assistants to access external tools and data.
// This package provides both directions:
//
//   - Server: expose an orchestrator as MCP tools (consult, classify,
//     list_workflows), so MCP clients like desktop assistants can hold a
//     jewelry consultation.
//   - Client: call a remote concierge MCP server through [Client].
//
// # Serving
//
//	if err := mcp.ServeStdio(orch); err != nil {
//	    log.Fatal(err)
//	}
//
// # Consuming
//
//	c, err := mcp.Dial(ctx, "./concierge-mcp", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//	resp, err := c.Consult(ctx, orchestrator.Request{UserID: "u1", Message: "gold hoops?"})
package mcp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/spetersoncode/concierge/orchestrator"
)

// Tool names.
const (
	ToolConsult       = "consult"
	ToolClassify      = "classify"
	ToolListWorkflows = "list_workflows"
)

func consultTool(workflows []string) mcp.Tool {
	return mcp.NewTool(ToolConsult,
		mcp.WithDescription("Ask the jewelry concierge. The message is routed to a consultation, companion, analytics, trend or taste workflow and the final answer is returned."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("Stable customer identifier")),
		mcp.WithString("message", mcp.Description("The customer's message. Required unless workflow is set")),
		mcp.WithString("workflow", mcp.Description("Run this workflow instead of classifying the message"), mcp.Enum(workflows...)),
	)
}

func classifyTool() mcp.Tool {
	return mcp.NewTool(ToolClassify,
		mcp.WithDescription("Report which workflow a message would be routed to, without running it."),
		mcp.WithString("message", mcp.Required(), mcp.Description("The message to classify")),
	)
}

func listWorkflowsTool() mcp.Tool {
	return mcp.NewTool(ToolListWorkflows,
		mcp.WithDescription("List the available workflows."),
	)
}

// ConsultArgs are the arguments of the consult tool.
type ConsultArgs struct {
	UserID   string `json:"user_id"`
	Message  string `json:"message"`
	Workflow string `json:"workflow,omitempty"`
}

// Request returns the orchestrator request for the arguments.
func (a ConsultArgs) Request() orchestrator.Request {
	return orchestrator.Request{UserID: a.UserID, Message: a.Message, Workflow: a.Workflow}
}

// decodeArgs re-marshals the loosely typed tool arguments into v.
func decodeArgs(args any, v any) error {
	if args == nil {
		args = map[string]any{}
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("failed to marshal arguments: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// ToCallToolResult converts a response to an MCP result: the text first,
// then the metadata as JSON when there is any.
func ToCallToolResult(resp *orchestrator.Response) (*mcp.CallToolResult, error) {
	content := []mcp.Content{mcp.NewTextContent(resp.Text)}
	if len(resp.Metadata) > 0 {
		data, err := json.Marshal(resp.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		content = append(content, mcp.NewTextContent(string(data)))
	}
	return &mcp.CallToolResult{Content: content}, nil
}

// FromCallToolResult converts an MCP consult result back to a response.
// Metadata comes back as generic JSON values.
func FromCallToolResult(result *mcp.CallToolResult) (*orchestrator.Response, error) {
	if result == nil {
		return nil, fmt.Errorf("mcp: empty result")
	}

	var texts []string
	for _, c := range result.Content {
		switch content := c.(type) {
		case mcp.TextContent:
			texts = append(texts, content.Text)
		case *mcp.TextContent:
			texts = append(texts, content.Text)
		}
	}
	if result.IsError {
		return nil, fmt.Errorf("mcp: %s", strings.Join(texts, "\n"))
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("mcp: result has no text content")
	}

	resp := &orchestrator.Response{Text: texts[0]}
	if len(texts) > 1 {
		if err := json.Unmarshal([]byte(texts[1]), &resp.Metadata); err != nil {
			return nil, fmt.Errorf("mcp: decode metadata: %w", err)
		}
	}
	return resp, nil
}
