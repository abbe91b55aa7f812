// Command mcp serves the jewelry concierge as MCP tools over stdio.
//
// MCP clients (like Claude Desktop or other AI assistants) can discover the
// consult, classify and list_workflows tools and hold a consultation. It
// reads the same environment as cmd/serve; logs go to stderr since stdout
// carries the protocol.
//
// Usage:
//
//	CONCIERGE_PROVIDER=anthropic go run ./cmd/mcp
//
// Configuration for Claude Desktop (~/Library/Application Support/Claude/claude_desktop_config.json):
//
//	{
//	    "mcpServers": {
//	        "concierge": {
//	            "command": "go",
//	            "args": ["run", "./cmd/mcp"],
//	            "cwd": "/path/to/concierge",
//	            "env": {"CONCIERGE_PROVIDER": "anthropic", "CONCIERGE_STORE": "sqlite"}
//	        }
//	    }
//	}
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spetersoncode/concierge/internal/app"
	"github.com/spetersoncode/concierge/mcp"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	a, err := app.New(context.Background(), cfg, app.WithLogger(logger))
	if err != nil {
		slog.Error("failed to build concierge", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := mcp.ServeStdio(a.Orchestrator,
		mcp.WithName("jewelry-concierge"),
		mcp.WithVersion("1.0.0"),
	); err != nil {
		slog.Error("mcp server stopped", "error", err)
	}
}
