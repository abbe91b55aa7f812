// Package main serves the jewelry concierge over HTTP: plain JSON, a
// kind-tagged SSE stream and the AG-UI protocol for frontends like
// CopilotKit.
//
// Configuration is via environment variables (a .env file is read if present):
//
//	CONCIERGE_PORT               - Server port (default: 8000)
//	CONCIERGE_LOG_LEVEL          - debug, info, warn or error (default: info)
//	CONCIERGE_PROVIDER           - anthropic, openai, google or vertex (required)
//	CONCIERGE_MODEL              - Model override (optional)
//	CONCIERGE_EMBEDDING_PROVIDER - openai, google or vertex (default: openai)
//	CONCIERGE_STORE              - memory, sqlite or redis (default: memory)
//	CONCIERGE_SQLITE_PATH        - SQLite database file (default: concierge.db)
//	CONCIERGE_REDIS_ADDR         - Redis address (default: localhost:6379)
//	CONCIERGE_CATALOG            - JSON product catalog to index at startup
//	CONCIERGE_ROUTING_TABLE      - YAML routing table (optional)
//	CONCIERGE_RETRIEVER          - memory or qdrant (default: memory)
//	QDRANT_HOST, QDRANT_PORT     - Qdrant gRPC endpoint (default: localhost:6334)
//	QDRANT_COLLECTION            - Qdrant collection (default: jewelry_products)
//	CONCIERGE_HOROSCOPE_URL      - Horoscope API base URL (default: ohmanda.com)
//	CONCIERGE_STEP_TIMEOUT       - Per-step timeout (default: 1m)
//	CONCIERGE_CHUNK_SIZE         - Characters per token event (default: 3)
//	CONCIERGE_TYPING_DELAY       - Pause between token events (default: 0)
//	ANTHROPIC_API_KEY, OPENAI_API_KEY, GOOGLE_API_KEY, VERTEX_PROJECT, VERTEX_LOCATION
//
// Usage:
//
//	CONCIERGE_PROVIDER=anthropic CONCIERGE_CATALOG=catalog.json go run ./cmd/serve
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spetersoncode/concierge/internal/app"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.WithLogger(logger))
	if err != nil {
		slog.Error("failed to build concierge", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      routes(a),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // SSE needs no write timeout
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("concierge server starting",
		"addr", server.Addr,
		"provider", cfg.Provider,
		"store", cfg.Store,
		"workflows", a.Orchestrator.Workflows(),
	)

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

func routes(a *app.App) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/chat", corsMiddleware(NewChatHandler(a.Orchestrator)))
	mux.Handle("/api/chat/stream", corsMiddleware(NewStreamHandler(a.Orchestrator)))
	mux.Handle("/api/agui", corsMiddleware(NewAGUIHandler(a.Orchestrator)))
	mux.Handle("/api/history", corsMiddleware(NewHistoryHandler(a.Repository)))
	mux.Handle("/api/customer/{user_id}/profile", corsMiddleware(NewProfileHandler(a.Repository)))
	mux.Handle("/api/products/search", corsMiddleware(NewSearchHandler(a.Catalog)))
	mux.Handle("/metrics", a.Metrics.Handler())
	mux.HandleFunc("/health", healthHandler)
	return mux
}
