package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/providentiaww/jira-assistant-mcp/cmd/mcp-server/handlers"
	"github.com/providentiaww/jira-assistant-mcp/internal/config"
	"github.com/providentiaww/jira-assistant-mcp/internal/logging"
	"github.com/providentiaww/jira-assistant-mcp/pkg/mcp"
)

const ServiceVersion = "1.0.0"

// stdout carries the protocol, so every log line goes to stderr.
func main() {
	configPath := flag.String("config", "config.yaml", "path to config.yaml")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config.LoadEnv(ctx, "../../.env")
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := logging.New(cfg.Log.Format, cfg.Log.Level)
	logging.StartService(logger, "MCPStdio", ServiceVersion)

	callService, closeCaller, err := handlers.NewServiceCaller(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize jira caller", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeCaller()

	toolset := handlers.NewToolset(callService, cfg.Jira, nil)
	server := mcp.NewServer("jira-assistant", ServiceVersion)
	toolset.Register(server)

	if err := server.Start(ctx, toolset.Handle); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("stdio server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
