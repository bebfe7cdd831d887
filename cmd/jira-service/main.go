package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/providentiaww/jira-assistant-mcp/cmd/jira-service/handlers"
	"github.com/providentiaww/jira-assistant-mcp/internal/broker"
	"github.com/providentiaww/jira-assistant-mcp/internal/config"
	"github.com/providentiaww/jira-assistant-mcp/internal/logging"
)

const ServiceVersion = "v1.0.0"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config.yaml")
	prefetch := flag.Int("prefetch", 8, "requests handled concurrently")
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
	logging.StartService(logger, "JiraService", ServiceVersion)

	service, err := handlers.NewServiceFromConfig(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize jira service", slog.Any("error", err))
		os.Exit(1)
	}

	err = broker.Serve(ctx, cfg.Transport.AMQPURL, cfg.Transport.Queue, service.HandleMessage, broker.ServeOptions{
		Prefetch: *prefetch,
		Logger:   logger,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("jira service stopped")
}
