package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/providentiaww/jira-assistant-mcp/cmd/jira-cli/app"
	"github.com/providentiaww/jira-assistant-mcp/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config.LoadEnv(ctx, ".env")
	app.Execute(ctx)
}
