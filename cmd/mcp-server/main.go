package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/providentiaww/jira-assistant-mcp/cmd/mcp-server/auth"
	"github.com/providentiaww/jira-assistant-mcp/cmd/mcp-server/handlers"
	"github.com/providentiaww/jira-assistant-mcp/internal/assistant"
	"github.com/providentiaww/jira-assistant-mcp/internal/config"
	"github.com/providentiaww/jira-assistant-mcp/internal/logging"
	"github.com/providentiaww/jira-assistant-mcp/internal/storage"
	"github.com/providentiaww/jira-assistant-mcp/pkg/mcp"
)

const ServiceVersion = "v1.0.0"

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
	logging.StartService(logger, "MCPServer", ServiceVersion)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	callService, closeCaller, err := handlers.NewServiceCaller(cfg, logger)
	if err != nil {
		return err
	}
	defer closeCaller()

	historyStore, err := storage.NewHistoryStore(ctx, storage.Options{
		DatabaseURL: cfg.Storage.DatabaseURL,
		RedisURL:    cfg.Storage.RedisURL,
		HistoryFile: cfg.Storage.HistoryFile,
		Limit:       cfg.Assistant.HistoryLimit,
		TTL:         cfg.Storage.HistoryTTL,
	})
	if err != nil {
		return err
	}
	defer historyStore.Close()

	toolset := handlers.NewToolset(callService, cfg.Jira, nil)
	server := mcp.NewServer("jira-assistant", ServiceVersion)
	toolset.Register(server)

	dispatcher := assistant.NewDispatcher(mcp.NewLocalCaller(toolset.Handle),
		assistant.WithTimeout(cfg.Assistant.CallTimeout),
		assistant.WithDefaultProject(cfg.Assistant.DefaultProject),
		assistant.WithLogger(logger))
	chatHandler := handlers.NewChatHandler(dispatcher, historyStore, cfg.Assistant.HistoryLimit, logger)
	restToolHandler := handlers.NewRestToolHandler(toolset)

	authMiddleware := auth.RequireAuth(auth.NewJWTAuth(cfg.Auth.JWTSecret, ""), cfg.Auth.ServiceTokenHash)
	if !authMiddleware.Enabled() {
		logger.Warn("authentication not configured (CHAT_JWT_SECRET and MCP_SERVICE_TOKEN_HASH unset), running in development mode")
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := historyStore.Ping(r.Context()); err != nil {
			http.Error(w, "history store unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	sseServer := mcp.NewSSEServer(server, toolset.Handle, "/message")
	r.With(authMiddleware.Handler).Get("/sse", sseServer.HandleSSE)
	r.With(authMiddleware.Handler).Post("/message", sseServer.HandleMessage)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Logger)
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(authMiddleware.Handler)
		restToolHandler.RegisterRoutes(r)
		chatHandler.RegisterRoutes(r)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			slog.String("addr", srv.Addr),
			slog.String("sse", "/sse"),
			slog.String("api", "/api"),
			slog.String("transport", cfg.Transport.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
