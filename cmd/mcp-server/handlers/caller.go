package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	jiraservice "github.com/providentiaww/jira-assistant-mcp/cmd/jira-service/handlers"
	"github.com/providentiaww/jira-assistant-mcp/internal/broker"
	"github.com/providentiaww/jira-assistant-mcp/internal/config"
	"github.com/providentiaww/jira-assistant-mcp/internal/models"
)

// ServiceCaller delivers one request to the Jira service. An error means the
// request never got an answer.
type ServiceCaller func(ctx context.Context, req models.JiraRequest) (*models.JiraResponse, error)

// DirectCaller runs the Jira service in process
func DirectCaller(svc *jiraservice.Service) ServiceCaller {
	return func(ctx context.Context, req models.JiraRequest) (*models.JiraResponse, error) {
		resp := svc.Handle(ctx, req)
		return &resp, nil
	}
}

// AMQPCaller sends requests to the Jira service over RabbitMQ RPC and waits
// at most timeout for each reply.
func AMQPCaller(client *broker.Client, timeout time.Duration) ServiceCaller {
	return func(ctx context.Context, req models.JiraRequest) (*models.JiraResponse, error) {
		reqBytes, err := json.Marshal(req)
		if err != nil {
			return nil, err
		}

		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		responseBytes, err := client.Call(ctx, reqBytes)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("RPC timeout: jira service did not respond: %w", err)
			}
			return nil, err
		}

		var response models.JiraResponse
		if err := json.Unmarshal(responseBytes, &response); err != nil {
			return nil, fmt.Errorf("malformed jira service reply: %w", err)
		}
		return &response, nil
	}
}

// NewServiceCaller builds the caller selected by cfg.Transport.Mode. The
// returned close function releases the broker connection, if any.
func NewServiceCaller(cfg config.Config, logger *slog.Logger) (ServiceCaller, func() error, error) {
	switch cfg.Transport.Mode {
	case config.TransportAMQP:
		client, err := broker.Dial(cfg.Transport.AMQPURL, cfg.Transport.Queue, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("jira requests go through rabbitmq", slog.String("queue", cfg.Transport.Queue))
		return AMQPCaller(client, cfg.Transport.Timeout), client.Close, nil
	case config.TransportDirect, "":
		svc, err := jiraservice.NewServiceFromConfig(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return DirectCaller(svc), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown JIRA_TRANSPORT %q (want %s or %s)", cfg.Transport.Mode, config.TransportDirect, config.TransportAMQP)
	}
}
