package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// replyQueue is RabbitMQ's direct reply-to pseudo queue
const replyQueue = "amq.rabbitmq.reply-to"

// ErrClosed is returned for calls made after the connection went away
var ErrClosed = errors.New("broker connection closed")

// Client publishes RPC requests to one queue and waits for the replies
type Client struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string

	pubMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan []byte
	closed  bool
	done    chan struct{}

	logger *slog.Logger
}

// Dial connects to url and prepares RPC calls to queue
func Dial(url, queue string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := declareQueue(ch, queue); err != nil {
		conn.Close()
		return nil, err
	}

	// Direct reply-to requires consuming before the first publish.
	replies, err := ch.Consume(replyQueue, "", true, true, false, false, nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("consume %s: %w", replyQueue, err)
	}

	c := &Client{
		conn:    conn,
		ch:      ch,
		queue:   queue,
		pending: make(map[string]chan []byte),
		done:    make(chan struct{}),
		logger:  logger,
	}
	go c.dispatch(replies)
	return c, nil
}

func declareQueue(ch *amqp.Channel, queue string) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return q, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return q, nil
}

func (c *Client) dispatch(replies <-chan amqp.Delivery) {
	defer c.shutdown()
	for d := range replies {
		c.mu.Lock()
		waiter, ok := c.pending[d.CorrelationId]
		delete(c.pending, d.CorrelationId)
		c.mu.Unlock()

		if !ok {
			c.logger.Warn("dropping reply with unknown correlation id", slog.String("correlation_id", d.CorrelationId))
			continue
		}
		waiter <- d.Body
	}
}

func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}

// Call publishes body and blocks until the reply arrives or ctx ends
func (c *Client) Call(ctx context.Context, body []byte) ([]byte, error) {
	id := uuid.NewString()
	waiter := make(chan []byte, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.pending[id] = waiter
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	c.pubMu.Lock()
	err := c.ch.PublishWithContext(ctx, "", c.queue, false, false, amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: id,
		ReplyTo:       replyQueue,
		Body:          body,
	})
	c.pubMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("publish to %s: %w", c.queue, err)
	}

	select {
	case reply := <-waiter:
		return reply, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrClosed
	}
}

// Close tears down the channel and connection
func (c *Client) Close() error {
	c.ch.Close()
	return c.conn.Close()
}
