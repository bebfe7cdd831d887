package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// HandlerFunc answers one request body with a reply body
type HandlerFunc func(ctx context.Context, body []byte) []byte

// ServeOptions tunes the consumer loop
type ServeOptions struct {
	// Prefetch bounds unacknowledged deliveries and so the number of
	// requests handled at once.
	Prefetch int
	Logger   *slog.Logger
}

// Serve consumes queue on url and replies to every delivery that carries a
// ReplyTo. It returns when ctx is cancelled or the connection drops.
func Serve(ctx context.Context, url, queue string, handler HandlerFunc, opts ServeOptions) error {
	if opts.Prefetch <= 0 {
		opts.Prefetch = 8
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if _, err := declareQueue(ch, queue); err != nil {
		return err
	}
	if err := ch.Qos(opts.Prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queue, err)
	}

	logger.Info("consuming requests", slog.String("queue", queue), slog.Int("prefetch", opts.Prefetch))

	var (
		wg    sync.WaitGroup
		pubMu sync.Mutex
	)
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed", queue)
			}
			wg.Add(1)
			go func(d amqp.Delivery) {
				defer wg.Done()
				reply := handler(ctx, d.Body)

				if d.ReplyTo != "" {
					pubMu.Lock()
					err := ch.PublishWithContext(ctx, "", d.ReplyTo, false, false, amqp.Publishing{
						ContentType:   "application/json",
						CorrelationId: d.CorrelationId,
						Body:          reply,
					})
					pubMu.Unlock()
					if err != nil {
						logger.Error("publishing reply failed",
							slog.String("correlation_id", d.CorrelationId),
							slog.Any("error", err))
					}
				}
				if err := d.Ack(false); err != nil {
					logger.Error("ack failed", slog.Any("error", err))
				}
			}(d)
		}
	}
}
