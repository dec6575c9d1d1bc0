package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const maxBackoff = 30 * time.Second

// Evictor drops local cache entries for a user.
type Evictor interface {
	Evict(ctx context.Context, id uint64) error
}

// Consumer binds a private queue to the user change exchange and evicts
// every announced user from the local caches.
type Consumer struct {
	url      string
	exchange string
	origin   string
	evictor  Evictor
	log      *slog.Logger
}

func NewConsumer(url, exchange, origin string, evictor Evictor, log *slog.Logger) *Consumer {
	if exchange == "" {
		exchange = DefaultExchange
	}
	return &Consumer{url: url, exchange: exchange, origin: origin, evictor: evictor, log: log}
}

// Run consumes until ctx is cancelled, reconnecting with capped
// exponential backoff.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err == nil {
			backoff = time.Second
			err = c.consume(ctx, conn)
			_ = conn.Close()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("user change consumer disconnected", "error", err, "retry_in", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < maxBackoff {
			backoff = min(backoff*2, maxBackoff)
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.ExchangeDeclare(c.exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	// Every instance needs every event, so each gets its own queue.
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", c.exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	msgs, err := ch.Consume(q.Name, "", false, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	c.log.Info("user change consumer started", "exchange", c.exchange, "queue", q.Name)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(ctx, d.Body); err != nil {
				c.log.Error("user change handling failed", "error", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, body []byte) error {
	ev, err := decodeEvent(body)
	if err != nil {
		return err
	}
	if ev.Origin != "" && ev.Origin == c.origin {
		return nil
	}
	if err := c.evictor.Evict(ctx, ev.UserID); err != nil {
		return fmt.Errorf("evict user %d: %w", ev.UserID, err)
	}
	c.log.Debug("user evicted on remote change", "user_id", ev.UserID, "origin", ev.Origin)
	return nil
}
