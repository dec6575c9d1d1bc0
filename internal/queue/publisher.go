package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type connChannel struct {
	*amqp.Channel
	conn *amqp.Connection
}

func (c connChannel) Close() error {
	_ = c.Channel.Close()
	return c.conn.Close()
}

// Publisher publishes UserChangedEvents.  The broker connection is opened
// lazily and reopened after a failed publish.
type Publisher struct {
	exchange string
	origin   string
	log      *slog.Logger
	open     func() (channel, error)

	mu sync.Mutex
	ch channel
}

// NewPublisher creates a publisher for the broker at url.
func NewPublisher(url, exchange, origin string, log *slog.Logger) *Publisher {
	if exchange == "" {
		exchange = DefaultExchange
	}
	return &Publisher{
		exchange: exchange,
		origin:   origin,
		log:      log,
		open: func() (channel, error) {
			conn, err := amqp.Dial(url)
			if err != nil {
				return nil, fmt.Errorf("dial broker: %w", err)
			}
			ch, err := conn.Channel()
			if err != nil {
				_ = conn.Close()
				return nil, fmt.Errorf("open channel: %w", err)
			}
			return connChannel{Channel: ch, conn: conn}, nil
		},
	}
}

func (p *Publisher) channel() (channel, error) {
	if p.ch != nil {
		return p.ch, nil
	}
	ch, err := p.open()
	if err != nil {
		return nil, err
	}
	if err := ch.ExchangeDeclare(p.exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}
	p.ch = ch
	return ch, nil
}

// PublishUserChanged announces that user id changed.
func (p *Publisher) PublishUserChanged(ctx context.Context, id uint64) error {
	body, err := json.Marshal(UserChangedEvent{UserID: id, Origin: p.origin, ChangedAt: time.Now().UTC()})
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, p.exchange, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Transient,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		_ = ch.Close()
		p.ch = nil
		return fmt.Errorf("publish user %d changed: %w", id, err)
	}
	p.log.Debug("user change published", "user_id", id)
	return nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return nil
	}
	err := p.ch.Close()
	p.ch = nil
	return err
}
