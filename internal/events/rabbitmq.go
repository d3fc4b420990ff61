package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// RabbitPublisher publishes to a durable topic exchange and redials when
// the connection drops.
type RabbitPublisher struct {
	url      string
	exchange string
	log      logrus.FieldLogger

	mu   sync.Mutex
	conn *amqp091.Connection
	ch   *amqp091.Channel
}

// Connect dials RabbitMQ with retries and declares the exchange.
func Connect(ctx context.Context, url, exchange string, log logrus.FieldLogger) (*RabbitPublisher, error) {
	p := &RabbitPublisher{url: url, exchange: exchange, log: log}

	var err error
	for i := 0; i < 10; i++ {
		if err = p.dial(); err == nil {
			log.WithField("exchange", exchange).Info("connected to rabbitmq")
			return p, nil
		}
		log.WithError(err).Warnf("rabbitmq not ready, retrying... (%d/10)", i+1)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
}

// dial must be called with mu held or before the publisher is shared.
func (p *RabbitPublisher) dial() error {
	conn, err := amqp091.Dial(p.url)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}
	if p.conn != nil && !p.conn.IsClosed() {
		p.conn.Close()
	}
	p.conn, p.ch = conn, ch
	return nil
}

func (p *RabbitPublisher) PublishJobStatus(ctx context.Context, e JobStatusEvent) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}
	msg := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    e.OccurredAt,
		MessageId:    e.JobID + ":" + e.To,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil || p.ch.IsClosed() {
		if err := p.dial(); err != nil {
			return fmt.Errorf("rabbitmq reconnect: %w", err)
		}
	}
	err = p.ch.PublishWithContext(ctx, p.exchange, e.RoutingKey(), false, false, msg)
	if errors.Is(err, amqp091.ErrClosed) {
		// one retry on a fresh channel
		if derr := p.dial(); derr != nil {
			return fmt.Errorf("rabbitmq reconnect: %w", derr)
		}
		err = p.ch.PublishWithContext(ctx, p.exchange, e.RoutingKey(), false, false, msg)
	}
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}
