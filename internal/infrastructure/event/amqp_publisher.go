package event

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/customersvc/backend/internal/domain/shared"
	"github.com/customersvc/backend/internal/infrastructure/config"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const exchangeKindTopic = "topic"

// Channel is the subset of *amqp.Channel the publisher needs
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher forwards domain events to a topic exchange. It is registered
// on the in-memory bus as a wildcard handler.
type AMQPPublisher struct {
	ch       Channel
	conn     *amqp.Connection
	exchange string
	prefix   string
	logger   *zap.Logger

	mu     sync.Mutex
	closed bool
}

// DialAMQP connects to the broker at cfg.AMQPURL and returns a publisher on a fresh channel
func DialAMQP(cfg config.EventConfig, logger *zap.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to AMQP broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open AMQP channel: %w", err)
	}

	p, err := NewAMQPPublisher(ch, cfg, logger)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// NewAMQPPublisher declares the durable topic exchange on ch and returns a publisher
func NewAMQPPublisher(ch Channel, cfg config.EventConfig, logger *zap.Logger) (*AMQPPublisher, error) {
	if err := ch.ExchangeDeclare(cfg.Exchange, exchangeKindTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}

	return &AMQPPublisher{
		ch:       ch,
		exchange: cfg.Exchange,
		prefix:   cfg.RoutingPrefix,
		logger:   logger.Named("amqp_publisher"),
	}, nil
}

// RoutingKey returns the key an event of eventType is published under
func (p *AMQPPublisher) RoutingKey(eventType string) string {
	if p.prefix == "" {
		return eventType
	}
	return p.prefix + "." + eventType
}

// Handle publishes event as a persistent JSON message
func (p *AMQPPublisher) Handle(ctx context.Context, event shared.DomainEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("amqp publisher closed")
	}

	body, err := marshalEvent(event)
	if err != nil {
		return err
	}

	key := p.RoutingKey(event.EventType())
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.EventID().String(),
		Timestamp:    event.OccurredAt(),
		Type:         event.EventType(),
		Body:         body,
	}
	if err := p.ch.Publish(p.exchange, key, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", key, err)
	}

	p.logger.Debug("event published",
		zap.String("routing_key", key),
		zap.String("event_id", event.EventID().String()),
	)
	return nil
}

// EventTypes returns nil so the publisher receives every event
func (p *AMQPPublisher) EventTypes() []string {
	return nil
}

// Close closes the channel and, when dialled by DialAMQP, the connection
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	err := p.ch.Close()
	if p.conn != nil {
		err = errors.Join(err, p.conn.Close())
	}
	return err
}

var _ shared.EventHandler = (*AMQPPublisher)(nil)
