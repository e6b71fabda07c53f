package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/config"
)

const heartbeat = 10 * time.Second

var ErrConnectionClosed = errors.New("rabbitmq connection is closed")

// Connection is what the transport needs from a broker connection. It can
// redial after the broker drops it.
type Connection interface {
	Channel() (Channel, error)
	IsClosed() bool
	Reconnect() error
	Close() error
}

// Channel is the subset of *amqp.Channel the transport uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	NotifyClose() <-chan *amqp.Error
	Close() error
}

// Queue carries the server-assigned name of a declared queue.
type Queue struct {
	Name string
}

type amqpConnection struct {
	cfg    config.RabbitMQConfig
	logger logger.Logger

	mu      sync.RWMutex
	conn    *amqp.Connection
	stopped bool
}

func URL(cfg config.RabbitMQConfig) string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", cfg.User, cfg.Password, cfg.Host, cfg.Port)
}

func dial(cfg config.RabbitMQConfig) (*amqp.Connection, error) {
	return amqp.DialConfig(URL(cfg), amqp.Config{
		Heartbeat:  heartbeat,
		Locale:     "en_US",
		Properties: amqp.Table{"connection_name": "tableorder"},
	})
}

// Connect dials the broker and logs whenever the connection is lost.
func Connect(cfg config.RabbitMQConfig, log logger.Logger) (Connection, error) {
	conn, err := dial(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	c := &amqpConnection{cfg: cfg, logger: log, conn: conn}
	go c.watch(conn)
	return c, nil
}

func (c *amqpConnection) watch(conn *amqp.Connection) {
	err, ok := <-conn.NotifyClose(make(chan *amqp.Error, 1))
	if !ok || err == nil {
		return
	}
	c.logger.Error("rabbitmq_connection_lost", "RabbitMQ connection lost", "", map[string]interface{}{
		"host": c.cfg.Host,
		"code": err.Code,
	}, err)
}

func (c *amqpConnection) Channel() (Channel, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.stopped {
		return nil, ErrConnectionClosed
	}
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	return &amqpChannel{ch: ch}, nil
}

func (c *amqpConnection) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stopped || c.conn.IsClosed()
}

// Reconnect dials again when the broker dropped the connection. It is a
// no-op while the current connection is still open.
func (c *amqpConnection) Reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return ErrConnectionClosed
	}
	if !c.conn.IsClosed() {
		return nil
	}

	conn, err := dial(c.cfg)
	if err != nil {
		return fmt.Errorf("failed to reconnect to RabbitMQ: %w", err)
	}
	c.conn = conn
	go c.watch(conn)

	c.logger.Info("rabbitmq_reconnected", "Reconnected to RabbitMQ", "", map[string]interface{}{
		"host": c.cfg.Host,
	})
	return nil
}

func (c *amqpConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopped = true
	if c.conn.IsClosed() {
		return nil
	}
	return c.conn.Close()
}

type amqpChannel struct {
	ch *amqp.Channel
}

func (a *amqpChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	return a.ch.ExchangeDeclare(name, kind, durable, autoDelete, internal, noWait, args)
}

func (a *amqpChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (Queue, error) {
	q, err := a.ch.QueueDeclare(name, durable, autoDelete, exclusive, noWait, args)
	if err != nil {
		return Queue{}, err
	}
	return Queue{Name: q.Name}, nil
}

func (a *amqpChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	return a.ch.QueueBind(name, key, exchange, noWait, args)
}

func (a *amqpChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return a.ch.PublishWithContext(ctx, exchange, key, mandatory, immediate, msg)
}

func (a *amqpChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	return a.ch.Consume(queue, consumer, autoAck, exclusive, noLocal, noWait, args)
}

func (a *amqpChannel) NotifyClose() <-chan *amqp.Error {
	return a.ch.NotifyClose(make(chan *amqp.Error, 1))
}

func (a *amqpChannel) Close() error {
	return a.ch.Close()
}
