package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
)

const (
	// EventsExchange routes each event message by its channel id.
	EventsExchange = "orders_events"
	// ChangesExchange fans change notices out to every detector.
	ChangesExchange = "orders_changes"

	reconnectDelay = 5 * time.Second
)

// Transport carries channel messages over RabbitMQ. A single publishing
// channel is reused so messages leave in the order Publish was called.
type Transport struct {
	conn   Connection
	logger logger.Logger
	now    func() time.Time
	retry  time.Duration

	mu    sync.Mutex
	pubCh Channel
}

func NewTransport(conn Connection, logger logger.Logger) *Transport {
	return &Transport{
		conn:   conn,
		logger: logger,
		now:    time.Now,
		retry:  reconnectDelay,
	}
}

func (t *Transport) Publish(ctx context.Context, channel domain.ChannelID, msg interfaces.EventMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return t.publish(ctx, EventsExchange, "topic", string(channel), body)
}

func (t *Transport) NotifyChange(ctx context.Context, orderID string) error {
	body, err := json.Marshal(interfaces.ChangeNotice{OrderID: orderID, Timestamp: t.now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal change notice: %w", err)
	}
	return t.publish(ctx, ChangesExchange, "fanout", "", body)
}

func (t *Transport) publish(ctx context.Context, exchange, kind, key string, body []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch, err := t.publishChannel()
	if err != nil {
		return err
	}

	if err := ch.ExchangeDeclare(exchange, kind, true, false, false, false, nil); err != nil {
		t.dropPublishChannel()
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	err = ch.PublishWithContext(ctx, exchange, key, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    t.now().UTC(),
		Body:         body,
	})
	if err != nil {
		t.dropPublishChannel()
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// publishChannel must be called with mu held.
func (t *Transport) publishChannel() (Channel, error) {
	if t.pubCh != nil {
		return t.pubCh, nil
	}
	if t.conn.IsClosed() {
		if err := t.conn.Reconnect(); err != nil {
			return nil, err
		}
	}
	ch, err := t.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	t.pubCh = ch
	return ch, nil
}

func (t *Transport) dropPublishChannel() {
	if t.pubCh != nil {
		_ = t.pubCh.Close()
		t.pubCh = nil
	}
}

// Subscribe binds a private queue to channel's routing key and feeds
// handler until ctx is cancelled, reconnecting after broker failures.
func (t *Transport) Subscribe(ctx context.Context, channel domain.ChannelID, handler interfaces.MessageHandler) error {
	return t.consumeLoop(ctx, "subscriber "+string(channel), func(ch Channel) (<-chan amqp.Delivery, error) {
		return t.bindPrivateQueue(ch, EventsExchange, "topic", string(channel))
	}, func(ctx context.Context, msg amqp.Delivery) {
		_ = handler(ctx, msg.Body)
	})
}

// ConsumeChanges feeds change notices to handler; failed notices are
// dropped since the next poll covers them.
func (t *Transport) ConsumeChanges(ctx context.Context, handler interfaces.MessageHandler) error {
	return t.consumeLoop(ctx, "change feed", func(ch Channel) (<-chan amqp.Delivery, error) {
		return t.bindPrivateQueue(ch, ChangesExchange, "fanout", "")
	}, func(ctx context.Context, msg amqp.Delivery) {
		if err := handler(ctx, msg.Body); err != nil {
			t.logger.Error("change_handle_failed", "Failed to handle change notice", "", nil, err)
		}
	})
}

func (t *Transport) bindPrivateQueue(ch Channel, exchange, kind, key string) (<-chan amqp.Delivery, error) {
	if err := ch.ExchangeDeclare(exchange, kind, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, key, exchange, false, nil); err != nil {
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	msgs, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}
	return msgs, nil
}

func (t *Transport) consumeLoop(
	ctx context.Context,
	name string,
	setup func(Channel) (<-chan amqp.Delivery, error),
	handle func(context.Context, amqp.Delivery),
) error {
	for {
		err := t.consumeOnce(ctx, setup, handle)
		if ctx.Err() != nil {
			return nil
		}

		t.logger.Error("consumer_disconnected", fmt.Sprintf("RabbitMQ %s disconnected, reconnecting in %s", name, t.retry), "", nil, err)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(t.retry):
		}

		if t.conn.IsClosed() {
			if err := t.conn.Reconnect(); err != nil {
				t.logger.Error("reconnect_failed", "Failed to reconnect to RabbitMQ", "", nil, err)
			}
		}
	}
}

func (t *Transport) consumeOnce(
	ctx context.Context,
	setup func(Channel) (<-chan amqp.Delivery, error),
	handle func(context.Context, amqp.Delivery),
) error {
	ch, err := t.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	closeChan := ch.NotifyClose()

	msgs, err := setup(ch)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-closeChan:
			if err != nil {
				return fmt.Errorf("channel closed: %w", err)
			}
			return errors.New("channel closed gracefully")

		case msg, ok := <-msgs:
			if !ok {
				return errors.New("messages channel closed")
			}
			handle(ctx, msg)
		}
	}
}

func (t *Transport) Close() error {
	t.mu.Lock()
	t.dropPublishChannel()
	t.mu.Unlock()
	return t.conn.Close()
}

var _ interfaces.Transport = (*Transport)(nil)
