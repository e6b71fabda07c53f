package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/config"
	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
)

type publishing struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	mu         sync.Mutex
	published  []publishing
	bindings   []string
	deliveries chan amqp.Delivery
	closed     chan *amqp.Error
	failNext   error
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		deliveries: make(chan amqp.Delivery, 16),
		closed:     make(chan *amqp.Error, 1),
	}
}

func (c *fakeChannel) ExchangeDeclare(string, string, bool, bool, bool, bool, amqp.Table) error {
	return nil
}

func (c *fakeChannel) QueueDeclare(string, bool, bool, bool, bool, amqp.Table) (Queue, error) {
	return Queue{Name: "amq.gen-test"}, nil
}

func (c *fakeChannel) QueueBind(_, key, exchange string, _ bool, _ amqp.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings = append(c.bindings, exchange+"/"+key)
	return nil
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failNext != nil {
		err := c.failNext
		c.failNext = nil
		return err
	}
	c.published = append(c.published, publishing{exchange: exchange, key: key, msg: msg})
	return nil
}

func (c *fakeChannel) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return c.deliveries, nil
}

func (c *fakeChannel) Close() error { return nil }

func (c *fakeChannel) NotifyClose() <-chan *amqp.Error { return c.closed }

type fakeConnection struct {
	mu       sync.Mutex
	channels []*fakeChannel
	opened   int
}

func (c *fakeConnection) Channel() (Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := c.channels[c.opened%len(c.channels)]
	c.opened++
	return ch, nil
}

func (c *fakeConnection) Close() error { return nil }

func (c *fakeConnection) IsClosed() bool { return false }

func (c *fakeConnection) Reconnect() error { return nil }

func TestPublishRoutesByChannel(t *testing.T) {
	ch := newFakeChannel()
	conn := &fakeConnection{channels: []*fakeChannel{ch}}
	tr := NewTransport(conn, logger.Nop())
	ctx := context.Background()

	require.NoError(t, tr.Publish(ctx, "orders.table.7", interfaces.EventMessage{OrderID: "o-1"}))
	require.NoError(t, tr.Publish(ctx, "orders.kitchen", interfaces.EventMessage{OrderID: "o-1"}))

	require.Len(t, ch.published, 2)
	require.Equal(t, EventsExchange, ch.published[0].exchange)
	require.Equal(t, "orders.table.7", ch.published[0].key)
	require.Equal(t, "orders.kitchen", ch.published[1].key)
	require.Equal(t, "application/json", ch.published[0].msg.ContentType)
	require.Equal(t, 1, conn.opened, "publishing channel is reused")

	var msg interfaces.EventMessage
	require.NoError(t, json.Unmarshal(ch.published[0].msg.Body, &msg))
	require.Equal(t, "o-1", msg.OrderID)
}

func TestPublishReopensChannelAfterFailure(t *testing.T) {
	ch := newFakeChannel()
	ch.failNext = errors.New("channel/connection is not open")
	conn := &fakeConnection{channels: []*fakeChannel{ch}}
	tr := NewTransport(conn, logger.Nop())

	require.Error(t, tr.Publish(context.Background(), "orders.admin", interfaces.EventMessage{}))
	require.NoError(t, tr.Publish(context.Background(), "orders.admin", interfaces.EventMessage{}))
	require.Equal(t, 2, conn.opened)
}

func TestNotifyChangeUsesFanout(t *testing.T) {
	ch := newFakeChannel()
	tr := NewTransport(&fakeConnection{channels: []*fakeChannel{ch}}, logger.Nop())

	require.NoError(t, tr.NotifyChange(context.Background(), "o-3"))

	require.Len(t, ch.published, 1)
	require.Equal(t, ChangesExchange, ch.published[0].exchange)
	var notice interfaces.ChangeNotice
	require.NoError(t, json.Unmarshal(ch.published[0].msg.Body, &notice))
	require.Equal(t, "o-3", notice.OrderID)
}

func TestSubscribeDeliversUntilCancelled(t *testing.T) {
	ch := newFakeChannel()
	tr := NewTransport(&fakeConnection{channels: []*fakeChannel{ch}}, logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	got := make(chan string, 2)
	done := make(chan error, 1)
	go func() {
		done <- tr.Subscribe(ctx, domain.ChannelFor(domain.Cashier), func(_ context.Context, body []byte) error {
			got <- string(body)
			return nil
		})
	}()

	ch.deliveries <- amqp.Delivery{Body: []byte("first")}
	ch.deliveries <- amqp.Delivery{Body: []byte("second")}
	require.Equal(t, "first", <-got)
	require.Equal(t, "second", <-got)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("subscribe did not return")
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()
	require.Equal(t, []string{EventsExchange + "/orders.cashier"}, ch.bindings)
}

func TestSubscribeReconnectsAfterChannelClose(t *testing.T) {
	first, second := newFakeChannel(), newFakeChannel()
	tr := NewTransport(&fakeConnection{channels: []*fakeChannel{first, second}}, logger.Nop())
	tr.retry = time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 1)
	go func() {
		_ = tr.Subscribe(ctx, "orders.admin", func(_ context.Context, body []byte) error {
			got <- string(body)
			return nil
		})
	}()

	first.closed <- amqp.ErrClosed
	second.deliveries <- amqp.Delivery{Body: []byte("after")}

	select {
	case body := <-got:
		require.Equal(t, "after", body)
	case <-time.After(time.Second):
		t.Fatal("no delivery after reconnect")
	}
}

func TestURL(t *testing.T) {
	require.Equal(t, "amqp://guest:secret@mq:5672/", URL(config.RabbitMQConfig{Host: "mq", Port: 5672, User: "guest", Password: "secret"}))
}
