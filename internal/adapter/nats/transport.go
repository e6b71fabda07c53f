package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
)

// ChangesSubject carries change notices; event channels use their channel
// id as subject.
const ChangesSubject = "orders.changes"

const pendingMessages = 256

type subscription interface {
	Unsubscribe() error
}

// Conn is the part of *nats.Conn the transport uses.
type Conn interface {
	Publish(subject string, data []byte) error
	ChanSubscribe(subject string, ch chan *nats.Msg) (subscription, error)
	Close()
}

type natsConn struct {
	nc *nats.Conn
}

func (c natsConn) Publish(subject string, data []byte) error {
	return c.nc.Publish(subject, data)
}

func (c natsConn) ChanSubscribe(subject string, ch chan *nats.Msg) (subscription, error) {
	return c.nc.ChanSubscribe(subject, ch)
}

func (c natsConn) Close() {
	c.nc.Close()
}

func Connect(url string, log logger.Logger) (Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("tableorder"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Error("nats_disconnected", "Disconnected from NATS", "", nil, err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats_reconnected", "Reconnected to NATS", "", map[string]interface{}{"url": nc.ConnectedUrl()})
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return natsConn{nc: nc}, nil
}

// Transport publishes each channel on its own subject. NATS keeps publish
// order per connection and subject, which is the FIFO a subscriber needs.
type Transport struct {
	conn   Conn
	logger logger.Logger
	now    func() time.Time
}

func NewTransport(conn Conn, logger logger.Logger) *Transport {
	return &Transport{conn: conn, logger: logger, now: time.Now}
}

func (t *Transport) Publish(_ context.Context, channel domain.ChannelID, msg interfaces.EventMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := t.conn.Publish(string(channel), body); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return nil
}

func (t *Transport) Subscribe(ctx context.Context, channel domain.ChannelID, handler interfaces.MessageHandler) error {
	return t.consume(ctx, string(channel), handler)
}

func (t *Transport) NotifyChange(_ context.Context, orderID string) error {
	body, err := json.Marshal(interfaces.ChangeNotice{OrderID: orderID, Timestamp: t.now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal change notice: %w", err)
	}
	if err := t.conn.Publish(ChangesSubject, body); err != nil {
		return fmt.Errorf("failed to publish change notice: %w", err)
	}
	return nil
}

func (t *Transport) ConsumeChanges(ctx context.Context, handler interfaces.MessageHandler) error {
	return t.consume(ctx, ChangesSubject, func(ctx context.Context, body []byte) error {
		if err := handler(ctx, body); err != nil {
			t.logger.Error("change_handle_failed", "Failed to handle change notice", "", nil, err)
		}
		return nil
	})
}

// consume delivers messages one at a time from a channel subscription, so
// handler sees them in arrival order.
func (t *Transport) consume(ctx context.Context, subject string, handler interfaces.MessageHandler) error {
	msgs := make(chan *nats.Msg, pendingMessages)
	sub, err := t.conn.ChanSubscribe(subject, msgs)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-msgs:
			_ = handler(ctx, msg.Data)
		}
	}
}

func (t *Transport) Close() error {
	t.conn.Close()
	return nil
}

var _ interfaces.Transport = (*Transport)(nil)
