package interfaces

import (
	"context"
	"time"

	"github.com/YelzhanWeb/tableorder/internal/domain"
)

// EventMessage is the wire form of a dispatched event, one per channel.
type EventMessage struct {
	EventType      domain.EventKind   `json:"event_type"`
	Channel        domain.ChannelID   `json:"channel"`
	OrderID        string             `json:"order_id"`
	TableID        string             `json:"table_id"`
	OrderStatus    domain.OrderStatus `json:"order_status"`
	Scope          domain.Scope       `json:"scope,omitempty"`
	ItemIndex      *int               `json:"item_index,omitempty"`
	PreviousStatus string             `json:"previous_status,omitempty"`
	NewStatus      string             `json:"new_status,omitempty"`
	Timestamp      time.Time          `json:"timestamp"`
}

// ChangeNotice tells a detector that the store changed.
type ChangeNotice struct {
	OrderID   string    `json:"order_id"`
	Timestamp time.Time `json:"timestamp"`
}

type MessageHandler func(ctx context.Context, body []byte) error

// ChannelPublisher sends one message to one channel. Delivery is the
// transport's concern.
type ChannelPublisher interface {
	Publish(ctx context.Context, channel domain.ChannelID, msg EventMessage) error
}

// ChannelSubscriber delivers a channel's messages to handler in publish
// order until ctx is cancelled.
type ChannelSubscriber interface {
	Subscribe(ctx context.Context, channel domain.ChannelID, handler MessageHandler) error
}

// ChangeNotifier pokes whoever runs change detection.
type ChangeNotifier interface {
	NotifyChange(ctx context.Context, orderID string) error
}

// ChangeFeed carries change notices between processes.
type ChangeFeed interface {
	ChangeNotifier
	ConsumeChanges(ctx context.Context, handler MessageHandler) error
}

// Transport is the full messaging surface an adapter provides.
type Transport interface {
	ChannelPublisher
	ChannelSubscriber
	ChangeFeed
	Close() error
}
