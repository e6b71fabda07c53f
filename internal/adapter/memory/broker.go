package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
)

const (
	changesChannel  domain.ChannelID = "orders.changes"
	subscriberQueue                  = 256
)

var (
	ErrBrokerClosed      = errors.New("broker is closed")
	ErrSubscriberEvicted = errors.New("subscriber queue overflowed")
)

type subscriber struct {
	inbox   chan []byte
	done    chan struct{}
	evicted chan struct{}
	once    sync.Once
	// lossy subscribers drop messages on overflow instead of being evicted.
	lossy bool
}

func (s *subscriber) evict() {
	s.once.Do(func() { close(s.evicted) })
}

// Broker is an in-process transport. Each subscriber gets its own FIFO
// queue and Publish never waits on a subscriber. A subscriber whose queue is
// full is detached and its Subscribe returns ErrSubscriberEvicted, so the
// ones that stay attached see every message in order.
type Broker struct {
	mu     sync.RWMutex
	subs   map[domain.ChannelID]map[*subscriber]struct{}
	closed chan struct{}
	once   sync.Once
	now    func() time.Time
}

func NewBroker() *Broker {
	return &Broker{
		subs:   make(map[domain.ChannelID]map[*subscriber]struct{}),
		closed: make(chan struct{}),
		now:    time.Now,
	}
}

func (b *Broker) Publish(ctx context.Context, channel domain.ChannelID, msg interfaces.EventMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal event message: %w", err)
	}
	return b.deliver(ctx, channel, body)
}

// Subscribe feeds handler until ctx is cancelled or the broker closes.
// Handler errors do not stop delivery.
func (b *Broker) Subscribe(ctx context.Context, channel domain.ChannelID, handler interfaces.MessageHandler) error {
	return b.subscribe(ctx, channel, handler, false)
}

func (b *Broker) subscribe(ctx context.Context, channel domain.ChannelID, handler interfaces.MessageHandler, lossy bool) error {
	sub := &subscriber{
		inbox:   make(chan []byte, subscriberQueue),
		done:    make(chan struct{}),
		evicted: make(chan struct{}),
		lossy:   lossy,
	}

	b.mu.Lock()
	select {
	case <-b.closed:
		b.mu.Unlock()
		return ErrBrokerClosed
	default:
	}
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[*subscriber]struct{})
	}
	b.subs[channel][sub] = struct{}{}
	b.mu.Unlock()

	defer func() {
		close(sub.done)
		b.detach(channel, sub)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-b.closed:
			return nil
		case <-sub.evicted:
			return ErrSubscriberEvicted
		case body := <-sub.inbox:
			_ = handler(ctx, body)
		}
	}
}

func (b *Broker) NotifyChange(ctx context.Context, orderID string) error {
	body, err := json.Marshal(interfaces.ChangeNotice{OrderID: orderID, Timestamp: b.now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal change notice: %w", err)
	}
	return b.deliver(ctx, changesChannel, body)
}

// ConsumeChanges never gets evicted: a notice dropped on overflow is
// covered by the next one or by the next poll.
func (b *Broker) ConsumeChanges(ctx context.Context, handler interfaces.MessageHandler) error {
	return b.subscribe(ctx, changesChannel, handler, true)
}

// Subscribers reports how many subscribers are attached to channel.
func (b *Broker) Subscribers(channel domain.ChannelID) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[channel])
}

func (b *Broker) Close() error {
	b.once.Do(func() { close(b.closed) })
	return nil
}

func (b *Broker) deliver(ctx context.Context, channel domain.ChannelID, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	select {
	case <-b.closed:
		b.mu.RUnlock()
		return ErrBrokerClosed
	default:
	}
	targets := make([]*subscriber, 0, len(b.subs[channel]))
	for sub := range b.subs[channel] {
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		select {
		case sub.inbox <- body:
		case <-sub.done:
		default:
			if !sub.lossy {
				b.detach(channel, sub)
				sub.evict()
			}
		}
	}
	return nil
}

func (b *Broker) detach(channel domain.ChannelID, sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs[channel], sub)
	if len(b.subs[channel]) == 0 {
		delete(b.subs, channel)
	}
}

var _ interfaces.Transport = (*Broker)(nil)
