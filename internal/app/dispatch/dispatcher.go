package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
)

type Dispatcher struct {
	publisher interfaces.ChannelPublisher
	logger    logger.Logger
}

func NewDispatcher(publisher interfaces.ChannelPublisher, logger logger.Logger) *Dispatcher {
	return &Dispatcher{publisher: publisher, logger: logger}
}

// Audiences resolves who must hear about event, in a fixed order: admin,
// kitchen, cashier (billing-relevant changes only), then the order's table.
func Audiences(event domain.Event) []domain.Audience {
	audiences := []domain.Audience{domain.Admin, domain.Kitchen}
	if event.ReachesBilling() {
		audiences = append(audiences, domain.Cashier)
	}
	if event.Order != nil && event.Order.TableID != "" {
		audiences = append(audiences, domain.Table(event.Order.TableID))
	}
	return audiences
}

// Message renders event for one channel.
func Message(event domain.Event, channel domain.ChannelID) interfaces.EventMessage {
	msg := interfaces.EventMessage{
		EventType: event.Kind,
		Channel:   channel,
	}
	if event.Order != nil {
		msg.OrderID = event.Order.ID
		msg.TableID = event.Order.TableID
		msg.OrderStatus = event.Order.Status
	}
	switch {
	case event.Change != nil:
		msg.OrderID = event.Change.OrderID
		msg.Scope = event.Change.Scope
		msg.ItemIndex = event.Change.ItemIndex
		msg.PreviousStatus = event.Change.PreviousStatus
		msg.NewStatus = event.Change.NewStatus
		msg.Timestamp = event.Change.OccurredAt
	case event.Detected != nil:
		msg.OrderID = event.Detected.OrderID
		msg.Timestamp = event.Detected.DetectedAt
	}
	return msg
}

// Dispatch publishes one message per resolved audience. Every audience is
// attempted even when an earlier publish fails; the failures are returned
// joined and are not retried.
func (d *Dispatcher) Dispatch(ctx context.Context, event domain.Event) error {
	if event.Order == nil {
		return fmt.Errorf("failed to dispatch %s: event has no order", event.Kind)
	}

	var errs []error
	for _, audience := range Audiences(event) {
		channel := domain.ChannelFor(audience)
		if err := d.publisher.Publish(ctx, channel, Message(event, channel)); err != nil {
			d.logger.Error("publish_failed", "Failed to publish order event", logger.RequestID(ctx), map[string]interface{}{
				"channel":    channel,
				"order_id":   event.Order.ID,
				"event_type": event.Kind,
			}, err)
			errs = append(errs, fmt.Errorf("failed to publish to %s: %w", channel, err))
		}
	}

	d.logger.Debug("event_dispatched", "Order event dispatched", logger.RequestID(ctx), map[string]interface{}{
		"order_id":   event.Order.ID,
		"event_type": event.Kind,
		"failed":     len(errs),
	})
	return errors.Join(errs...)
}

var _ interfaces.EventDispatcher = (*Dispatcher)(nil)
