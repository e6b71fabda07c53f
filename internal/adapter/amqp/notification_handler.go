package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
)

// NotificationHandler prints each event reaching a subscribed channel.
type NotificationHandler struct {
	out    io.Writer
	logger logger.Logger
}

func NewNotificationHandler(out io.Writer, logger logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		out:    out,
		logger: logger,
	}
}

func (h *NotificationHandler) HandleNotification(ctx context.Context, body []byte) error {
	var msg interfaces.EventMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		h.logger.Error("message_parse_failed", "Failed to parse notification", "", nil, err)
		return err
	}

	h.logger.Debug("notification_received", fmt.Sprintf("Received %s for order %s", msg.EventType, msg.OrderID),
		msg.OrderID, map[string]interface{}{
			"channel":    msg.Channel,
			"order_id":   msg.OrderID,
			"new_status": msg.NewStatus,
		})

	_, err := fmt.Fprintln(h.out, Describe(msg))
	return err
}

// Describe renders msg as one human-readable line.
func Describe(msg interfaces.EventMessage) string {
	switch msg.EventType {
	case domain.EventNewOrderDetected:
		return fmt.Sprintf("[%s] New order %s at table %s", msg.Channel, msg.OrderID, msg.TableID)
	case domain.EventStatusChanged:
		if msg.Scope == domain.ScopeItem && msg.ItemIndex != nil {
			return fmt.Sprintf("[%s] Order %s item %d: '%s' -> '%s'",
				msg.Channel, msg.OrderID, *msg.ItemIndex, msg.PreviousStatus, msg.NewStatus)
		}
		return fmt.Sprintf("[%s] Order %s: '%s' -> '%s'", msg.Channel, msg.OrderID, msg.PreviousStatus, msg.NewStatus)
	default:
		return fmt.Sprintf("[%s] %s for order %s", msg.Channel, msg.EventType, msg.OrderID)
	}
}
