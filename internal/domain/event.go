package domain

import "time"

// EventKind is the causal role of a dispatched event.
type EventKind string

const (
	EventStatusChanged    EventKind = "order.status_changed"
	EventNewOrderDetected EventKind = "order.new_detected"
)

// StatusChanged is produced by every successful transition.
type StatusChanged struct {
	OrderID        string
	PreviousStatus string
	NewStatus      string
	Scope          Scope
	ItemIndex      *int
	OccurredAt     time.Time
}

// NewOrderDetected announces an order seen for the first time.
type NewOrderDetected struct {
	OrderID    string
	DetectedAt time.Time
}

// Event pairs a causal role with the order it affects.
type Event struct {
	Kind     EventKind
	Order    *Order
	Change   *StatusChanged
	Detected *NewOrderDetected
}

func StatusChangedEvent(order *Order, change StatusChanged) Event {
	return Event{Kind: EventStatusChanged, Order: order, Change: &change}
}

func NewOrderDetectedEvent(order *Order, at time.Time) Event {
	return Event{
		Kind:     EventNewOrderDetected,
		Order:    order,
		Detected: &NewOrderDetected{OrderID: order.ID, DetectedAt: at},
	}
}

// ReachesBilling reports an order-level change into done or rejected.
func (e Event) ReachesBilling() bool {
	if e.Kind != EventStatusChanged || e.Change == nil || e.Change.Scope != ScopeOrder {
		return false
	}
	return OrderStatus(e.Change.NewStatus).IsTerminal()
}

// StatusLog converts the change into its audit entry.
func (c StatusChanged) StatusLog() StatusLog {
	return StatusLog{
		OrderID:        c.OrderID,
		Scope:          c.Scope,
		ItemIndex:      c.ItemIndex,
		PreviousStatus: c.PreviousStatus,
		NewStatus:      c.NewStatus,
		ChangedAt:      c.OccurredAt,
	}
}
