package domain

import "time"

// OrderStatus is the aggregate lifecycle state of an order.
type OrderStatus string

const (
	OrderPending  OrderStatus = "pending"
	OrderAccepted OrderStatus = "accepted"
	OrderRejected OrderStatus = "rejected"
	OrderCooking  OrderStatus = "cooking"
	OrderDone     OrderStatus = "done"
)

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderPending, OrderAccepted, OrderRejected, OrderCooking, OrderDone:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further order-level transition exists.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderRejected || s == OrderDone
}

// ItemStatus is the lifecycle state of a single line item.
type ItemStatus string

const (
	ItemQueued   ItemStatus = "queued"
	ItemCooking  ItemStatus = "cooking"
	ItemReady    ItemStatus = "ready"
	ItemRejected ItemStatus = "rejected"
)

func (s ItemStatus) IsValid() bool {
	switch s {
	case ItemQueued, ItemCooking, ItemReady, ItemRejected:
		return true
	default:
		return false
	}
}

// IsSettled reports whether the kitchen is finished with the item.
func (s ItemStatus) IsSettled() bool {
	return s == ItemReady || s == ItemRejected
}

// Scope tells whether a status change applies to the whole order or to one item.
type Scope string

const (
	ScopeOrder Scope = "order"
	ScopeItem  Scope = "item"
)

// StatusLog is one audit entry of an applied transition.
type StatusLog struct {
	OrderID        string
	Scope          Scope
	ItemIndex      *int
	PreviousStatus string
	NewStatus      string
	ChangedAt      time.Time
}
