package domain

import "time"

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:  {OrderAccepted, OrderRejected},
	OrderAccepted: {OrderCooking, OrderRejected},
	OrderCooking:  {OrderDone, OrderRejected},
	OrderRejected: {},
	OrderDone:     {},
}

var itemTransitions = map[ItemStatus][]ItemStatus{
	ItemQueued:   {ItemCooking, ItemRejected},
	ItemCooking:  {ItemReady, ItemRejected},
	ItemReady:    {},
	ItemRejected: {},
}

// CanTransitionTo checks the order-level edge table only.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CanTransitionTo checks the item-level edge table only.
func (s ItemStatus) CanTransitionTo(next ItemStatus) bool {
	for _, allowed := range itemTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ApplyItemTransition moves one item to next and returns the updated copy of
// the order with the changes it produced. The input order is left untouched.
//
// An item entering cooking while the order is accepted also moves the order to
// cooking; the item change comes first in the returned slice.
func ApplyItemTransition(order *Order, itemIndex int, next ItemStatus, now time.Time) (*Order, []StatusChanged, error) {
	if itemIndex < 0 || itemIndex >= len(order.Items) {
		return nil, nil, ErrItemIndex
	}
	current := order.Items[itemIndex].Status

	if !next.IsValid() || !current.CanTransitionTo(next) {
		return nil, nil, itemError(order, itemIndex, ErrIllegalTransition, current, next, "")
	}
	if order.Status != OrderAccepted && order.Status != OrderCooking {
		return nil, nil, itemError(order, itemIndex, ErrPrecedenceViolation, current, next,
			"order is "+string(order.Status))
	}

	at := clampTime(order, now)
	updated := order.Clone()
	updated.Items[itemIndex].Status = next
	updated.UpdatedAt = at

	idx := itemIndex
	changes := []StatusChanged{{
		OrderID:        order.ID,
		PreviousStatus: string(current),
		NewStatus:      string(next),
		Scope:          ScopeItem,
		ItemIndex:      &idx,
		OccurredAt:     at,
	}}

	if next == ItemCooking && order.Status == OrderAccepted {
		updated.Status = OrderCooking
		changes = append(changes, StatusChanged{
			OrderID:        order.ID,
			PreviousStatus: string(OrderAccepted),
			NewStatus:      string(OrderCooking),
			Scope:          ScopeOrder,
			OccurredAt:     at,
		})
	}

	return updated, changes, nil
}

// ApplyOrderTransition moves the order to next when the edge exists and the
// item aggregate agrees with it.
func ApplyOrderTransition(order *Order, next OrderStatus, now time.Time) (*Order, StatusChanged, error) {
	current := order.Status

	if !next.IsValid() || !current.CanTransitionTo(next) {
		return nil, StatusChanged{}, orderError(order, ErrIllegalTransition, current, next, "")
	}
	if reason := precedence(order, next); reason != "" {
		return nil, StatusChanged{}, orderError(order, ErrPrecedenceViolation, current, next, reason)
	}

	at := clampTime(order, now)
	updated := order.Clone()
	updated.Status = next
	updated.UpdatedAt = at

	return updated, StatusChanged{
		OrderID:        order.ID,
		PreviousStatus: string(current),
		NewStatus:      string(next),
		Scope:          ScopeOrder,
		OccurredAt:     at,
	}, nil
}

// precedence returns why next contradicts the items, or "" when it does not.
func precedence(order *Order, next OrderStatus) string {
	switch next {
	case OrderAccepted:
		if !order.allItems(func(s ItemStatus) bool { return s == ItemQueued }) {
			return "items already left the queue"
		}
	case OrderCooking:
		if !order.anyItem(func(s ItemStatus) bool { return s == ItemCooking || s == ItemReady }) {
			return "no item has started cooking"
		}
	case OrderDone:
		if !order.Settled() {
			return "items are still queued or cooking"
		}
	case OrderRejected:
		// From pending the caller may reject outright. Later on, rejection is
		// only consistent once the kitchen rejected every item.
		if order.Status != OrderPending && !order.allItems(func(s ItemStatus) bool { return s == ItemRejected }) {
			return "not every item is rejected"
		}
	}
	return ""
}

func clampTime(order *Order, now time.Time) time.Time {
	if now.Before(order.CreatedAt) {
		return order.CreatedAt
	}
	return now
}

func orderError(order *Order, err error, current, next OrderStatus, reason string) error {
	return &TransitionError{
		Err:       err,
		OrderID:   order.ID,
		Scope:     ScopeOrder,
		Current:   string(current),
		Attempted: string(next),
		Reason:    reason,
	}
}

func itemError(order *Order, index int, err error, current, next ItemStatus, reason string) error {
	return &TransitionError{
		Err:       err,
		OrderID:   order.ID,
		Scope:     ScopeItem,
		ItemIndex: index,
		Current:   string(current),
		Attempted: string(next),
		Reason:    reason,
	}
}
