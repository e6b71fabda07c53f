package domain

import (
	"fmt"
	"regexp"
	"time"
)

const (
	maxItems        = 50
	maxItemQuantity = 99
	maxNoteLength   = 500
)

var tableIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Order represents a table's order entity
type Order struct {
	ID        string
	TableID   string
	Status    OrderStatus
	Items     []OrderItem
	Note      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderItem represents a line item in an order
type OrderItem struct {
	Name     string
	Quantity int
	Status   ItemStatus
	Note     string
}

// NewOrder creates a pending order with every item queued
func NewOrder(id, tableID string, items []OrderItem, note string, now time.Time) (*Order, error) {
	order := &Order{
		ID:        id,
		TableID:   tableID,
		Status:    OrderPending,
		Items:     make([]OrderItem, len(items)),
		Note:      note,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i, item := range items {
		item.Status = ItemQueued
		order.Items[i] = item
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}
	return order, nil
}

// Validate applies creation rules
func (o *Order) Validate() error {
	if o.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidOrder)
	}
	if err := ValidateTableID(o.TableID); err != nil {
		return err
	}
	if len(o.Items) < 1 || len(o.Items) > maxItems {
		return fmt.Errorf("%w: order must have 1-%d items", ErrInvalidOrder, maxItems)
	}
	if len(o.Note) > maxNoteLength {
		return fmt.Errorf("%w: note must not exceed %d characters", ErrInvalidOrder, maxNoteLength)
	}
	for i, item := range o.Items {
		if item.Name == "" {
			return fmt.Errorf("%w: items[%d].name is required", ErrInvalidOrder, i)
		}
		if item.Quantity < 1 || item.Quantity > maxItemQuantity {
			return fmt.Errorf("%w: items[%d].quantity must be 1-%d", ErrInvalidOrder, i, maxItemQuantity)
		}
	}
	return nil
}

// ValidateTableID checks that a table id is usable as a channel token.
func ValidateTableID(tableID string) error {
	if !tableIDPattern.MatchString(tableID) {
		return fmt.Errorf("%w: table id must match %s", ErrInvalidOrder, tableIDPattern)
	}
	return nil
}

// Clone returns a deep copy so callers can mutate without aliasing items.
func (o *Order) Clone() *Order {
	c := *o
	c.Items = make([]OrderItem, len(o.Items))
	copy(c.Items, o.Items)
	return &c
}

// ItemStatuses returns the status of every item, in item order.
func (o *Order) ItemStatuses() []ItemStatus {
	statuses := make([]ItemStatus, len(o.Items))
	for i, item := range o.Items {
		statuses[i] = item.Status
	}
	return statuses
}

func (o *Order) allItems(pred func(ItemStatus) bool) bool {
	for _, item := range o.Items {
		if !pred(item.Status) {
			return false
		}
	}
	return true
}

func (o *Order) anyItem(pred func(ItemStatus) bool) bool {
	for _, item := range o.Items {
		if pred(item.Status) {
			return true
		}
	}
	return false
}

// Settled reports whether every item is ready or rejected.
func (o *Order) Settled() bool {
	return o.allItems(ItemStatus.IsSettled)
}
