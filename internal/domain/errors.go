package domain

import (
	"errors"
	"fmt"
)

var (
	ErrIllegalTransition   = errors.New("illegal status transition")
	ErrPrecedenceViolation = errors.New("order status contradicts item statuses")
	ErrNotFound            = errors.New("order not found")
	ErrUnknownAudience     = errors.New("unknown audience")
	ErrInvalidOrder        = errors.New("invalid order")
	ErrItemIndex           = errors.New("item index out of range")
)

// TransitionError describes a rejected status change with enough detail
// for a caller to explain it: what was current and what was attempted.
type TransitionError struct {
	Err       error
	OrderID   string
	Scope     Scope
	ItemIndex int
	Current   string
	Attempted string
	Reason    string
}

func (e *TransitionError) Error() string {
	subject := "order " + e.OrderID
	if e.Scope == ScopeItem {
		subject = fmt.Sprintf("item %d of order %s", e.ItemIndex, e.OrderID)
	}
	msg := fmt.Sprintf("%s: %s cannot move from %q to %q", e.Err, subject, e.Current, e.Attempted)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}
