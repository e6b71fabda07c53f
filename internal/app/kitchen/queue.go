package kitchen

import (
	"iter"
	"slices"

	"github.com/YelzhanWeb/tableorder/internal/domain"
)

// OrderQueue yields the orders the kitchen is working on: cooking orders
// first, then accepted ones, each group oldest first. Ties fall back to id
// so the sequence is stable for a given input. Every range filters and
// sorts orders afresh, so status changes between ranges are seen.
func OrderQueue(orders []*domain.Order) iter.Seq[*domain.Order] {
	return func(yield func(*domain.Order) bool) {
		for _, o := range kitchenWork(orders) {
			if !yield(o) {
				return
			}
		}
	}
}

func kitchenWork(orders []*domain.Order) []*domain.Order {
	work := make([]*domain.Order, 0, len(orders))
	for _, o := range orders {
		if o != nil && (o.Status == domain.OrderCooking || o.Status == domain.OrderAccepted) {
			work = append(work, o)
		}
	}

	slices.SortStableFunc(work, func(a, b *domain.Order) int {
		if ra, rb := rank(a.Status), rank(b.Status); ra != rb {
			return ra - rb
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return work
}

func rank(s domain.OrderStatus) int {
	if s == domain.OrderCooking {
		return 0
	}
	return 1
}
