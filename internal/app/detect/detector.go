package detect

import "github.com/YelzhanWeb/tableorder/internal/domain"

// KnownIDs is the set of order ids already announced. A value is never
// modified after it is built, so it can be shared and compared freely.
type KnownIDs struct {
	ids map[string]struct{}
}

func NewKnownIDs(ids ...string) KnownIDs {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return KnownIDs{ids: set}
}

func (k KnownIDs) Contains(id string) bool {
	_, ok := k.ids[id]
	return ok
}

func (k KnownIDs) Len() int {
	return len(k.ids)
}

// DetectNew returns the orders of snapshot whose id is not in known, in
// snapshot order, and known extended with those ids. Novelty is decided by
// id alone; timestamps play no part, so late-arriving old orders are still
// reported, once. An id repeated inside snapshot is reported once.
func DetectNew(snapshot []*domain.Order, known KnownIDs) ([]*domain.Order, KnownIDs) {
	var fresh []*domain.Order
	var added map[string]struct{}

	for _, order := range snapshot {
		if order == nil || known.Contains(order.ID) {
			continue
		}
		if _, dup := added[order.ID]; dup {
			continue
		}
		if added == nil {
			added = make(map[string]struct{})
		}
		added[order.ID] = struct{}{}
		fresh = append(fresh, order)
	}

	if len(added) == 0 {
		return nil, known
	}

	merged := make(map[string]struct{}, len(known.ids)+len(added))
	for id := range known.ids {
		merged[id] = struct{}{}
	}
	for id := range added {
		merged[id] = struct{}{}
	}
	return fresh, KnownIDs{ids: merged}
}
