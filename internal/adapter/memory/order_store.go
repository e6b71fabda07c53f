package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
)

// OrderStore keeps orders in process memory. Every order handed in or out
// is a clone, so callers never share state with the store.
type OrderStore struct {
	mu      sync.RWMutex
	orders  map[string]*domain.Order
	history map[string][]domain.StatusLog
}

func NewOrderStore(seed ...*domain.Order) *OrderStore {
	s := &OrderStore{
		orders:  make(map[string]*domain.Order),
		history: make(map[string][]domain.StatusLog),
	}
	for _, o := range seed {
		s.orders[o.ID] = o.Clone()
	}
	return s
}

// List returns orders by creation time, then id.
func (s *OrderStore) List(_ context.Context) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *OrderStore) Get(_ context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return o.Clone(), nil
}

func (s *OrderStore) Create(_ context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[order.ID]; exists {
		return fmt.Errorf("order %s already exists", order.ID)
	}
	s.orders[order.ID] = order.Clone()
	return nil
}

func (s *OrderStore) UpdateStatus(_ context.Context, id string, patch interfaces.StatusPatch) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if len(patch.ItemStatuses) != len(o.Items) {
		return nil, fmt.Errorf("patch carries %d item statuses for %d items", len(patch.ItemStatuses), len(o.Items))
	}

	updated := o.Clone()
	updated.Status = patch.Status
	for i, st := range patch.ItemStatuses {
		updated.Items[i].Status = st
	}
	updated.UpdatedAt = patch.UpdatedAt
	s.orders[id] = updated

	for _, change := range patch.Changes {
		s.history[id] = append(s.history[id], change.StatusLog())
	}
	return updated.Clone(), nil
}

func (s *OrderStore) History(_ context.Context, orderID string) ([]domain.StatusLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.orders[orderID]; !ok {
		return nil, domain.ErrNotFound
	}
	return append([]domain.StatusLog(nil), s.history[orderID]...), nil
}

var _ interfaces.OrderRepository = (*OrderStore)(nil)
