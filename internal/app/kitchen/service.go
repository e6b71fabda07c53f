package kitchen

import (
	"context"
	"fmt"
	"slices"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
)

// Service is the kitchen's view: the work queue plus per-item actions,
// which go through the order service so they are persisted and dispatched
// like any other transition.
type Service struct {
	store  interfaces.OrderStore
	orders interfaces.OrderService
	logger logger.Logger
}

func NewService(store interfaces.OrderStore, orders interfaces.OrderService, logger logger.Logger) *Service {
	return &Service{
		store:  store,
		orders: orders,
		logger: logger,
	}
}

func (s *Service) Queue(ctx context.Context) ([]*domain.Order, error) {
	orders, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return slices.Collect(OrderQueue(orders)), nil
}

func (s *Service) StartItem(ctx context.Context, orderID string, itemIndex int) (*domain.Order, error) {
	return s.move(ctx, orderID, itemIndex, domain.ItemCooking)
}

func (s *Service) ReadyItem(ctx context.Context, orderID string, itemIndex int) (*domain.Order, error) {
	return s.move(ctx, orderID, itemIndex, domain.ItemReady)
}

func (s *Service) RejectItem(ctx context.Context, orderID string, itemIndex int) (*domain.Order, error) {
	return s.move(ctx, orderID, itemIndex, domain.ItemRejected)
}

func (s *Service) move(ctx context.Context, orderID string, itemIndex int, next domain.ItemStatus) (*domain.Order, error) {
	order, err := s.orders.TransitionItem(ctx, orderID, itemIndex, next)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("kitchen_item_"+string(next), fmt.Sprintf("Item %d of order %s is %s", itemIndex, orderID, next), logger.RequestID(ctx), map[string]interface{}{
		"order_id":     orderID,
		"item_index":   itemIndex,
		"order_status": order.Status,
	})
	return order, nil
}

var _ interfaces.KitchenService = (*Service)(nil)
