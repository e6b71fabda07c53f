package tracking

import (
	"context"
	"fmt"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
)

// Service answers read-only questions about orders.
type Service struct {
	repo   interfaces.OrderRepository
	logger logger.Logger
}

func NewService(repo interfaces.OrderRepository, logger logger.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	orders, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.repo.Get(ctx, orderID)
}

func (s *Service) GetOrderStatus(ctx context.Context, orderID string) (*interfaces.TrackingOrderResponse, error) {
	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	return &interfaces.TrackingOrderResponse{
		OrderID:       order.ID,
		TableID:       order.TableID,
		CurrentStatus: order.Status,
		Items:         order.ItemStatuses(),
		UpdatedAt:     order.UpdatedAt,
		Settled:       order.Settled(),
	}, nil
}

func (s *Service) GetOrderHistory(ctx context.Context, orderID string) ([]domain.StatusLog, error) {
	history, err := s.repo.History(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("history_read", "Order history read", logger.RequestID(ctx), map[string]interface{}{
		"order_id": orderID,
		"entries":  len(history),
	})
	return history, nil
}

// TableOrders lists one table's orders in store order.
func (s *Service) TableOrders(ctx context.Context, tableID string) ([]*domain.Order, error) {
	if err := domain.ValidateTableID(tableID); err != nil {
		return nil, err
	}

	orders, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	out := make([]*domain.Order, 0)
	for _, o := range orders {
		if o.TableID == tableID {
			out = append(out, o)
		}
	}
	return out, nil
}

var _ interfaces.TrackingService = (*Service)(nil)
