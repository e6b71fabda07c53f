package interfaces

import (
	"context"
	"time"

	"github.com/YelzhanWeb/tableorder/internal/domain"
)

type EventDispatcher interface {
	Dispatch(ctx context.Context, event domain.Event) error
}

// Commands
type PlaceOrderCommand struct {
	TableID string
	Note    string
	Items   []PlaceOrderItemCommand
}

type PlaceOrderItemCommand struct {
	Name     string
	Quantity int
	Note     string
}

// Service interfaces (Business Logic)
type OrderService interface {
	PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (*domain.Order, error)
	TransitionOrder(ctx context.Context, orderID string, next domain.OrderStatus) (*domain.Order, error)
	TransitionItem(ctx context.Context, orderID string, itemIndex int, next domain.ItemStatus) (*domain.Order, error)
}

type KitchenService interface {
	Queue(ctx context.Context) ([]*domain.Order, error)
	StartItem(ctx context.Context, orderID string, itemIndex int) (*domain.Order, error)
	ReadyItem(ctx context.Context, orderID string, itemIndex int) (*domain.Order, error)
	RejectItem(ctx context.Context, orderID string, itemIndex int) (*domain.Order, error)
}

type TrackingService interface {
	ListOrders(ctx context.Context) ([]*domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	GetOrderStatus(ctx context.Context, orderID string) (*TrackingOrderResponse, error)
	GetOrderHistory(ctx context.Context, orderID string) ([]domain.StatusLog, error)
	TableOrders(ctx context.Context, tableID string) ([]*domain.Order, error)
}

// Tracking responses
type TrackingOrderResponse struct {
	OrderID       string
	TableID       string
	CurrentStatus domain.OrderStatus
	Items         []domain.ItemStatus
	UpdatedAt     time.Time
	Settled       bool
}
