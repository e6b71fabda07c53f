package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
)

var tracer = otel.Tracer("github.com/YelzhanWeb/tableorder/internal/app/order")

type Service struct {
	repo       interfaces.OrderRepository
	dispatcher interfaces.EventDispatcher
	notifier   interfaces.ChangeNotifier
	logger     logger.Logger
	now        func() time.Time

	// locks holds one mutex per live order id so that read-apply-write of
	// the same order never interleaves inside this process. Entries go away
	// once the order is terminal; nothing can transition it after that.
	locks sync.Map
}

func NewService(
	repo interfaces.OrderRepository,
	dispatcher interfaces.EventDispatcher,
	notifier interfaces.ChangeNotifier,
	logger logger.Logger,
) *Service {
	return &Service{
		repo:       repo,
		dispatcher: dispatcher,
		notifier:   notifier,
		logger:     logger,
		now:        time.Now,
	}
}

// PlaceOrder stores a new pending order and pokes change detection. The
// NewOrderDetected announcement comes from the detector, not from here.
func (s *Service) PlaceOrder(ctx context.Context, cmd interfaces.PlaceOrderCommand) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "order.PlaceOrder", trace.WithAttributes(
		attribute.String("table_id", cmd.TableID),
		attribute.Int("items", len(cmd.Items)),
	))
	defer span.End()

	items := make([]domain.OrderItem, len(cmd.Items))
	for i, item := range cmd.Items {
		items[i] = domain.OrderItem{
			Name:     item.Name,
			Quantity: item.Quantity,
			Note:     item.Note,
		}
	}

	order, err := domain.NewOrder(uuid.NewString(), cmd.TableID, items, cmd.Note, s.now().UTC())
	if err != nil {
		s.logger.Error("validation_failed", "Order validation failed", logger.RequestID(ctx), nil, err)
		return nil, fail(span, fmt.Errorf("validation failed: %w", err))
	}

	if err := s.repo.Create(ctx, order); err != nil {
		s.logger.Error("db_create_failed", "Failed to create order", logger.RequestID(ctx), nil, err)
		return nil, fail(span, fmt.Errorf("failed to create order: %w", err))
	}
	span.SetAttributes(attribute.String("order_id", order.ID))
	s.logger.Debug("order_placed", "Order stored", logger.RequestID(ctx), map[string]interface{}{
		"order_id": order.ID,
		"table_id": order.TableID,
	})

	if err := s.notifier.NotifyChange(ctx, order.ID); err != nil {
		// The order is stored; the next poll will pick it up.
		s.logger.Error("change_notify_failed", "Failed to notify change detector", logger.RequestID(ctx), map[string]interface{}{
			"order_id": order.ID,
		}, err)
	}

	return order, nil
}

// TransitionOrder applies an order-level transition, persists it and
// dispatches the resulting StatusChanged.
func (s *Service) TransitionOrder(ctx context.Context, orderID string, next domain.OrderStatus) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "order.TransitionOrder", trace.WithAttributes(
		attribute.String("order_id", orderID),
		attribute.String("next_status", string(next)),
	))
	defer span.End()

	unlock := s.lock(orderID)
	defer unlock()

	current, err := s.repo.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.forget(orderID)
		}
		return nil, fail(span, fmt.Errorf("failed to load order: %w", err))
	}
	if current.Status.IsTerminal() {
		defer s.forget(orderID)
	}

	updated, change, err := domain.ApplyOrderTransition(current, next, s.now().UTC())
	if err != nil {
		s.logger.Debug("transition_refused", err.Error(), logger.RequestID(ctx), map[string]interface{}{"order_id": orderID})
		return nil, fail(span, err)
	}

	stored, err := s.repo.UpdateStatus(ctx, orderID, interfaces.PatchFrom(updated, change))
	if err != nil {
		s.logger.Error("db_update_failed", "Failed to persist order status", logger.RequestID(ctx), map[string]interface{}{"order_id": orderID}, err)
		return nil, fail(span, fmt.Errorf("failed to update order status: %w", err))
	}

	if stored.Status.IsTerminal() {
		s.forget(orderID)
	}

	s.dispatch(ctx, stored, change)
	return stored, nil
}

// TransitionItem applies an item-level transition. When it implies an
// order-level change both are persisted together and dispatched item first.
func (s *Service) TransitionItem(ctx context.Context, orderID string, itemIndex int, next domain.ItemStatus) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "order.TransitionItem", trace.WithAttributes(
		attribute.String("order_id", orderID),
		attribute.Int("item_index", itemIndex),
		attribute.String("next_status", string(next)),
	))
	defer span.End()

	unlock := s.lock(orderID)
	defer unlock()

	current, err := s.repo.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.forget(orderID)
		}
		return nil, fail(span, fmt.Errorf("failed to load order: %w", err))
	}
	if current.Status.IsTerminal() {
		defer s.forget(orderID)
	}

	updated, changes, err := domain.ApplyItemTransition(current, itemIndex, next, s.now().UTC())
	if err != nil {
		s.logger.Debug("transition_refused", err.Error(), logger.RequestID(ctx), map[string]interface{}{
			"order_id":   orderID,
			"item_index": itemIndex,
		})
		return nil, fail(span, err)
	}

	stored, err := s.repo.UpdateStatus(ctx, orderID, interfaces.PatchFrom(updated, changes...))
	if err != nil {
		s.logger.Error("db_update_failed", "Failed to persist item status", logger.RequestID(ctx), map[string]interface{}{"order_id": orderID}, err)
		return nil, fail(span, fmt.Errorf("failed to update item status: %w", err))
	}

	s.dispatch(ctx, stored, changes...)
	return stored, nil
}

// dispatch never undoes a persisted transition; failures are only logged.
func (s *Service) dispatch(ctx context.Context, order *domain.Order, changes ...domain.StatusChanged) {
	for _, change := range changes {
		if err := s.dispatcher.Dispatch(ctx, domain.StatusChangedEvent(order, change)); err != nil {
			s.logger.Error("dispatch_failed", "Failed to dispatch status change", logger.RequestID(ctx), map[string]interface{}{
				"order_id":   order.ID,
				"new_status": change.NewStatus,
				"scope":      change.Scope,
			}, err)
		}
	}
}

func (s *Service) lock(orderID string) func() {
	mu, _ := s.locks.LoadOrStore(orderID, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// forget drops the lock of an order that can no longer change. A caller
// still waiting on the old mutex only finds the order terminal or missing.
func (s *Service) forget(orderID string) {
	s.locks.Delete(orderID)
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

var _ interfaces.OrderService = (*Service)(nil)
