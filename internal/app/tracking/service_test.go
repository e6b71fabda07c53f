package tracking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/adapter/memory"
	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func placed(t *testing.T, id, tableID string) *domain.Order {
	t.Helper()
	o, err := domain.NewOrder(id, tableID, []domain.OrderItem{{Name: "curry", Quantity: 1}}, "", t0)
	require.NoError(t, err)
	return o
}

func TestGetOrderStatus(t *testing.T) {
	ctx := context.Background()
	store := memory.NewOrderStore(placed(t, "a", "5"))
	svc := NewService(store, logger.Nop())

	resp, err := svc.GetOrderStatus(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "5", resp.TableID)
	require.Equal(t, domain.OrderPending, resp.CurrentStatus)
	require.Equal(t, []domain.ItemStatus{domain.ItemQueued}, resp.Items)
	require.False(t, resp.Settled)

	_, err = svc.GetOrderStatus(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetOrderHistory(t *testing.T) {
	ctx := context.Background()
	order := placed(t, "a", "5")
	store := memory.NewOrderStore(order)
	svc := NewService(store, logger.Nop())

	accepted, change, err := domain.ApplyOrderTransition(order, domain.OrderAccepted, t0.Add(time.Minute))
	require.NoError(t, err)
	_, err = store.UpdateStatus(ctx, "a", interfaces.PatchFrom(accepted, change))
	require.NoError(t, err)

	history, err := svc.GetOrderHistory(ctx, "a")
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "pending", history[0].PreviousStatus)
	require.Equal(t, t0.Add(time.Minute), history[0].ChangedAt)
}

func TestTableOrders(t *testing.T) {
	ctx := context.Background()
	store := memory.NewOrderStore(placed(t, "a", "5"), placed(t, "b", "6"), placed(t, "c", "5"))
	svc := NewService(store, logger.Nop())

	orders, err := svc.TableOrders(ctx, "5")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	require.Equal(t, "a", orders[0].ID)
	require.Equal(t, "c", orders[1].ID)

	none, err := svc.TableOrders(ctx, "9")
	require.NoError(t, err)
	require.Empty(t, none)

	_, err = svc.TableOrders(ctx, "bad.id")
	require.ErrorIs(t, err, domain.ErrInvalidOrder)
}
