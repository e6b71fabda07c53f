package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newOrder(t *testing.T, id string, createdAt time.Time) *domain.Order {
	t.Helper()
	o, err := domain.NewOrder(id, "3", []domain.OrderItem{{Name: "bibimbap", Quantity: 1}, {Name: "tea", Quantity: 2}}, "", createdAt)
	require.NoError(t, err)
	return o
}

func TestOrderStoreCreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewOrderStore()
	order := newOrder(t, "a", t0)

	require.NoError(t, store.Create(ctx, order))
	require.Error(t, store.Create(ctx, order))

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, order, got)

	got.Items[0].Status = domain.ItemReady
	again, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, domain.ItemQueued, again.Items[0].Status)

	_, err = store.Get(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrderStoreListOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewOrderStore(newOrder(t, "late", t0.Add(time.Minute)), newOrder(t, "b", t0), newOrder(t, "a", t0))

	orders, err := store.List(ctx)
	require.NoError(t, err)

	got := make([]string, len(orders))
	for i, o := range orders {
		got[i] = o.ID
	}
	require.Equal(t, []string{"a", "b", "late"}, got)
}

func TestOrderStoreUpdateStatusRecordsHistory(t *testing.T) {
	ctx := context.Background()
	store := NewOrderStore(newOrder(t, "a", t0))

	current, err := store.Get(ctx, "a")
	require.NoError(t, err)
	accepted, change, err := domain.ApplyOrderTransition(current, domain.OrderAccepted, t0.Add(time.Second))
	require.NoError(t, err)

	stored, err := store.UpdateStatus(ctx, "a", interfaces.PatchFrom(accepted, change))
	require.NoError(t, err)
	require.Equal(t, domain.OrderAccepted, stored.Status)
	require.Equal(t, t0.Add(time.Second), stored.UpdatedAt)

	cooking, changes, err := domain.ApplyItemTransition(stored, 1, domain.ItemCooking, t0.Add(2*time.Second))
	require.NoError(t, err)
	_, err = store.UpdateStatus(ctx, "a", interfaces.PatchFrom(cooking, changes...))
	require.NoError(t, err)

	history, err := store.History(ctx, "a")
	require.NoError(t, err)
	require.Len(t, history, 3)
	require.Equal(t, domain.ScopeOrder, history[0].Scope)
	require.Equal(t, "accepted", history[0].NewStatus)
	require.Equal(t, domain.ScopeItem, history[1].Scope)
	require.Equal(t, 1, *history[1].ItemIndex)
	require.Equal(t, "cooking", history[2].NewStatus)
}

func TestOrderStoreUpdateStatusErrors(t *testing.T) {
	ctx := context.Background()
	store := NewOrderStore(newOrder(t, "a", t0))

	_, err := store.UpdateStatus(ctx, "missing", interfaces.StatusPatch{})
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.UpdateStatus(ctx, "a", interfaces.StatusPatch{Status: domain.OrderAccepted})
	require.Error(t, err)

	_, err = store.History(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
