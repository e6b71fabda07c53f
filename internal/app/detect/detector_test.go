package detect

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func order(id string, createdAt time.Time) *domain.Order {
	return &domain.Order{
		ID:        id,
		TableID:   "4",
		Status:    domain.OrderPending,
		Items:     []domain.OrderItem{{Name: "pho", Quantity: 1, Status: domain.ItemQueued}},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func ids(orders []*domain.Order) []string {
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}

func TestDetectNewReportsOnlyUnknown(t *testing.T) {
	known := NewKnownIDs("a")

	fresh, next := DetectNew([]*domain.Order{order("a", t0), order("b", t0)}, known)

	require.Equal(t, []string{"b"}, ids(fresh))
	require.True(t, next.Contains("a"))
	require.True(t, next.Contains("b"))
	require.False(t, known.Contains("b"), "input set must not change")
}

func TestDetectNewIsIdempotent(t *testing.T) {
	snapshot := []*domain.Order{order("a", t0), order("b", t0)}

	_, known := DetectNew(snapshot, NewKnownIDs())
	fresh, again := DetectNew(snapshot, known)

	require.Empty(t, fresh)
	require.Equal(t, known.Len(), again.Len())
}

func TestDetectNewIgnoresTimestamps(t *testing.T) {
	known := NewKnownIDs("late")
	_, known = DetectNew([]*domain.Order{order("late", t0)}, known)

	// An order created before everything already known still counts as new.
	fresh, _ := DetectNew([]*domain.Order{order("late", t0), order("early", t0.Add(-time.Hour))}, known)

	require.Equal(t, []string{"early"}, ids(fresh))
}

func TestDetectNewCollapsesDuplicateIDs(t *testing.T) {
	fresh, known := DetectNew([]*domain.Order{order("a", t0), order("a", t0), nil}, NewKnownIDs())

	require.Equal(t, []string{"a"}, ids(fresh))
	require.Equal(t, 1, known.Len())
}

type fakeStore struct {
	mu     sync.Mutex
	orders []*domain.Order
	err    error
}

func (s *fakeStore) set(orders ...*domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = orders
}

func (s *fakeStore) List(context.Context) ([]*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]*domain.Order(nil), s.orders...), nil
}

func (s *fakeStore) Get(context.Context, string) (*domain.Order, error) {
	return nil, domain.ErrNotFound
}

func (s *fakeStore) UpdateStatus(context.Context, string, interfaces.StatusPatch) (*domain.Order, error) {
	return nil, domain.ErrNotFound
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (d *recordingDispatcher) Dispatch(_ context.Context, event domain.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) orderIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.Detected.OrderID)
	}
	return out
}

func newTestService(store *fakeStore, announceExisting bool) (*Service, *recordingDispatcher) {
	dispatcher := &recordingDispatcher{}
	svc := NewService(store, dispatcher, logger.Nop(), time.Hour, announceExisting)
	svc.now = func() time.Time { return t0 }
	return svc, dispatcher
}

func TestPassAnnouncesEachOrderOnce(t *testing.T) {
	store := &fakeStore{}
	svc, dispatcher := newTestService(store, false)
	ctx := context.Background()

	_, err := svc.Pass(ctx)
	require.NoError(t, err)

	store.set(order("a", t0))
	_, err = svc.Pass(ctx)
	require.NoError(t, err)

	store.set(order("a", t0), order("b", t0))
	_, err = svc.Pass(ctx)
	require.NoError(t, err)

	require.Equal(t, []string{"a", "b"}, dispatcher.orderIDs())
	for _, e := range dispatcher.events {
		require.Equal(t, domain.EventNewOrderDetected, e.Kind)
		require.Equal(t, t0, e.Detected.DetectedAt)
	}
}

func TestFirstPassPrimesWithoutAnnouncing(t *testing.T) {
	store := &fakeStore{}
	store.set(order("old", t0))
	svc, dispatcher := newTestService(store, false)

	fresh, err := svc.Pass(context.Background())

	require.NoError(t, err)
	require.Empty(t, fresh)
	require.Empty(t, dispatcher.orderIDs())
	require.True(t, svc.Known().Contains("old"))
}

func TestFirstPassAnnouncesExistingWhenConfigured(t *testing.T) {
	store := &fakeStore{}
	store.set(order("old", t0))
	svc, dispatcher := newTestService(store, true)

	_, err := svc.Pass(context.Background())

	require.NoError(t, err)
	require.Equal(t, []string{"old"}, dispatcher.orderIDs())
}

func TestPassKeepsKnownOnStoreError(t *testing.T) {
	store := &fakeStore{}
	store.set(order("a", t0))
	svc, dispatcher := newTestService(store, true)
	ctx := context.Background()

	_, err := svc.Pass(ctx)
	require.NoError(t, err)

	store.err = errors.New("connection reset")
	_, err = svc.Pass(ctx)
	require.Error(t, err)
	require.True(t, svc.Known().Contains("a"))

	store.err = nil
	store.set(order("a", t0), order("b", t0))
	_, err = svc.Pass(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, dispatcher.orderIDs())
}

func TestConcurrentNotificationsAnnounceOnce(t *testing.T) {
	store := &fakeStore{}
	svc, dispatcher := newTestService(store, false)
	ctx := context.Background()
	_, err := svc.Pass(ctx)
	require.NoError(t, err)

	store.set(order("a", t0))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.NotifyChange(ctx, "a")
		}()
	}
	wg.Wait()

	require.Equal(t, []string{"a"}, dispatcher.orderIDs())
}

func TestStartStop(t *testing.T) {
	store := &fakeStore{}
	store.set(order("a", t0))
	svc, _ := newTestService(store, false)
	ctx := context.Background()

	require.NoError(t, svc.Start(ctx))
	require.Error(t, svc.Start(ctx))
	require.True(t, svc.Known().Contains("a"))

	svc.Stop()
	require.Equal(t, 0, svc.Known().Len())

	require.NoError(t, svc.Start(ctx))
	svc.Stop()
}

func TestStartAfterParentContextEnds(t *testing.T) {
	store := &fakeStore{}
	store.set(order("a", t0))
	svc, _ := newTestService(store, false)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, svc.Start(ctx))
	cancel()

	require.Eventually(t, func() bool {
		return svc.Start(context.Background()) == nil
	}, time.Second, time.Millisecond)
	svc.Stop()
}
