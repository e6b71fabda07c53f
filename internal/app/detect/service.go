package detect

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
)

// Service runs change detection against a store and announces each new
// order exactly once. It owns the known-id set: Start creates it, Stop
// discards it.
type Service struct {
	store            interfaces.OrderStore
	dispatcher       interfaces.EventDispatcher
	logger           logger.Logger
	interval         time.Duration
	announceExisting bool
	now              func() time.Time

	// mu serializes passes; timer ticks and pushes share it.
	mu     sync.Mutex
	known  KnownIDs
	primed bool

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewService(
	store interfaces.OrderStore,
	dispatcher interfaces.EventDispatcher,
	logger logger.Logger,
	interval time.Duration,
	announceExisting bool,
) *Service {
	return &Service{
		store:            store,
		dispatcher:       dispatcher,
		logger:           logger,
		interval:         interval,
		announceExisting: announceExisting,
		now:              time.Now,
		known:            NewKnownIDs(),
	}
}

// Start runs a first pass synchronously, then polls every interval until
// ctx is done or Stop is called.
func (s *Service) Start(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.cancel != nil {
		select {
		case <-s.done:
			// The parent context ended the previous loop without Stop.
			s.cancel()
			s.cancel = nil
			s.done = nil
		default:
			return errors.New("change detector is already running")
		}
	}

	if _, err := s.Pass(ctx); err != nil {
		return fmt.Errorf("failed to run initial detection pass: %w", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.pollLoop(loopCtx, s.done)

	s.logger.Info("detector_started", "Change detector started", "", map[string]interface{}{
		"interval":    s.interval.String(),
		"known_count": s.Known().Len(),
	})
	return nil
}

func (s *Service) pollLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Pass(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("detection_failed", "Change detection pass failed", "", nil, err)
			}
		}
	}
}

// Stop halts polling and forgets every known id.
func (s *Service) Stop() {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.cancel != nil {
		s.cancel()
		<-s.done
		s.cancel = nil
		s.done = nil
	}

	s.mu.Lock()
	s.known = NewKnownIDs()
	s.primed = false
	s.mu.Unlock()

	s.logger.Info("detector_stopped", "Change detector stopped", "", nil)
}

// Pass diffs the current store snapshot against the known ids and
// dispatches NewOrderDetected for each new order. The first pass after a
// reset only remembers what it finds unless announceExisting is set.
// A failed store read leaves the known ids untouched.
func (s *Service) Pass(ctx context.Context) ([]*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	fresh, known := DetectNew(snapshot, s.known)
	s.known = known

	announce := s.primed || s.announceExisting
	s.primed = true
	if !announce {
		return nil, nil
	}

	at := s.now()
	for _, order := range fresh {
		if err := s.dispatcher.Dispatch(ctx, domain.NewOrderDetectedEvent(order, at)); err != nil {
			s.logger.Error("new_order_dispatch_failed", "Failed to announce new order", logger.RequestID(ctx), map[string]interface{}{
				"order_id": order.ID,
			}, err)
		}
	}
	if len(fresh) > 0 {
		s.logger.Debug("new_orders_detected", fmt.Sprintf("Detected %d new orders", len(fresh)), logger.RequestID(ctx), nil)
	}
	return fresh, nil
}

// NotifyChange is the push entry point: it runs one pass.
func (s *Service) NotifyChange(ctx context.Context, orderID string) error {
	_, err := s.Pass(ctx)
	return err
}

// Known returns the current known-id set.
func (s *Service) Known() KnownIDs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.known
}

var _ interfaces.ChangeNotifier = (*Service)(nil)
