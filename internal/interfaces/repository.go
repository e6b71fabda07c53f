package interfaces

import (
	"context"
	"time"

	"github.com/YelzhanWeb/tableorder/internal/domain"
)

// StatusPatch is the full status vector of an order after a transition,
// plus the changes that produced it for the audit log.
type StatusPatch struct {
	Status       domain.OrderStatus
	ItemStatuses []domain.ItemStatus
	UpdatedAt    time.Time
	Changes      []domain.StatusChanged
}

// PatchFrom builds the patch that persists updated.
func PatchFrom(updated *domain.Order, changes ...domain.StatusChanged) StatusPatch {
	return StatusPatch{
		Status:       updated.Status,
		ItemStatuses: updated.ItemStatuses(),
		UpdatedAt:    updated.UpdatedAt,
		Changes:      changes,
	}
}

// OrderStore is the authoritative order collection the core reads and
// writes through. Get and UpdateStatus return domain.ErrNotFound for an
// unknown id.
type OrderStore interface {
	List(ctx context.Context) ([]*domain.Order, error)
	Get(ctx context.Context, id string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id string, patch StatusPatch) (*domain.Order, error)
}

// OrderCreator persists freshly placed orders.
type OrderCreator interface {
	Create(ctx context.Context, order *domain.Order) error
}

// StatusHistory reads the audit log of applied transitions, oldest first.
type StatusHistory interface {
	History(ctx context.Context, orderID string) ([]domain.StatusLog, error)
}

// OrderRepository is what the storage adapters implement.
type OrderRepository interface {
	OrderStore
	OrderCreator
	StatusHistory
}
