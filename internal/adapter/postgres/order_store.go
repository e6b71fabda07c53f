package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
)

type orderStore struct {
	db DB
}

func NewOrderStore(db DB) interfaces.OrderRepository {
	return &orderStore{db: db}
}

func (r *orderStore) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO orders (id, table_id, status, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := tx.Exec(ctx, query,
		order.ID, order.TableID, order.Status, order.Note, order.CreatedAt, order.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i, item := range order.Items {
		itemQuery := `
			INSERT INTO order_items (order_id, position, name, quantity, status, note)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		if _, err := tx.Exec(ctx, itemQuery,
			order.ID, i, item.Name, item.Quantity, item.Status, item.Note,
		); err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *orderStore) List(ctx context.Context) ([]*domain.Order, error) {
	query := `
		SELECT id, table_id, status, note, created_at, updated_at
		FROM orders
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]*domain.Order, 0)
	byID := make(map[string]*domain.Order)
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(&order.ID, &order.TableID, &order.Status, &order.Note, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, &order)
		byID[order.ID] = &order
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}
	rows.Close()

	itemsQuery := `
		SELECT order_id, name, quantity, status, note
		FROM order_items
		ORDER BY order_id, position
	`
	itemRows, err := r.db.Query(ctx, itemsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var orderID string
		var item domain.OrderItem
		if err := itemRows.Scan(&orderID, &item.Name, &item.Quantity, &item.Status, &item.Note); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		// Items of orders inserted after the first query are skipped; they
		// show up with their order on the next List.
		if order, ok := byID[orderID]; ok {
			order.Items = append(order.Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read order items: %w", err)
	}

	return orders, nil
}

func (r *orderStore) Get(ctx context.Context, id string) (*domain.Order, error) {
	return getOrder(ctx, r.db, id)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

func getOrder(ctx context.Context, q querier, id string) (*domain.Order, error) {
	query := `
		SELECT id, table_id, status, note, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	var order domain.Order
	err := q.QueryRow(ctx, query, id).Scan(
		&order.ID, &order.TableID, &order.Status, &order.Note, &order.CreatedAt, &order.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	itemsQuery := `SELECT name, quantity, status, note FROM order_items WHERE order_id = $1 ORDER BY position`
	rows, err := q.Query(ctx, itemsQuery, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.Name, &item.Quantity, &item.Status, &item.Note); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read order items: %w", err)
	}

	return &order, nil
}

// UpdateStatus writes the status vector and its log entries in one
// transaction.
func (r *orderStore) UpdateStatus(ctx context.Context, id string, patch interfaces.StatusPatch) (*domain.Order, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`,
		patch.Status, patch.UpdatedAt, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrNotFound
	}

	for i, status := range patch.ItemStatuses {
		tag, err := tx.Exec(ctx, `UPDATE order_items SET status = $1 WHERE order_id = $2 AND position = $3`,
			status, id, i)
		if err != nil {
			return nil, fmt.Errorf("failed to update order item: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil, fmt.Errorf("order %s has no item %d", id, i)
		}
	}

	for _, change := range patch.Changes {
		logQuery := `
			INSERT INTO order_status_log (order_id, scope, item_index, previous_status, new_status, changed_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		if _, err := tx.Exec(ctx, logQuery,
			id, change.Scope, change.ItemIndex, change.PreviousStatus, change.NewStatus, change.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("failed to log status: %w", err)
		}
	}

	order, err := getOrder(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit status update: %w", err)
	}
	return order, nil
}

func (r *orderStore) History(ctx context.Context, orderID string) ([]domain.StatusLog, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check order: %w", err)
	}
	if !exists {
		return nil, domain.ErrNotFound
	}

	query := `
		SELECT order_id, scope, item_index, previous_status, new_status, changed_at
		FROM order_status_log
		WHERE order_id = $1
		ORDER BY id ASC
	`
	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query status history: %w", err)
	}
	defer rows.Close()

	logs := make([]domain.StatusLog, 0)
	for rows.Next() {
		var log domain.StatusLog
		if err := rows.Scan(&log.OrderID, &log.Scope, &log.ItemIndex, &log.PreviousStatus, &log.NewStatus, &log.ChangedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status log: %w", err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read status history: %w", err)
	}

	return logs, nil
}
