package postgres

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		id         TEXT PRIMARY KEY,
		table_id   TEXT NOT NULL,
		status     TEXT NOT NULL,
		note       TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS orders_table_id_idx ON orders (table_id)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		order_id TEXT NOT NULL REFERENCES orders (id) ON DELETE CASCADE,
		position INT NOT NULL,
		name     TEXT NOT NULL,
		quantity INT NOT NULL CHECK (quantity > 0),
		status   TEXT NOT NULL,
		note     TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (order_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS order_status_log (
		id              BIGSERIAL PRIMARY KEY,
		order_id        TEXT NOT NULL REFERENCES orders (id) ON DELETE CASCADE,
		scope           TEXT NOT NULL,
		item_index      INT,
		previous_status TEXT NOT NULL,
		new_status      TEXT NOT NULL,
		changed_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS order_status_log_order_id_idx ON order_status_log (order_id, id)`,
}

// Migrate creates the tables when they do not exist yet.
func Migrate(ctx context.Context, db DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
