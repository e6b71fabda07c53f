package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/YelzhanWeb/tableorder/internal/config"
	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
)

type fakeTag int64

func (t fakeTag) RowsAffected() int64 { return int64(t) }

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

// fakeDB records statements and answers every Exec with affected and every
// QueryRow with rowErr.
type fakeDB struct {
	execs      []string
	affected   int64
	rowErr     error
	committed  bool
	rolledBack bool
}

func (db *fakeDB) Query(context.Context, string, ...any) (Rows, error) {
	return nil, errors.New("not supported")
}

func (db *fakeDB) QueryRow(context.Context, string, ...any) Row {
	return errRow{err: db.rowErr}
}

func (db *fakeDB) Exec(_ context.Context, sql string, _ ...any) (CommandTag, error) {
	db.execs = append(db.execs, sql)
	return fakeTag(db.affected), nil
}

func (db *fakeDB) Begin(context.Context) (Tx, error) { return &fakeTx{db: db}, nil }

func (db *fakeDB) Close() {}

type fakeTx struct{ db *fakeDB }

func (tx *fakeTx) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return tx.db.Query(ctx, sql, args...)
}

func (tx *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return tx.db.QueryRow(ctx, sql, args...)
}

func (tx *fakeTx) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	return tx.db.Exec(ctx, sql, args...)
}

func (tx *fakeTx) Commit(context.Context) error {
	tx.db.committed = true
	return nil
}

func (tx *fakeTx) Rollback(context.Context) error {
	if !tx.db.committed {
		tx.db.rolledBack = true
	}
	return nil
}

func TestGetMapsNoRowsToNotFound(t *testing.T) {
	store := NewOrderStore(&fakeDB{rowErr: pgx.ErrNoRows})

	_, err := store.Get(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetWrapsOtherErrors(t *testing.T) {
	boom := errors.New("connection reset")
	store := NewOrderStore(&fakeDB{rowErr: boom})

	_, err := store.Get(context.Background(), "a")
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateStatusUnknownOrderRollsBack(t *testing.T) {
	db := &fakeDB{affected: 0}
	store := NewOrderStore(db)

	_, err := store.UpdateStatus(context.Background(), "missing", interfaces.StatusPatch{Status: domain.OrderAccepted})

	require.ErrorIs(t, err, domain.ErrNotFound)
	require.False(t, db.committed)
	require.True(t, db.rolledBack)
	require.Len(t, db.execs, 1)
}

func TestCreateInsertsOrderAndItems(t *testing.T) {
	db := &fakeDB{affected: 1}
	store := NewOrderStore(db)
	order := &domain.Order{
		ID:      "a",
		TableID: "1",
		Status:  domain.OrderPending,
		Items:   []domain.OrderItem{{Name: "x", Quantity: 1}, {Name: "y", Quantity: 2}},
	}

	require.NoError(t, store.Create(context.Background(), order))
	require.True(t, db.committed)
	require.Len(t, db.execs, 3)
	require.Contains(t, db.execs[0], "INSERT INTO orders")
	require.Contains(t, db.execs[2], "INSERT INTO order_items")
}

func TestMigrate(t *testing.T) {
	db := &fakeDB{}

	require.NoError(t, Migrate(context.Background(), db))
	require.Len(t, db.execs, len(schema))
	for _, stmt := range db.execs {
		require.True(t, strings.Contains(stmt, "IF NOT EXISTS"))
	}
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "orders"})
	require.Equal(t, "host=db port=5433 user=u password=p dbname=orders sslmode=disable", dsn)
}

func TestPoolConfig(t *testing.T) {
	poolCfg, err := PoolConfig(config.DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "orders", MaxConns: 4})
	require.NoError(t, err)
	require.Equal(t, int32(4), poolCfg.MaxConns)
	require.Equal(t, "db", poolCfg.ConnConfig.Host)
	require.Equal(t, uint16(5433), poolCfg.ConnConfig.Port)
	require.Equal(t, "orders", poolCfg.ConnConfig.Database)
}
