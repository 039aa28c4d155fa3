package testutil

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// MockTxBeginner hands out no-op transactions and records commit/rollback
// outcomes for assertions
type MockTxBeginner struct {
	Began      int
	Committed  int
	RolledBack int
}

// NewMockTxBeginner creates a new MockTxBeginner
func NewMockTxBeginner() *MockTxBeginner {
	return &MockTxBeginner{}
}

// Begin starts a no-op transaction
func (b *MockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	b.Began++
	return &MockTx{beginner: b}, nil
}

// MockTx is a no-op pgx.Tx for exercising transactional service flows
type MockTx struct {
	beginner *MockTxBeginner
	done     bool
}

// Begin starts a nested no-op transaction
func (t *MockTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return &MockTx{beginner: t.beginner}, nil
}

// Commit marks the transaction committed
func (t *MockTx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.beginner.Committed++
	return nil
}

// Rollback marks the transaction rolled back. Like pgx, rollback after
// commit is a no-op.
func (t *MockTx) Rollback(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.beginner.RolledBack++
	return nil
}

// CopyFrom is a no-op
func (t *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

// SendBatch is a no-op
func (t *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return nil
}

// LargeObjects is a no-op
func (t *MockTx) LargeObjects() pgx.LargeObjects {
	return pgx.LargeObjects{}
}

// Prepare is a no-op
func (t *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return &pgconn.StatementDescription{Name: name, SQL: sql}, nil
}

// Exec is a no-op
func (t *MockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

// Query is a no-op
func (t *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, pgx.ErrNoRows
}

// QueryRow is a no-op
func (t *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

// Conn is a no-op
func (t *MockTx) Conn() *pgx.Conn {
	return nil
}
