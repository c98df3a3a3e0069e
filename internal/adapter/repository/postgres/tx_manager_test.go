package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
)

func TestTxManager(t *testing.T) {
	beginErr := errors.New("begin failed")

	tests := []struct {
		name   string
		expect func(pool pgxmock.PgxPoolIface)
		run    func(t *testing.T, m *TxManager)
	}{
		{
			name: "commit",
			expect: func(pool pgxmock.PgxPoolIface) {
				pool.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
				pool.ExpectCommit()
			},
			run: func(t *testing.T, m *TxManager) {
				tx, err := m.Begin(context.Background())
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if err := tx.Commit(context.Background()); err != nil {
					t.Fatalf("commit failed: %v", err)
				}
			},
		},
		{
			name: "rollback",
			expect: func(pool pgxmock.PgxPoolIface) {
				pool.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
				pool.ExpectRollback()
			},
			run: func(t *testing.T, m *TxManager) {
				tx, err := m.Begin(context.Background())
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if err := tx.Rollback(context.Background()); err != nil {
					t.Fatalf("rollback failed: %v", err)
				}
			},
		},
		{
			name: "rollback after commit is a no-op",
			expect: func(pool pgxmock.PgxPoolIface) {
				pool.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
				pool.ExpectCommit()
				pool.ExpectRollback().WillReturnError(pgx.ErrTxClosed)
			},
			run: func(t *testing.T, m *TxManager) {
				tx, err := m.Begin(context.Background())
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if err := tx.Commit(context.Background()); err != nil {
					t.Fatalf("commit failed: %v", err)
				}
				if err := tx.Rollback(context.Background()); err != nil {
					t.Fatalf("expected deferred rollback to be silent, got %v", err)
				}
			},
		},
		{
			name: "begin error",
			expect: func(pool pgxmock.PgxPoolIface) {
				pool.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted}).WillReturnError(beginErr)
			},
			run: func(t *testing.T, m *TxManager) {
				tx, err := m.Begin(context.Background())
				if !errors.Is(err, beginErr) {
					t.Fatalf("expected begin error, got err=%v tx=%v", err, tx)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := newMockPool(t)
			tt.expect(pool)
			tt.run(t, newTxManagerWithPool(pool))
			assertExpectations(t, pool)
		})
	}
}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	pool, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgxmock pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func assertExpectations(t *testing.T, pool pgxmock.PgxPoolIface) {
	t.Helper()
	if err := pool.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations were not met: %v", err)
	}
}
