// Package store is the PostgreSQL implementation of the sync engine's
// storage interfaces: entity adapters, cursors, tombstones and activity.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/erauner12/finsync-api/internal/ledger"
	"github.com/erauner12/finsync-api/internal/syncengine"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is satisfied by *pgxpool.Pool and pgx.Tx
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type scanner interface {
	Scan(dest ...any) error
}

// Store implements syncengine.CursorStore, TombstoneLog and ActivityLog and
// hands out the three entity adapters
type Store struct {
	db DB
}

func New(db DB) *Store {
	return &Store{db: db}
}

// Adapters returns the Postgres-backed entity adapters
func (s *Store) Adapters() syncengine.Adapters {
	return syncengine.Adapters{
		Expenses: &entityRepo[ledger.Expense, ledger.ExpenseData]{db: s.db, schema: expenseSchema},
		Budgets:  &entityRepo[ledger.Budget, ledger.BudgetData]{db: s.db, schema: budgetSchema},
		Bills:    &entityRepo[ledger.Bill, ledger.BillData]{db: s.db, schema: billSchema},
	}
}

// mapError translates driver errors into engine sentinels
func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return syncengine.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return fmt.Errorf("%w: %s", syncengine.ErrAlreadyExists, pgErr.ConstraintName)
	}
	return err
}
