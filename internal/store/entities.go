package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erauner12/finsync-api/internal/ledger"
	"github.com/erauner12/finsync-api/internal/syncengine"
	"github.com/erauner12/finsync-api/internal/syncx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// entitySchema maps one ledger kind onto its table
type entitySchema[R syncengine.Record, D syncengine.Payload] struct {
	kind    ledger.Kind
	table   string
	columns []string
	values  func(R) []any
	scan    func(scanner) (R, error)
	build   func(uuid.UUID, string, D, syncx.Millis) R
	apply   func(R, D, syncx.Millis) R
}

// entityRepo implements syncengine.Adapter on top of an entitySchema
type entityRepo[R syncengine.Record, D syncengine.Payload] struct {
	db     DB
	schema entitySchema[R, D]
}

func (r *entityRepo[R, D]) FindByID(ctx context.Context, id uuid.UUID) (R, bool, error) {
	var zero R
	query, args, err := selectEntityByID(r.schema.table, r.schema.columns, id)
	if err != nil {
		return zero, false, err
	}
	rec, err := r.schema.scan(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("find %s %s: %w", r.schema.kind, id, err)
	}
	return rec, true, nil
}

func (r *entityRepo[R, D]) FindUpdatedSince(ctx context.Context, ownerID string, since syncx.Millis) ([]R, error) {
	query, args, err := selectEntitiesUpdatedSince(r.schema.table, r.schema.columns, ownerID, since)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.schema.kind, err)
	}
	defer rows.Close()

	var out []R
	for rows.Next() {
		rec, err := r.schema.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", r.schema.kind, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *entityRepo[R, D]) Create(ctx context.Context, ownerID string, id uuid.UUID, data D, at syncx.Millis) (R, error) {
	rec := r.schema.build(id, ownerID, data, at)
	var out R
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		query, args, err := insertEntity(r.schema.table, r.schema.columns, id, ownerID, r.schema.values(rec), at, at)
		if err != nil {
			return err
		}
		if out, err = r.schema.scan(tx.QueryRow(ctx, query, args...)); err != nil {
			return mapError(err)
		}

		// A re-created id must not keep reporting itself as deleted
		query, args, err = deleteTombstone(r.schema.kind, id)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, query, args...)
		return err
	})
	if err != nil {
		return out, fmt.Errorf("create %s %s: %w", r.schema.kind, id, err)
	}
	return out, nil
}

func (r *entityRepo[R, D]) Update(ctx context.Context, id uuid.UUID, data D, at syncx.Millis) (R, error) {
	current, found, err := r.FindByID(ctx, id)
	if err != nil {
		return current, err
	}
	if !found {
		return current, fmt.Errorf("update %s %s: %w", r.schema.kind, id, syncengine.ErrNotFound)
	}

	next := r.schema.apply(current, data, at)
	query, args, err := updateEntity(r.schema.table, r.schema.columns, id, r.schema.values(next), at)
	if err != nil {
		return current, err
	}
	out, err := r.schema.scan(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return out, fmt.Errorf("update %s %s: %w", r.schema.kind, id, mapError(err))
	}
	return out, nil
}

func (r *entityRepo[R, D]) Delete(ctx context.Context, id uuid.UUID, at syncx.Millis) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		query, args, err := deleteEntity(r.schema.table, id)
		if err != nil {
			return err
		}
		var ownerID string
		if err := tx.QueryRow(ctx, query, args...).Scan(&ownerID); err != nil {
			return mapError(err)
		}

		query, args, err = upsertTombstone(syncengine.Tombstone{
			Kind:      r.schema.kind,
			EntityID:  id,
			OwnerID:   ownerID,
			DeletedAt: at,
		})
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, query, args...)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", r.schema.kind, id, err)
	}
	return nil
}

var expenseSchema = entitySchema[ledger.Expense, ledger.ExpenseData]{
	kind:    ledger.KindExpense,
	table:   "expense",
	columns: []string{"description", "merchant", "category", "amount", "transaction_date", "payment_method"},
	values: func(e ledger.Expense) []any {
		return []any{e.Description, e.Merchant, e.Category, e.Amount, e.TransactionDate.Time, e.PaymentMethod}
	},
	scan: func(s scanner) (ledger.Expense, error) {
		var e ledger.Expense
		var date time.Time
		err := s.Scan(&e.ID, &e.OwnerID, &e.Description, &e.Merchant, &e.Category, &e.Amount,
			&date, &e.PaymentMethod, &e.CreatedAt, &e.UpdatedAt)
		e.TransactionDate = ledger.DateOf(date)
		return e, err
	},
	build: ledger.NewExpense,
	apply: ledger.Expense.WithData,
}

var budgetSchema = entitySchema[ledger.Budget, ledger.BudgetData]{
	kind:    ledger.KindBudget,
	table:   "budget",
	columns: []string{"name", "amount", "month_year", "active"},
	values: func(b ledger.Budget) []any {
		return []any{b.Name, b.Amount, b.MonthYear.Time, b.Active}
	},
	scan: func(s scanner) (ledger.Budget, error) {
		var b ledger.Budget
		var month time.Time
		err := s.Scan(&b.ID, &b.OwnerID, &b.Name, &b.Amount, &month, &b.Active, &b.CreatedAt, &b.UpdatedAt)
		b.MonthYear = ledger.DateOf(month)
		return b, err
	},
	build: ledger.NewBudget,
	apply: ledger.Budget.WithData,
}

var billSchema = entitySchema[ledger.Bill, ledger.BillData]{
	kind:    ledger.KindBill,
	table:   "bill",
	columns: []string{"name", "category", "amount", "next_due_date", "frequency", "remind_days_before", "active"},
	values: func(b ledger.Bill) []any {
		amount := decimal.NullDecimal{}
		if b.Amount != nil {
			amount = decimal.NewNullDecimal(*b.Amount)
		}
		return []any{b.Name, b.Category, amount, b.NextDueDate.Time, string(b.Frequency), b.RemindDaysBefore, b.Active}
	},
	scan: func(s scanner) (ledger.Bill, error) {
		var b ledger.Bill
		var amount decimal.NullDecimal
		var due time.Time
		var freq string
		err := s.Scan(&b.ID, &b.OwnerID, &b.Name, &b.Category, &amount, &due, &freq,
			&b.RemindDaysBefore, &b.Active, &b.CreatedAt, &b.UpdatedAt)
		if amount.Valid {
			b.Amount = &amount.Decimal
		}
		b.NextDueDate = ledger.DateOf(due)
		b.Frequency = ledger.Frequency(freq)
		return b, err
	},
	build: ledger.NewBill,
	apply: ledger.Bill.WithData,
}
