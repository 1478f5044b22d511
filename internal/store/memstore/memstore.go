// Package memstore is an in-memory implementation of the sync engine's
// storage interfaces, used in dev mode and by tests.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/erauner12/finsync-api/internal/ledger"
	"github.com/erauner12/finsync-api/internal/syncengine"
	"github.com/erauner12/finsync-api/internal/syncx"
	"github.com/google/uuid"
)

type cursorKey struct {
	userID   string
	deviceID string
}

type tombstoneKey struct {
	kind ledger.Kind
	id   uuid.UUID
}

// Store holds every table behind one mutex so a delete and its tombstone
// are written atomically
type Store struct {
	mu sync.RWMutex

	expenses *table[ledger.Expense, ledger.ExpenseData]
	budgets  *table[ledger.Budget, ledger.BudgetData]
	bills    *table[ledger.Bill, ledger.BillData]

	cursors    map[cursorKey]syncengine.Cursor
	tombstones map[tombstoneKey]syncengine.Tombstone
	activity   map[string]syncx.Millis
	subjects   map[string]string
}

func New() *Store {
	s := &Store{
		cursors:    make(map[cursorKey]syncengine.Cursor),
		tombstones: make(map[tombstoneKey]syncengine.Tombstone),
		activity:   make(map[string]syncx.Millis),
		subjects:   make(map[string]string),
	}
	s.expenses = newTable(s, ledger.KindExpense, ledger.NewExpense, ledger.Expense.WithData)
	s.budgets = newTable(s, ledger.KindBudget, ledger.NewBudget, ledger.Budget.WithData)
	s.bills = newTable(s, ledger.KindBill, ledger.NewBill, ledger.Bill.WithData)
	return s
}

// Adapters returns the entity adapters backed by this store
func (s *Store) Adapters() syncengine.Adapters {
	return syncengine.Adapters{
		Expenses: s.expenses,
		Budgets:  s.budgets,
		Bills:    s.bills,
	}
}

// Count reports the number of live records of a kind
func (s *Store) Count(kind ledger.Kind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch kind {
	case ledger.KindExpense:
		return len(s.expenses.rows)
	case ledger.KindBudget:
		return len(s.budgets.rows)
	case ledger.KindBill:
		return len(s.bills.rows)
	}
	return 0
}

func (s *Store) GetCursor(ctx context.Context, userID, deviceID string) (syncengine.Cursor, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cursors[cursorKey{userID, deviceID}]
	return c, ok, nil
}

func (s *Store) SaveCursor(ctx context.Context, c syncengine.Cursor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors[cursorKey{c.UserID, c.DeviceID}] = c
	return nil
}

func (s *Store) DeletedSince(ctx context.Context, ownerID string, kind ledger.Kind, since syncx.Millis) ([]syncengine.Tombstone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]syncengine.Tombstone, 0)
	for _, t := range s.tombstones {
		if t.Kind == kind && t.OwnerID == ownerID && t.DeletedAt.After(since) {
			out = append(out, t)
		}
	}
	sortTombstones(out)
	return out, nil
}

func (s *Store) PruneBefore(ctx context.Context, before syncx.Millis) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, t := range s.tombstones {
		if t.DeletedAt < before {
			delete(s.tombstones, k)
			n++
		}
	}
	return n, nil
}

func (s *Store) TouchMutation(ctx context.Context, ownerID string, at syncx.Millis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if at > s.activity[ownerID] {
		s.activity[ownerID] = at
	}
	return nil
}

func (s *Store) LastMutation(ctx context.Context, ownerID string) (syncx.Millis, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	at, ok := s.activity[ownerID]
	return at, ok, nil
}

// ResolveSubject maps an auth subject to a stable user id, creating one on first sight
func (s *Store) ResolveSubject(ctx context.Context, sub string) (string, error) {
	if sub == "" {
		return "", fmt.Errorf("empty subject")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.subjects[sub]; ok {
		return id, nil
	}
	id := uuid.NewString()
	s.subjects[sub] = id
	return id, nil
}
