package syncengine

import (
	"context"
	"errors"

	"github.com/erauner12/finsync-api/internal/ledger"
	"github.com/erauner12/finsync-api/internal/syncx"
	"github.com/google/uuid"
)

var (
	// ErrUnauthenticated is returned when a call arrives without a user id
	ErrUnauthenticated = errors.New("user not authenticated")

	// ErrNotFound is returned by adapters when the target record does not exist
	ErrNotFound = errors.New("entity not found")

	// ErrAlreadyExists is returned by Adapter.Create when the id is taken
	ErrAlreadyExists = errors.New("entity already exists")

	// ErrBatchTooLarge is returned when a push exceeds Options.MaxBatch
	ErrBatchTooLarge = errors.New("batch too large")
)

// Record is the view the engine needs of any stored entity
type Record interface {
	GetID() uuid.UUID
	GetOwnerID() string
	GetCreatedAt() syncx.Millis
	GetUpdatedAt() syncx.Millis
}

// Adapter exposes one entity kind to the engine.
//
// FindByID is not owner-scoped: the engine performs the ownership check so it
// can tell "missing" from "owned by someone else". Mutations carry the
// server timestamp to stamp on the record. Delete records a tombstone in the
// same write; Create clears any tombstone left for the id.
type Adapter[R Record, D Payload] interface {
	FindByID(ctx context.Context, id uuid.UUID) (R, bool, error)
	FindUpdatedSince(ctx context.Context, ownerID string, since syncx.Millis) ([]R, error)
	Create(ctx context.Context, ownerID string, id uuid.UUID, data D, at syncx.Millis) (R, error)
	Update(ctx context.Context, id uuid.UUID, data D, at syncx.Millis) (R, error)
	Delete(ctx context.Context, id uuid.UUID, at syncx.Millis) error
}

// Adapters bundles the three entity kinds the engine synchronizes
type Adapters struct {
	Expenses Adapter[ledger.Expense, ledger.ExpenseData]
	Budgets  Adapter[ledger.Budget, ledger.BudgetData]
	Bills    Adapter[ledger.Bill, ledger.BillData]
}

// Cursor is the sync watermark of one (user, device) pair
type Cursor struct {
	UserID     string
	DeviceID   string
	LastSyncAt syncx.Millis
}

// CursorStore persists cursors. SaveCursor is an upsert.
type CursorStore interface {
	GetCursor(ctx context.Context, userID, deviceID string) (Cursor, bool, error)
	SaveCursor(ctx context.Context, c Cursor) error
}

// Tombstone marks a deleted record so pulls can propagate the deletion
type Tombstone struct {
	Kind      ledger.Kind
	EntityID  uuid.UUID
	OwnerID   string
	DeletedAt syncx.Millis
}

// TombstoneLog is the read side of the deletion log written by Adapter.Delete
type TombstoneLog interface {
	// DeletedSince returns tombstones with DeletedAt > since, oldest first
	DeletedSince(ctx context.Context, ownerID string, kind ledger.Kind, since syncx.Millis) ([]Tombstone, error)
	PruneBefore(ctx context.Context, before syncx.Millis) (int, error)
}

// ActivityLog tracks the last server-side mutation per user
type ActivityLog interface {
	// TouchMutation never moves the stored value backwards
	TouchMutation(ctx context.Context, ownerID string, at syncx.Millis) error
	LastMutation(ctx context.Context, ownerID string) (syncx.Millis, bool, error)
}

// Item outcomes reported to the Observer
const (
	OutcomeApplied  = "applied"
	OutcomeConflict = "conflict"
	OutcomeRejected = "rejected"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

// Observer receives sync events, typically for metrics
type Observer interface {
	ItemProcessed(kind ledger.Kind, op Operation, outcome string)
	ConflictDetected(kind ledger.Kind, reason ConflictReason)
	ChangesPulled(kind ledger.Kind, upserts, deletes int)
}

type nopObserver struct{}

func (nopObserver) ItemProcessed(ledger.Kind, Operation, string) {}
func (nopObserver) ConflictDetected(ledger.Kind, ConflictReason) {}
func (nopObserver) ChangesPulled(ledger.Kind, int, int) {}
