package syncengine

import (
	"fmt"
	"strings"

	"github.com/erauner12/finsync-api/internal/ledger"
	"github.com/erauner12/finsync-api/internal/syncx"
	"github.com/google/uuid"
)

// Operation is the mutation a client requests for one entity
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// ParseOperation accepts the operation name in any letter case
func ParseOperation(s string) (Operation, error) {
	switch op := Operation(strings.ToLower(strings.TrimSpace(s))); op {
	case OpCreate, OpUpdate, OpDelete:
		return op, nil
	}
	return "", fmt.Errorf("unknown operation %q", s)
}

// ConflictReason explains why an item was not applied
type ConflictReason string

const (
	ReasonServerNewer     ConflictReason = "server_newer"
	ReasonMissingOnServer ConflictReason = "missing_on_server"
)

// PushRequest is the body of POST /v1/sync/push
type PushRequest struct {
	LastSyncAt *syncx.Millis                    `json:"lastSyncAt"`
	DeviceID   string                           `json:"deviceId,omitempty"`
	Expenses   []SyncEntity[ledger.ExpenseData] `json:"expenses,omitempty"`
	Budgets    []SyncEntity[ledger.BudgetData]  `json:"budgets,omitempty"`
	Bills      []SyncEntity[ledger.BillData]    `json:"bills,omitempty"`
}

// Size is the number of items across all kinds
func (r *PushRequest) Size() int {
	return len(r.Expenses) + len(r.Budgets) + len(r.Bills)
}

// SyncConflict reports an item that was not applied because server state disagreed
type SyncConflict struct {
	EntityType      ledger.Kind    `json:"entityType"`
	EntityID        uuid.UUID      `json:"entityId"`
	Reason          ConflictReason `json:"reason"`
	ServerUpdatedAt *syncx.Millis  `json:"serverUpdatedAt"`
	ClientUpdatedAt syncx.Millis   `json:"clientUpdatedAt"`
}

// SyncResult is the fate of one pushed item
type SyncResult struct {
	EntityType       ledger.Kind `json:"entityType"`
	EntityID         string      `json:"entityId"`
	Operation        Operation   `json:"operation"`
	Success          bool        `json:"success"`
	Message          string      `json:"message"`
	ServerAssignedID *uuid.UUID  `json:"serverAssignedId"`
}

// PushResponse is returned by Push
type PushResponse struct {
	ServerSyncAt   syncx.Millis   `json:"serverSyncAt"`
	ProcessedCount int            `json:"processedCount"`
	ConflictCount  int            `json:"conflictCount"`
	Conflicts      []SyncConflict `json:"conflicts"`
	Results        []SyncResult   `json:"results"`
}

// PullResponse is returned by Pull. Slices are never nil.
type PullResponse struct {
	ServerSyncAt      syncx.Millis     `json:"serverSyncAt"`
	LastSyncAt        syncx.Millis     `json:"lastSyncAt"`
	TotalChanges      int              `json:"totalChanges"`
	Expenses          []ledger.Expense `json:"expenses"`
	Budgets           []ledger.Budget  `json:"budgets"`
	Bills             []ledger.Bill    `json:"bills"`
	DeletedExpenseIDs []uuid.UUID      `json:"deletedExpenseIds"`
	DeletedBudgetIDs  []uuid.UUID      `json:"deletedBudgetIds"`
	DeletedBillIDs    []uuid.UUID      `json:"deletedBillIds"`
}

// StatusResponse is returned by Status
type StatusResponse struct {
	LastSyncAt         *syncx.Millis `json:"lastSyncAt"`
	HasUnsyncedChanges bool          `json:"hasUnsyncedChanges"`
}
