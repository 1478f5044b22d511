package ledger

import (
	"fmt"
	"strings"

	"github.com/erauner12/finsync-api/internal/syncx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Budget is a spending limit for one calendar month
type Budget struct {
	ID        uuid.UUID       `json:"id"`
	OwnerID   string          `json:"-"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	MonthYear Date            `json:"monthYear"`
	Active    bool            `json:"active"`
	CreatedAt syncx.Millis    `json:"createdAt"`
	UpdatedAt syncx.Millis    `json:"updatedAt"`
}

func (b Budget) GetID() uuid.UUID { return b.ID }
func (b Budget) GetOwnerID() string { return b.OwnerID }
func (b Budget) GetCreatedAt() syncx.Millis { return b.CreatedAt }
func (b Budget) GetUpdatedAt() syncx.Millis { return b.UpdatedAt }

// BudgetData is the client payload for a budget create or update.
// Active defaults to true when omitted.
type BudgetData struct {
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	MonthYear Date            `json:"monthYear"`
	Active    *bool           `json:"active,omitempty"`
}

func (d BudgetData) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPayload)
	}
	if !d.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", ErrInvalidPayload)
	}
	if d.MonthYear.IsZero() {
		return fmt.Errorf("%w: month/year is required", ErrInvalidPayload)
	}
	return nil
}

func NewBudget(id uuid.UUID, ownerID string, d BudgetData, at syncx.Millis) Budget {
	b := Budget{ID: id, OwnerID: ownerID, CreatedAt: at}
	return b.WithData(d, at)
}

// WithData replaces the mutable fields, normalizing MonthYear to the first of the month
func (b Budget) WithData(d BudgetData, at syncx.Millis) Budget {
	b.Name = strings.TrimSpace(d.Name)
	b.Amount = d.Amount
	b.MonthYear = d.MonthYear.FirstOfMonth()
	b.Active = d.Active == nil || *d.Active
	b.UpdatedAt = at
	return b
}
