package ledger

import (
	"fmt"
	"strings"

	"github.com/erauner12/finsync-api/internal/syncx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Expense is a single spending transaction
type Expense struct {
	ID              uuid.UUID       `json:"id"`
	OwnerID         string          `json:"-"`
	Description     string          `json:"description"`
	Merchant        string          `json:"merchant,omitempty"`
	Category        string          `json:"category,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionDate Date            `json:"transactionDate"`
	PaymentMethod   string          `json:"paymentMethod,omitempty"`
	CreatedAt       syncx.Millis    `json:"createdAt"`
	UpdatedAt       syncx.Millis    `json:"updatedAt"`
}

func (e Expense) GetID() uuid.UUID { return e.ID }
func (e Expense) GetOwnerID() string { return e.OwnerID }
func (e Expense) GetCreatedAt() syncx.Millis { return e.CreatedAt }
func (e Expense) GetUpdatedAt() syncx.Millis { return e.UpdatedAt }

// ExpenseData is the client payload for an expense create or update
type ExpenseData struct {
	Description     string          `json:"description"`
	Merchant        string          `json:"merchant,omitempty"`
	Category        string          `json:"category,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionDate Date            `json:"transactionDate"`
	PaymentMethod   string          `json:"paymentMethod,omitempty"`
}

func (d ExpenseData) Validate() error {
	if strings.TrimSpace(d.Description) == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidPayload)
	}
	if !d.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", ErrInvalidPayload)
	}
	if d.TransactionDate.IsZero() {
		return fmt.Errorf("%w: transaction date is required", ErrInvalidPayload)
	}
	return nil
}

// NewExpense builds a freshly created expense stamped at `at`
func NewExpense(id uuid.UUID, ownerID string, d ExpenseData, at syncx.Millis) Expense {
	e := Expense{ID: id, OwnerID: ownerID, CreatedAt: at}
	return e.WithData(d, at)
}

// WithData replaces the mutable fields and bumps UpdatedAt
func (e Expense) WithData(d ExpenseData, at syncx.Millis) Expense {
	e.Description = strings.TrimSpace(d.Description)
	e.Merchant = d.Merchant
	e.Category = d.Category
	e.Amount = d.Amount
	e.TransactionDate = d.TransactionDate
	e.PaymentMethod = d.PaymentMethod
	e.UpdatedAt = at
	return e
}
