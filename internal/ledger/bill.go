package ledger

import (
	"fmt"
	"strings"

	"github.com/erauner12/finsync-api/internal/syncx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Frequency is how often a bill recurs
type Frequency string

const (
	FrequencyWeekly    Frequency = "WEEKLY"
	FrequencyMonthly   Frequency = "MONTHLY"
	FrequencyQuarterly Frequency = "QUARTERLY"
	FrequencyYearly    Frequency = "YEARLY"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	}
	return false
}

const (
	DefaultRemindDaysBefore = 3
	MaxRemindDaysBefore     = 30
)

// Bill is a recurring payment obligation
type Bill struct {
	ID               uuid.UUID        `json:"id"`
	OwnerID          string           `json:"-"`
	Name             string           `json:"name"`
	Category         string           `json:"category,omitempty"`
	Amount           *decimal.Decimal `json:"amount,omitempty"`
	NextDueDate      Date             `json:"nextDueDate"`
	Frequency        Frequency        `json:"frequency"`
	RemindDaysBefore int              `json:"remindDaysBefore"`
	Active           bool             `json:"active"`
	CreatedAt        syncx.Millis     `json:"createdAt"`
	UpdatedAt        syncx.Millis     `json:"updatedAt"`
}

func (b Bill) GetID() uuid.UUID { return b.ID }
func (b Bill) GetOwnerID() string { return b.OwnerID }
func (b Bill) GetCreatedAt() syncx.Millis { return b.CreatedAt }
func (b Bill) GetUpdatedAt() syncx.Millis { return b.UpdatedAt }

// BillData is the client payload for a bill create or update
type BillData struct {
	Name             string           `json:"name"`
	Category         string           `json:"category,omitempty"`
	Amount           *decimal.Decimal `json:"amount,omitempty"`
	NextDueDate      Date             `json:"nextDueDate"`
	Frequency        Frequency        `json:"frequency"`
	RemindDaysBefore *int             `json:"remindDaysBefore,omitempty"`
	Active           *bool            `json:"active,omitempty"`
}

func (d BillData) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPayload)
	}
	if d.Amount != nil && !d.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", ErrInvalidPayload)
	}
	if d.NextDueDate.IsZero() {
		return fmt.Errorf("%w: next due date is required", ErrInvalidPayload)
	}
	if !d.Frequency.Valid() {
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidPayload, d.Frequency)
	}
	if r := d.RemindDaysBefore; r != nil && (*r < 0 || *r > MaxRemindDaysBefore) {
		return fmt.Errorf("%w: remindDaysBefore must be between 0 and %d", ErrInvalidPayload, MaxRemindDaysBefore)
	}
	return nil
}

func NewBill(id uuid.UUID, ownerID string, d BillData, at syncx.Millis) Bill {
	b := Bill{ID: id, OwnerID: ownerID, CreatedAt: at}
	return b.WithData(d, at)
}

func (b Bill) WithData(d BillData, at syncx.Millis) Bill {
	b.Name = strings.TrimSpace(d.Name)
	b.Category = d.Category
	b.Amount = d.Amount
	b.NextDueDate = d.NextDueDate
	b.Frequency = d.Frequency
	b.RemindDaysBefore = DefaultRemindDaysBefore
	if d.RemindDaysBefore != nil {
		b.RemindDaysBefore = *d.RemindDaysBefore
	}
	b.Active = d.Active == nil || *d.Active
	b.UpdatedAt = at
	return b
}
