// Package ledger holds the financial records that clients replicate:
// expenses, monthly budgets and recurring bills.
package ledger

import "errors"

// Kind names an entity kind on the wire and in storage
type Kind string

const (
	KindExpense Kind = "expense"
	KindBudget  Kind = "budget"
	KindBill    Kind = "bill"
)

// Kinds lists every kind in the order the engine processes them
var Kinds = []Kind{KindExpense, KindBudget, KindBill}

func (k Kind) String() string { return string(k) }

// ErrInvalidPayload is wrapped by every Validate failure
var ErrInvalidPayload = errors.New("invalid payload")
