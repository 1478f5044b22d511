package syncengine

import "github.com/erauner12/finsync-api/internal/syncx"

// Verdict is the Conflict Detector's ruling on one item
type Verdict int

const (
	VerdictApply Verdict = iota
	VerdictConflict
	// VerdictForbidden: the record belongs to another user. Reported with the
	// same message as a missing record and never listed as a conflict.
	VerdictForbidden
	VerdictMalformed
)

// ServerState is what the server holds for the item's id
type ServerState struct {
	Exists    bool
	OwnerID   string
	CreatedAt syncx.Millis
	UpdatedAt syncx.Millis
}

// Untouched reports whether the record is still as its create left it
func (s ServerState) Untouched() bool {
	return s.Exists && s.UpdatedAt == s.CreatedAt
}

// StateOf builds the ServerState of a lookup result
func StateOf[R Record](r R, found bool) ServerState {
	if !found {
		return ServerState{}
	}
	return ServerState{
		Exists:    true,
		OwnerID:   r.GetOwnerID(),
		CreatedAt: r.GetCreatedAt(),
		UpdatedAt: r.GetUpdatedAt(),
	}
}

// Incoming is the engine's view of a pushed item
type Incoming struct {
	Operation       Operation
	ClientUpdatedAt syncx.Millis
	Invalid         error
}

// Decision is the outcome of Classify
type Decision struct {
	Verdict   Verdict
	Reason    ConflictReason
	Effective Operation
	Err       error
}

// Classify decides what to do with one item. It is pure: no I/O, no clock.
//
// The staleness rule is strict: a server timestamp equal to the client's
// token is not newer. A create landing on a record nobody changed since it
// was created is a retry of that create and skips the rule: the server stamp
// is always later than the client's own clock reading.
func Classify(in Incoming, s ServerState, ownerID string) Decision {
	if in.Invalid != nil {
		return Decision{Verdict: VerdictMalformed, Effective: in.Operation, Err: in.Invalid}
	}

	if !s.Exists {
		if in.Operation == OpCreate {
			return Decision{Verdict: VerdictApply, Effective: OpCreate}
		}
		return Decision{Verdict: VerdictConflict, Reason: ReasonMissingOnServer, Effective: in.Operation}
	}

	if s.OwnerID != ownerID {
		return Decision{Verdict: VerdictForbidden, Effective: in.Operation}
	}

	effective := in.Operation
	if effective == OpCreate {
		effective = OpUpdate
	}

	if in.Operation == OpCreate && s.Untouched() {
		return Decision{Verdict: VerdictApply, Effective: effective}
	}

	if s.UpdatedAt.After(in.ClientUpdatedAt) {
		return Decision{Verdict: VerdictConflict, Reason: ReasonServerNewer, Effective: effective}
	}

	return Decision{Verdict: VerdictApply, Effective: effective}
}
