package syncengine

import (
	"context"
	"errors"
	"fmt"

	"github.com/erauner12/finsync-api/internal/ledger"
	"github.com/erauner12/finsync-api/internal/syncx"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	msgNotFound    = "entity not found"
	msgServerNewer = "Conflict: server has newer version"
	msgStorage     = "storage error"
)

var successMessages = map[Operation]string{
	OpCreate: "Created successfully",
	OpUpdate: "Updated successfully",
	OpDelete: "Deleted successfully",
}

// Push applies a batch of client mutations.
//
// Items are judged one by one; a failure never rolls back other items. The
// device cursor advances to ServerSyncAt even when some items conflicted:
// the client resolves from the conflict list. While older pushes are still
// in flight, ServerSyncAt stays below their stamps. A cancelled context aborts
// the batch with an error and leaves the cursor untouched; items applied
// before the cancellation stay applied.
func (e *Engine) Push(ctx context.Context, userID string, req *PushRequest) (*PushResponse, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if req == nil {
		req = &PushRequest{}
	}
	if e.opts.MaxBatch > 0 && req.Size() > e.opts.MaxBatch {
		return nil, fmt.Errorf("%w: %d items, max %d", ErrBatchTooLarge, req.Size(), e.opts.MaxBatch)
	}

	logger := log.Ctx(ctx).With().
		Str("user_id", userID).
		Str("device_id", req.DeviceID).
		Logger()
	ctx = logger.WithContext(ctx)

	// Every mutation of the batch is stamped with the push start time, so the
	// pushing device's new cursor covers exactly its own writes.
	serverSyncAt := e.pushes.begin()
	defer e.pushes.end(serverSyncAt)

	var expenses, budgets, bills kindOutcome
	err := e.runKinds(ctx,
		func(ctx context.Context) (err error) {
			expenses, err = pushKind(ctx, e, ledger.KindExpense, e.adapters.Expenses, userID, serverSyncAt, req.Expenses)
			return err
		},
		func(ctx context.Context) (err error) {
			budgets, err = pushKind(ctx, e, ledger.KindBudget, e.adapters.Budgets, userID, serverSyncAt, req.Budgets)
			return err
		},
		func(ctx context.Context) (err error) {
			bills, err = pushKind(ctx, e, ledger.KindBill, e.adapters.Bills, userID, serverSyncAt, req.Bills)
			return err
		},
	)
	if err != nil {
		logger.Warn().Err(err).Msg("push aborted")
		return nil, fmt.Errorf("push aborted: %w", err)
	}

	resp := &PushResponse{
		ServerSyncAt: e.pushes.end(serverSyncAt),
		Conflicts:    make([]SyncConflict, 0),
		Results:      make([]SyncResult, 0, req.Size()),
	}
	applied := 0
	for _, o := range []kindOutcome{expenses, budgets, bills} {
		resp.Results = append(resp.Results, o.results...)
		resp.Conflicts = append(resp.Conflicts, o.conflicts...)
		applied += o.applied
	}
	resp.ProcessedCount = applied
	resp.ConflictCount = len(resp.Conflicts)

	if applied > 0 {
		if err := e.activity.TouchMutation(ctx, userID, serverSyncAt); err != nil {
			logger.Error().Err(err).Msg("failed to record mutation activity")
		}
	}

	cursor := Cursor{UserID: userID, DeviceID: req.DeviceID, LastSyncAt: resp.ServerSyncAt}
	if err := e.cursors.SaveCursor(ctx, cursor); err != nil {
		logger.Error().Err(err).Msg("failed to save sync cursor after push")
	}

	logger.Info().
		Int("items", req.Size()).
		Int("processed", resp.ProcessedCount).
		Int("conflicts", resp.ConflictCount).
		Str("server_sync_at", resp.ServerSyncAt.String()).
		Msg("push completed")

	return resp, nil
}

type kindOutcome struct {
	results   []SyncResult
	conflicts []SyncConflict
	applied   int
}

// kindPusher processes the items of one kind in submission order
type kindPusher[R Record, D Payload] struct {
	e       *Engine
	kind    ledger.Kind
	adapter Adapter[R, D]
	userID  string
	at      syncx.Millis

	// pre-batch updatedAt of every id this batch already mutated (0 if the
	// batch created it), so chained operations on one id are not judged
	// against stamps the batch itself wrote
	baseline map[uuid.UUID]syncx.Millis
	out      kindOutcome
}

func pushKind[R Record, D Payload](ctx context.Context, e *Engine, kind ledger.Kind, a Adapter[R, D], userID string, at syncx.Millis, items []SyncEntity[D]) (kindOutcome, error) {
	p := &kindPusher[R, D]{
		e:        e,
		kind:     kind,
		adapter:  a,
		userID:   userID,
		at:       at,
		baseline: make(map[uuid.UUID]syncx.Millis),
		out:      kindOutcome{results: make([]SyncResult, 0, len(items))},
	}
	for i := range items {
		if err := ctx.Err(); err != nil {
			return p.out, err
		}
		if err := p.push(ctx, &items[i]); err != nil {
			return p.out, err
		}
	}
	return p.out, nil
}

// push handles one item. Only context errors are returned.
func (p *kindPusher[R, D]) push(ctx context.Context, item *SyncEntity[D]) error {
	in := Incoming{
		Operation:       item.Operation,
		ClientUpdatedAt: item.ClientUpdatedAt,
		Invalid:         item.Check(),
	}
	if in.Invalid != nil {
		p.fail(ctx, item, in.Operation, "Invalid item: "+in.Invalid.Error(), OutcomeInvalid)
		return nil
	}

	// One retry: a create that loses an insert race is re-judged as an update
	for attempt := 0; ; attempt++ {
		existing, found, err := p.adapter.FindByID(ctx, item.ID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			log.Ctx(ctx).Error().Err(err).
				Str("kind", p.kind.String()).
				Str("entity_id", item.ID.String()).
				Msg("failed to load entity")
			p.fail(ctx, item, in.Operation, msgStorage, OutcomeError)
			return nil
		}

		state := StateOf(existing, found)
		serverAt := state.UpdatedAt
		if base, ok := p.baseline[item.ID]; ok && state.Exists {
			state.UpdatedAt = base
		}

		d := Classify(in, state, p.userID)
		switch d.Verdict {
		case VerdictConflict:
			p.conflict(ctx, item, d, found, serverAt)
			return nil
		case VerdictForbidden:
			log.Ctx(ctx).Warn().
				Str("kind", p.kind.String()).
				Str("entity_id", item.ID.String()).
				Msg("push targets entity owned by another user")
			p.fail(ctx, item, d.Effective, msgNotFound, OutcomeRejected)
			return nil
		}

		err = p.apply(ctx, item, d.Effective, state)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrAlreadyExists) && attempt == 0:
			continue
		case errors.Is(err, ErrNotFound):
			d = Decision{Verdict: VerdictConflict, Reason: ReasonMissingOnServer, Effective: d.Effective}
			p.conflict(ctx, item, d, false, 0)
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			log.Ctx(ctx).Error().Err(err).
				Str("kind", p.kind.String()).
				Str("entity_id", item.ID.String()).
				Str("operation", string(d.Effective)).
				Msg("failed to apply entity")
			p.fail(ctx, item, d.Effective, msgStorage, OutcomeError)
			return nil
		}
	}
}

func (p *kindPusher[R, D]) apply(ctx context.Context, item *SyncEntity[D], op Operation, prior ServerState) error {
	var err error
	switch op {
	case OpCreate:
		_, err = p.adapter.Create(ctx, p.userID, item.ID, *item.Data, p.at)
	case OpUpdate:
		_, err = p.adapter.Update(ctx, item.ID, *item.Data, p.at)
	case OpDelete:
		err = p.adapter.Delete(ctx, item.ID, p.at)
	default:
		err = fmt.Errorf("unknown operation %q", op)
	}
	if err != nil {
		return err
	}

	if _, seen := p.baseline[item.ID]; !seen {
		p.baseline[item.ID] = prior.UpdatedAt
	}

	var assigned *uuid.UUID
	if op != OpDelete {
		id := item.ID
		assigned = &id
	}
	p.out.results = append(p.out.results, SyncResult{
		EntityType:       p.kind,
		EntityID:         item.ID.String(),
		Operation:        op,
		Success:          true,
		Message:          successMessages[op],
		ServerAssignedID: assigned,
	})
	p.out.applied++
	p.e.observer.ItemProcessed(p.kind, op, OutcomeApplied)
	return nil
}

func (p *kindPusher[R, D]) conflict(ctx context.Context, item *SyncEntity[D], d Decision, found bool, serverAt syncx.Millis) {
	c := SyncConflict{
		EntityType:      p.kind,
		EntityID:        item.ID,
		Reason:          d.Reason,
		ClientUpdatedAt: item.ClientUpdatedAt,
	}
	msg := msgNotFound
	if found {
		c.ServerUpdatedAt = &serverAt
	}
	if d.Reason == ReasonServerNewer {
		msg = msgServerNewer
	}

	log.Ctx(ctx).Warn().
		Str("kind", p.kind.String()).
		Str("entity_id", item.ID.String()).
		Str("reason", string(d.Reason)).
		Msg("sync conflict")

	p.out.conflicts = append(p.out.conflicts, c)
	p.out.results = append(p.out.results, SyncResult{
		EntityType: p.kind,
		EntityID:   item.ID.String(),
		Operation:  d.Effective,
		Message:    msg,
	})
	p.e.observer.ConflictDetected(p.kind, d.Reason)
	p.e.observer.ItemProcessed(p.kind, d.Effective, OutcomeConflict)
}

func (p *kindPusher[R, D]) fail(ctx context.Context, item *SyncEntity[D], op Operation, msg, outcome string) {
	if outcome == OutcomeInvalid {
		log.Ctx(ctx).Warn().
			Str("kind", p.kind.String()).
			Str("entity_id", item.DisplayID()).
			Str("reason", msg).
			Msg("rejected malformed item")
	}
	p.out.results = append(p.out.results, SyncResult{
		EntityType: p.kind,
		EntityID:   item.DisplayID(),
		Operation:  op,
		Message:    msg,
	})
	p.e.observer.ItemProcessed(p.kind, op, outcome)
}
