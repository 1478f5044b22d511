package syncengine

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/erauner12/finsync-api/internal/ledger"
	"github.com/erauner12/finsync-api/internal/syncx"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Pull returns every change the user's records saw after the watermark.
//
// The watermark is lastSyncAt when given, else the device's stored cursor,
// else the epoch. The cursor advances to ServerSyncAt once the response is
// assembled. ServerSyncAt is capped below any push still in flight, whose
// records are then served by the next pull.
func (e *Engine) Pull(ctx context.Context, userID, deviceID string, lastSyncAt *syncx.Millis) (*PullResponse, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	logger := log.Ctx(ctx).With().
		Str("user_id", userID).
		Str("device_id", deviceID).
		Logger()
	ctx = logger.WithContext(ctx)

	watermark := syncx.Epoch
	if lastSyncAt != nil {
		watermark = *lastSyncAt
	} else {
		c, ok, err := e.cursors.GetCursor(ctx, userID, deviceID)
		if err != nil {
			return nil, fmt.Errorf("load cursor: %w", err)
		}
		if ok {
			watermark = c.LastSyncAt
		}
	}

	// Taken before reading so a write stamped later is served by the next pull
	resp := &PullResponse{
		ServerSyncAt: e.pushes.horizon(),
		LastSyncAt:   watermark,
	}

	err := e.runKinds(ctx,
		func(ctx context.Context) (err error) {
			resp.Expenses, resp.DeletedExpenseIDs, err = pullKind(ctx, e, ledger.KindExpense, e.adapters.Expenses, userID, watermark)
			return err
		},
		func(ctx context.Context) (err error) {
			resp.Budgets, resp.DeletedBudgetIDs, err = pullKind(ctx, e, ledger.KindBudget, e.adapters.Budgets, userID, watermark)
			return err
		},
		func(ctx context.Context) (err error) {
			resp.Bills, resp.DeletedBillIDs, err = pullKind(ctx, e, ledger.KindBill, e.adapters.Bills, userID, watermark)
			return err
		},
	)
	if err != nil {
		logger.Error().Err(err).Msg("pull failed")
		return nil, fmt.Errorf("pull: %w", err)
	}

	resp.TotalChanges = len(resp.Expenses) + len(resp.Budgets) + len(resp.Bills) +
		len(resp.DeletedExpenseIDs) + len(resp.DeletedBudgetIDs) + len(resp.DeletedBillIDs)

	cursor := Cursor{UserID: userID, DeviceID: deviceID, LastSyncAt: resp.ServerSyncAt}
	if err := e.cursors.SaveCursor(ctx, cursor); err != nil {
		logger.Error().Err(err).Msg("failed to save sync cursor after pull")
	}

	logger.Info().
		Str("watermark", watermark.String()).
		Int("changes", resp.TotalChanges).
		Str("server_sync_at", resp.ServerSyncAt.String()).
		Msg("pull completed")

	return resp, nil
}

func pullKind[R Record, D Payload](ctx context.Context, e *Engine, kind ledger.Kind, a Adapter[R, D], userID string, since syncx.Millis) ([]R, []uuid.UUID, error) {
	found, err := a.FindUpdatedSince(ctx, userID, since)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: find updated: %w", kind, err)
	}

	records := make([]R, 0, len(found))
	live := make(map[uuid.UUID]struct{}, len(found))
	for _, r := range found {
		if r.GetOwnerID() != userID || !r.GetUpdatedAt().After(since) {
			continue
		}
		records = append(records, r)
		live[r.GetID()] = struct{}{}
	}
	slices.SortFunc(records, compareRecords[R])

	tombstones, err := e.tombstones.DeletedSince(ctx, userID, kind, since)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: list deletions: %w", kind, err)
	}
	deleted := make([]uuid.UUID, 0, len(tombstones))
	for _, t := range tombstones {
		// re-created after the delete: the live record wins
		if _, ok := live[t.EntityID]; ok {
			continue
		}
		deleted = append(deleted, t.EntityID)
	}

	e.observer.ChangesPulled(kind, len(records), len(deleted))
	return records, deleted, nil
}

// compareRecords orders by (updatedAt, id)
func compareRecords[R Record](a, b R) int {
	if c := cmp.Compare(a.GetUpdatedAt(), b.GetUpdatedAt()); c != 0 {
		return c
	}
	ai, bi := a.GetID(), b.GetID()
	return bytes.Compare(ai[:], bi[:])
}
