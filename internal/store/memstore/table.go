package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/erauner12/finsync-api/internal/ledger"
	"github.com/erauner12/finsync-api/internal/syncengine"
	"github.com/erauner12/finsync-api/internal/syncx"
	"github.com/google/uuid"
)

// table is one entity kind keyed by id. It locks its parent Store.
type table[R syncengine.Record, D syncengine.Payload] struct {
	s     *Store
	kind  ledger.Kind
	rows  map[uuid.UUID]R
	build func(id uuid.UUID, ownerID string, data D, at syncx.Millis) R
	apply func(r R, data D, at syncx.Millis) R
}

func newTable[R syncengine.Record, D syncengine.Payload](
	s *Store,
	kind ledger.Kind,
	build func(uuid.UUID, string, D, syncx.Millis) R,
	apply func(R, D, syncx.Millis) R,
) *table[R, D] {
	return &table[R, D]{s: s, kind: kind, rows: make(map[uuid.UUID]R), build: build, apply: apply}
}

func (t *table[R, D]) FindByID(ctx context.Context, id uuid.UUID) (R, bool, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	r, ok := t.rows[id]
	return r, ok, nil
}

func (t *table[R, D]) FindUpdatedSince(ctx context.Context, ownerID string, since syncx.Millis) ([]R, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	out := make([]R, 0)
	for _, r := range t.rows {
		if r.GetOwnerID() == ownerID && r.GetUpdatedAt().After(since) {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b R) int {
		if c := cmp.Compare(a.GetUpdatedAt(), b.GetUpdatedAt()); c != 0 {
			return c
		}
		return cmp.Compare(a.GetID().String(), b.GetID().String())
	})
	return out, nil
}

func (t *table[R, D]) Create(ctx context.Context, ownerID string, id uuid.UUID, data D, at syncx.Millis) (R, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if _, ok := t.rows[id]; ok {
		var zero R
		return zero, fmt.Errorf("%s %s: %w", t.kind, id, syncengine.ErrAlreadyExists)
	}
	r := t.build(id, ownerID, data, at)
	t.rows[id] = r
	delete(t.s.tombstones, tombstoneKey{t.kind, id})
	return r, nil
}

func (t *table[R, D]) Update(ctx context.Context, id uuid.UUID, data D, at syncx.Millis) (R, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	r, ok := t.rows[id]
	if !ok {
		var zero R
		return zero, fmt.Errorf("%s %s: %w", t.kind, id, syncengine.ErrNotFound)
	}
	r = t.apply(r, data, at)
	t.rows[id] = r
	return r, nil
}

func (t *table[R, D]) Delete(ctx context.Context, id uuid.UUID, at syncx.Millis) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	r, ok := t.rows[id]
	if !ok {
		return fmt.Errorf("%s %s: %w", t.kind, id, syncengine.ErrNotFound)
	}
	delete(t.rows, id)
	t.s.tombstones[tombstoneKey{t.kind, id}] = syncengine.Tombstone{
		Kind:      t.kind,
		EntityID:  id,
		OwnerID:   r.GetOwnerID(),
		DeletedAt: at,
	}
	return nil
}

func sortTombstones(ts []syncengine.Tombstone) {
	slices.SortFunc(ts, func(a, b syncengine.Tombstone) int {
		if c := cmp.Compare(a.DeletedAt, b.DeletedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.EntityID.String(), b.EntityID.String())
	})
}
