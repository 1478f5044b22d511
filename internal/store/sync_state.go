package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/erauner12/finsync-api/internal/ledger"
	"github.com/erauner12/finsync-api/internal/syncengine"
	"github.com/erauner12/finsync-api/internal/syncx"
	"github.com/jackc/pgx/v5"
)

func (s *Store) GetCursor(ctx context.Context, userID, deviceID string) (syncengine.Cursor, bool, error) {
	c := syncengine.Cursor{UserID: userID, DeviceID: deviceID}
	query, args, err := selectCursor(userID, deviceID)
	if err != nil {
		return c, false, err
	}
	err = s.db.QueryRow(ctx, query, args...).Scan(&c.LastSyncAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return c, false, nil
	}
	if err != nil {
		return c, false, fmt.Errorf("get cursor: %w", err)
	}
	return c, true, nil
}

func (s *Store) SaveCursor(ctx context.Context, c syncengine.Cursor) error {
	query, args, err := upsertCursor(c)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	return nil
}

func (s *Store) DeletedSince(ctx context.Context, ownerID string, kind ledger.Kind, since syncx.Millis) ([]syncengine.Tombstone, error) {
	query, args, err := selectTombstonesSince(ownerID, kind, since)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tombstones: %w", err)
	}
	defer rows.Close()

	var out []syncengine.Tombstone
	for rows.Next() {
		t := syncengine.Tombstone{Kind: kind}
		if err := rows.Scan(&t.EntityID, &t.OwnerID, &t.DeletedAt); err != nil {
			return nil, fmt.Errorf("scan tombstone: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) PruneBefore(ctx context.Context, before syncx.Millis) (int, error) {
	query, args, err := deleteTombstonesBefore(before)
	if err != nil {
		return 0, err
	}
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("prune tombstones: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) TouchMutation(ctx context.Context, ownerID string, at syncx.Millis) error {
	query, args, err := upsertActivity(ownerID, at)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("touch activity: %w", err)
	}
	return nil
}

func (s *Store) LastMutation(ctx context.Context, ownerID string) (syncx.Millis, bool, error) {
	query, args, err := selectActivity(ownerID)
	if err != nil {
		return 0, false, err
	}
	var at syncx.Millis
	err = s.db.QueryRow(ctx, query, args...).Scan(&at)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read activity: %w", err)
	}
	return at, true, nil
}

// ResolveSubject maps an auth subject to its app_user id, creating the
// user on first sight
func (s *Store) ResolveSubject(ctx context.Context, sub string) (string, error) {
	if sub == "" {
		return "", fmt.Errorf("empty subject")
	}
	query, args, err := upsertSubject(sub)
	if err != nil {
		return "", err
	}
	var id string
	if err := s.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return "", fmt.Errorf("resolve subject: %w", err)
	}
	return id, nil
}
