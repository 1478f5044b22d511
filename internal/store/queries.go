package store

import (
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/erauner12/finsync-api/internal/ledger"
	"github.com/erauner12/finsync-api/internal/syncengine"
	"github.com/erauner12/finsync-api/internal/syncx"
	"github.com/google/uuid"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const (
	colID        = "uid"
	colOwner     = "owner_id"
	colCreatedAt = "created_at_ms"
	colUpdatedAt = "updated_at_ms"
)

// rowColumns is the full column list of an entity table in scan order
func rowColumns(dataCols []string) []string {
	cols := make([]string, 0, len(dataCols)+4)
	cols = append(cols, colID, colOwner)
	cols = append(cols, dataCols...)
	return append(cols, colCreatedAt, colUpdatedAt)
}

func returning(cols []string) string {
	return "RETURNING " + strings.Join(cols, ", ")
}

func selectEntityByID(table string, dataCols []string, id uuid.UUID) (string, []any, error) {
	return psql.Select(rowColumns(dataCols)...).
		From(table).
		Where(sq.Eq{colID: id.String()}).
		ToSql()
}

func selectEntitiesUpdatedSince(table string, dataCols []string, ownerID string, since syncx.Millis) (string, []any, error) {
	return psql.Select(rowColumns(dataCols)...).
		From(table).
		Where(sq.Eq{colOwner: ownerID}).
		Where(sq.Gt{colUpdatedAt: int64(since)}).
		OrderBy(colUpdatedAt, colID).
		ToSql()
}

// insertEntity writes a new row; values follow dataCols
func insertEntity(table string, dataCols []string, id uuid.UUID, ownerID string, values []any, createdAt, updatedAt syncx.Millis) (string, []any, error) {
	row := make([]any, 0, len(values)+4)
	row = append(row, id, ownerID)
	row = append(row, values...)
	row = append(row, int64(createdAt), int64(updatedAt))

	return psql.Insert(table).
		Columns(rowColumns(dataCols)...).
		Values(row...).
		Suffix(returning(rowColumns(dataCols))).
		ToSql()
}

func updateEntity(table string, dataCols []string, id uuid.UUID, values []any, at syncx.Millis) (string, []any, error) {
	b := psql.Update(table)
	for i, col := range dataCols {
		b = b.Set(col, values[i])
	}
	return b.Set(colUpdatedAt, int64(at)).
		Where(sq.Eq{colID: id.String()}).
		Suffix(returning(rowColumns(dataCols))).
		ToSql()
}

func deleteEntity(table string, id uuid.UUID) (string, []any, error) {
	return psql.Delete(table).
		Where(sq.Eq{colID: id.String()}).
		Suffix(returning([]string{colOwner})).
		ToSql()
}

func upsertTombstone(t syncengine.Tombstone) (string, []any, error) {
	return psql.Insert("sync_tombstone").
		Columns("entity_kind", "entity_uid", "owner_id", "deleted_at_ms").
		Values(string(t.Kind), t.EntityID, t.OwnerID, int64(t.DeletedAt)).
		Suffix("ON CONFLICT (entity_kind, entity_uid) DO UPDATE SET owner_id = EXCLUDED.owner_id, deleted_at_ms = EXCLUDED.deleted_at_ms").
		ToSql()
}

func deleteTombstone(kind ledger.Kind, id uuid.UUID) (string, []any, error) {
	return psql.Delete("sync_tombstone").
		Where(sq.Eq{"entity_kind": string(kind), "entity_uid": id.String()}).
		ToSql()
}

func selectTombstonesSince(ownerID string, kind ledger.Kind, since syncx.Millis) (string, []any, error) {
	return psql.Select("entity_uid", "owner_id", "deleted_at_ms").
		From("sync_tombstone").
		Where(sq.Eq{"owner_id": ownerID, "entity_kind": string(kind)}).
		Where(sq.Gt{"deleted_at_ms": int64(since)}).
		OrderBy("deleted_at_ms", "entity_uid").
		ToSql()
}

func deleteTombstonesBefore(before syncx.Millis) (string, []any, error) {
	return psql.Delete("sync_tombstone").
		Where(sq.Lt{"deleted_at_ms": int64(before)}).
		ToSql()
}

func selectCursor(userID, deviceID string) (string, []any, error) {
	return psql.Select("last_sync_at_ms").
		From("sync_cursor").
		Where(sq.Eq{"owner_id": userID, "device_id": deviceID}).
		ToSql()
}

func upsertCursor(c syncengine.Cursor) (string, []any, error) {
	return psql.Insert("sync_cursor").
		Columns("owner_id", "device_id", "last_sync_at_ms").
		Values(c.UserID, c.DeviceID, int64(c.LastSyncAt)).
		Suffix("ON CONFLICT (owner_id, device_id) DO UPDATE SET last_sync_at_ms = EXCLUDED.last_sync_at_ms").
		ToSql()
}

func upsertActivity(ownerID string, at syncx.Millis) (string, []any, error) {
	return psql.Insert("owner_state").
		Columns("owner_id", "last_mutation_at_ms").
		Values(ownerID, int64(at)).
		Suffix("ON CONFLICT (owner_id) DO UPDATE SET last_mutation_at_ms = GREATEST(owner_state.last_mutation_at_ms, EXCLUDED.last_mutation_at_ms)").
		ToSql()
}

func selectActivity(ownerID string) (string, []any, error) {
	return psql.Select("last_mutation_at_ms").
		From("owner_state").
		Where(sq.Eq{"owner_id": ownerID}).
		ToSql()
}

func upsertSubject(sub string) (string, []any, error) {
	return psql.Insert("app_user").
		Columns("sub").
		Values(sub).
		Suffix("ON CONFLICT (sub) DO UPDATE SET sub = EXCLUDED.sub RETURNING id").
		ToSql()
}
