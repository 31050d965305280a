package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const blockListColumns = `id, name, type, reason, severity, is_active, added_by, notes, created_at, updated_at`

func scanBlockList(row interface{ Scan(...any) error }) (BlockList, error) {
	var i BlockList
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Type,
		&i.Reason,
		&i.Severity,
		&i.IsActive,
		&i.AddedBy,
		&i.Notes,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const insertBlockListEntry = `-- name: InsertBlockListEntry :one
INSERT INTO block_list (id, name, type, reason, severity, is_active, added_by, notes)
VALUES ($1, $2, $3, $4, $5, TRUE, $6, $7)
RETURNING ` + blockListColumns

type InsertBlockListEntryParams struct {
	ID       pgtype.UUID `json:"id"`
	Name     string      `json:"name"`
	Type     string      `json:"type"`
	Reason   string      `json:"reason"`
	Severity int32       `json:"severity"`
	AddedBy  string      `json:"added_by"`
	Notes    *string     `json:"notes"`
}

func (q *Queries) InsertBlockListEntry(ctx context.Context, arg InsertBlockListEntryParams) (BlockList, error) {
	row := q.db.QueryRow(ctx, insertBlockListEntry,
		arg.ID,
		arg.Name,
		arg.Type,
		arg.Reason,
		arg.Severity,
		arg.AddedBy,
		arg.Notes,
	)
	return scanBlockList(row)
}

const getBlockListEntry = `-- name: GetBlockListEntry :one
SELECT ` + blockListColumns + ` FROM block_list WHERE id = $1`

func (q *Queries) GetBlockListEntry(ctx context.Context, id pgtype.UUID) (BlockList, error) {
	return scanBlockList(q.db.QueryRow(ctx, getBlockListEntry, id))
}

const deactivateBlockListEntry = `-- name: DeactivateBlockListEntry :execrows
UPDATE block_list SET is_active = FALSE, updated_at = NOW()
WHERE id = $1 AND is_active`

func (q *Queries) DeactivateBlockListEntry(ctx context.Context, id pgtype.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deactivateBlockListEntry, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listActiveBlockListEntries = `-- name: ListActiveBlockListEntries :many
SELECT ` + blockListColumns + ` FROM block_list
WHERE is_active
ORDER BY severity DESC, name ASC, id`

func (q *Queries) ListActiveBlockListEntries(ctx context.Context) ([]BlockList, error) {
	rows, err := q.db.Query(ctx, listActiveBlockListEntries)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BlockList
	for rows.Next() {
		i, err := scanBlockList(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
