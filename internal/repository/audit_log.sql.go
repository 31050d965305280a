package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertAuditLog = `-- name: InsertAuditLog :exec
INSERT INTO audit_log (entity_type, entity_id, actor, action, prev_state, next_state, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

type InsertAuditLogParams struct {
	EntityType string      `json:"entity_type"`
	EntityID   pgtype.UUID `json:"entity_id"`
	Actor      *string     `json:"actor"`
	Action     string      `json:"action"`
	PrevState  *string     `json:"prev_state"`
	NextState  *string     `json:"next_state"`
	Metadata   []byte      `json:"metadata"`
}

func (q *Queries) InsertAuditLog(ctx context.Context, arg InsertAuditLogParams) error {
	_, err := q.db.Exec(ctx, insertAuditLog,
		arg.EntityType,
		arg.EntityID,
		arg.Actor,
		arg.Action,
		arg.PrevState,
		arg.NextState,
		arg.Metadata,
	)
	return err
}

const listAuditLogForEntity = `-- name: ListAuditLogForEntity :many
SELECT id, entity_type, entity_id, actor, action, prev_state, next_state, metadata, created_at
FROM audit_log
WHERE entity_type = $1 AND entity_id = $2
ORDER BY id`

func (q *Queries) ListAuditLogForEntity(ctx context.Context, entityType string, entityID pgtype.UUID) ([]AuditLog, error) {
	rows, err := q.db.Query(ctx, listAuditLogForEntity, entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AuditLog
	for rows.Next() {
		var i AuditLog
		if err := rows.Scan(
			&i.ID,
			&i.EntityType,
			&i.EntityID,
			&i.Actor,
			&i.Action,
			&i.PrevState,
			&i.NextState,
			&i.Metadata,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
