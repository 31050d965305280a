package repository

import (
	"context"
)

const idempotencyColumns = `idempotency_key, request_hash, method, path, response_status, response_body, content_type, in_progress, created_at, updated_at`

func scanIdempotencyKey(row interface{ Scan(...any) error }) (IdempotencyKey, error) {
	var i IdempotencyKey
	err := row.Scan(
		&i.IdempotencyKey,
		&i.RequestHash,
		&i.Method,
		&i.Path,
		&i.ResponseStatus,
		&i.ResponseBody,
		&i.ContentType,
		&i.InProgress,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getIdempotencyKey = `-- name: GetIdempotencyKey :one
SELECT ` + idempotencyColumns + ` FROM idempotency_keys WHERE idempotency_key = $1`

func (q *Queries) GetIdempotencyKey(ctx context.Context, key string) (IdempotencyKey, error) {
	return scanIdempotencyKey(q.db.QueryRow(ctx, getIdempotencyKey, key))
}

const reserveIdempotencyKey = `-- name: ReserveIdempotencyKey :one
INSERT INTO idempotency_keys (idempotency_key, request_hash, method, path, in_progress)
VALUES ($1, $2, $3, $4, TRUE)
ON CONFLICT (idempotency_key) DO NOTHING
RETURNING ` + idempotencyColumns

type ReserveIdempotencyKeyParams struct {
	IdempotencyKey string `json:"idempotency_key"`
	RequestHash    string `json:"request_hash"`
	Method         string `json:"method"`
	Path           string `json:"path"`
}

func (q *Queries) ReserveIdempotencyKey(ctx context.Context, arg ReserveIdempotencyKeyParams) (IdempotencyKey, error) {
	row := q.db.QueryRow(ctx, reserveIdempotencyKey, arg.IdempotencyKey, arg.RequestHash, arg.Method, arg.Path)
	return scanIdempotencyKey(row)
}

const finalizeIdempotencyKey = `-- name: FinalizeIdempotencyKey :one
UPDATE idempotency_keys
SET response_status = $1, response_body = $2, content_type = $3, in_progress = FALSE, updated_at = NOW()
WHERE idempotency_key = $4 AND request_hash = $5
RETURNING ` + idempotencyColumns

type FinalizeIdempotencyKeyParams struct {
	ResponseStatus int32  `json:"response_status"`
	ResponseBody   []byte `json:"response_body"`
	ContentType    string `json:"content_type"`
	IdempotencyKey string `json:"idempotency_key"`
	RequestHash    string `json:"request_hash"`
}

func (q *Queries) FinalizeIdempotencyKey(ctx context.Context, arg FinalizeIdempotencyKeyParams) (IdempotencyKey, error) {
	row := q.db.QueryRow(ctx, finalizeIdempotencyKey,
		arg.ResponseStatus,
		arg.ResponseBody,
		arg.ContentType,
		arg.IdempotencyKey,
		arg.RequestHash,
	)
	return scanIdempotencyKey(row)
}

const releaseIdempotencyKey = `-- name: ReleaseIdempotencyKey :exec
DELETE FROM idempotency_keys WHERE idempotency_key = $1 AND in_progress`

func (q *Queries) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	_, err := q.db.Exec(ctx, releaseIdempotencyKey, key)
	return err
}
