package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const webhookColumns = `id, type, raw_payload, resolved_account_id, extracted_amount, extracted_currency, status, error_message, created_at, updated_at`

func scanWebhook(row interface{ Scan(...any) error }) (Webhook, error) {
	var i Webhook
	err := row.Scan(
		&i.ID,
		&i.Type,
		&i.RawPayload,
		&i.ResolvedAccountID,
		&i.ExtractedAmount,
		&i.ExtractedCurrency,
		&i.Status,
		&i.ErrorMessage,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const insertWebhook = `-- name: InsertWebhook :one
INSERT INTO webhooks (id, type, raw_payload, resolved_account_id, extracted_amount, extracted_currency, status)
VALUES ($1, $2, $3, $4, $5, $6, 'received')
ON CONFLICT (id) DO NOTHING
RETURNING ` + webhookColumns

type InsertWebhookParams struct {
	ID                string      `json:"id"`
	Type              string      `json:"type"`
	RawPayload        []byte      `json:"raw_payload"`
	ResolvedAccountID pgtype.UUID `json:"resolved_account_id"`
	ExtractedAmount   *int64      `json:"extracted_amount"`
	ExtractedCurrency *string     `json:"extracted_currency"`
}

// InsertWebhook returns pgx.ErrNoRows when the id was already recorded.
func (q *Queries) InsertWebhook(ctx context.Context, arg InsertWebhookParams) (Webhook, error) {
	row := q.db.QueryRow(ctx, insertWebhook,
		arg.ID,
		arg.Type,
		arg.RawPayload,
		arg.ResolvedAccountID,
		arg.ExtractedAmount,
		arg.ExtractedCurrency,
	)
	return scanWebhook(row)
}

const getWebhook = `-- name: GetWebhook :one
SELECT ` + webhookColumns + ` FROM webhooks WHERE id = $1`

func (q *Queries) GetWebhook(ctx context.Context, id string) (Webhook, error) {
	return scanWebhook(q.db.QueryRow(ctx, getWebhook, id))
}

const claimWebhook = `-- name: ClaimWebhook :one
UPDATE webhooks
SET status = 'processing', updated_at = NOW()
WHERE id = $1 AND status = 'received'
RETURNING ` + webhookColumns

// ClaimWebhook moves a received webhook to processing. pgx.ErrNoRows means
// another worker owns it or it already left the received state.
func (q *Queries) ClaimWebhook(ctx context.Context, id string) (Webhook, error) {
	return scanWebhook(q.db.QueryRow(ctx, claimWebhook, id))
}

const updateWebhookStatus = `-- name: UpdateWebhookStatus :execrows
UPDATE webhooks
SET status = $2, error_message = $3, updated_at = NOW()
WHERE id = $1 AND status = ANY($4::text[])`

type UpdateWebhookStatusParams struct {
	ID           string   `json:"id"`
	Status       string   `json:"status"`
	ErrorMessage *string  `json:"error_message"`
	FromStatuses []string `json:"from_statuses"`
}

func (q *Queries) UpdateWebhookStatus(ctx context.Context, arg UpdateWebhookStatusParams) (int64, error) {
	result, err := q.db.Exec(ctx, updateWebhookStatus, arg.ID, arg.Status, arg.ErrorMessage, arg.FromStatuses)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listStaleWebhooks = `-- name: ListStaleWebhooks :many
SELECT ` + webhookColumns + ` FROM webhooks
WHERE status = $1 AND updated_at < $2
ORDER BY updated_at
LIMIT $3`

type ListStaleWebhooksParams struct {
	Status        string             `json:"status"`
	UpdatedBefore pgtype.Timestamptz `json:"updated_before"`
	Limit         int32              `json:"limit"`
}

func (q *Queries) ListStaleWebhooks(ctx context.Context, arg ListStaleWebhooksParams) ([]Webhook, error) {
	rows, err := q.db.Query(ctx, listStaleWebhooks, arg.Status, arg.UpdatedBefore, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Webhook
	for rows.Next() {
		i, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
