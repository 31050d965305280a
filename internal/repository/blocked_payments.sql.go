package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const blockedPaymentColumns = `id, webhook_id, account_id, matched_block_list_id, amount, currency, blocked_reason, blocked_at`

func scanBlockedPayment(row interface{ Scan(...any) error }) (BlockedPayment, error) {
	var i BlockedPayment
	err := row.Scan(
		&i.ID,
		&i.WebhookID,
		&i.AccountID,
		&i.MatchedBlockListID,
		&i.Amount,
		&i.Currency,
		&i.BlockedReason,
		&i.BlockedAt,
	)
	return i, err
}

const insertBlockedPayment = `-- name: InsertBlockedPayment :one
INSERT INTO blocked_payments (id, webhook_id, account_id, matched_block_list_id, amount, currency, blocked_reason)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (webhook_id) DO NOTHING
RETURNING ` + blockedPaymentColumns

type InsertBlockedPaymentParams struct {
	ID                 pgtype.UUID `json:"id"`
	WebhookID          string      `json:"webhook_id"`
	AccountID          pgtype.UUID `json:"account_id"`
	MatchedBlockListID pgtype.UUID `json:"matched_block_list_id"`
	Amount             int64       `json:"amount"`
	Currency           string      `json:"currency"`
	BlockedReason      string      `json:"blocked_reason"`
}

// InsertBlockedPayment is write-once per webhook; pgx.ErrNoRows means the
// record already exists.
func (q *Queries) InsertBlockedPayment(ctx context.Context, arg InsertBlockedPaymentParams) (BlockedPayment, error) {
	row := q.db.QueryRow(ctx, insertBlockedPayment,
		arg.ID,
		arg.WebhookID,
		arg.AccountID,
		arg.MatchedBlockListID,
		arg.Amount,
		arg.Currency,
		arg.BlockedReason,
	)
	return scanBlockedPayment(row)
}

const getBlockedPaymentByWebhook = `-- name: GetBlockedPaymentByWebhook :one
SELECT ` + blockedPaymentColumns + ` FROM blocked_payments WHERE webhook_id = $1`

func (q *Queries) GetBlockedPaymentByWebhook(ctx context.Context, webhookID string) (BlockedPayment, error) {
	return scanBlockedPayment(q.db.QueryRow(ctx, getBlockedPaymentByWebhook, webhookID))
}
