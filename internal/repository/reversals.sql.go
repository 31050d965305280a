package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const reversalColumns = `id, pending_payment_id, recipient, amount, currency, status, rail_payment_id, error_message, created_at`

func scanReversal(row interface{ Scan(...any) error }) (Reversal, error) {
	var i Reversal
	err := row.Scan(
		&i.ID,
		&i.PendingPaymentID,
		&i.Recipient,
		&i.Amount,
		&i.Currency,
		&i.Status,
		&i.RailPaymentID,
		&i.ErrorMessage,
		&i.CreatedAt,
	)
	return i, err
}

const insertReversal = `-- name: InsertReversal :one
INSERT INTO reversals (id, pending_payment_id, recipient, amount, currency, status, rail_payment_id, error_message)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (pending_payment_id) DO NOTHING
RETURNING ` + reversalColumns

type InsertReversalParams struct {
	ID               pgtype.UUID `json:"id"`
	PendingPaymentID pgtype.UUID `json:"pending_payment_id"`
	Recipient        *string     `json:"recipient"`
	Amount           int64       `json:"amount"`
	Currency         string      `json:"currency"`
	Status           string      `json:"status"`
	RailPaymentID    *string     `json:"rail_payment_id"`
	ErrorMessage     *string     `json:"error_message"`
}

func (q *Queries) InsertReversal(ctx context.Context, arg InsertReversalParams) (Reversal, error) {
	row := q.db.QueryRow(ctx, insertReversal,
		arg.ID,
		arg.PendingPaymentID,
		arg.Recipient,
		arg.Amount,
		arg.Currency,
		arg.Status,
		arg.RailPaymentID,
		arg.ErrorMessage,
	)
	return scanReversal(row)
}

const getReversalByPendingPayment = `-- name: GetReversalByPendingPayment :one
SELECT ` + reversalColumns + ` FROM reversals WHERE pending_payment_id = $1`

func (q *Queries) GetReversalByPendingPayment(ctx context.Context, pendingPaymentID pgtype.UUID) (Reversal, error) {
	return scanReversal(q.db.QueryRow(ctx, getReversalByPendingPayment, pendingPaymentID))
}

const listReversals = `-- name: ListReversals :many
SELECT ` + reversalColumns + ` FROM reversals
WHERE ($1::text = '' OR status = $1)
ORDER BY created_at DESC, id
LIMIT $2 OFFSET $3`

type ListReversalsParams struct {
	Status string `json:"status"`
	Limit  int32  `json:"limit"`
	Offset int32  `json:"offset"`
}

func (q *Queries) ListReversals(ctx context.Context, arg ListReversalsParams) ([]Reversal, error) {
	rows, err := q.db.Query(ctx, listReversals, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Reversal
	for rows.Next() {
		i, err := scanReversal(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const countReversalsByStatus = `-- name: CountReversalsByStatus :one
SELECT COUNT(*) FROM reversals WHERE status = $1`

func (q *Queries) CountReversalsByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countReversalsByStatus, status).Scan(&count)
	return count, err
}
