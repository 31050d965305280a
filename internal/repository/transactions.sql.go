package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const transactionColumns = `id, account_id, pending_payment_id, type, amount, currency, balance_after, reference_number, status, metadata, created_at, updated_at`

func scanTransaction(row interface{ Scan(...any) error }) (Transaction, error) {
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.AccountID,
		&i.PendingPaymentID,
		&i.Type,
		&i.Amount,
		&i.Currency,
		&i.BalanceAfter,
		&i.ReferenceNumber,
		&i.Status,
		&i.Metadata,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createTransaction = `-- name: CreateTransaction :one
INSERT INTO transactions (id, account_id, pending_payment_id, type, amount, currency, balance_after, reference_number, status, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + transactionColumns

type CreateTransactionParams struct {
	ID               pgtype.UUID `json:"id"`
	AccountID        pgtype.UUID `json:"account_id"`
	PendingPaymentID pgtype.UUID `json:"pending_payment_id"`
	Type             string      `json:"type"`
	Amount           int64       `json:"amount"`
	Currency         string      `json:"currency"`
	BalanceAfter     int64       `json:"balance_after"`
	ReferenceNumber  string      `json:"reference_number"`
	Status           string      `json:"status"`
	Metadata         []byte      `json:"metadata"`
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	row := q.db.QueryRow(ctx, createTransaction,
		arg.ID,
		arg.AccountID,
		arg.PendingPaymentID,
		arg.Type,
		arg.Amount,
		arg.Currency,
		arg.BalanceAfter,
		arg.ReferenceNumber,
		arg.Status,
		arg.Metadata,
	)
	return scanTransaction(row)
}

const getPendingCreditForUpdate = `-- name: GetPendingCreditForUpdate :one
SELECT ` + transactionColumns + ` FROM transactions
WHERE pending_payment_id = $1 AND type = 'CREDIT_PENDING'
FOR UPDATE`

func (q *Queries) GetPendingCreditForUpdate(ctx context.Context, pendingPaymentID pgtype.UUID) (Transaction, error) {
	return scanTransaction(q.db.QueryRow(ctx, getPendingCreditForUpdate, pendingPaymentID))
}

const updateTransactionStatus = `-- name: UpdateTransactionStatus :execrows
UPDATE transactions SET status = $2, updated_at = NOW()
WHERE id = $1 AND status = $3`

type UpdateTransactionStatusParams struct {
	ID         pgtype.UUID `json:"id"`
	Status     string      `json:"status"`
	FromStatus string      `json:"from_status"`
}

func (q *Queries) UpdateTransactionStatus(ctx context.Context, arg UpdateTransactionStatusParams) (int64, error) {
	result, err := q.db.Exec(ctx, updateTransactionStatus, arg.ID, arg.Status, arg.FromStatus)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listTransactionsByAccount = `-- name: ListTransactionsByAccount :many
SELECT ` + transactionColumns + ` FROM transactions
WHERE account_id = $1
ORDER BY created_at DESC, id
LIMIT $2 OFFSET $3`

type ListTransactionsByAccountParams struct {
	AccountID pgtype.UUID `json:"account_id"`
	Limit     int32       `json:"limit"`
	Offset    int32       `json:"offset"`
}

func (q *Queries) ListTransactionsByAccount(ctx context.Context, arg ListTransactionsByAccountParams) ([]Transaction, error) {
	return q.listTransactions(ctx, listTransactionsByAccount, arg.AccountID, arg.Limit, arg.Offset)
}

const listTransactionsByPendingPayment = `-- name: ListTransactionsByPendingPayment :many
SELECT ` + transactionColumns + ` FROM transactions
WHERE pending_payment_id = $1
ORDER BY created_at, reference_number`

func (q *Queries) ListTransactionsByPendingPayment(ctx context.Context, pendingPaymentID pgtype.UUID) ([]Transaction, error) {
	return q.listTransactions(ctx, listTransactionsByPendingPayment, pendingPaymentID)
}

func (q *Queries) listTransactions(ctx context.Context, query string, args ...interface{}) ([]Transaction, error) {
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		i, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
