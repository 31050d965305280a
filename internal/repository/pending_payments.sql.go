package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const pendingPaymentColumns = `id, webhook_id, account_id, amount, currency, original_amount, original_currency, conversion_rate, risk_score, auto_approval_eligible, sender_name, status, screening_notes, screened_by, screened_at, created_at`

func scanPendingPayment(row interface{ Scan(...any) error }) (PendingPayment, error) {
	var i PendingPayment
	err := row.Scan(
		&i.ID,
		&i.WebhookID,
		&i.AccountID,
		&i.Amount,
		&i.Currency,
		&i.OriginalAmount,
		&i.OriginalCurrency,
		&i.ConversionRate,
		&i.RiskScore,
		&i.AutoApprovalEligible,
		&i.SenderName,
		&i.Status,
		&i.ScreeningNotes,
		&i.ScreenedBy,
		&i.ScreenedAt,
		&i.CreatedAt,
	)
	return i, err
}

const insertPendingPayment = `-- name: InsertPendingPayment :one
INSERT INTO pending_payments (
    id, webhook_id, account_id, amount, currency, original_amount, original_currency,
    conversion_rate, risk_score, auto_approval_eligible, sender_name, status
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 'PENDING')
RETURNING ` + pendingPaymentColumns

type InsertPendingPaymentParams struct {
	ID                   pgtype.UUID    `json:"id"`
	WebhookID            string         `json:"webhook_id"`
	AccountID            pgtype.UUID    `json:"account_id"`
	Amount               int64          `json:"amount"`
	Currency             string         `json:"currency"`
	OriginalAmount       *int64         `json:"original_amount"`
	OriginalCurrency     *string        `json:"original_currency"`
	ConversionRate       pgtype.Numeric `json:"conversion_rate"`
	RiskScore            int32          `json:"risk_score"`
	AutoApprovalEligible bool           `json:"auto_approval_eligible"`
	SenderName           *string        `json:"sender_name"`
}

func (q *Queries) InsertPendingPayment(ctx context.Context, arg InsertPendingPaymentParams) (PendingPayment, error) {
	row := q.db.QueryRow(ctx, insertPendingPayment,
		arg.ID,
		arg.WebhookID,
		arg.AccountID,
		arg.Amount,
		arg.Currency,
		arg.OriginalAmount,
		arg.OriginalCurrency,
		arg.ConversionRate,
		arg.RiskScore,
		arg.AutoApprovalEligible,
		arg.SenderName,
	)
	return scanPendingPayment(row)
}

const getPendingPayment = `-- name: GetPendingPayment :one
SELECT ` + pendingPaymentColumns + ` FROM pending_payments WHERE id = $1`

func (q *Queries) GetPendingPayment(ctx context.Context, id pgtype.UUID) (PendingPayment, error) {
	return scanPendingPayment(q.db.QueryRow(ctx, getPendingPayment, id))
}

const getPendingPaymentForUpdate = `-- name: GetPendingPaymentForUpdate :one
SELECT ` + pendingPaymentColumns + ` FROM pending_payments WHERE id = $1 FOR UPDATE`

func (q *Queries) GetPendingPaymentForUpdate(ctx context.Context, id pgtype.UUID) (PendingPayment, error) {
	return scanPendingPayment(q.db.QueryRow(ctx, getPendingPaymentForUpdate, id))
}

const getPendingPaymentByWebhook = `-- name: GetPendingPaymentByWebhook :one
SELECT ` + pendingPaymentColumns + ` FROM pending_payments WHERE webhook_id = $1`

func (q *Queries) GetPendingPaymentByWebhook(ctx context.Context, webhookID string) (PendingPayment, error) {
	return scanPendingPayment(q.db.QueryRow(ctx, getPendingPaymentByWebhook, webhookID))
}

const decidePendingPayment = `-- name: DecidePendingPayment :execrows
UPDATE pending_payments
SET status = $2, screening_notes = $3, screened_by = $4, screened_at = NOW()
WHERE id = $1 AND status = 'PENDING'`

type DecidePendingPaymentParams struct {
	ID             pgtype.UUID `json:"id"`
	Status         string      `json:"status"`
	ScreeningNotes *string     `json:"screening_notes"`
	ScreenedBy     *string     `json:"screened_by"`
}

func (q *Queries) DecidePendingPayment(ctx context.Context, arg DecidePendingPaymentParams) (int64, error) {
	result, err := q.db.Exec(ctx, decidePendingPayment, arg.ID, arg.Status, arg.ScreeningNotes, arg.ScreenedBy)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listPendingPayments = `-- name: ListPendingPayments :many
SELECT ` + pendingPaymentColumns + ` FROM pending_payments
WHERE status = 'PENDING' AND risk_score BETWEEN $1 AND $2
ORDER BY created_at DESC, id
LIMIT $3 OFFSET $4`

type ListPendingPaymentsParams struct {
	MinRisk int32 `json:"min_risk"`
	MaxRisk int32 `json:"max_risk"`
	Limit   int32 `json:"limit"`
	Offset  int32 `json:"offset"`
}

func (q *Queries) ListPendingPayments(ctx context.Context, arg ListPendingPaymentsParams) ([]PendingPayment, error) {
	rows, err := q.db.Query(ctx, listPendingPayments, arg.MinRisk, arg.MaxRisk, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PendingPayment
	for rows.Next() {
		i, err := scanPendingPayment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const countPendingPayments = `-- name: CountPendingPayments :one
SELECT COUNT(*) FROM pending_payments
WHERE status = 'PENDING' AND risk_score BETWEEN $1 AND $2`

func (q *Queries) CountPendingPayments(ctx context.Context, minRisk, maxRisk int32) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countPendingPayments, minRisk, maxRisk).Scan(&count)
	return count, err
}

const getPendingPaymentStats = `-- name: GetPendingPaymentStats :one
SELECT
    COUNT(*)                                              AS total_pending,
    COUNT(*) FILTER (WHERE risk_score <= 30)              AS low_risk,
    COUNT(*) FILTER (WHERE risk_score > 30 AND risk_score <= 70) AS medium_risk,
    COUNT(*) FILTER (WHERE risk_score > 70)               AS high_risk,
    COALESCE(SUM(amount), 0)::BIGINT                      AS total_amount,
    COUNT(*) FILTER (WHERE auto_approval_eligible)        AS auto_eligible
FROM pending_payments
WHERE status = 'PENDING'`

type GetPendingPaymentStatsRow struct {
	TotalPending int64 `json:"total_pending"`
	LowRisk      int64 `json:"low_risk"`
	MediumRisk   int64 `json:"medium_risk"`
	HighRisk     int64 `json:"high_risk"`
	TotalAmount  int64 `json:"total_amount"`
	AutoEligible int64 `json:"auto_eligible"`
}

func (q *Queries) GetPendingPaymentStats(ctx context.Context) (GetPendingPaymentStatsRow, error) {
	var i GetPendingPaymentStatsRow
	err := q.db.QueryRow(ctx, getPendingPaymentStats).Scan(
		&i.TotalPending,
		&i.LowRisk,
		&i.MediumRisk,
		&i.HighRisk,
		&i.TotalAmount,
		&i.AutoEligible,
	)
	return i, err
}

const listDecidedPaymentsWithOpenCredit = `-- name: ListDecidedPaymentsWithOpenCredit :many
SELECT p.id, p.webhook_id, p.account_id, p.status, t.id AS transaction_id
FROM pending_payments p
JOIN transactions t ON t.pending_payment_id = p.id AND t.type = 'CREDIT_PENDING'
WHERE p.status <> 'PENDING' AND t.status = 'PENDING'
ORDER BY p.created_at`

type ListDecidedPaymentsWithOpenCreditRow struct {
	ID            pgtype.UUID `json:"id"`
	WebhookID     string      `json:"webhook_id"`
	AccountID     pgtype.UUID `json:"account_id"`
	Status        string      `json:"status"`
	TransactionID pgtype.UUID `json:"transaction_id"`
}

// ListDecidedPaymentsWithOpenCredit finds terminal payments whose
// provisional ledger row never left PENDING.
func (q *Queries) ListDecidedPaymentsWithOpenCredit(ctx context.Context) ([]ListDecidedPaymentsWithOpenCreditRow, error) {
	rows, err := q.db.Query(ctx, listDecidedPaymentsWithOpenCredit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListDecidedPaymentsWithOpenCreditRow
	for rows.Next() {
		var i ListDecidedPaymentsWithOpenCreditRow
		if err := rows.Scan(&i.ID, &i.WebhookID, &i.AccountID, &i.Status, &i.TransactionID); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
