package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const accountColumns = `id, holder_name, wallet_address_id, wallet_address_url, currency, balance, book_balance, available_balance, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (Account, error) {
	var i Account
	err := row.Scan(
		&i.ID,
		&i.HolderName,
		&i.WalletAddressID,
		&i.WalletAddressUrl,
		&i.Currency,
		&i.Balance,
		&i.BookBalance,
		&i.AvailableBalance,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createAccount = `-- name: CreateAccount :one
INSERT INTO accounts (id, holder_name, wallet_address_id, wallet_address_url, currency, balance, book_balance, available_balance)
VALUES ($1, $2, $3, $4, $5, $6, $6, $6)
RETURNING ` + accountColumns

type CreateAccountParams struct {
	ID               pgtype.UUID `json:"id"`
	HolderName       string      `json:"holder_name"`
	WalletAddressID  *string     `json:"wallet_address_id"`
	WalletAddressUrl *string     `json:"wallet_address_url"`
	Currency         string      `json:"currency"`
	OpeningBalance   int64       `json:"opening_balance"`
}

func (q *Queries) CreateAccount(ctx context.Context, arg CreateAccountParams) (Account, error) {
	row := q.db.QueryRow(ctx, createAccount,
		arg.ID,
		arg.HolderName,
		arg.WalletAddressID,
		arg.WalletAddressUrl,
		arg.Currency,
		arg.OpeningBalance,
	)
	return scanAccount(row)
}

const getAccount = `-- name: GetAccount :one
SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

func (q *Queries) GetAccount(ctx context.Context, id pgtype.UUID) (Account, error) {
	return scanAccount(q.db.QueryRow(ctx, getAccount, id))
}

const getAccountForUpdate = `-- name: GetAccountForUpdate :one
SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`

func (q *Queries) GetAccountForUpdate(ctx context.Context, id pgtype.UUID) (Account, error) {
	return scanAccount(q.db.QueryRow(ctx, getAccountForUpdate, id))
}

const getAccountByWalletAddressID = `-- name: GetAccountByWalletAddressID :one
SELECT ` + accountColumns + ` FROM accounts WHERE wallet_address_id = $1`

func (q *Queries) GetAccountByWalletAddressID(ctx context.Context, walletAddressID string) (Account, error) {
	return scanAccount(q.db.QueryRow(ctx, getAccountByWalletAddressID, walletAddressID))
}

const adjustAccountBalances = `-- name: AdjustAccountBalances :one
UPDATE accounts
SET book_balance = book_balance + $2,
    available_balance = available_balance + $3,
    balance = available_balance + $3,
    updated_at = NOW()
WHERE id = $1
RETURNING book_balance, available_balance`

type AdjustAccountBalancesParams struct {
	ID             pgtype.UUID `json:"id"`
	BookDelta      int64       `json:"book_delta"`
	AvailableDelta int64       `json:"available_delta"`
}

type AdjustAccountBalancesRow struct {
	BookBalance      int64 `json:"book_balance"`
	AvailableBalance int64 `json:"available_balance"`
}

// AdjustAccountBalances applies both deltas in one statement; the
// accounts_available_within_book constraint rejects any result where
// available exceeds book.
func (q *Queries) AdjustAccountBalances(ctx context.Context, arg AdjustAccountBalancesParams) (AdjustAccountBalancesRow, error) {
	row := q.db.QueryRow(ctx, adjustAccountBalances, arg.ID, arg.BookDelta, arg.AvailableDelta)
	var i AdjustAccountBalancesRow
	err := row.Scan(&i.BookBalance, &i.AvailableBalance)
	return i, err
}

const listAccountsViolatingBalanceInvariant = `-- name: ListAccountsViolatingBalanceInvariant :many
SELECT ` + accountColumns + ` FROM accounts
WHERE available_balance > book_balance OR balance <> available_balance
ORDER BY id`

func (q *Queries) ListAccountsViolatingBalanceInvariant(ctx context.Context) ([]Account, error) {
	rows, err := q.db.Query(ctx, listAccountsViolatingBalanceInvariant)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Account
	for rows.Next() {
		i, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
