package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ayo6706/payment-screening/internal/models"
	"github.com/ayo6706/payment-screening/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountService is the reviewer's read-only view of balances and ledger rows.
type AccountService struct {
	store QueryStore
}

func NewAccountService(store QueryStore) *AccountService {
	return &AccountService{store: store}
}

func (s *AccountService) GetAccount(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	row, err := s.store.Queries().GetAccount(ctx, repository.ToPgUUID(accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	out := toAccountModel(row)
	return &out, nil
}

func (s *AccountService) ListTransactions(ctx context.Context, accountID uuid.UUID, page, pageSize int) ([]models.Transaction, error) {
	if _, err := s.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	page, pageSize = clampPage(page, pageSize, 10, 100)
	rows, err := s.store.Queries().ListTransactionsByAccount(ctx, repository.ListTransactionsByAccountParams{
		AccountID: repository.ToPgUUID(accountID),
		Limit:     int32(pageSize),
		Offset:    int32((page - 1) * pageSize),
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]models.Transaction, 0, len(rows))
	for _, row := range rows {
		out = append(out, toTransactionModel(row))
	}
	return out, nil
}
