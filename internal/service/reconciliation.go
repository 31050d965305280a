package service

import (
	"context"
	"fmt"

	"github.com/ayo6706/payment-screening/internal/domain"
	"github.com/ayo6706/payment-screening/internal/observability"
	"github.com/ayo6706/payment-screening/internal/repository"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ReconciliationReport summarises one reconciliation pass.
type ReconciliationReport struct {
	BalanceViolations int
	OpenCredits       int
	FailedReversals   int64
}

// ReconciliationService verifies ledger integrity invariants.
type ReconciliationService struct {
	store QueryStore
}

// NewReconciliationService creates a reconciliation service.
func NewReconciliationService(store QueryStore) *ReconciliationService {
	return &ReconciliationService{store: store}
}

// Run checks that no account has available above book, that every decided
// payment closed its provisional credit, and publishes the size of the
// failed-reversal queue. Independent check failures are combined.
func (s *ReconciliationService) Run(ctx context.Context) (ReconciliationReport, error) {
	queries := s.store.Queries()
	var report ReconciliationReport

	balanceErr := s.checkBalances(ctx, queries, &report)
	creditErr := s.checkOpenCredits(ctx, queries, &report)

	var queueErr error
	report.FailedReversals, queueErr = queries.CountReversalsByStatus(ctx, domain.ReversalStatusFailed)
	if queueErr != nil {
		queueErr = fmt.Errorf("count failed reversals: %w", queueErr)
	} else {
		observability.SetReversalQueueSize(report.FailedReversals)
	}

	if err := multierr.Combine(balanceErr, creditErr, queueErr); err != nil {
		return report, err
	}

	if report.BalanceViolations == 0 && report.OpenCredits == 0 {
		zap.L().Info("Ledger reconciled", zap.Int64("failed_reversals", report.FailedReversals))
	}
	return report, nil
}

func (s *ReconciliationService) checkBalances(ctx context.Context, queries *repository.Queries, report *ReconciliationReport) error {
	accounts, err := queries.ListAccountsViolatingBalanceInvariant(ctx)
	if err != nil {
		return fmt.Errorf("check balance invariant: %w", err)
	}
	report.BalanceViolations = len(accounts)
	for _, acc := range accounts {
		observability.IncrementLedgerViolation("available_within_book")
		zap.L().Error("CRITICAL: account balance invariant violated",
			zap.String("account_id", repository.FromPgUUID(acc.ID).String()),
			zap.Int64("book_balance", acc.BookBalance),
			zap.Int64("available_balance", acc.AvailableBalance),
			zap.Int64("balance", acc.Balance),
		)
	}
	return nil
}

func (s *ReconciliationService) checkOpenCredits(ctx context.Context, queries *repository.Queries, report *ReconciliationReport) error {
	rows, err := queries.ListDecidedPaymentsWithOpenCredit(ctx)
	if err != nil {
		return fmt.Errorf("check open provisional credits: %w", err)
	}
	report.OpenCredits = len(rows)
	for _, row := range rows {
		observability.IncrementLedgerViolation("open_provisional_credit")
		zap.L().Error("CRITICAL: decided payment left its provisional credit open",
			zap.String("payment_id", repository.FromPgUUID(row.ID).String()),
			zap.String("webhook_id", row.WebhookID),
			zap.String("account_id", repository.FromPgUUID(row.AccountID).String()),
			zap.String("status", row.Status),
		)
	}
	return nil
}
