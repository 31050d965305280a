package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ayo6706/payment-screening/internal/domain"
	"github.com/ayo6706/payment-screening/internal/repository"
	"github.com/google/uuid"
)

// Ledger rows are append-only; the provisional credit is the only row
// whose status moves, and only once.
var transactionTransitions = map[string]map[string]struct{}{
	domain.TxStatusPending: {
		domain.TxStatusCompleted: {},
		domain.TxStatusRejected:  {},
	},
	domain.TxStatusCompleted: {},
	domain.TxStatusRejected:  {},
}

func normalizeState(state string) string {
	return strings.ToUpper(strings.TrimSpace(state))
}

func canTransition(current, next string) bool {
	current = normalizeState(current)
	next = normalizeState(next)
	nextStates, ok := transactionTransitions[current]
	if !ok {
		return false
	}
	_, ok = nextStates[next]
	return ok
}

// transitionPendingCredit locks the CREDIT_PENDING row of a pending payment
// and moves it to nextState.
func transitionPendingCredit(ctx context.Context, qtx *repository.Queries, audit *AuditService, pendingPaymentID uuid.UUID, nextState, actor, action string, metadata []byte) error {
	credit, err := qtx.GetPendingCreditForUpdate(ctx, repository.ToPgUUID(pendingPaymentID))
	if err != nil {
		return fmt.Errorf("get pending credit: %w", err)
	}

	if !canTransition(credit.Status, nextState) {
		return fmt.Errorf("invalid transaction state transition: %s -> %s", credit.Status, nextState)
	}

	rows, err := qtx.UpdateTransactionStatus(ctx, repository.UpdateTransactionStatusParams{
		ID:         credit.ID,
		Status:     nextState,
		FromStatus: credit.Status,
	})
	if err != nil {
		return fmt.Errorf("update transaction state: %w", err)
	}
	if err := requireExactlyOne(rows, "update transaction state"); err != nil {
		return err
	}

	return audit.Write(ctx, qtx, "transaction", repository.FromPgUUID(credit.ID), actor, action, credit.Status, nextState, metadata)
}
