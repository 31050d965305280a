package service

import (
	"context"
	"testing"

	"github.com/ayo6706/payment-screening/internal/domain"
	"github.com/ayo6706/payment-screening/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconciliationCleanLedger(t *testing.T) {
	h := newHarness(t)
	h.seedAccount(t, "wallet-usd", domain.CurrencyUSD, 0)
	p := pendingFor(t, h, h.deliver(t, paymentBody("wh-recon", "wallet-usd", "100", "USD", "Maria Garcia", "")))
	_, err := h.screening.Approve(context.Background(), DecisionRequest{PaymentID: repository.FromPgUUID(p.ID)})
	require.NoError(t, err)

	report, err := NewReconciliationService(h.store).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.BalanceViolations)
	assert.Zero(t, report.OpenCredits)
	assert.Zero(t, report.FailedReversals)
}

func TestReconciliationFindsOpenCredit(t *testing.T) {
	h := newHarness(t)
	h.seedAccount(t, "wallet-usd", domain.CurrencyUSD, 0)
	p := pendingFor(t, h, h.deliver(t, paymentBody("wh-open", "wallet-usd", "100", "USD", "Maria Garcia", "")))

	// Simulate a decision written without closing the provisional credit.
	_, err := h.pool.Exec(context.Background(), `UPDATE pending_payments SET status = 'APPROVED' WHERE id = $1`, p.ID)
	require.NoError(t, err)

	report, err := NewReconciliationService(h.store).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.OpenCredits)
}

func TestReconciliationCombinesErrors(t *testing.T) {
	_, err := NewReconciliationService(downStore{}).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errDatabaseDown)
	assert.Contains(t, err.Error(), "check balance invariant")
	assert.Contains(t, err.Error(), "check open provisional credits")
}
