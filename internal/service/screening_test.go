package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ayo6706/payment-screening/internal/domain"
	"github.com/ayo6706/payment-screening/internal/gateway"
	"github.com/ayo6706/payment-screening/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paymentBody(id, wallet, amountCents, currency, sender, senderAddress string) string {
	return fmt.Sprintf(`{"id":%q,"type":"incoming_payment.completed","data":{
		"walletAddressId":%q,
		"receivedAmount":{"value":%q,"assetCode":%q,"assetScale":2},
		"metadata":{"senderName":%q,"senderWalletAddress":%q,"senderVerified":true}}}`,
		id, wallet, amountCents, currency, sender, senderAddress)
}

func pendingFor(t *testing.T, h *harness, webhookID string) repository.PendingPayment {
	t.Helper()
	p, err := h.store.Queries().GetPendingPaymentByWebhook(context.Background(), webhookID)
	require.NoError(t, err)
	return p
}

func TestSettleWebhookQuarantinesPayment(t *testing.T) {
	h := newHarness(t)
	acc := h.seedAccount(t, "wallet-usd", domain.CurrencyUSD, 0)

	id := h.deliver(t, paymentBody("wh-usd-1", "wallet-usd", "2500", "USD", "Maria Garcia", "https://rail.example/maria"))

	p := pendingFor(t, h, id)
	assert.Equal(t, domain.PaymentStatusPending, p.Status)
	assert.Equal(t, int64(25_000_000), p.Amount)
	assert.Equal(t, domain.CurrencyUSD, p.Currency)
	assert.Nil(t, p.OriginalAmount)
	assert.True(t, p.AutoApprovalEligible)

	got := h.account(t, acc.ID)
	assert.Equal(t, int64(25_000_000), got.BookBalance)
	assert.Equal(t, int64(0), got.AvailableBalance)

	txs, err := h.store.Queries().ListTransactionsByPendingPayment(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.TxTypeCreditPending, txs[0].Type)
	assert.Equal(t, domain.TxStatusPending, txs[0].Status)
	assert.Equal(t, domain.RefPrefixPending+id, txs[0].ReferenceNumber)
	assert.Equal(t, int64(25_000_000), txs[0].BalanceAfter)

	wh, err := h.webhooks.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.WebhookStatusProcessed, wh.Status)
}

func TestSettleWebhookIsIdempotent(t *testing.T) {
	h := newHarness(t)
	acc := h.seedAccount(t, "wallet-usd", domain.CurrencyUSD, 0)
	body := paymentBody("wh-dup", "wallet-usd", "1000", "USD", "Maria Garcia", "")

	id := h.deliver(t, body)

	ack, err := h.webhooks.Receive(context.Background(), []byte(body), "")
	require.NoError(t, err)
	assert.True(t, ack.Duplicate)
	require.NoError(t, h.screening.SettleWebhook(context.Background(), id))

	assert.Equal(t, int64(10_000_000), h.account(t, acc.ID).BookBalance)
	count, err := h.store.Queries().CountPendingPayments(context.Background(), 0, domain.MaxRiskScore)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSettleWebhookBlockedSenderNeverCredits(t *testing.T) {
	h := newHarness(t)
	acc := h.seedAccount(t, "wallet-usd", domain.CurrencyUSD, 0)
	_, err := h.blockList.Add(context.Background(), AddBlockListEntryRequest{
		Name: "John Smith", Type: domain.EntryTypePerson, Reason: "SANCTIONS_OFAC", Severity: 10, AddedBy: "compliance",
	})
	require.NoError(t, err)

	id := h.deliver(t, paymentBody("wh-blocked", "wallet-usd", "5000", "USD", "Mr John Smith", ""))

	got := h.account(t, acc.ID)
	assert.Equal(t, int64(0), got.BookBalance)
	assert.Equal(t, int64(0), got.AvailableBalance)

	_, err = h.store.Queries().GetPendingPaymentByWebhook(context.Background(), id)
	require.Error(t, err)

	blocked, err := h.store.Queries().GetBlockedPaymentByWebhook(context.Background(), id)
	require.NoError(t, err)
	assert.Contains(t, blocked.BlockedReason, "SANCTIONS_OFAC")
	assert.True(t, blocked.MatchedBlockListID.Valid)

	wh, err := h.webhooks.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.WebhookStatusProcessed, wh.Status)
}

func TestSettleWebhookUnknownID(t *testing.T) {
	h := newHarness(t)
	err := h.screening.SettleWebhook(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrWebhookNotFound)
}

func TestSettleWebhookUnresolvedWallet(t *testing.T) {
	h := newHarness(t)
	ack, err := h.webhooks.Receive(context.Background(), []byte(paymentBody("wh-orphan", "nobody", "100", "USD", "", "")), "")
	require.NoError(t, err)
	assert.Nil(t, ack.AccountID)

	err = h.screening.SettleWebhook(context.Background(), ack.ID)
	require.ErrorIs(t, err, ErrAccountNotResolved)
	require.NoError(t, h.screening.MarkWebhookFailed(context.Background(), ack.ID, err))

	wh, err := h.webhooks.Get(context.Background(), ack.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WebhookStatusError, wh.Status)
}

func TestApproveReleasesAvailableBalance(t *testing.T) {
	h := newHarness(t)
	acc := h.seedAccount(t, "wallet-usd", domain.CurrencyUSD, 0)
	p := pendingFor(t, h, h.deliver(t, paymentBody("wh-approve", "wallet-usd", "1000", "USD", "Maria Garcia", "")))

	decision, err := h.screening.Decide(context.Background(), DecisionRequest{
		PaymentID:  repository.FromPgUUID(p.ID),
		Action:     "approve",
		ScreenedBy: "reviewer-1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusApproved, decision.Status)
	assert.Nil(t, decision.Reversal)

	got := h.account(t, acc.ID)
	assert.Equal(t, int64(10_000_000), got.BookBalance)
	assert.Equal(t, int64(10_000_000), got.AvailableBalance)

	txs, err := h.store.Queries().ListTransactionsByPendingPayment(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.TxStatusCompleted, txs[0].Status)
	assert.Empty(t, h.gateway.calls())
}

func TestRejectConvertsRecordsLedgerAndReverses(t *testing.T) {
	h := newHarness(t)
	acc := h.seedAccount(t, "wallet-pkr", domain.CurrencyPKR, 0)
	p := pendingFor(t, h, h.deliver(t, paymentBody("wh-reject", "wallet-pkr", "500", "USD", "Maria Garcia", "https://rail.example/maria")))

	assert.Equal(t, domain.CurrencyPKR, p.Currency)
	assert.Equal(t, int64(1_392_500_000), p.Amount)
	require.NotNil(t, p.OriginalAmount)
	assert.Equal(t, int64(5_000_000), *p.OriginalAmount)
	assert.Equal(t, int32(10), p.RiskScore)

	decision, err := h.screening.Reject(context.Background(), DecisionRequest{
		PaymentID:      repository.FromPgUUID(p.ID),
		ScreeningNotes: "sender mismatch",
		ScreenedBy:     "reviewer-1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusRejected, decision.Status)
	require.NotNil(t, decision.Reversal)
	assert.Equal(t, domain.ReversalStatusCompleted, decision.Reversal.Status)

	calls := h.gateway.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "https://rail.example/maria", calls[0].SenderAddress)
	assert.Equal(t, "1392.5", calls[0].Amount.String())
	assert.Equal(t, domain.CurrencyPKR, calls[0].Currency)

	txs, err := h.store.Queries().ListTransactionsByPendingPayment(context.Background(), p.ID)
	require.NoError(t, err)
	byType := map[string]repository.Transaction{}
	for _, tx := range txs {
		byType[tx.Type] = tx
	}
	require.Len(t, byType, 3)
	assert.Equal(t, domain.TxStatusRejected, byType[domain.TxTypeCreditPending].Status)
	assert.Equal(t, domain.RefPrefixReversalCredit+repository.FromPgUUID(p.ID).String(), byType[domain.TxTypeCredit].ReferenceNumber)
	assert.Equal(t, domain.RefPrefixReversalDebit+repository.FromPgUUID(p.ID).String(), byType[domain.TxTypeDebit].ReferenceNumber)
	assert.Equal(t, int64(1_392_500_000), byType[domain.TxTypeCredit].BalanceAfter)
	assert.Equal(t, int64(0), byType[domain.TxTypeDebit].BalanceAfter)

	got := h.account(t, acc.ID)
	assert.Equal(t, int64(0), got.AvailableBalance)

	rev, err := h.store.Queries().GetReversalByPendingPayment(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReversalStatusCompleted, rev.Status)
	require.NotNil(t, rev.RailPaymentID)
	assert.Equal(t, "rail-out-1", *rev.RailPaymentID)
}

func TestRejectWithoutSenderAddressQueuesManualReversal(t *testing.T) {
	h := newHarness(t)
	h.seedAccount(t, "wallet-usd", domain.CurrencyUSD, 0)
	p := pendingFor(t, h, h.deliver(t, paymentBody("wh-nosender", "wallet-usd", "700", "USD", "Maria Garcia", "")))

	decision, err := h.screening.Reject(context.Background(), DecisionRequest{PaymentID: repository.FromPgUUID(p.ID)})
	require.NoError(t, err)
	require.NotNil(t, decision.Reversal)
	assert.Equal(t, domain.ReversalStatusFailed, decision.Reversal.Status)
	assert.Empty(t, h.gateway.calls())

	size, err := NewReversalService(h.store).ManualQueueSize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), size)
}

func TestRejectGatewayFailureDoesNotUndoRejection(t *testing.T) {
	h := newHarness(t)
	h.seedAccount(t, "wallet-usd", domain.CurrencyUSD, 0)
	h.gateway.result = gateway.ReversalResult{Error: "rail unavailable"}
	p := pendingFor(t, h, h.deliver(t, paymentBody("wh-railfail", "wallet-usd", "700", "USD", "Maria Garcia", "https://rail.example/maria")))

	decision, err := h.screening.Reject(context.Background(), DecisionRequest{PaymentID: repository.FromPgUUID(p.ID)})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusRejected, decision.Status)
	assert.Equal(t, domain.ReversalStatusFailed, decision.Reversal.Status)

	stored, err := h.store.Queries().GetPendingPayment(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusRejected, stored.Status)
}

func TestDecideRefusesUnknownAndDecidedPayments(t *testing.T) {
	h := newHarness(t)
	h.seedAccount(t, "wallet-usd", domain.CurrencyUSD, 0)
	p := pendingFor(t, h, h.deliver(t, paymentBody("wh-twice", "wallet-usd", "100", "USD", "Maria Garcia", "")))
	id := repository.FromPgUUID(p.ID)

	_, err := h.screening.Decide(context.Background(), DecisionRequest{PaymentID: uuid.New(), Action: domain.ActionApprove})
	assert.ErrorIs(t, err, ErrPendingPaymentNotFound)

	_, err = h.screening.Decide(context.Background(), DecisionRequest{PaymentID: id, Action: "hold"})
	assert.ErrorIs(t, err, ErrInvalidAction)

	_, err = h.screening.Decide(context.Background(), DecisionRequest{PaymentID: id, Action: domain.ActionApprove})
	require.NoError(t, err)

	_, err = h.screening.Decide(context.Background(), DecisionRequest{PaymentID: id, Action: domain.ActionReject})
	assert.ErrorIs(t, err, ErrPaymentAlreadyProcessed)
}

func TestConcurrentDecisionsOnlyOneWins(t *testing.T) {
	h := newHarness(t)
	acc := h.seedAccount(t, "wallet-usd", domain.CurrencyUSD, 0)
	p := pendingFor(t, h, h.deliver(t, paymentBody("wh-race", "wallet-usd", "1000", "USD", "Maria Garcia", "https://rail.example/maria")))
	id := repository.FromPgUUID(p.ID)

	actions := []string{domain.ActionApprove, domain.ActionReject, domain.ActionApprove, domain.ActionReject}
	errs := make([]error, len(actions))
	var wg sync.WaitGroup
	for i, action := range actions {
		wg.Add(1)
		go func(i int, action string) {
			defer wg.Done()
			_, errs[i] = h.screening.Decide(context.Background(), DecisionRequest{PaymentID: id, Action: action})
		}(i, action)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, ErrPaymentAlreadyProcessed), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)

	got := h.account(t, acc.ID)
	assert.LessOrEqual(t, got.AvailableBalance, got.BookBalance)
	assert.LessOrEqual(t, len(h.gateway.calls()), 1)
}

func TestListPendingFiltersByRiskLevel(t *testing.T) {
	h := newHarness(t)
	h.seedAccount(t, "wallet-usd", domain.CurrencyUSD, 0)
	h.deliver(t, paymentBody("wh-low", "wallet-usd", "100", "USD", "Maria Garcia", ""))

	list, err := h.screening.ListPending(context.Background(), ListPendingRequest{RiskLevel: "low"})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, int64(1), list.Pagination.Total)
	assert.Equal(t, int64(1), list.Stats.TotalPending)

	list, err = h.screening.ListPending(context.Background(), ListPendingRequest{RiskLevel: "high"})
	require.NoError(t, err)
	assert.Empty(t, list.Items)

	_, err = h.screening.ListPending(context.Background(), ListPendingRequest{RiskLevel: "extreme"})
	assert.ErrorIs(t, err, ErrInvalidRiskLevel)
}
