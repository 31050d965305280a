package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ayo6706/payment-screening/internal/domain"
	"github.com/ayo6706/payment-screening/internal/gateway"
	"github.com/ayo6706/payment-screening/internal/models"
	"github.com/ayo6706/payment-screening/internal/observability"
	"github.com/ayo6706/payment-screening/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const unresolvedSenderError = "sender address could not be resolved"

// DecisionRequest is a reviewer's verdict on a pending payment.
type DecisionRequest struct {
	PaymentID      uuid.UUID
	Action         string
	ScreeningNotes string
	ScreenedBy     string
}

// Decide dispatches on the review action.
func (s *ScreeningService) Decide(ctx context.Context, req DecisionRequest) (*models.Decision, error) {
	switch strings.ToUpper(strings.TrimSpace(req.Action)) {
	case domain.ActionApprove:
		return s.Approve(ctx, req)
	case domain.ActionReject:
		return s.Reject(ctx, req)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, req.Action)
	}
}

// lockPending takes the row lock on a pending payment and requires it to
// still be PENDING.
func lockPending(ctx context.Context, qtx *repository.Queries, id uuid.UUID) (repository.PendingPayment, error) {
	p, err := qtx.GetPendingPaymentForUpdate(ctx, repository.ToPgUUID(id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return p, ErrPendingPaymentNotFound
		}
		return p, fmt.Errorf("lock pending payment: %w", err)
	}
	if p.Status != domain.PaymentStatusPending {
		return p, fmt.Errorf("%w: status is %s", ErrPaymentAlreadyProcessed, p.Status)
	}
	return p, nil
}

// Approve releases the provisional credit into the available balance.
func (s *ScreeningService) Approve(ctx context.Context, req DecisionRequest) (*models.Decision, error) {
	var pending repository.PendingPayment
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		var err error
		pending, err = lockPending(ctx, qtx, req.PaymentID)
		if err != nil {
			return err
		}
		if _, err := qtx.GetAccountForUpdate(ctx, pending.AccountID); err != nil {
			return fmt.Errorf("lock account: %w", err)
		}

		if _, err := qtx.AdjustAccountBalances(ctx, repository.AdjustAccountBalancesParams{
			ID:             pending.AccountID,
			AvailableDelta: pending.Amount,
		}); err != nil {
			return fmt.Errorf("release available balance: %w", err)
		}

		if err := transitionPendingCredit(ctx, qtx, s.audit, req.PaymentID, domain.TxStatusCompleted, req.ScreenedBy, "approved", nil); err != nil {
			return err
		}
		return s.finishDecision(ctx, qtx, req, domain.PaymentStatusApproved)
	})
	if err != nil {
		s.logDecisionFailure(domain.ActionApprove, req, err)
		return nil, err
	}

	observability.IncrementReviewDecision(domain.ActionApprove, "ok")
	zap.L().Info("pending payment approved",
		zap.String("payment_id", req.PaymentID.String()),
		zap.String("webhook_id", pending.WebhookID),
		zap.String("account_id", repository.FromPgUUID(pending.AccountID).String()),
		zap.String("screened_by", req.ScreenedBy),
	)
	return &models.Decision{
		PaymentID:  req.PaymentID,
		Action:     domain.ActionApprove,
		Status:     domain.PaymentStatusApproved,
		ScreenedBy: textParam(req.ScreenedBy),
		ScreenedAt: time.Now().UTC(),
	}, nil
}

// Reject records a credit and matching debit so the ledger shows the money
// arriving and leaving, closes the provisional credit, then asks the rail to
// send the funds back. The reversal outcome never undoes the rejection.
func (s *ScreeningService) Reject(ctx context.Context, req DecisionRequest) (*models.Decision, error) {
	var (
		pending   repository.PendingPayment
		recipient string
	)
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		var err error
		pending, err = lockPending(ctx, qtx, req.PaymentID)
		if err != nil {
			return err
		}

		recipient, err = s.resolveSenderAddress(ctx, qtx, pending.WebhookID)
		if err != nil {
			return err
		}

		if _, err := qtx.GetAccountForUpdate(ctx, pending.AccountID); err != nil {
			return fmt.Errorf("lock account: %w", err)
		}

		metadata, err := json.Marshal(map[string]string{
			"pendingPaymentId": req.PaymentID.String(),
			"webhookId":        pending.WebhookID,
		})
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}

		credit, err := qtx.AdjustAccountBalances(ctx, repository.AdjustAccountBalancesParams{
			ID:             pending.AccountID,
			BookDelta:      pending.Amount,
			AvailableDelta: pending.Amount,
		})
		if err != nil {
			return fmt.Errorf("reversal credit: %w", err)
		}
		if err := s.appendLedgerRow(ctx, qtx, pending, domain.TxTypeCredit, credit.AvailableBalance, domain.RefPrefixReversalCredit, metadata); err != nil {
			return err
		}

		debit, err := qtx.AdjustAccountBalances(ctx, repository.AdjustAccountBalancesParams{
			ID:             pending.AccountID,
			BookDelta:      -pending.Amount,
			AvailableDelta: -pending.Amount,
		})
		if err != nil {
			return fmt.Errorf("reversal debit: %w", err)
		}
		if err := s.appendLedgerRow(ctx, qtx, pending, domain.TxTypeDebit, debit.AvailableBalance, domain.RefPrefixReversalDebit, metadata); err != nil {
			return err
		}

		if err := transitionPendingCredit(ctx, qtx, s.audit, req.PaymentID, domain.TxStatusRejected, req.ScreenedBy, "rejected", metadata); err != nil {
			return err
		}
		return s.finishDecision(ctx, qtx, req, domain.PaymentStatusRejected)
	})
	if err != nil {
		s.logDecisionFailure(domain.ActionReject, req, err)
		return nil, err
	}

	observability.IncrementReviewDecision(domain.ActionReject, "ok")
	zap.L().Info("pending payment rejected",
		zap.String("payment_id", req.PaymentID.String()),
		zap.String("webhook_id", pending.WebhookID),
		zap.String("account_id", repository.FromPgUUID(pending.AccountID).String()),
		zap.String("screened_by", req.ScreenedBy),
	)

	reversal := s.reverse(context.WithoutCancel(ctx), pending, recipient, req.ScreeningNotes)
	return &models.Decision{
		PaymentID:  req.PaymentID,
		Action:     domain.ActionReject,
		Status:     domain.PaymentStatusRejected,
		ScreenedBy: textParam(req.ScreenedBy),
		ScreenedAt: time.Now().UTC(),
		Reversal:   reversal,
	}, nil
}

func (s *ScreeningService) appendLedgerRow(ctx context.Context, qtx *repository.Queries, pending repository.PendingPayment, txType string, balanceAfter int64, refPrefix string, metadata []byte) error {
	paymentID := repository.FromPgUUID(pending.ID)
	if _, err := qtx.CreateTransaction(ctx, repository.CreateTransactionParams{
		ID:               repository.ToPgUUID(uuid.New()),
		AccountID:        pending.AccountID,
		PendingPaymentID: pending.ID,
		Type:             txType,
		Amount:           pending.Amount,
		Currency:         pending.Currency,
		BalanceAfter:     balanceAfter,
		ReferenceNumber:  refPrefix + paymentID.String(),
		Status:           domain.TxStatusCompleted,
		Metadata:         metadata,
	}); err != nil {
		return fmt.Errorf("create %s transaction: %w", strings.ToLower(txType), err)
	}
	return nil
}

func (s *ScreeningService) finishDecision(ctx context.Context, qtx *repository.Queries, req DecisionRequest, status string) error {
	rows, err := qtx.DecidePendingPayment(ctx, repository.DecidePendingPaymentParams{
		ID:             repository.ToPgUUID(req.PaymentID),
		Status:         status,
		ScreeningNotes: textParam(strings.TrimSpace(req.ScreeningNotes)),
		ScreenedBy:     textParam(req.ScreenedBy),
	})
	if err != nil {
		return fmt.Errorf("update pending payment: %w", err)
	}
	if err := requireExactlyOne(rows, "update pending payment"); err != nil {
		return err
	}
	return s.audit.Write(ctx, qtx, "pending_payment", req.PaymentID, req.ScreenedBy, strings.ToLower(status), domain.PaymentStatusPending, status, nil)
}

// resolveSenderAddress reads the originating webhook for the sender's rail
// address, falling back to the wallet URL of a known account. An empty
// result is not an error.
func (s *ScreeningService) resolveSenderAddress(ctx context.Context, qtx *repository.Queries, webhookID string) (string, error) {
	wh, err := qtx.GetWebhook(ctx, webhookID)
	if err != nil {
		return "", fmt.Errorf("load originating webhook: %w", err)
	}
	norm, err := NormalizeWebhook(wh.RawPayload)
	if err != nil {
		zap.L().Warn("originating webhook unreadable", zap.String("webhook_id", webhookID), zap.Error(err))
		return "", nil
	}
	if norm.SenderWalletAddress != "" {
		return norm.SenderWalletAddress, nil
	}
	if norm.SenderWalletAddressID == "" {
		return "", nil
	}
	acc, err := qtx.GetAccountByWalletAddressID(ctx, norm.SenderWalletAddressID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("lookup sender wallet: %w", err)
	}
	return derefString(acc.WalletAddressUrl), nil
}

// reverse calls the rail and persists the outcome. It runs after the
// rejection has committed and never retries.
func (s *ScreeningService) reverse(ctx context.Context, pending repository.PendingPayment, recipient, notes string) *models.Reversal {
	paymentID := repository.FromPgUUID(pending.ID)
	amount := domain.MicrosToDecimal(pending.Amount)

	var result gateway.ReversalResult
	switch {
	case recipient == "":
		result = gateway.ReversalResult{Error: unresolvedSenderError}
	case s.gateway == nil:
		result = gateway.ReversalResult{Error: "reversal gateway not configured"}
	default:
		result = s.gateway.Reverse(ctx, gateway.ReversalRequest{
			SenderAddress: recipient,
			Amount:        amount,
			Currency:      pending.Currency,
			CorrelationID: paymentID.String(),
			Note:          notes,
		})
	}

	status := domain.ReversalStatusCompleted
	if !result.Success {
		status = domain.ReversalStatusFailed
	}

	row, err := s.store.Queries().InsertReversal(ctx, repository.InsertReversalParams{
		ID:               repository.ToPgUUID(uuid.New()),
		PendingPaymentID: pending.ID,
		Recipient:        textParam(recipient),
		Amount:           pending.Amount,
		Currency:         pending.Currency,
		Status:           status,
		RailPaymentID:    textParam(result.PaymentID),
		ErrorMessage:     textParam(result.Error),
	})
	out := &models.Reversal{
		PendingPaymentID: paymentID,
		Status:           status,
		PaymentID:        textParam(result.PaymentID),
		Amount:           amount,
		Currency:         pending.Currency,
		Recipient:        textParam(recipient),
		Error:            textParam(result.Error),
		CreatedAt:        time.Now().UTC(),
	}
	if err != nil {
		zap.L().Error("failed to persist reversal outcome",
			zap.Error(err),
			zap.String("payment_id", paymentID.String()),
			zap.String("status", status),
		)
	} else {
		out.CreatedAt = row.CreatedAt.Time
	}

	observability.IncrementReversalOutcome(status)
	if status == domain.ReversalStatusFailed {
		zap.L().Error("reversal failed, manual intervention required",
			zap.String("payment_id", paymentID.String()),
			zap.String("webhook_id", pending.WebhookID),
			zap.String("account_id", repository.FromPgUUID(pending.AccountID).String()),
			zap.String("error", result.Error),
		)
	} else {
		zap.L().Info("reversal completed",
			zap.String("payment_id", paymentID.String()),
			zap.String("rail_payment_id", result.PaymentID),
		)
	}
	return out
}

func (s *ScreeningService) logDecisionFailure(action string, req DecisionRequest, err error) {
	result := "error"
	switch {
	case errors.Is(err, ErrPendingPaymentNotFound):
		result = "not_found"
	case errors.Is(err, ErrPaymentAlreadyProcessed):
		result = "already_processed"
	}
	observability.IncrementReviewDecision(action, result)
	if result == "error" {
		zap.L().Error("review decision failed",
			zap.Error(err),
			zap.String("action", action),
			zap.String("payment_id", req.PaymentID.String()),
		)
		return
	}
	zap.L().Info("review decision refused",
		zap.String("action", action),
		zap.String("payment_id", req.PaymentID.String()),
		zap.String("result", result),
	)
}
