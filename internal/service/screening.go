package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayo6706/payment-screening/internal/domain"
	"github.com/ayo6706/payment-screening/internal/gateway"
	"github.com/ayo6706/payment-screening/internal/models"
	"github.com/ayo6706/payment-screening/internal/observability"
	"github.com/ayo6706/payment-screening/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxWebhookErrorLen = 500

// errBlocked aborts the intake unit of work when screening matches.
var errBlocked = errors.New("payment blocked by screening")

// NameScreener checks a candidate name against the block list.
type NameScreener interface {
	Check(ctx context.Context, candidate string) (models.BlockListCheck, error)
}

// Converter supplies the USD->PKR rate and applies it.
type Converter interface {
	Rate(ctx context.Context) (decimal.Decimal, error)
	ConvertAt(usd, rate decimal.Decimal) Conversion
}

// ScreeningService owns the pending payment state machine: intake from a
// recorded webhook, then a single APPROVE or REJECT decision.
type ScreeningService struct {
	store    QueryStore
	screener NameScreener
	currency Converter
	gateway  gateway.Gateway
	audit    *AuditService
}

func NewScreeningService(store QueryStore, screener NameScreener, currency Converter, gw gateway.Gateway) *ScreeningService {
	return &ScreeningService{
		store:    store,
		screener: screener,
		currency: currency,
		gateway:  gw,
		audit:    NewAuditService(store),
	}
}

// SettleWebhook claims a received webhook and runs intake. A webhook that is
// already claimed or finished is left alone.
func (s *ScreeningService) SettleWebhook(ctx context.Context, webhookID string) error {
	queries := s.store.Queries()
	claimed, err := queries.ClaimWebhook(ctx, webhookID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("claim webhook: %w", err)
		}
		existing, getErr := queries.GetWebhook(ctx, webhookID)
		if getErr != nil {
			if errors.Is(getErr, pgx.ErrNoRows) {
				return ErrWebhookNotFound
			}
			return fmt.Errorf("get webhook: %w", getErr)
		}
		zap.L().Debug("webhook already claimed",
			zap.String("webhook_id", webhookID),
			zap.String("status", existing.Status),
		)
		return nil
	}

	if !domain.IsSettleable(claimed.Type) {
		if err := s.completeWebhook(ctx, queries, webhookID); err != nil {
			return err
		}
		observability.IncrementScreeningOutcome("ignored")
		zap.L().Info("webhook type not settled", zap.String("webhook_id", webhookID), zap.String("type", claimed.Type))
		return nil
	}
	if !claimed.ResolvedAccountID.Valid {
		return ErrAccountNotResolved
	}
	if claimed.ExtractedAmount == nil || claimed.ExtractedCurrency == nil {
		return ErrAmountMissing
	}
	if *claimed.ExtractedAmount <= 0 {
		return fmt.Errorf("%w: non-positive amount", ErrAmountMissing)
	}

	norm, err := NormalizeWebhook(claimed.RawPayload)
	if err != nil {
		return err
	}
	return s.intake(ctx, claimed, norm)
}

func (s *ScreeningService) intake(ctx context.Context, wh repository.Webhook, norm NormalizedWebhook) error {
	accountID := repository.FromPgUUID(wh.ResolvedAccountID)
	amount := domain.MicrosToDecimal(*wh.ExtractedAmount)
	currency := *wh.ExtractedCurrency
	logger := zap.L().With(
		zap.String("webhook_id", wh.ID),
		zap.String("account_id", accountID.String()),
	)

	account, err := s.store.Queries().GetAccount(ctx, wh.ResolvedAccountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("get account: %w", err)
	}

	// The rate is fetched before the account lock is taken.
	var rate *decimal.Decimal
	if NeedsConversion(currency, account.Currency) {
		r, err := s.currency.Rate(ctx)
		if err != nil {
			return err
		}
		rate = &r
	}

	var (
		blocked *models.BlockListCheck
		pending repository.PendingPayment
	)
	err = s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		locked, err := qtx.GetAccountForUpdate(ctx, wh.ResolvedAccountID)
		if err != nil {
			return fmt.Errorf("lock account: %w", err)
		}
		if locked.Currency != account.Currency {
			return ErrCurrencyMismatch
		}

		if candidate := ExtractCandidateName(norm); candidate != "" {
			res, err := s.screener.Check(ctx, candidate)
			if err != nil {
				return err
			}
			if res.IsBlocked {
				blocked = &res
				return errBlocked
			}
		}

		finalAmount, finalCurrency := amount, currency
		var (
			originalAmount   *int64
			originalCurrency *string
			riskScore        int
		)
		if rate != nil {
			conv := s.currency.ConvertAt(amount, *rate)
			finalAmount, finalCurrency = conv.ConvertedAmount, conv.ConvertedCurrency
			original := *wh.ExtractedAmount
			originalAmount, originalCurrency = &original, &currency
			riskScore = CalculateConversionRisk(amount.InexactFloat64())
		} else {
			if currency != locked.Currency {
				logger.Warn("payment currency differs from account currency, passing through unconverted",
					zap.String("payment_currency", currency),
					zap.String("account_currency", locked.Currency),
				)
			}
			riskScore = HeuristicRisk(finalAmount, norm)
		}
		micros, err := domain.CheckedFromDecimal(finalAmount)
		if err != nil {
			return fmt.Errorf("credit amount: %w", err)
		}

		bal, err := qtx.AdjustAccountBalances(ctx, repository.AdjustAccountBalancesParams{
			ID:        wh.ResolvedAccountID,
			BookDelta: micros,
		})
		if err != nil {
			return fmt.Errorf("credit book balance: %w", err)
		}

		paymentID := uuid.New()
		pending, err = qtx.InsertPendingPayment(ctx, repository.InsertPendingPaymentParams{
			ID:                   repository.ToPgUUID(paymentID),
			WebhookID:            wh.ID,
			AccountID:            wh.ResolvedAccountID,
			Amount:               micros,
			Currency:             finalCurrency,
			OriginalAmount:       originalAmount,
			OriginalCurrency:     originalCurrency,
			ConversionRate:       repository.ToPgNumeric(rate),
			RiskScore:            int32(riskScore),
			AutoApprovalEligible: AutoApprovalEligible(finalAmount, finalCurrency),
			SenderName:           textParam(norm.SenderName),
		})
		if err != nil {
			return fmt.Errorf("insert pending payment: %w", err)
		}

		metadata, err := json.Marshal(map[string]any{
			"webhookId": wh.ID,
			"riskScore": riskScore,
			"converted": rate != nil,
		})
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}

		if _, err := qtx.CreateTransaction(ctx, repository.CreateTransactionParams{
			ID:               repository.ToPgUUID(uuid.New()),
			AccountID:        wh.ResolvedAccountID,
			PendingPaymentID: pending.ID,
			Type:             domain.TxTypeCreditPending,
			Amount:           micros,
			Currency:         finalCurrency,
			BalanceAfter:     bal.BookBalance,
			ReferenceNumber:  domain.RefPrefixPending + wh.ID,
			Status:           domain.TxStatusPending,
			Metadata:         metadata,
		}); err != nil {
			return fmt.Errorf("create pending credit: %w", err)
		}

		if err := s.audit.Write(ctx, qtx, "pending_payment", paymentID, "", "created", "", domain.PaymentStatusPending, metadata); err != nil {
			return err
		}
		return s.completeWebhook(ctx, qtx, wh.ID)
	})

	if errors.Is(err, errBlocked) {
		return s.recordBlocked(ctx, wh, *blocked)
	}
	if err != nil {
		return err
	}

	observability.IncrementScreeningOutcome("pending")
	logger.Info("payment quarantined for review",
		zap.String("payment_id", repository.FromPgUUID(pending.ID).String()),
		zap.Int32("risk_score", pending.RiskScore),
		zap.Bool("auto_approval_eligible", pending.AutoApprovalEligible),
		zap.Bool("converted", rate != nil),
	)
	return nil
}

// recordBlocked writes the blocked payment in its own unit of work; the
// account is never credited.
func (s *ScreeningService) recordBlocked(ctx context.Context, wh repository.Webhook, check models.BlockListCheck) error {
	var matchedID *uuid.UUID
	if check.MatchedEntry != nil {
		id := check.MatchedEntry.ID
		matchedID = &id
	}
	blockedID := uuid.New()

	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		_, err := qtx.InsertBlockedPayment(ctx, repository.InsertBlockedPaymentParams{
			ID:                 repository.ToPgUUID(blockedID),
			WebhookID:          wh.ID,
			AccountID:          wh.ResolvedAccountID,
			MatchedBlockListID: repository.ToPgUUIDPtr(matchedID),
			Amount:             *wh.ExtractedAmount,
			Currency:           *wh.ExtractedCurrency,
			BlockedReason:      check.Reason,
		})
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("insert blocked payment: %w", err)
		}
		if err == nil {
			metadata, _ := json.Marshal(map[string]string{"webhookId": wh.ID, "reason": check.Reason})
			if err := s.audit.Write(ctx, qtx, "blocked_payment", blockedID, "", "blocked", "", "BLOCKED", metadata); err != nil {
				return err
			}
		}
		return s.completeWebhook(ctx, qtx, wh.ID)
	})
	if err != nil {
		return err
	}

	observability.IncrementScreeningOutcome("blocked")
	zap.L().Warn("payment blocked by screening",
		zap.String("webhook_id", wh.ID),
		zap.String("account_id", repository.FromPgUUID(wh.ResolvedAccountID).String()),
		zap.String("match_type", check.MatchType),
		zap.String("reason", check.Reason),
	)
	return nil
}

func (s *ScreeningService) completeWebhook(ctx context.Context, q *repository.Queries, webhookID string) error {
	rows, err := q.UpdateWebhookStatus(ctx, repository.UpdateWebhookStatusParams{
		ID:           webhookID,
		Status:       domain.WebhookStatusProcessed,
		FromStatuses: []string{domain.WebhookStatusProcessing},
	})
	if err != nil {
		return fmt.Errorf("mark webhook processed: %w", err)
	}
	return requireExactlyOne(rows, "mark webhook processed")
}

// MarkWebhookFailed records a settlement failure on the webhook. Webhooks
// that already reached a terminal status are not touched.
func (s *ScreeningService) MarkWebhookFailed(ctx context.Context, webhookID string, cause error) error {
	msg := "settlement failed"
	if cause != nil {
		msg = cause.Error()
	}
	if len(msg) > maxWebhookErrorLen {
		msg = msg[:maxWebhookErrorLen]
	}
	rows, err := s.store.Queries().UpdateWebhookStatus(ctx, repository.UpdateWebhookStatusParams{
		ID:           webhookID,
		Status:       domain.WebhookStatusError,
		ErrorMessage: &msg,
		FromStatuses: []string{domain.WebhookStatusReceived, domain.WebhookStatusProcessing},
	})
	if err != nil {
		return fmt.Errorf("mark webhook failed: %w", err)
	}
	observability.IncrementScreeningOutcome("failed")
	if rows == 0 {
		zap.L().Debug("webhook already terminal, failure not recorded", zap.String("webhook_id", webhookID))
	}
	return nil
}

// RecoverStaleWebhooks returns received webhooks older than staleAfter for
// re-dispatch and fails webhooks stuck in processing.
func (s *ScreeningService) RecoverStaleWebhooks(ctx context.Context, staleAfter time.Duration, limit int32) ([]string, error) {
	queries := s.store.Queries()
	cutoff := repository.ToPgTime(time.Now().Add(-staleAfter))

	received, err := queries.ListStaleWebhooks(ctx, repository.ListStaleWebhooksParams{
		Status:        domain.WebhookStatusReceived,
		UpdatedBefore: cutoff,
		Limit:         limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list stale received webhooks: %w", err)
	}
	ids := make([]string, 0, len(received))
	for _, wh := range received {
		ids = append(ids, wh.ID)
	}

	stuck, err := queries.ListStaleWebhooks(ctx, repository.ListStaleWebhooksParams{
		Status:        domain.WebhookStatusProcessing,
		UpdatedBefore: cutoff,
		Limit:         limit,
	})
	if err != nil {
		return ids, fmt.Errorf("list stale processing webhooks: %w", err)
	}
	msg := "settlement interrupted"
	for _, wh := range stuck {
		if _, err := queries.UpdateWebhookStatus(ctx, repository.UpdateWebhookStatusParams{
			ID:           wh.ID,
			Status:       domain.WebhookStatusError,
			ErrorMessage: &msg,
			FromStatuses: []string{domain.WebhookStatusProcessing},
		}); err != nil {
			return ids, fmt.Errorf("fail stuck webhook %s: %w", wh.ID, err)
		}
	}

	if len(ids) > 0 || len(stuck) > 0 {
		zap.L().Warn("recovered stale webhooks", zap.Int("requeued", len(ids)), zap.Int("interrupted", len(stuck)))
	}
	return ids, nil
}
