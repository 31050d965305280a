package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ayo6706/payment-screening/internal/domain"
	"github.com/ayo6706/payment-screening/internal/models"
	"github.com/ayo6706/payment-screening/internal/observability"
	"github.com/ayo6706/payment-screening/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"
)

// WebhookService records inbound rail notifications. Settlement happens
// later, keyed off the stored webhook id.
type WebhookService struct {
	store   QueryStore
	hmacKey []byte
	skipSig bool
}

// NewWebhookService creates a new WebhookService instance.
func NewWebhookService(store QueryStore, hmacKey string, skipSignature bool) *WebhookService {
	return &WebhookService{
		store:   store,
		hmacKey: []byte(hmacKey),
		skipSig: skipSignature,
	}
}

// Receive verifies, normalizes and durably records a notification before
// any side effect. A redelivered id returns the stored record marked as a
// duplicate.
func (s *WebhookService) Receive(ctx context.Context, payload []byte, signature string) (*models.WebhookAck, error) {
	if !s.verifyHMAC(payload, signature) {
		observability.IncrementWebhookEvent("invalid_signature")
		return nil, ErrInvalidSignature
	}

	norm, err := NormalizeWebhook(payload)
	if err != nil {
		observability.IncrementWebhookEvent("invalid")
		return nil, err
	}

	queries := s.store.Queries()
	var accountID pgtype.UUID
	if norm.WalletAddressID != "" {
		acc, err := queries.GetAccountByWalletAddressID(ctx, norm.WalletAddressID)
		switch {
		case err == nil:
			accountID = acc.ID
		case errors.Is(err, pgx.ErrNoRows):
			zap.L().Warn("webhook destination wallet not found",
				zap.String("webhook_id", norm.ID),
				zap.String("wallet_address_id", norm.WalletAddressID),
			)
		default:
			return nil, fmt.Errorf("resolve destination account: %w", err)
		}
	} else {
		zap.L().Warn("webhook carries no wallet address id", zap.String("webhook_id", norm.ID))
	}

	params := repository.InsertWebhookParams{
		ID:                norm.ID,
		Type:              norm.Type,
		RawPayload:        payload,
		ResolvedAccountID: accountID,
	}
	if norm.Amount != nil {
		micros, err := domain.CheckedFromDecimal(norm.Amount.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
		}
		currency := norm.Amount.Currency
		params.ExtractedAmount = &micros
		params.ExtractedCurrency = &currency
	}

	row, err := queries.InsertWebhook(ctx, params)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("record webhook: %w", err)
		}
		existing, getErr := queries.GetWebhook(ctx, norm.ID)
		if getErr != nil {
			return nil, fmt.Errorf("load existing webhook: %w", getErr)
		}
		observability.IncrementWebhookEvent("duplicate")
		zap.L().Info("duplicate webhook delivery",
			zap.String("webhook_id", existing.ID),
			zap.String("status", existing.Status),
		)
		ack := ackFor(existing)
		ack.Duplicate = true
		return ack, nil
	}

	observability.IncrementWebhookEvent("recorded")
	zap.L().Info("webhook recorded",
		zap.String("webhook_id", row.ID),
		zap.String("type", row.Type),
		zap.String("amount_shape", norm.AmountShape),
		zap.Bool("account_resolved", row.ResolvedAccountID.Valid),
	)
	return ackFor(row), nil
}

// Get returns the stored record for a webhook id, with the blocked payment
// when screening stopped it.
func (s *WebhookService) Get(ctx context.Context, id string) (*models.Webhook, error) {
	row, err := s.store.Queries().GetWebhook(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWebhookNotFound
		}
		return nil, fmt.Errorf("get webhook: %w", err)
	}
	out := toWebhookModel(row)
	blocked, err := s.store.Queries().GetBlockedPaymentByWebhook(ctx, id)
	switch {
	case err == nil:
		out.Blocked = toBlockedPaymentModel(blocked)
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("get blocked payment: %w", err)
	}
	return &out, nil
}

func ackFor(row repository.Webhook) *models.WebhookAck {
	ack := &models.WebhookAck{
		ID:        row.ID,
		Type:      row.Type,
		AccountID: repository.FromPgUUIDPtr(row.ResolvedAccountID),
	}
	if row.ExtractedAmount != nil && row.ExtractedCurrency != nil {
		ack.PaymentAmount = &models.PaymentAmount{
			Value:    domain.MicrosToDecimal(*row.ExtractedAmount),
			Currency: *row.ExtractedCurrency,
		}
	}
	return ack
}

// verifyHMAC verifies the HMAC signature of the payload.
func (s *WebhookService) verifyHMAC(payload []byte, signature string) bool {
	if s.skipSig {
		return true
	}
	if len(s.hmacKey) == 0 {
		return false
	}

	expectedSig := SignPayload(s.hmacKey, payload)

	// Use hmac.Equal for constant-time comparison
	return hmac.Equal([]byte(signature), []byte(expectedSig))
}

// SignPayload returns the signature header value for payload.
func SignPayload(key, payload []byte) string {
	h := hmac.New(sha256.New, key)
	h.Write(payload)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}
