package service

import "errors"

var (
	ErrInvalidSignature        = errors.New("invalid signature")
	ErrInvalidWebhook          = errors.New("invalid webhook payload")
	ErrWebhookNotFound         = errors.New("webhook not found")
	ErrAccountNotResolved      = errors.New("destination account not resolved")
	ErrAccountNotFound         = errors.New("account not found")
	ErrAmountMissing           = errors.New("payment amount missing")
	ErrCurrencyMismatch        = errors.New("account currency changed during screening")
	ErrScreeningUnavailable    = errors.New("screening unavailable")
	ErrRateUnavailable         = errors.New("exchange rate unavailable")
	ErrPendingPaymentNotFound  = errors.New("pending payment not found")
	ErrPaymentAlreadyProcessed = errors.New("payment already processed")
	ErrInvalidAction           = errors.New("invalid review action")
	ErrBlockListEntryNotFound  = errors.New("block list entry not found")
	ErrInvalidBlockListEntry   = errors.New("invalid block list entry")
	ErrInvalidRiskLevel        = errors.New("invalid risk level")
	ErrInvalidReversalStatus   = errors.New("invalid reversal status")
)
