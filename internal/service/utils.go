package service

import (
	"fmt"

	"github.com/ayo6706/payment-screening/internal/domain"
	"github.com/ayo6706/payment-screening/internal/models"
	"github.com/ayo6706/payment-screening/internal/repository"
)

func requireExactlyOne(rows int64, operation string) error {
	if rows != 1 {
		return fmt.Errorf("%s affected %d rows", operation, rows)
	}
	return nil
}

func textParam(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func clampPage(page, limit, defaultLimit, maxLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

func toAccountModel(a repository.Account) models.Account {
	return models.Account{
		ID:               repository.FromPgUUID(a.ID),
		HolderName:       a.HolderName,
		WalletAddressID:  a.WalletAddressID,
		WalletAddressURL: a.WalletAddressUrl,
		Currency:         a.Currency,
		Balance:          domain.MicrosToDecimal(a.Balance),
		BookBalance:      domain.MicrosToDecimal(a.BookBalance),
		AvailableBalance: domain.MicrosToDecimal(a.AvailableBalance),
		UpdatedAt:        a.UpdatedAt.Time,
	}
}

func toTransactionModel(t repository.Transaction) models.Transaction {
	return models.Transaction{
		ID:               repository.FromPgUUID(t.ID),
		AccountID:        repository.FromPgUUID(t.AccountID),
		PendingPaymentID: repository.FromPgUUIDPtr(t.PendingPaymentID),
		Type:             t.Type,
		Status:           t.Status,
		Amount:           domain.MicrosToDecimal(t.Amount),
		Currency:         t.Currency,
		BalanceAfter:     domain.MicrosToDecimal(t.BalanceAfter),
		ReferenceNumber:  t.ReferenceNumber,
		CreatedAt:        t.CreatedAt.Time,
	}
}

func toWebhookModel(w repository.Webhook) models.Webhook {
	out := models.Webhook{
		ID:           w.ID,
		Type:         w.Type,
		AccountID:    repository.FromPgUUIDPtr(w.ResolvedAccountID),
		Currency:     w.ExtractedCurrency,
		Status:       w.Status,
		ErrorMessage: w.ErrorMessage,
		CreatedAt:    w.CreatedAt.Time,
		UpdatedAt:    w.UpdatedAt.Time,
	}
	if w.ExtractedAmount != nil {
		amt := domain.MicrosToDecimal(*w.ExtractedAmount)
		out.Amount = &amt
	}
	return out
}

func toBlockedPaymentModel(b repository.BlockedPayment) *models.BlockedPayment {
	return &models.BlockedPayment{
		ID:                 repository.FromPgUUID(b.ID),
		WebhookID:          b.WebhookID,
		AccountID:          repository.FromPgUUID(b.AccountID),
		MatchedBlockListID: repository.FromPgUUIDPtr(b.MatchedBlockListID),
		Amount:             domain.MicrosToDecimal(b.Amount),
		Currency:           b.Currency,
		BlockedReason:      b.BlockedReason,
		BlockedAt:          b.BlockedAt.Time,
	}
}

func toPendingPaymentModel(p repository.PendingPayment) models.PendingPayment {
	out := models.PendingPayment{
		ID:                   repository.FromPgUUID(p.ID),
		WebhookID:            p.WebhookID,
		AccountID:            repository.FromPgUUID(p.AccountID),
		Amount:               domain.MicrosToDecimal(p.Amount),
		Currency:             p.Currency,
		OriginalCurrency:     p.OriginalCurrency,
		ConversionRate:       repository.FromPgNumeric(p.ConversionRate),
		RiskScore:            int(p.RiskScore),
		RiskLevel:            string(domain.RiskLevelFor(int(p.RiskScore))),
		AutoApprovalEligible: p.AutoApprovalEligible,
		SenderName:           p.SenderName,
		Status:               p.Status,
		ScreeningNotes:       p.ScreeningNotes,
		ScreenedBy:           p.ScreenedBy,
		ScreenedAt:           repository.FromPgTime(p.ScreenedAt),
		CreatedAt:            p.CreatedAt.Time,
	}
	if p.OriginalAmount != nil {
		amt := domain.MicrosToDecimal(*p.OriginalAmount)
		out.OriginalAmount = &amt
	}
	return out
}

func toBlockListModel(e repository.BlockList) models.BlockListEntry {
	return models.BlockListEntry{
		ID:        repository.FromPgUUID(e.ID),
		Name:      e.Name,
		Type:      e.Type,
		Reason:    e.Reason,
		Severity:  int(e.Severity),
		IsActive:  e.IsActive,
		AddedBy:   e.AddedBy,
		Notes:     e.Notes,
		CreatedAt: e.CreatedAt.Time,
	}
}

func toReversalModel(r repository.Reversal) models.Reversal {
	return models.Reversal{
		PendingPaymentID: repository.FromPgUUID(r.PendingPaymentID),
		Status:           r.Status,
		PaymentID:        r.RailPaymentID,
		Amount:           domain.MicrosToDecimal(r.Amount),
		Currency:         r.Currency,
		Recipient:        r.Recipient,
		Error:            r.ErrorMessage,
		CreatedAt:        r.CreatedAt.Time,
	}
}
