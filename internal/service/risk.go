package service

import (
	"regexp"
	"strings"

	"github.com/ayo6706/payment-screening/internal/domain"
	"github.com/shopspring/decimal"
)

// Heuristic thresholds for payments that did not need conversion. They are
// kept for behavioural parity and are not a validated risk policy.
const (
	baseRiskScore      = 10
	unknownSenderRisk  = 20
	urgentLanguageRisk = 15
)

var (
	riskTierHigh   = decimal.NewFromInt(10000)
	riskTierMedium = decimal.NewFromInt(5000)
	riskTierLow    = decimal.NewFromInt(1000)

	autoApprovalLimitPKR     = decimal.NewFromInt(250000)
	autoApprovalLimitDefault = decimal.NewFromInt(1000)

	urgencyPattern = regexp.MustCompile(`\b(urgent|urgently|immediately|asap|emergency|rush|right away)\b`)
)

// HeuristicRisk scores a payment from its amount, sender knowledge and
// description wording. The result is capped at 100.
func HeuristicRisk(amount decimal.Decimal, w NormalizedWebhook) int {
	score := baseRiskScore

	switch {
	case amount.GreaterThan(riskTierHigh):
		score += 30
	case amount.GreaterThan(riskTierMedium):
		score += 20
	case amount.GreaterThan(riskTierLow):
		score += 10
	}

	if senderUnknown(w) {
		score += unknownSenderRisk
	}
	if hasUrgentLanguage(w) {
		score += urgentLanguageRisk
	}

	if score > domain.MaxRiskScore {
		score = domain.MaxRiskScore
	}
	return score
}

func senderUnknown(w NormalizedWebhook) bool {
	if w.SenderVerified != nil && !*w.SenderVerified {
		return true
	}
	return w.SenderName == "" && w.SenderWalletAddress == "" && w.SenderWalletAddressID == ""
}

func hasUrgentLanguage(w NormalizedWebhook) bool {
	fields := []string{
		firstString(w.Metadata, "description"),
		firstString(w.Metadata, "memo"),
		firstString(w.Metadata, "note"),
		firstString(w.Data, "description"),
	}
	for _, f := range fields {
		if f != "" && urgencyPattern.MatchString(strings.ToLower(f)) {
			return true
		}
	}
	return false
}

// AutoApprovalEligible reports whether the final amount is under the
// currency's expedited-approval limit.
func AutoApprovalEligible(amount decimal.Decimal, currency string) bool {
	if currency == domain.CurrencyPKR {
		return amount.LessThan(autoApprovalLimitPKR)
	}
	return amount.LessThan(autoApprovalLimitDefault)
}
