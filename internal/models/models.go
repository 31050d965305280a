package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Account struct {
	ID               uuid.UUID       `json:"id"`
	HolderName       string          `json:"holderName"`
	WalletAddressID  *string         `json:"walletAddressId,omitempty"`
	WalletAddressURL *string         `json:"walletAddressUrl,omitempty"`
	Currency         string          `json:"currency"`
	Balance          decimal.Decimal `json:"balance"`
	BookBalance      decimal.Decimal `json:"bookBalance"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

type Transaction struct {
	ID               uuid.UUID       `json:"id"`
	AccountID        uuid.UUID       `json:"accountId"`
	PendingPaymentID *uuid.UUID      `json:"pendingPaymentId,omitempty"`
	Type             string          `json:"type"`   // CREDIT_PENDING, CREDIT, DEBIT
	Status           string          `json:"status"` // PENDING, COMPLETED, REJECTED
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	BalanceAfter     decimal.Decimal `json:"balanceAfter"`
	ReferenceNumber  string          `json:"referenceNumber"`
	CreatedAt        time.Time       `json:"createdAt"`
}

type Webhook struct {
	ID           string           `json:"id"`
	Type         string           `json:"type"`
	AccountID    *uuid.UUID       `json:"accountId"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	Currency     *string          `json:"currency,omitempty"`
	Status       string           `json:"status"`
	ErrorMessage *string          `json:"errorMessage,omitempty"`
	Blocked      *BlockedPayment  `json:"blocked,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// PaymentAmount is the canonical amount carried by a rail notification.
type PaymentAmount struct {
	Value    decimal.Decimal `json:"value"`
	Currency string          `json:"currency"`
}

// WebhookAck is returned to the rail as soon as the record is durable.
type WebhookAck struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	AccountID     *uuid.UUID     `json:"accountId"`
	PaymentAmount *PaymentAmount `json:"paymentAmount"`
	Duplicate     bool           `json:"duplicate,omitempty"`
}

type PendingPayment struct {
	ID                   uuid.UUID        `json:"id"`
	WebhookID            string           `json:"webhookId"`
	AccountID            uuid.UUID        `json:"accountId"`
	Amount               decimal.Decimal  `json:"amount"`
	Currency             string           `json:"currency"`
	OriginalAmount       *decimal.Decimal `json:"originalAmount,omitempty"`
	OriginalCurrency     *string          `json:"originalCurrency,omitempty"`
	ConversionRate       *decimal.Decimal `json:"conversionRate,omitempty"`
	RiskScore            int              `json:"riskScore"`
	RiskLevel            string           `json:"riskLevel"`
	AutoApprovalEligible bool             `json:"autoApprovalEligible"`
	SenderName           *string          `json:"senderName,omitempty"`
	Status               string           `json:"status"`
	ScreeningNotes       *string          `json:"screeningNotes,omitempty"`
	ScreenedBy           *string          `json:"screenedBy,omitempty"`
	ScreenedAt           *time.Time       `json:"screenedAt,omitempty"`
	CreatedAt            time.Time        `json:"createdAt"`
}

type PendingPaymentStats struct {
	TotalPending int64           `json:"totalPending"`
	LowRisk      int64           `json:"lowRisk"`
	MediumRisk   int64           `json:"mediumRisk"`
	HighRisk     int64           `json:"highRisk"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	AutoEligible int64           `json:"autoEligible"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type PendingPaymentList struct {
	Items      []PendingPayment    `json:"items"`
	Pagination Pagination          `json:"pagination"`
	Stats      PendingPaymentStats `json:"stats"`
}

type BlockListEntry struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Reason    string    `json:"reason"`
	Severity  int       `json:"severity"`
	IsActive  bool      `json:"isActive"`
	AddedBy   string    `json:"addedBy"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type BlockListCheck struct {
	IsBlocked    bool            `json:"isBlocked"`
	MatchType    string          `json:"matchType,omitempty"`
	MatchedEntry *BlockListEntry `json:"matchedEntry,omitempty"`
	Reason       string          `json:"reason,omitempty"`
}

type BlockedPayment struct {
	ID                 uuid.UUID       `json:"id"`
	WebhookID          string          `json:"webhookId"`
	AccountID          uuid.UUID       `json:"accountId"`
	MatchedBlockListID *uuid.UUID      `json:"matchedBlockListId,omitempty"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	BlockedReason      string          `json:"blockedReason"`
	BlockedAt          time.Time       `json:"blockedAt"`
}

// Reversal is the outcome of re-originating rejected funds to the sender.
type Reversal struct {
	PendingPaymentID uuid.UUID       `json:"pendingPaymentId"`
	Status           string          `json:"status"` // COMPLETED or FAILED
	PaymentID        *string         `json:"paymentId,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Recipient        *string         `json:"recipient,omitempty"`
	Error            *string         `json:"error,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
}

type Decision struct {
	PaymentID  uuid.UUID `json:"paymentId"`
	Action     string    `json:"action"`
	Status     string    `json:"status"`
	ScreenedBy *string   `json:"screenedBy,omitempty"`
	ScreenedAt time.Time `json:"screenedAt"`
	Reversal   *Reversal `json:"reversal,omitempty"`
}
