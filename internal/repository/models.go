package repository

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Account struct {
	ID               pgtype.UUID        `json:"id"`
	HolderName       string             `json:"holder_name"`
	WalletAddressID  *string            `json:"wallet_address_id"`
	WalletAddressUrl *string            `json:"wallet_address_url"`
	Currency         string             `json:"currency"`
	Balance          int64              `json:"balance"`
	BookBalance      int64              `json:"book_balance"`
	AvailableBalance int64              `json:"available_balance"`
	CreatedAt        pgtype.Timestamptz `json:"created_at"`
	UpdatedAt        pgtype.Timestamptz `json:"updated_at"`
}

type Webhook struct {
	ID                string             `json:"id"`
	Type              string             `json:"type"`
	RawPayload        []byte             `json:"raw_payload"`
	ResolvedAccountID pgtype.UUID        `json:"resolved_account_id"`
	ExtractedAmount   *int64             `json:"extracted_amount"`
	ExtractedCurrency *string            `json:"extracted_currency"`
	Status            string             `json:"status"`
	ErrorMessage      *string            `json:"error_message"`
	CreatedAt         pgtype.Timestamptz `json:"created_at"`
	UpdatedAt         pgtype.Timestamptz `json:"updated_at"`
}

type PendingPayment struct {
	ID                   pgtype.UUID        `json:"id"`
	WebhookID            string             `json:"webhook_id"`
	AccountID            pgtype.UUID        `json:"account_id"`
	Amount               int64              `json:"amount"`
	Currency             string             `json:"currency"`
	OriginalAmount       *int64             `json:"original_amount"`
	OriginalCurrency     *string            `json:"original_currency"`
	ConversionRate       pgtype.Numeric     `json:"conversion_rate"`
	RiskScore            int32              `json:"risk_score"`
	AutoApprovalEligible bool               `json:"auto_approval_eligible"`
	SenderName           *string            `json:"sender_name"`
	Status               string             `json:"status"`
	ScreeningNotes       *string            `json:"screening_notes"`
	ScreenedBy           *string            `json:"screened_by"`
	ScreenedAt           pgtype.Timestamptz `json:"screened_at"`
	CreatedAt            pgtype.Timestamptz `json:"created_at"`
}

type BlockList struct {
	ID        pgtype.UUID        `json:"id"`
	Name      string             `json:"name"`
	Type      string             `json:"type"`
	Reason    string             `json:"reason"`
	Severity  int32              `json:"severity"`
	IsActive  bool               `json:"is_active"`
	AddedBy   string             `json:"added_by"`
	Notes     *string            `json:"notes"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
}

type BlockedPayment struct {
	ID                 pgtype.UUID        `json:"id"`
	WebhookID          string             `json:"webhook_id"`
	AccountID          pgtype.UUID        `json:"account_id"`
	MatchedBlockListID pgtype.UUID        `json:"matched_block_list_id"`
	Amount             int64              `json:"amount"`
	Currency           string             `json:"currency"`
	BlockedReason      string             `json:"blocked_reason"`
	BlockedAt          pgtype.Timestamptz `json:"blocked_at"`
}

type Transaction struct {
	ID               pgtype.UUID        `json:"id"`
	AccountID        pgtype.UUID        `json:"account_id"`
	PendingPaymentID pgtype.UUID        `json:"pending_payment_id"`
	Type             string             `json:"type"`
	Amount           int64              `json:"amount"`
	Currency         string             `json:"currency"`
	BalanceAfter     int64              `json:"balance_after"`
	ReferenceNumber  string             `json:"reference_number"`
	Status           string             `json:"status"`
	Metadata         []byte             `json:"metadata"`
	CreatedAt        pgtype.Timestamptz `json:"created_at"`
	UpdatedAt        pgtype.Timestamptz `json:"updated_at"`
}

type Reversal struct {
	ID               pgtype.UUID        `json:"id"`
	PendingPaymentID pgtype.UUID        `json:"pending_payment_id"`
	Recipient        *string            `json:"recipient"`
	Amount           int64              `json:"amount"`
	Currency         string             `json:"currency"`
	Status           string             `json:"status"`
	RailPaymentID    *string            `json:"rail_payment_id"`
	ErrorMessage     *string            `json:"error_message"`
	CreatedAt        pgtype.Timestamptz `json:"created_at"`
}

type AuditLog struct {
	ID         int64              `json:"id"`
	EntityType string             `json:"entity_type"`
	EntityID   pgtype.UUID        `json:"entity_id"`
	Actor      *string            `json:"actor"`
	Action     string             `json:"action"`
	PrevState  *string            `json:"prev_state"`
	NextState  *string            `json:"next_state"`
	Metadata   []byte             `json:"metadata"`
	CreatedAt  pgtype.Timestamptz `json:"created_at"`
}

type IdempotencyKey struct {
	IdempotencyKey string             `json:"idempotency_key"`
	RequestHash    string             `json:"request_hash"`
	Method         string             `json:"method"`
	Path           string             `json:"path"`
	ResponseStatus int32              `json:"response_status"`
	ResponseBody   []byte             `json:"response_body"`
	ContentType    string             `json:"content_type"`
	InProgress     bool               `json:"in_progress"`
	CreatedAt      pgtype.Timestamptz `json:"created_at"`
	UpdatedAt      pgtype.Timestamptz `json:"updated_at"`
}
