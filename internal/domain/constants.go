package domain

const (
	CurrencyUSD = "USD"
	CurrencyPKR = "PKR"

	// Ledger transaction types
	TxTypeCreditPending = "CREDIT_PENDING"
	TxTypeCredit        = "CREDIT"
	TxTypeDebit         = "DEBIT"

	TxStatusPending   = "PENDING"
	TxStatusCompleted = "COMPLETED"
	TxStatusRejected  = "REJECTED"

	// Pending payment statuses
	PaymentStatusPending  = "PENDING"
	PaymentStatusApproved = "APPROVED"
	PaymentStatusRejected = "REJECTED"

	// Webhook record statuses. Transitions are monotonic.
	WebhookStatusReceived   = "received"
	WebhookStatusProcessing = "processing"
	WebhookStatusProcessed  = "processed"
	WebhookStatusError      = "error"

	ActionApprove = "APPROVE"
	ActionReject  = "REJECT"

	ReversalStatusCompleted = "COMPLETED"
	ReversalStatusFailed    = "FAILED"

	EntryTypePerson       = "person"
	EntryTypeOrganization = "organization"
	EntryTypeEntity       = "entity"

	// Reference prefixes written on ledger rows.
	RefPrefixPending        = "PND-"
	RefPrefixReversalCredit = "REV-CR-"
	RefPrefixReversalDebit  = "REV-DR-"
)

// SettleableWebhookTypes are the rail events that carry an incoming payment.
var SettleableWebhookTypes = map[string]struct{}{
	"incoming_payment.completed": {},
	"incoming_payment.received":  {},
}

// IsSettleable reports whether a webhook of the given type should be settled.
func IsSettleable(eventType string) bool {
	_, ok := SettleableWebhookTypes[eventType]
	return ok
}
