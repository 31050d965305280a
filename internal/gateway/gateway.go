package gateway

import (
	"context"

	"github.com/shopspring/decimal"
)

// ReversalRequest asks the rail to send funds back to the original sender.
type ReversalRequest struct {
	SenderAddress string
	Amount        decimal.Decimal
	Currency      string
	CorrelationID string // idempotency key at the rail
	Note          string
}

// ReversalResult reports the rail's answer. Failures are carried in Error,
// never returned or panicked.
type ReversalResult struct {
	Success   bool
	PaymentID string
	Error     string
}

// Gateway is the outbound side of the payment rail.
type Gateway interface {
	Reverse(ctx context.Context, req ReversalRequest) ReversalResult
}
