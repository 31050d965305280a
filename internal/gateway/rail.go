package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	railAssetScale    = 2
	maxRailAssetScale = 6
	maxRailBodyBytes  = 64 << 10
)

// RailClient originates reversals through the rail's outgoing-payments API.
type RailClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewRailClient(baseURL, apiKey string, timeout time.Duration) *RailClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RailClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type railAmount struct {
	Value      string `json:"value"`
	AssetCode  string `json:"assetCode"`
	AssetScale int    `json:"assetScale"`
}

type outgoingPaymentRequest struct {
	WalletAddress string            `json:"walletAddress"`
	DebitAmount   railAmount        `json:"debitAmount"`
	Metadata      map[string]string `json:"metadata"`
}

type outgoingPaymentResponse struct {
	ID      string `json:"id"`
	Failed  bool   `json:"failed"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *RailClient) Reverse(ctx context.Context, req ReversalRequest) ReversalResult {
	if c.baseURL == "" {
		return ReversalResult{Error: "rail base url not configured"}
	}
	if req.SenderAddress == "" {
		return ReversalResult{Error: "sender address is required"}
	}

	scale := assetScaleFor(req.Amount)
	body, err := json.Marshal(outgoingPaymentRequest{
		WalletAddress: req.SenderAddress,
		DebitAmount: railAmount{
			Value:      req.Amount.Shift(scale).StringFixed(0),
			AssetCode:  req.Currency,
			AssetScale: int(scale),
		},
		Metadata: map[string]string{
			"correlationId": req.CorrelationID,
			"description":   req.Note,
			"kind":          "reversal",
		},
	})
	if err != nil {
		return ReversalResult{Error: fmt.Sprintf("encode reversal: %v", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/outgoing-payments", bytes.NewReader(body))
	if err != nil {
		return ReversalResult{Error: fmt.Sprintf("build reversal request: %v", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if req.CorrelationID != "" {
		httpReq.Header.Set("Idempotency-Key", req.CorrelationID)
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		zap.L().Warn("rail reversal call failed", zap.Error(err), zap.String("correlation_id", req.CorrelationID))
		return ReversalResult{Error: fmt.Sprintf("rail request failed: %v", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxRailBodyBytes))
	if err != nil {
		return ReversalResult{Error: fmt.Sprintf("read rail response: %v", err)}
	}

	var parsed outgoingPaymentResponse
	_ = json.Unmarshal(raw, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := firstNonEmpty(parsed.Error, parsed.Message, http.StatusText(resp.StatusCode))
		return ReversalResult{Error: fmt.Sprintf("rail returned %d: %s", resp.StatusCode, msg)}
	}
	if parsed.Failed {
		return ReversalResult{PaymentID: parsed.ID, Error: firstNonEmpty(parsed.Error, parsed.Message, "rail reported failure")}
	}
	if parsed.ID == "" {
		return ReversalResult{Error: "rail response missing payment id"}
	}
	return ReversalResult{Success: true, PaymentID: parsed.ID}
}

// assetScaleFor is the smallest scale, from cents up to micros, that carries
// amount without rounding.
func assetScaleFor(amount decimal.Decimal) int32 {
	scale := int32(railAssetScale)
	for scale < maxRailAssetScale && !amount.Shift(scale).IsInteger() {
		scale++
	}
	return scale
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
