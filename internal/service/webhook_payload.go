package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ayo6706/payment-screening/internal/domain"
	"github.com/ayo6706/payment-screening/internal/models"
	"github.com/shopspring/decimal"
)

const maxAssetScale = 18

// NormalizedWebhook is the canonical view of a rail notification.
type NormalizedWebhook struct {
	ID              string
	Type            string
	WalletAddressID string
	Amount          *models.PaymentAmount
	AmountShape     string

	SenderName            string
	SenderWalletAddress   string
	SenderWalletAddressID string
	SenderVerified        *bool

	Client   string
	Metadata map[string]any
	Data     map[string]any
}

type railAmount struct {
	Value      decimal.NullDecimal `json:"value"`
	AssetCode  string              `json:"assetCode"`
	AssetScale *int                `json:"assetScale"`
}

type railPayment struct {
	WalletAddressID string         `json:"walletAddressId"`
	ReceivedAmount  *railAmount    `json:"receivedAmount"`
	IncomingAmount  *railAmount    `json:"incomingAmount"`
	Metadata        map[string]any `json:"metadata"`
}

type railData struct {
	WalletAddressID       string         `json:"walletAddressId"`
	SenderWalletAddressID string         `json:"senderWalletAddressId"`
	ReceivedAmount        *railAmount    `json:"receivedAmount"`
	IncomingAmount        *railAmount    `json:"incomingAmount"`
	Payment               *railPayment   `json:"payment"`
	Metadata              map[string]any `json:"metadata"`
	Client                string         `json:"client"`
}

type webhookEnvelope struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// amountShape is one of the places a rail may carry the payment amount.
type amountShape struct {
	name   string
	amount func(d railData) *railAmount
}

// amountShapes are tried in order; the first present shape wins.
var amountShapes = []amountShape{
	{"data.receivedAmount", func(d railData) *railAmount { return d.ReceivedAmount }},
	{"data.incomingAmount", func(d railData) *railAmount { return d.IncomingAmount }},
	{"data.payment.receivedAmount", func(d railData) *railAmount {
		if d.Payment == nil {
			return nil
		}
		return d.Payment.ReceivedAmount
	}},
	{"data.payment.incomingAmount", func(d railData) *railAmount {
		if d.Payment == nil {
			return nil
		}
		return d.Payment.IncomingAmount
	}},
}

// NormalizeWebhook decodes a raw rail notification. It fails only on
// malformed JSON or a missing id/type; a missing amount is reported as a nil
// Amount.
func NormalizeWebhook(body []byte) (NormalizedWebhook, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return NormalizedWebhook{}, fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}
	env.ID = strings.TrimSpace(env.ID)
	env.Type = strings.TrimSpace(env.Type)
	if env.ID == "" {
		return NormalizedWebhook{}, fmt.Errorf("%w: id is required", ErrInvalidWebhook)
	}
	if env.Type == "" {
		return NormalizedWebhook{}, fmt.Errorf("%w: type is required", ErrInvalidWebhook)
	}

	out := NormalizedWebhook{ID: env.ID, Type: env.Type}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return out, nil
	}

	var data railData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return NormalizedWebhook{}, fmt.Errorf("%w: data: %v", ErrInvalidWebhook, err)
	}
	if err := json.Unmarshal(env.Data, &out.Data); err != nil {
		return NormalizedWebhook{}, fmt.Errorf("%w: data: %v", ErrInvalidWebhook, err)
	}

	out.WalletAddressID = strings.TrimSpace(data.WalletAddressID)
	if out.WalletAddressID == "" && data.Payment != nil {
		out.WalletAddressID = strings.TrimSpace(data.Payment.WalletAddressID)
	}
	out.Amount, out.AmountShape = extractAmount(data)

	out.Metadata = mergeMetadata(data)
	out.Client = strings.TrimSpace(data.Client)
	out.SenderName = firstString(out.Metadata, senderNameKeys...)
	if out.SenderName == "" {
		out.SenderName = firstString(out.Data, senderNameKeys...)
	}
	out.SenderWalletAddress = firstString(out.Metadata, "senderWalletAddress", "sender_wallet_address")
	out.SenderWalletAddressID = firstString(out.Metadata, "senderWalletAddressId", "sender_wallet_address_id")
	if out.SenderWalletAddressID == "" {
		out.SenderWalletAddressID = strings.TrimSpace(data.SenderWalletAddressID)
	}
	out.SenderVerified = boolField(out.Metadata, "senderVerified")
	return out, nil
}

func extractAmount(data railData) (*models.PaymentAmount, string) {
	for _, shape := range amountShapes {
		raw := shape.amount(data)
		if raw == nil {
			continue
		}
		amt, ok := raw.toPaymentAmount()
		if !ok {
			continue
		}
		return amt, shape.name
	}
	return nil, ""
}

func (a *railAmount) toPaymentAmount() (*models.PaymentAmount, bool) {
	if !a.Value.Valid || a.Value.Decimal.IsNegative() {
		return nil, false
	}
	scale := 0
	if a.AssetScale != nil {
		scale = *a.AssetScale
	}
	if scale < 0 || scale > maxAssetScale {
		return nil, false
	}
	code := strings.ToUpper(strings.TrimSpace(a.AssetCode))
	if code == "" {
		return nil, false
	}
	value := a.Value.Decimal.Shift(int32(-scale))
	if _, err := domain.CheckedFromDecimal(value); err != nil {
		return nil, false
	}
	return &models.PaymentAmount{
		Value:    value,
		Currency: code,
	}, true
}

// mergeMetadata overlays payment-level metadata onto data-level metadata.
func mergeMetadata(data railData) map[string]any {
	out := make(map[string]any, len(data.Metadata))
	for k, v := range data.Metadata {
		out[k] = v
	}
	if data.Payment != nil {
		for k, v := range data.Payment.Metadata {
			if _, exists := out[k]; !exists {
				out[k] = v
			}
		}
	}
	return out
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

func boolField(m map[string]any, key string) *bool {
	switch v := m[key].(type) {
	case bool:
		return &v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			b := true
			return &b
		case "false":
			b := false
			return &b
		}
	}
	return nil
}
