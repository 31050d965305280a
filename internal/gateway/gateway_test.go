package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reversal() ReversalRequest {
	return ReversalRequest{
		SenderAddress: "https://rail.example/alice",
		Amount:        decimal.RequireFromString("1392.50"),
		Currency:      "PKR",
		CorrelationID: "pp-123",
		Note:          "rejected: sanctions hit",
	}
}

func TestRailClientReverseSuccess(t *testing.T) {
	var got outgoingPaymentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/outgoing-payments", r.URL.Path)
		assert.Equal(t, "pp-123", r.Header.Get("Idempotency-Key"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"op-1"}`))
	}))
	defer srv.Close()

	res := NewRailClient(srv.URL+"/", "secret", time.Second).Reverse(context.Background(), reversal())
	assert.True(t, res.Success)
	assert.Equal(t, "op-1", res.PaymentID)
	assert.Empty(t, res.Error)
	assert.Equal(t, "139250", got.DebitAmount.Value)
	assert.Equal(t, 2, got.DebitAmount.AssetScale)
	assert.Equal(t, "PKR", got.DebitAmount.AssetCode)
	assert.Equal(t, "https://rail.example/alice", got.WalletAddress)
	assert.Equal(t, "pp-123", got.Metadata["correlationId"])
}

func TestRailClientSendsLedgerPrecision(t *testing.T) {
	cases := []struct {
		name      string
		amount    string
		wantValue string
		wantScale int
	}{
		{name: "whole units", amount: "25", wantValue: "2500", wantScale: 2},
		{name: "cents", amount: "12.34", wantValue: "1234", wantScale: 2},
		{name: "sub cent", amount: "12.345", wantValue: "12345", wantScale: 3},
		{name: "micros", amount: "0.000001", wantValue: "1", wantScale: 6},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got outgoingPaymentRequest
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				_, _ = w.Write([]byte(`{"id":"op-1"}`))
			}))
			defer srv.Close()

			req := reversal()
			req.Amount = decimal.RequireFromString(tc.amount)
			res := NewRailClient(srv.URL, "", time.Second).Reverse(context.Background(), req)
			require.True(t, res.Success, res.Error)
			assert.Equal(t, tc.wantValue, got.DebitAmount.Value)
			assert.Equal(t, tc.wantScale, got.DebitAmount.AssetScale)

			sent, err := decimal.NewFromString(got.DebitAmount.Value)
			require.NoError(t, err)
			assert.True(t, sent.Shift(int32(-got.DebitAmount.AssetScale)).Equal(req.Amount))
		})
	}
}

func TestRailClientReportsFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"server error", http.StatusBadGateway, `{"message":"upstream down"}`, "rail returned 502: upstream down"},
		{"rail failed flag", http.StatusOK, `{"id":"op-2","failed":true,"error":"insufficient liquidity"}`, "insufficient liquidity"},
		{"missing id", http.StatusOK, `{}`, "rail response missing payment id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			res := NewRailClient(srv.URL, "", time.Second).Reverse(context.Background(), reversal())
			assert.False(t, res.Success)
			assert.Equal(t, tc.want, res.Error)
		})
	}
}

func TestRailClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	res := NewRailClient(url, "", 200*time.Millisecond).Reverse(context.Background(), reversal())
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "rail request failed")
}

func TestRailClientRequiresAddress(t *testing.T) {
	req := reversal()
	req.SenderAddress = ""
	res := NewRailClient("http://127.0.0.1:1", "", time.Second).Reverse(context.Background(), req)
	assert.False(t, res.Success)
	assert.Equal(t, "sender address is required", res.Error)
}

func TestMockGatewayIsIdempotentPerCorrelationID(t *testing.T) {
	g := NewMockGateway()
	g.MaxDelay = 0
	g.FailureRate = 0

	first := g.Reverse(context.Background(), reversal())
	require.True(t, first.Success)

	g.FailureRate = 1
	second := g.Reverse(context.Background(), reversal())
	assert.Equal(t, first, second)

	other := reversal()
	other.CorrelationID = "pp-456"
	assert.False(t, g.Reverse(context.Background(), other).Success)
}
