package service

import (
	"context"
	"testing"

	"github.com/ayo6706/payment-screening/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceiveRejectsBadSignature(t *testing.T) {
	svc := NewWebhookService(downStore{}, "secret", false)
	body := []byte(`{"id":"x","type":"incoming_payment.completed"}`)

	_, err := svc.Receive(context.Background(), body, "sha256=deadbeef")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = svc.Receive(context.Background(), body, "")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestReceiveWithoutKeyRejectsEverything(t *testing.T) {
	svc := NewWebhookService(downStore{}, "", false)
	body := []byte(`{"id":"x"}`)
	_, err := svc.Receive(context.Background(), body, SignPayload(nil, body))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestReceiveValidSignatureReachesStore(t *testing.T) {
	svc := NewWebhookService(downStore{}, "secret", false)
	body := []byte(`{"id":"x","type":"incoming_payment.completed"}`)

	_, err := svc.Receive(context.Background(), body, SignPayload([]byte("secret"), body))
	assert.ErrorIs(t, err, errDatabaseDown)
}

func TestReceiveRecordsAndResolvesAccount(t *testing.T) {
	h := newHarness(t)
	acc := h.seedAccount(t, "wallet-usd", domain.CurrencyUSD, 0)

	ack, err := h.webhooks.Receive(context.Background(), []byte(paymentBody("wh-rec", "wallet-usd", "1234", "USD", "", "")), "")
	require.NoError(t, err)
	assert.False(t, ack.Duplicate)
	require.NotNil(t, ack.AccountID)
	assert.Equal(t, acc.ID.Bytes, [16]byte(*ack.AccountID))
	require.NotNil(t, ack.PaymentAmount)
	assert.Equal(t, "12.34", ack.PaymentAmount.Value.String())

	wh, err := h.webhooks.Get(context.Background(), "wh-rec")
	require.NoError(t, err)
	assert.Equal(t, domain.WebhookStatusReceived, wh.Status)

	_, err = h.webhooks.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrWebhookNotFound)
}
