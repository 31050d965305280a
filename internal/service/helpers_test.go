package service

import (
	"context"
	"sync"
	"testing"

	"github.com/ayo6706/payment-screening/internal/gateway"
	"github.com/ayo6706/payment-screening/internal/repository"
	"github.com/ayo6706/payment-screening/internal/testutil/testdb"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu       sync.Mutex
	result   gateway.ReversalResult
	requests []gateway.ReversalRequest
}

func (g *fakeGateway) Reverse(_ context.Context, req gateway.ReversalRequest) gateway.ReversalResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	return g.result
}

func (g *fakeGateway) calls() []gateway.ReversalRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]gateway.ReversalRequest(nil), g.requests...)
}

type harness struct {
	pool      *pgxpool.Pool
	store     *repository.Store
	webhooks  *WebhookService
	blockList *BlockListService
	screening *ScreeningService
	gateway   *fakeGateway
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	pool := testdb.Open(t)
	store := repository.NewStore(pool)
	gw := &fakeGateway{result: gateway.ReversalResult{Success: true, PaymentID: "rail-out-1"}}
	blockList := NewBlockListService(store, nil, 0, false)
	currency := NewCurrencyServiceWithSource(staticRate{rate: decimal.RequireFromString("278.50")}, decimal.Zero, false)
	return &harness{
		pool:      pool,
		store:     store,
		webhooks:  NewWebhookService(store, "", true),
		blockList: blockList,
		screening: NewScreeningService(store, blockList, currency, gw),
		gateway:   gw,
	}
}

func (h *harness) seedAccount(t *testing.T, walletID, currency string, opening int64) repository.Account {
	t.Helper()
	url := "https://rail.example/" + walletID
	acc, err := h.store.Queries().CreateAccount(context.Background(), repository.CreateAccountParams{
		ID:               repository.ToPgUUID(uuid.New()),
		HolderName:       "Holder " + walletID,
		WalletAddressID:  &walletID,
		WalletAddressUrl: &url,
		Currency:         currency,
		OpeningBalance:   opening,
	})
	require.NoError(t, err)
	return acc
}

// deliver records and settles a webhook and returns its id.
func (h *harness) deliver(t *testing.T, body string) string {
	t.Helper()
	ctx := context.Background()
	ack, err := h.webhooks.Receive(ctx, []byte(body), "")
	require.NoError(t, err)
	require.NoError(t, h.screening.SettleWebhook(ctx, ack.ID))
	return ack.ID
}

func (h *harness) account(t *testing.T, id pgtype.UUID) repository.Account {
	t.Helper()
	acc, err := h.store.Queries().GetAccount(context.Background(), id)
	require.NoError(t, err)
	return acc
}
