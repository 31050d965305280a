package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/ayo6706/payment-screening/internal/api"
	"github.com/ayo6706/payment-screening/internal/api/middleware"
	"github.com/ayo6706/payment-screening/internal/config"
	"github.com/ayo6706/payment-screening/internal/domain"
	"github.com/ayo6706/payment-screening/internal/gateway"
	"github.com/ayo6706/payment-screening/internal/idempotency"
	"github.com/ayo6706/payment-screening/internal/repository"
	"github.com/ayo6706/payment-screening/internal/service"
	"github.com/ayo6706/payment-screening/internal/testutil/dblock"
	"github.com/ayo6706/payment-screening/internal/testutil/testdb"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testJWTSecret   = "test-secret-0123456789-test-secret"
	testJWTIssuer   = "payment-screening-test"
	testJWTAudience = "payment-screening-api-test"
	testHMACKey     = "webhook-test-key"
)

func TestMain(m *testing.M) {
	release := dblock.Acquire()
	middleware.SetJWTSecret(testJWTSecret)
	middleware.SetJWTValidation(testJWTIssuer, testJWTAudience)
	code := m.Run()
	release()
	os.Exit(code)
}

// syncDispatcher settles inline so tests can assert on the outcome right
// after the webhook response.
type syncDispatcher struct {
	screening *service.ScreeningService
}

func (d syncDispatcher) Dispatch(id string) bool {
	return d.screening.SettleWebhook(context.Background(), id) == nil
}

type fixedRate struct{}

func (fixedRate) Rate(context.Context) (decimal.Decimal, error) {
	return decimal.RequireFromString("278.50"), nil
}

type testAPI struct {
	pool    *pgxpool.Pool
	store   *repository.Store
	handler http.Handler
}

func setupAPI(t *testing.T) *testAPI {
	t.Helper()
	pool := testdb.Open(t)
	store := repository.NewStore(pool)

	cfg := &config.Config{
		HTTPPort:           "0",
		JWTSecret:          testJWTSecret,
		JWTIssuer:          testJWTIssuer,
		JWTAudience:        testJWTAudience,
		WebhookHMACKey:     testHMACKey,
		PublicRateLimitRPS: 1000,
		AuthRateLimitRPS:   1000,
		IdempotencyTTL:     time.Hour,
	}
	blockList := service.NewBlockListService(store, nil, 0, false)
	currency := service.NewCurrencyServiceWithSource(fixedRate{}, decimal.Zero, false)
	rail := gateway.NewMockGateway()
	rail.FailureRate = 0
	rail.MaxDelay = 0
	screening := service.NewScreeningService(store, blockList, currency, rail)
	router := api.NewRouter(cfg, zap.NewNop(), pool, idempotency.NewStore(nil, pool, cfg.IdempotencyTTL), nil, api.Services{
		Webhooks:   service.NewWebhookService(store, testHMACKey, false),
		Screening:  screening,
		BlockList:  blockList,
		Reversals:  service.NewReversalService(store),
		Accounts:   service.NewAccountService(store),
		Dispatcher: syncDispatcher{screening: screening},
	})
	return &testAPI{pool: pool, store: store, handler: router.Routes()}
}

func (a *testAPI) seedAccount(t *testing.T, walletID, currency string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	url := "https://rail.example/" + walletID
	_, err := a.store.Queries().CreateAccount(context.Background(), repository.CreateAccountParams{
		ID:               repository.ToPgUUID(id),
		HolderName:       "Holder " + walletID,
		WalletAddressID:  &walletID,
		WalletAddressUrl: &url,
		Currency:         currency,
	})
	require.NoError(t, err)
	return id
}

func (a *testAPI) do(t *testing.T, method, path, token string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

func (a *testAPI) postWebhook(t *testing.T, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	sig := service.SignPayload([]byte(testHMACKey), body)
	return a.do(t, http.MethodPost, "/v1/webhooks/payments", "", body, map[string]string{"X-Webhook-Signature": sig})
}

func token(t *testing.T, role string) string {
	t.Helper()
	tok, err := middleware.SignToken("reviewer-"+role, role, time.Hour)
	require.NoError(t, err)
	return tok
}

func webhookBody(id, wallet, amountCents, sender string) []byte {
	return []byte(fmt.Sprintf(`{"id":%q,"type":"incoming_payment.completed","data":{
		"walletAddressId":%q,
		"receivedAmount":{"value":%q,"assetCode":"USD","assetScale":2},
		"metadata":{"senderName":%q,"senderWalletAddress":"https://rail.example/sender"}}}`,
		id, wallet, amountCents, sender))
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.True(t, env.Success)
	require.NoError(t, json.Unmarshal(env.Data, dest))
}

func (a *testAPI) onlyPendingID(t *testing.T) string {
	t.Helper()
	w := a.do(t, http.MethodGet, "/v1/pending-payments", token(t, middleware.RoleReviewer), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	decodeData(t, w, &list)
	require.Len(t, list.Items, 1)
	return list.Items[0].ID
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	a := setupAPI(t)

	cases := []struct {
		name string
		sig  string
	}{
		{name: "missing", sig: ""},
		{name: "wrong_key", sig: service.SignPayload([]byte("other"), webhookBody("wh-1", "w", "100", "A"))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := a.do(t, http.MethodPost, "/v1/webhooks/payments", "", webhookBody("wh-1", "w", "100", "A"),
				map[string]string{"X-Webhook-Signature": tc.sig})
			require.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Header().Get("Content-Type"), "application/problem+json")

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, false, body["success"])
			assert.Equal(t, float64(http.StatusUnauthorized), body["status"])
			assert.NotEmpty(t, body["request_id"])
		})
	}
}

func TestWebhookQuarantinesAndDeduplicates(t *testing.T) {
	a := setupAPI(t)
	accountID := a.seedAccount(t, "wallet-usd", domain.CurrencyUSD)
	body := webhookBody("wh-api-1", "wallet-usd", "1250", "Maria Garcia")

	w := a.postWebhook(t, body)
	require.Equal(t, http.StatusOK, w.Code)
	var ack struct {
		ID        string `json:"id"`
		Duplicate bool   `json:"duplicate"`
	}
	decodeData(t, w, &ack)
	assert.Equal(t, "wh-api-1", ack.ID)
	assert.False(t, ack.Duplicate)

	w = a.postWebhook(t, body)
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, w, &ack)
	assert.True(t, ack.Duplicate)

	w = a.do(t, http.MethodGet, "/v1/accounts/"+accountID.String(), token(t, middleware.RoleReviewer), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var acc struct {
		BookBalance      decimal.Decimal `json:"bookBalance"`
		AvailableBalance decimal.Decimal `json:"availableBalance"`
	}
	decodeData(t, w, &acc)
	assert.True(t, acc.BookBalance.Equal(decimal.RequireFromString("12.5")), acc.BookBalance.String())
	assert.True(t, acc.AvailableBalance.IsZero())

	w = a.do(t, http.MethodGet, "/v1/webhooks/wh-api-1", token(t, middleware.RoleReviewer), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var wh struct {
		Status string `json:"status"`
	}
	decodeData(t, w, &wh)
	assert.Equal(t, domain.WebhookStatusProcessed, wh.Status)
}

func TestWebhookMalformedPayload(t *testing.T) {
	a := setupAPI(t)
	w := a.postWebhook(t, []byte(`{"type":"incoming_payment.completed"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReviewEndpointsRequireAuth(t *testing.T) {
	a := setupAPI(t)

	w := a.do(t, http.MethodGet, "/v1/pending-payments", "", nil, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(t, http.MethodGet, "/v1/pending-payments", token(t, "user"), nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestReviewValidation(t *testing.T) {
	a := setupAPI(t)
	tok := token(t, middleware.RoleReviewer)

	cases := []struct {
		name string
		body string
		want int
	}{
		{name: "missing_payment_id", body: `{"action":"APPROVE"}`, want: http.StatusBadRequest},
		{name: "bad_action", body: fmt.Sprintf(`{"paymentId":%q,"action":"HOLD"}`, uuid.NewString()), want: http.StatusBadRequest},
		{name: "unknown_field", body: fmt.Sprintf(`{"paymentId":%q,"action":"APPROVE","extra":1}`, uuid.NewString()), want: http.StatusBadRequest},
		{name: "not_found", body: fmt.Sprintf(`{"paymentId":%q,"action":"APPROVE"}`, uuid.NewString()), want: http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := a.do(t, http.MethodPost, "/v1/pending-payments/review", tok, []byte(tc.body), nil)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}
}

func TestReviewApproveThenConflict(t *testing.T) {
	a := setupAPI(t)
	accountID := a.seedAccount(t, "wallet-usd", domain.CurrencyUSD)
	require.Equal(t, http.StatusOK, a.postWebhook(t, webhookBody("wh-api-2", "wallet-usd", "5000", "John Smith")).Code)
	pendingID := a.onlyPendingID(t)
	tok := token(t, middleware.RoleReviewer)
	body := []byte(fmt.Sprintf(`{"paymentId":%q,"action":"APPROVE","screeningNotes":"ok"}`, pendingID))

	w := a.do(t, http.MethodPost, "/v1/pending-payments/review", tok, body, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var decision struct {
		Status     string `json:"status"`
		ScreenedBy string `json:"screenedBy"`
	}
	decodeData(t, w, &decision)
	assert.Equal(t, domain.PaymentStatusApproved, decision.Status)
	assert.Equal(t, "reviewer-reviewer", decision.ScreenedBy)

	w = a.do(t, http.MethodPost, "/v1/pending-payments/review", tok, body, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = a.do(t, http.MethodGet, "/v1/accounts/"+accountID.String(), tok, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var acc struct {
		AvailableBalance decimal.Decimal `json:"availableBalance"`
	}
	decodeData(t, w, &acc)
	assert.True(t, acc.AvailableBalance.Equal(decimal.NewFromInt(50)))
}

func TestReviewIdempotentReplay(t *testing.T) {
	a := setupAPI(t)
	a.seedAccount(t, "wallet-usd", domain.CurrencyUSD)
	require.Equal(t, http.StatusOK, a.postWebhook(t, webhookBody("wh-api-3", "wallet-usd", "700", "Ana Lopez")).Code)
	pendingID := a.onlyPendingID(t)
	tok := token(t, middleware.RoleReviewer)
	body := []byte(fmt.Sprintf(`{"paymentId":%q,"action":"REJECT"}`, pendingID))
	headers := map[string]string{"Idempotency-Key": "review-" + pendingID}

	first := a.do(t, http.MethodPost, "/v1/pending-payments/review", tok, body, headers)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())

	second := a.do(t, http.MethodPost, "/v1/pending-payments/review", tok, body, headers)
	require.Equal(t, http.StatusOK, second.Code)
	assert.NotEmpty(t, second.Header().Get("X-Idempotent-Replay"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	w := a.do(t, http.MethodGet, "/v1/reversals?status=COMPLETED", tok, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var reversals []map[string]any
	decodeData(t, w, &reversals)
	assert.Len(t, reversals, 1)
}

func TestBlockListMutationRequiresAdmin(t *testing.T) {
	a := setupAPI(t)
	body := []byte(`{"name":"Bad Actor","type":"person","reason":"sanctions","severity":9}`)

	w := a.do(t, http.MethodPost, "/v1/blocklist", token(t, middleware.RoleReviewer), body, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(t, http.MethodPost, "/v1/blocklist", token(t, middleware.RoleAdmin), body, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		ID string `json:"id"`
	}
	decodeData(t, w, &created)

	w = a.do(t, http.MethodPost, "/v1/blocklist/check", token(t, middleware.RoleReviewer), []byte(`{"name":"bad actor"}`), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var check struct {
		IsBlocked bool   `json:"isBlocked"`
		MatchType string `json:"matchType"`
	}
	decodeData(t, w, &check)
	assert.True(t, check.IsBlocked)
	assert.Equal(t, "exact", check.MatchType)

	w = a.do(t, http.MethodDelete, "/v1/blocklist/"+created.ID, token(t, middleware.RoleAdmin), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res map[string]bool
	decodeData(t, w, &res)
	assert.True(t, res["deactivated"])
}

func TestBlockedSenderIsNotCredited(t *testing.T) {
	a := setupAPI(t)
	accountID := a.seedAccount(t, "wallet-usd", domain.CurrencyUSD)
	admin := token(t, middleware.RoleAdmin)
	w := a.do(t, http.MethodPost, "/v1/blocklist", admin, []byte(`{"name":"Evil Corp","type":"organization","reason":"fraud","severity":10}`), nil)
	require.Equal(t, http.StatusCreated, w.Code)

	require.Equal(t, http.StatusOK, a.postWebhook(t, webhookBody("wh-api-4", "wallet-usd", "9900", "Evil Corp Ltd")).Code)

	w = a.do(t, http.MethodGet, "/v1/pending-payments", admin, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Items []map[string]any `json:"items"`
	}
	decodeData(t, w, &list)
	assert.Empty(t, list.Items)

	w = a.do(t, http.MethodGet, "/v1/accounts/"+accountID.String(), admin, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var acc struct {
		BookBalance decimal.Decimal `json:"bookBalance"`
	}
	decodeData(t, w, &acc)
	assert.True(t, acc.BookBalance.IsZero())

	w = a.do(t, http.MethodGet, "/v1/webhooks/wh-api-4", admin, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var wh struct {
		Status  string `json:"status"`
		Blocked *struct {
			BlockedReason string `json:"blockedReason"`
		} `json:"blocked"`
	}
	decodeData(t, w, &wh)
	assert.Equal(t, domain.WebhookStatusProcessed, wh.Status)
	require.NotNil(t, wh.Blocked)
	assert.Contains(t, wh.Blocked.BlockedReason, "Evil Corp")
}

func TestOperationalEndpoints(t *testing.T) {
	a := setupAPI(t)
	for _, path := range []string{"/health/live", "/health/ready", "/metrics", "/openapi.yaml"} {
		t.Run(path, func(t *testing.T) {
			w := a.do(t, http.MethodGet, path, "", nil, nil)
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}
