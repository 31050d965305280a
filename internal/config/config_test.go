package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("WEBHOOK_HMAC_KEY", "hmac")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 4, cfg.SettlementWorkers)
	assert.Equal(t, 30*time.Second, cfg.SettlementSweepInterval)
	assert.Equal(t, time.Hour, cfg.ReconciliationInterval)
	assert.True(t, cfg.ScreeningFailOpen)
	assert.True(t, cfg.RailMock)
	assert.Equal(t, "278.5", cfg.FXFallbackRate.String())
}

func TestLoadPrefixedAlias(t *testing.T) {
	t.Setenv("SCREENING_JWT_SECRET", testSecret)
	t.Setenv("SCREENING_WEBHOOK_SKIP_SIG", "true")
	t.Setenv("SCREENING_SETTLEMENT_WORKERS", "9")
	t.Setenv("SCREENING_FX_FALLBACK_RATE", "280.25")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.WebhookSkipSignature)
	assert.Equal(t, 9, cfg.SettlementWorkers)
	assert.Equal(t, "280.25", cfg.FXFallbackRate.String())
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": "", "WEBHOOK_SKIP_SIG": "true"}, "JWT_SECRET is required"},
		{"short secret", map[string]string{"JWT_SECRET": "short", "WEBHOOK_SKIP_SIG": "true"}, "at least 32"},
		{"missing hmac", map[string]string{"JWT_SECRET": testSecret, "WEBHOOK_SKIP_SIG": "false", "WEBHOOK_HMAC_KEY": ""}, "WEBHOOK_HMAC_KEY"},
		{"bad duration", map[string]string{"JWT_SECRET": testSecret, "WEBHOOK_SKIP_SIG": "true", "FX_TIMEOUT": "soon"}, "FX_TIMEOUT"},
		{"bad rate", map[string]string{"JWT_SECRET": testSecret, "WEBHOOK_SKIP_SIG": "true", "FX_FALLBACK_RATE": "abc"}, "FX_FALLBACK_RATE"},
		{"non-positive rate", map[string]string{"JWT_SECRET": testSecret, "WEBHOOK_SKIP_SIG": "true", "FX_FALLBACK_RATE": "0"}, "must be positive"},
		{"real rail without url", map[string]string{"JWT_SECRET": testSecret, "WEBHOOK_SKIP_SIG": "true", "RAIL_MOCK": "false"}, "RAIL_BASE_URL"},
		{"workers fill the pool", map[string]string{"JWT_SECRET": testSecret, "WEBHOOK_SKIP_SIG": "true", "SETTLEMENT_WORKERS": "10", "DB_MAX_CONNS": "10"}, "SETTLEMENT_WORKERS (10) must be less than DB_MAX_CONNS (10)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
