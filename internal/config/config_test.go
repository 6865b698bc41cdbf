package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "greengrid.energy", cfg.AccountDomain)
	assert.Equal(t, 3*time.Second, cfg.MeterInterval)
	assert.Equal(t, 3*time.Second, cfg.SettlementDelay)
	assert.Equal(t, 0.01, cfg.MarketFeeRate)
	assert.Equal(t, "memory", cfg.AuditDriver)
	assert.True(t, cfg.SeedOrders)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SETTLEMENT_DELAY", "5s")
	t.Setenv("ACCOUNT_DOMAIN", "example.org")
	t.Setenv("AUDIT_DRIVER", "sqlite")
	t.Setenv("AUDIT_DSN", ":memory:")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.SettlementDelay)
	assert.Equal(t, "example.org", cfg.AccountDomain)
	assert.Equal(t, "sqlite", cfg.AuditDriver)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name, key, value string
	}{
		{"unparsable interval", "METER_INTERVAL", "soon"},
		{"unknown driver", "AUDIT_DRIVER", "mongo"},
		{"postgres without dsn", "AUDIT_DRIVER", "postgres"},
		{"fee out of range", "MARKET_FEE_RATE", "1.5"},
		{"zero fee", "MARKET_FEE_RATE", "0"},
		{"zero settlement delay", "SETTLEMENT_DELAY", "0s"},
		{"telegram without chat", "TELEGRAM_TOKEN", "abc"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
