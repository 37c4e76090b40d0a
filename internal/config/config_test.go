package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, StorageMySQL, cfg.Storage.Driver)
	assert.Equal(t, 7*time.Minute, cfg.Payment.Window)
	assert.False(t, cfg.Payment.TestMode)
	assert.Equal(t, 5*time.Second, cfg.Sync.PollInterval)
	assert.Equal(t, "0.05", cfg.Order.TaxRate.String())
	assert.Equal(t, 3, cfg.Order.MaxRetryAttempts)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, "canteen.orders", cfg.AMQP.Exchange)
	assert.Equal(t, LogConfig{Level: "info", Encoding: "json", Service: "canteen"}, cfg.Log)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("PAYMENT_WINDOW", "90s")
	t.Setenv("PAYMENT_TEST_MODE", "true")
	t.Setenv("ORDER_TAX_RATE", "0.18")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("LOG_ENCODING", "console")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, 90*time.Second, cfg.Payment.Window)
	assert.True(t, cfg.Payment.TestMode)
	assert.Equal(t, "0.18", cfg.Order.TaxRate.String())
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "console", cfg.Log.Encoding)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero payment window", "PAYMENT_WINDOW", "0s"},
		{"unparseable poll interval", "SYNC_POLL_INTERVAL", "often"},
		{"negative tax", "ORDER_TAX_RATE", "-0.1"},
		{"unknown storage", "STORAGE_DRIVER", "postgres"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
