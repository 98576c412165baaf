package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg := Load()

		assert.Equal(t, "0.0.0.0", cfg.ServerHost)
		assert.Equal(t, 8080, cfg.ServerPort)
		assert.Equal(t, "postgres", cfg.DBDriver)
		assert.Equal(t, "memory", cfg.KeyOracleProvider)
		assert.Equal(t, "memory", cfg.BlobStoreProvider)
		assert.Equal(t, 90*24*time.Hour, cfg.MasterKeyMaxAge)
		assert.Equal(t, 30*24*time.Hour, cfg.DataKeyMaxAge)
		assert.Equal(t, 7*24*time.Hour, cfg.DeletionGracePeriod)
		assert.Equal(t, 5, cfg.BruteForceThreshold)
		assert.Equal(t, 15*time.Minute, cfg.BruteForceWindow)
		assert.Equal(t, 3, cfg.ResetThreshold)
		assert.Equal(t, 2, cfg.AnomalousMaxRegions)
		assert.Equal(t, 30*time.Second, cfg.AlertDispatchInterval)
		assert.Equal(t, 5, cfg.AlertDispatchMaxAttempts)
		assert.True(t, cfg.RateLimitEnabled)
		assert.Equal(t, 100, cfg.RateLimitRequests)
		assert.Equal(t, time.Minute, cfg.RateLimitWindow)
		assert.Equal(t, "keycore", cfg.MetricsNamespace)
	})

	t.Run("EnvironmentOverrides", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "mysql")
		t.Setenv("KEY_ORACLE_PROVIDER", "keeper")
		t.Setenv("BRUTE_FORCE_THRESHOLD", "10")
		t.Setenv("RATE_LIMIT_ENABLED", "false")
		t.Setenv("ALERT_WEBHOOK_URL", "https://alerts.example.com/hook")

		cfg := Load()

		assert.Equal(t, "mysql", cfg.DBDriver)
		assert.Equal(t, "keeper", cfg.KeyOracleProvider)
		assert.Equal(t, 10, cfg.BruteForceThreshold)
		assert.False(t, cfg.RateLimitEnabled)
		assert.Equal(t, "https://alerts.example.com/hook", cfg.AlertWebhookURL)
	})
}

func TestConfig_GetGinMode(t *testing.T) {
	tests := []struct {
		logLevel string
		expected string
	}{
		{"debug", "debug"},
		{"info", "release"},
		{"warn", "release"},
		{"error", "release"},
		{"unknown", "release"},
	}

	for _, tt := range tests {
		t.Run(tt.logLevel, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.logLevel}
			assert.Equal(t, tt.expected, cfg.GetGinMode())
		})
	}
}
