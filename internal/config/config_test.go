package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"BOOKKEEPER_SERVER", "BOOKKEEPER_ADDR", "BOOKKEEPER_WEB_ADDR", "BOOKKEEPER_DB",
	"BOOKKEEPER_SIGNAL_BACKEND", "KAFKA_BROKERS", "KAFKA_SIGNAL_TOPIC",
	"BOOKKEEPER_POLL_INTERVAL", "BOOKKEEPER_REFRESH_INTERVAL", "BOOKKEEPER_PAGE_SIZE",
	"BOOKKEEPER_CURRENCY", "LOG_LEVEL", "BOOKKEEPER_LOG_FILE",
}

// clearEnv empties every setting for the test; t.Setenv restores them.
func clearEnv(t *testing.T) {
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8888", cfg.ServerURL)
	assert.Equal(t, SignalBackendSQLite, cfg.SignalBackend)
	assert.Equal(t, 15*time.Second, cfg.PollInterval)
	assert.Zero(t, cfg.RefreshInterval)
	assert.Equal(t, 50, cfg.PageSize)
	assert.Equal(t, "INR", cfg.Currency)
}

func TestLoadFromEnv_DotEnvAndOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(
		"BOOKKEEPER_SERVER=http://ledger:9000\n"+
			"BOOKKEEPER_SIGNAL_BACKEND=kafka\n"+
			"KAFKA_BROKERS=k1:9092, k2:9092\n"+
			"BOOKKEEPER_POLL_INTERVAL=2s\n"+
			"BOOKKEEPER_CURRENCY=usd\n"), 0o600))
	t.Setenv("BOOKKEEPER_POLL_INTERVAL", "5s")

	cfg, err := LoadFromEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "http://ledger:9000", cfg.ServerURL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 5*time.Second, cfg.PollInterval, "environment wins over .env")
	assert.Equal(t, "USD", cfg.Currency)
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := map[string][2]string{
		"unknown backend":    {"BOOKKEEPER_SIGNAL_BACKEND", "redis"},
		"kafka no brokers":   {"BOOKKEEPER_SIGNAL_BACKEND", "kafka"},
		"bad interval":       {"BOOKKEEPER_POLL_INTERVAL", "soon"},
		"bad page size":      {"BOOKKEEPER_PAGE_SIZE", "fifty"},
		"negative page size": {"BOOKKEEPER_PAGE_SIZE", "-1"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])
			_, err := LoadFromEnv(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}
