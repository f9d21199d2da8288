package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBase(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("ADMIN_ID", "42")
}

// unsetenv removes key for the duration of the test. An empty ADMIN_ID would not parse as a number.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoad_Defaults(t *testing.T) {
	setBase(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.TelegramToken)
	assert.EqualValues(t, 42, cfg.AdminID)
	assert.Equal(t, "giftbot.db", cfg.DatabaseURL)
	assert.Equal(t, "https://pay.crypt.bot/api", cfg.CryptoPayURL)
	assert.Equal(t, 20*time.Second, cfg.CryptoPayTimeout)
	assert.Equal(t, 30*time.Millisecond, cfg.BroadcastInterval)
	assert.Equal(t, "10:00", cfg.ReminderTime)
	assert.Equal(t, 24*time.Hour, cfg.ReminderWindow)
	assert.Equal(t, 5*time.Minute, cfg.StatsInterval)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.PaymentsEnabled())
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoad_Overrides(t *testing.T) {
	setBase(t)
	unsetenv(t, "ADMIN_ID")
	t.Setenv("ADMIN_USERNAME", " @Boss ")
	t.Setenv("CRYPTO_PAY_TOKEN", "tok")
	t.Setenv("BROADCAST_INTERVAL", "100ms")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/gifts")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Boss", cfg.AdminUsername)
	assert.Zero(t, cfg.AdminID)
	assert.True(t, cfg.PaymentsEnabled())
	assert.Equal(t, 100*time.Millisecond, cfg.BroadcastInterval)
	assert.Equal(t, "postgres://u:p@localhost/gifts", cfg.DatabaseURL)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		t.Setenv("TELEGRAM_TOKEN", "")
		t.Setenv("ADMIN_ID", "42")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("missing admin", func(t *testing.T) {
		setBase(t)
		unsetenv(t, "ADMIN_ID")
		unsetenv(t, "ADMIN_USERNAME")
		_, err := Load()
		assert.ErrorContains(t, err, "ADMIN_ID or ADMIN_USERNAME")
	})

	t.Run("bad log format", func(t *testing.T) {
		setBase(t)
		t.Setenv("LOG_FORMAT", "xml")
		_, err := Load()
		assert.ErrorContains(t, err, "LOG_FORMAT")
	})

	t.Run("bad timezone", func(t *testing.T) {
		setBase(t)
		t.Setenv("TIMEZONE", "Mars/Olympus")
		_, err := Load()
		assert.ErrorContains(t, err, "TIMEZONE")
	})
}
