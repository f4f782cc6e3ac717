package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "DATABASE_URL", "REDIS_ADDR", "EMAIL_PROVIDER", "BOOKING_LOOKAHEAD_WEEKS", "ALLOW_ADJACENT_SLOTS", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, EmailProviderStub, cfg.EmailProvider)
	assert.Equal(t, 0, cfg.BookingLookaheadWeeks)
	assert.False(t, cfg.AllowAdjacentSlots)
	assert.False(t, cfg.UsesPostgres())
	assert.False(t, cfg.UsesRedis())
	assert.Nil(t, cfg.CORSOrigins)
	assert.Equal(t, 2*time.Second, cfg.OutboxPollInterval)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "staging")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, ,https://admin.example.com")
	t.Setenv("BOOKING_LOOKAHEAD_WEEKS", "3")
	t.Setenv("ALLOW_ADJACENT_SLOTS", "true")
	t.Setenv("EMAIL_PROVIDER", "SendGrid")
	t.Setenv("SENDGRID_API_KEY", "sg-key")
	t.Setenv("EMAIL_FROM_ADDRESS", "hello@example.com")
	t.Setenv("OUTBOX_POLL_INTERVAL", "500ms")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.UsesPostgres())
	assert.True(t, cfg.UsesRedis())
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, 3, cfg.BookingLookaheadWeeks)
	assert.True(t, cfg.AllowAdjacentSlots)
	assert.Equal(t, EmailProviderSendGrid, cfg.EmailProvider)
	assert.Equal(t, 500*time.Millisecond, cfg.OutboxPollInterval)
	assert.InDelta(t, 2.5, cfg.RateLimitRPS, 0.0001)
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadSettings(t *testing.T) {
	cfg := &Config{
		EmailProvider:         "carrier-pigeon",
		BookingLookaheadWeeks: -1,
		DefaultTimezone:       "Mars/Olympus_Mons",
		Env:                   "production",
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EMAIL_PROVIDER")
	assert.Contains(t, err.Error(), "BOOKING_LOOKAHEAD_WEEKS")
	assert.Contains(t, err.Error(), "DEFAULT_TIMEZONE")
	assert.Contains(t, err.Error(), "AUTH_JWT_SECRET")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("ADVISOR_MATCH_TEST_KEY=from-dotenv\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("ADVISOR_MATCH_TEST_KEY") })

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-dotenv", os.Getenv("ADVISOR_MATCH_TEST_KEY"))
}
