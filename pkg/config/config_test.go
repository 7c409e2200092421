package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("FEED_SOURCE_TIMEOUT", "")
	t.Setenv("EXPIRY_WINDOW_DAYS", "")
	t.Setenv("R2_ACCOUNT_ID", "")

	cfg := Load()
	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, 8*time.Second, cfg.Features.FeedSourceTimeout)
	assert.Equal(t, 15, cfg.Features.ExpiryWindowDays)
	assert.Equal(t, 24*time.Hour, cfg.JWT.TTL)
	assert.False(t, cfg.R2.Enabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("FEED_SOURCE_TIMEOUT", "2s")
	t.Setenv("CRON_ENABLED", "false")
	t.Setenv("JWT_TTL", "not-a-duration")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Features.FeedSourceTimeout)
	assert.False(t, cfg.Features.CronEnabled)
	assert.Equal(t, 24*time.Hour, cfg.JWT.TTL)
}
