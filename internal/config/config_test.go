package config_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/courier/internal/config"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_CONN_URL":     "postgres://localhost/courier",
		"PLATFORM_FROM_ADDRESS": "mail@courier.example",
		"SMTP_HOST":             "smtp.courier.example",
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		cfg, err := config.Parse(env.Options{Environment: baseEnv()})
		require.NoError(t, err)

		assert.False(t, cfg.Hosted)
		assert.Equal(t, ":8081", cfg.HealthAddr)
		assert.Equal(t, []string{"@example.com"}, cfg.PlaceholderDomains)
		assert.Equal(t, int64(10<<20), cfg.MaxAttachmentBytes)
		assert.Equal(t, 24*time.Hour, cfg.AlertInterval)
		assert.Equal(t, config.PlatformSMTP, cfg.Platform.Transport)
		assert.Equal(t, 587, cfg.SMTP.Port)
		assert.Equal(t, slog.LevelInfo, cfg.Log.Level)
		assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
		assert.Equal(t, 15, cfg.Scanner.MaxLinks)
		assert.Equal(t, 20, cfg.Worker.Concurrency)
		assert.Equal(t, 30*time.Second, cfg.Worker.ShutdownTimeout)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Parallel()
		e := baseEnv()
		e["HOSTED"] = "true"
		e["PREFLIGHT_PLACEHOLDER_DOMAINS"] = "@example.com,@test.invalid"
		e["DATABASE_SHARDS"] = "db-eu=postgres://eu/courier,db-us=postgres://us/courier"
		e["LOG_LEVEL"] = "debug"

		cfg, err := config.Parse(env.Options{Environment: e})
		require.NoError(t, err)
		assert.True(t, cfg.Hosted)
		assert.Equal(t, []string{"@example.com", "@test.invalid"}, cfg.PlaceholderDomains)
		assert.Equal(t, "postgres://eu/courier", cfg.DB.Shards["db-eu"])
		assert.Equal(t, slog.LevelDebug, cfg.Log.Level)
	})

	t.Run("missing required", func(t *testing.T) {
		t.Parallel()
		e := baseEnv()
		delete(e, "DATABASE_CONN_URL")

		_, err := config.Parse(env.Options{Environment: e})
		require.ErrorIs(t, err, config.ErrLoad)
	})

	t.Run("platform transport credentials", func(t *testing.T) {
		t.Parallel()
		e := baseEnv()
		e["PLATFORM_TRANSPORT"] = config.PlatformResend

		_, err := config.Parse(env.Options{Environment: e})
		require.ErrorIs(t, err, config.ErrInvalid)

		e["RESEND_API_KEY"] = "re_123"
		cfg, err := config.Parse(env.Options{Environment: e})
		require.NoError(t, err)
		assert.Equal(t, config.PlatformResend, cfg.Platform.Transport)
	})

	t.Run("unknown platform transport", func(t *testing.T) {
		t.Parallel()
		e := baseEnv()
		e["PLATFORM_TRANSPORT"] = "carrier-pigeon"

		_, err := config.Parse(env.Options{Environment: e})
		require.ErrorIs(t, err, config.ErrPlatform)
	})
}
