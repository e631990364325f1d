package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("LEAFLENS_JWT_SECRET", "test-secret")
	t.Setenv("LEAFLENS_DATABASE_URL", "postgres://localhost/leaflens?sslmode=disable")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := load(viper.New(), false)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 30*time.Minute, cfg.Weather.Interval)
	assert.Equal(t, 10*time.Second, cfg.Weather.LocateTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Weather.LocationMaxAge)
	assert.Equal(t, "meta-llama/llama-3.1-8b-instruct:free", cfg.Chat.Model)
	assert.Equal(t, "sqlite", cfg.Cache.Driver)
	assert.Equal(t, "inline", cfg.Storage.Driver)
	assert.Equal(t, 587, cfg.Email.SMTPPort)
	assert.Equal(t, "http://localhost:5173/reset-password?token=%s", cfg.Email.ResetURLTemplate)
	assert.Equal(t, 1500*time.Millisecond, cfg.Scan.IdentifyLatency)
	assert.False(t, cfg.Temporal.Enabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("LEAFLENS_WEATHER_INTERVAL", "5m")
	t.Setenv("LEAFLENS_WEATHER_API_KEY", "owm-key")
	t.Setenv("LEAFLENS_CACHE_DRIVER", "redis")
	t.Setenv("LEAFLENS_CACHE_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("LEAFLENS_ALLOWED_ORIGINS", "https://a.test,https://b.test")
	t.Setenv("LEAFLENS_TEMPORAL_ENABLED", "true")

	cfg, err := load(viper.New(), false)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.Weather.Interval)
	assert.Equal(t, "owm-key", cfg.Weather.APIKey)
	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.AllowedOrigins)
	assert.True(t, cfg.Temporal.Enabled)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing jwt secret", env: map[string]string{"LEAFLENS_JWT_SECRET": ""}},
		{name: "unknown cache driver", env: map[string]string{"LEAFLENS_CACHE_DRIVER": "memcached"}},
		{name: "redis without url", env: map[string]string{"LEAFLENS_CACHE_DRIVER": "redis"}},
		{name: "unknown storage driver", env: map[string]string{"LEAFLENS_STORAGE_DRIVER": "s3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := load(viper.New(), false)
			assert.Error(t, err)
		})
	}
}
