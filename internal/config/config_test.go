package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"regalia/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppPort)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "memory", cfg.CacheBackend)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Empty(t, cfg.RabbitMQURL)
	assert.False(t, cfg.LogeTypeFastPath)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("APP_PORT", ":9090")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("LOGE_TYPE_FAST_PATH", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := config.Load(nil)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.AppPort)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.True(t, cfg.LogeTypeFastPath)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "database_driver: postgres\ndatabase_dsn: host=db user=regalia dbname=regalia\ncache_backend: redis\nredis_url: redis://cache:6379/0\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.Load([]string{"--config", path})
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, "redis", cfg.CacheBackend)
	assert.Equal(t, "redis://cache:6379/0", cfg.RedisURL)
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("driver", func(t *testing.T) {
		t.Setenv("DATABASE_DRIVER", "mysql")
		_, err := config.Load(nil)
		assert.Error(t, err)
	})
	t.Run("redis without url", func(t *testing.T) {
		t.Setenv("CACHE_BACKEND", "redis")
		_, err := config.Load(nil)
		assert.Error(t, err)
	})
	t.Run("missing file", func(t *testing.T) {
		_, err := config.Load([]string{"--config", filepath.Join(t.TempDir(), "nope.yaml")})
		assert.Error(t, err)
	})
}
