package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{"JWT_SECRET": "0123456789abcdef"}))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8008", cfg.Server.Addr())
	assert.Equal(t, "marketplace.db", cfg.Database.DSN)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TTL)
	assert.Equal(t, slog.LevelInfo, cfg.Log.Level)
	assert.Empty(t, cfg.Redis.Address)
	assert.Empty(t, cfg.Mail.Host)
	assert.Equal(t, 4, cfg.Notify.Workers)
	assert.Equal(t, 30*time.Second, cfg.Cache.LeaderboardTTL)
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"SERVER_PORT":      "9090",
		"JWT_SECRET":       "a-much-longer-secret",
		"JWT_TTL":          "2h",
		"REDIS_ADDRESS":    "localhost:6379",
		"SMTP_HOST":        "mail.local",
		"SMTP_PORT":        "2525",
		"LOG_LEVEL":        "debug",
		"NOTIFY_WORKERS":   "8",
		"SHUTDOWN_TIMEOUT": "5s",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TTL)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Equal(t, "marketplace.notifications", cfg.Redis.Channel)
	assert.Equal(t, 2525, cfg.Mail.Port)
	assert.Equal(t, slog.LevelDebug, cfg.Log.Level)
	assert.Equal(t, 8, cfg.Notify.Workers)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	_, err := FromEnv(env(map[string]string{
		"JWT_SECRET":  "short",
		"SERVER_PORT": "eighty",
		"JWT_TTL":     "forever",
		"LOG_LEVEL":   "loud",
	}))
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "SERVER_PORT")
	assert.Contains(t, msg, "JWT_TTL")
	assert.Contains(t, msg, "LOG_LEVEL")
}

func TestValidate(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{"JWT_SECRET": "0123456789abcdef"}))
	require.NoError(t, err)

	cfg.Notify.QueueSize = 0
	cfg.Auth.Secret = ""
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOTIFY_QUEUE_SIZE")
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadReadsDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET=from-dotenv-file-123\nSERVER_PORT=7007\n"), 0o600))
	t.Setenv("JWT_SECRET", "")
	t.Setenv("SERVER_PORT", "")
	require.NoError(t, os.Unsetenv("JWT_SECRET"))
	require.NoError(t, os.Unsetenv("SERVER_PORT"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7007, cfg.Server.Port)
	assert.Equal(t, "from-dotenv-file-123", cfg.Auth.Secret)
}
