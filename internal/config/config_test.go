package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"LISTEN_ADDR", "DESCRIBER_MODEL", "DESCRIBER_MAX_TOKENS", "SESSION_TTL", "REDIS_ADDR", "SECRETS_FILE"} {
		unsetenv(t, key)
	}

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8501", cfg.ListenAddr)
	require.Equal(t, "claude-3-haiku-20240307", cfg.Model)
	require.Equal(t, int64(600), cfg.MaxTokens)
	require.Equal(t, ".describer/secrets.yaml", cfg.SecretsFile)
	require.Equal(t, 12*time.Hour, cfg.SessionTTL)
	require.Empty(t, cfg.RedisAddr)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", "127.0.0.1:9000")
	t.Setenv("DESCRIBER_MAX_TOKENS", "800")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
	require.Equal(t, int64(800), cfg.MaxTokens)
	require.Equal(t, 30*time.Minute, cfg.SessionTTL)
	require.Equal(t, "redis:6379", cfg.RedisAddr)
}

func TestValidateRejectsNonPositiveTokens(t *testing.T) {
	cfg := &Config{ListenAddr: ":1", Model: "m", MaxTokens: 0, SessionTTL: time.Minute}
	require.Error(t, cfg.Validate())
}

// unsetenv removes key for the duration of the test; an empty value would
// bypass envDefault.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}
