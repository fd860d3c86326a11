package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadDefaultsToProduction(t *testing.T) {
	unsetEnv(t, "APP_ENV", "JWT_EXPIRE_HOURS", "PASSWORD_RESET_TTL", "DB_DRIVER")
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
	assert.False(t, cfg.IsDevelopment())
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL())
	assert.Equal(t, time.Hour, cfg.PasswordResetTTL)
	assert.Equal(t, "mysql", cfg.Database.Driver)

	assert.False(t, Default().IsDevelopment())
}

func TestLoadNormalizesEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("APP_ENV", " Development ")
	t.Setenv("DB_DRIVER", "Postgres")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "postgres", cfg.Database.Driver)
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	unsetEnv(t, "JWT_SECRET")

	_, err := Load()
	assert.Error(t, err)
}
