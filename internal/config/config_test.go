package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "access-secret")
	t.Setenv("JWT_REFRESH_SECRET", "refresh-secret")
	t.Setenv("SESSION_SECRET", "session-secret")
	t.Setenv("PAYU_MERCHANT_KEY", "key")
	t.Setenv("PAYU_MERCHANT_SALT", "salt")
}

func TestNewConfigFromEnv_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := NewConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, int64(200), cfg.EntryFee)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	assert.False(t, cfg.PayULiveStatus)
	assert.False(t, cfg.CookieSecure)
}

func TestNewConfigFromEnv_MissingSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "")
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("PAYU_MERCHANT_KEY", "")
	t.Setenv("PAYU_MERCHANT_SALT", "")

	cfg, err := NewConfigFromEnv()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
	assert.Contains(t, err.Error(), "PAYU_MERCHANT_SALT is required")
}

func TestNewConfigFromEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"bcrypt cost too low", "BCRYPT_COST", "2", "BCRYPT_COST must be between 4 and 31"},
		{"bcrypt cost not a number", "BCRYPT_COST", "ten", "BCRYPT_COST: invalid integer"},
		{"negative entry fee", "ENTRY_FEE", "-5", "ENTRY_FEE cannot be negative"},
		{"bad ttl", "ACCESS_TOKEN_TTL", "soon", "ACCESS_TOKEN_TTL: invalid duration"},
		{"zero rate limit", "PAYU_RATE_LIMIT", "0", "PAYU_RATE_LIMIT must be a positive number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.val)

			_, err := NewConfigFromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewConfigFromEnv_SameSecrets(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_REFRESH_SECRET", "access-secret")

	_, err := NewConfigFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")
}

func TestNewConfigFromEnv_ProductionCookies(t *testing.T) {
	setRequired(t)
	t.Setenv("ENV", "production")

	cfg, err := NewConfigFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.CookieSecure)
}
