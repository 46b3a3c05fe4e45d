package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/schoolfees")
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com ,")
	t.Setenv("PENDING_PAYMENT_TTL_MINUTES", "30")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev-secret-change-in-production", cfg.AuthJWTSecret)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 30*time.Minute, cfg.PendingPaymentTTL)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_ProductionRequiresSecrets(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/schoolfees")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("AUTH_JWT_SECRET", "jwt")
	t.Setenv("PAYMENT_CALLBACK_SECRET", "")

	_, err := Load()
	assert.ErrorContains(t, err, "PAYMENT_CALLBACK_SECRET")

	t.Setenv("PAYMENT_CALLBACK_SECRET", "cb")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}
