package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/clubops-backend/internal/data/aggregates"
	"github.com/yungbote/clubops-backend/internal/data/db"
	"github.com/yungbote/clubops-backend/internal/platform/logger"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("LOCK_TIMEOUT", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("CLUBOPS_JWT_SECRET", "")
	t.Setenv("AUTH_DISABLED", "")

	cfg := LoadConfig(logger.Nop())
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, db.DriverPostgres, cfg.DB.Driver)
	assert.Equal(t, aggregates.DefaultLockTimeout, cfg.Tx.LockTimeout)
	assert.Empty(t, cfg.CORSOrigins)
	assert.Empty(t, cfg.JWTSecret)
	assert.False(t, cfg.AuthDisabled)
	assert.Equal(t, aggregates.DefaultMaxCodeAttempts, cfg.MaxCodeAttempts)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("LOCK_TIMEOUT", "750ms")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("OTEL_SAMPLE_PERCENT", "25")

	cfg := LoadConfig(logger.Nop())
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "/tmp/x.db", cfg.DB.Path)
	assert.Equal(t, 750*time.Millisecond, cfg.Tx.LockTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.InDelta(t, 0.25, cfg.Otel.SampleRatio, 1e-9)
}

func TestConfigRefusesToStartWithoutSecret(t *testing.T) {
	t.Setenv("CLUBOPS_JWT_SECRET", "")
	t.Setenv("AUTH_DISABLED", "")
	cfg := LoadConfig(logger.Nop())
	assert.ErrorIs(t, cfg.Validate(), ErrMissingJWTSecret)

	mw := wireMiddleware(logger.Nop(), cfg)
	assert.True(t, mw.Auth.Enabled())
}

func TestConfigAllowsExplicitlyDisabledAuth(t *testing.T) {
	t.Setenv("CLUBOPS_JWT_SECRET", "")
	t.Setenv("AUTH_DISABLED", "true")
	cfg := LoadConfig(logger.Nop())
	require.True(t, cfg.AuthDisabled)
	require.NoError(t, cfg.Validate())

	mw := wireMiddleware(logger.Nop(), cfg)
	assert.False(t, mw.Auth.Enabled())
}

func TestConfigWithSecretKeepsAuthOn(t *testing.T) {
	t.Setenv("CLUBOPS_JWT_SECRET", "s3cret")
	t.Setenv("AUTH_DISABLED", "true")
	cfg := LoadConfig(logger.Nop())
	require.NoError(t, cfg.Validate())

	mw := wireMiddleware(logger.Nop(), cfg)
	assert.True(t, mw.Auth.Enabled())
}
