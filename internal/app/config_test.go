package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dicri-gt/dicri-backend/internal/auth"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.False(t, cfg.Server.IsProduction())
	require.Equal(t, 100, cfg.Server.RateLimit.Global)
	require.Equal(t, 10, cfg.Server.RateLimit.Login)
	require.Equal(t, 30, cfg.Server.RateLimit.Refresh)

	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "./data/dicri.sqlite", cfg.Database.Path)

	require.Equal(t, "dicri-backend", cfg.Auth.JWT.Issuer)
	require.Equal(t, "15m", cfg.Auth.JWT.AccessExpires)
	require.Equal(t, "7d", cfg.Auth.JWT.RefreshExpires)
	require.Equal(t, 3, cfg.Auth.Lockout.Threshold)
	require.Equal(t, "15m", cfg.Auth.Lockout.Duration)

	require.True(t, cfg.Monitoring.Prometheus.Enabled)
	require.Equal(t, "@hourly", cfg.Maintenance.Schedule)
	require.Equal(t, 365, cfg.Maintenance.AuditRetentionDays)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("DICRI_SERVER_PORT", "9090")
	t.Setenv("DICRI_SERVER_ENVIRONMENT", "production")
	t.Setenv("DICRI_AUTH_LOCKOUT_THRESHOLD", "5")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.True(t, cfg.Server.IsProduction())
	require.Equal(t, 5, cfg.Auth.Lockout.Threshold)
}

func TestLoadConfigLegacyEnvNames(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "legacy-access")
	t.Setenv("JWT_REFRESH_SECRET", "legacy-refresh")
	t.Setenv("JWT_ACCESS_EXPIRES", "900")
	t.Setenv("JWT_REFRESH_EXPIRES", "7d")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, "legacy-access", cfg.Auth.JWT.AccessSecret)
	require.Equal(t, "legacy-refresh", cfg.Auth.JWT.RefreshSecret)

	tokenCfg, err := cfg.Auth.TokenServiceConfig()
	require.NoError(t, err)
	require.Equal(t, 15*time.Minute, tokenCfg.AccessTTL)
	require.Equal(t, 7*24*time.Hour, tokenCfg.RefreshTTL)
}

func TestAuthConfigAdapters(t *testing.T) {
	cfg := AuthConfig{
		JWT: JWTSettings{
			AccessSecret:   "acc",
			RefreshSecret:  "ref",
			Issuer:         "issuer",
			AccessExpires:  "30m",
			RefreshExpires: "3d",
		},
		Lockout: LockoutSettings{Threshold: 4, Duration: "10m"},
	}

	tokenCfg, err := cfg.TokenServiceConfig()
	require.NoError(t, err)
	require.Equal(t, "acc", tokenCfg.AccessSecret)
	require.Equal(t, "issuer", tokenCfg.Issuer)
	require.Equal(t, 30*time.Minute, tokenCfg.AccessTTL)
	require.Equal(t, 72*time.Hour, tokenCfg.RefreshTTL)

	verifierCfg, err := cfg.VerifierConfig()
	require.NoError(t, err)
	require.Equal(t, 4, verifierCfg.LockoutThreshold)
	require.Equal(t, 10*time.Minute, verifierCfg.LockoutDuration)
}

func TestAuthConfigAdaptersFallback(t *testing.T) {
	var cfg AuthConfig

	tokenCfg, err := cfg.TokenServiceConfig()
	require.NoError(t, err)
	require.Equal(t, auth.DefaultAccessTokenTTL, tokenCfg.AccessTTL)
	require.Equal(t, auth.DefaultRefreshTokenTTL, tokenCfg.RefreshTTL)

	verifierCfg, err := cfg.VerifierConfig()
	require.NoError(t, err)
	require.Equal(t, auth.DefaultLockoutThreshold, verifierCfg.LockoutThreshold)
	require.Equal(t, auth.DefaultLockoutDuration, verifierCfg.LockoutDuration)
}

func TestAuthConfigAdaptersRejectBadExpiry(t *testing.T) {
	cfg := AuthConfig{JWT: JWTSettings{AccessExpires: "pronto"}}
	_, err := cfg.TokenServiceConfig()
	require.Error(t, err)
}
