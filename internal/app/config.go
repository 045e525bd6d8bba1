package app

import (
	"errors"
	"fmt"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/dicri-gt/dicri-backend/internal/database"
)

// Config represents the runtime configuration for the DICRI backend.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Auth        AuthConfig        `mapstructure:"auth"`
	MFA         MFAConfig         `mapstructure:"mfa"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port         int             `mapstructure:"port"`
	LogLevel     string          `mapstructure:"log_level"`
	Environment  string          `mapstructure:"environment"`
	MaxBodyBytes int64           `mapstructure:"max_body_bytes"`
	RateLimit    RateLimitConfig `mapstructure:"rate_limit"`
}

// IsProduction reports whether the server runs in a production environment.
// Refresh cookies are only marked Secure in production.
func (c ServerConfig) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

// RateLimitConfig defines per-minute request budgets.
type RateLimitConfig struct {
	Global  int `mapstructure:"global"`
	Login   int `mapstructure:"login"`
	Refresh int `mapstructure:"refresh"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// StoreConfig converts DatabaseConfig into the parameters the database layer expects.
func (c DatabaseConfig) StoreConfig() database.Config {
	cfg := database.Config{
		Driver: c.Driver,
		Path:   c.Path,
		DSN:    c.DSN,
	}

	switch strings.ToLower(c.Driver) {
	case "postgres":
		cfg.Host = c.Postgres.Host
		cfg.Port = c.Postgres.Port
		cfg.Name = c.Postgres.Database
		cfg.User = c.Postgres.Username
		cfg.Password = c.Postgres.Password
	case "mysql":
		cfg.Host = c.MySQL.Host
		cfg.Port = c.MySQL.Port
		cfg.Name = c.MySQL.Database
		cfg.User = c.MySQL.Username
		cfg.Password = c.MySQL.Password
	}

	return cfg
}

// AuthConfig captures all authentication-related settings. Token expiries are
// strings so the legacy formats (bare seconds and day suffixes) keep working.
type AuthConfig struct {
	JWT     JWTSettings     `mapstructure:"jwt"`
	Lockout LockoutSettings `mapstructure:"lockout"`
}

// JWTSettings configures the access/refresh token pair.
type JWTSettings struct {
	AccessSecret   string `mapstructure:"access_secret"`
	RefreshSecret  string `mapstructure:"refresh_secret"`
	Issuer         string `mapstructure:"issuer"`
	AccessExpires  string `mapstructure:"access_expires"`
	RefreshExpires string `mapstructure:"refresh_expires"`
}

// LockoutSettings defines the account lockout policy.
type LockoutSettings struct {
	Threshold int    `mapstructure:"threshold"`
	Duration  string `mapstructure:"duration"`
}

// MFAConfig controls optional TOTP second factor support.
type MFAConfig struct {
	EncryptionKey string `mapstructure:"encryption_key"`
	Issuer        string `mapstructure:"issuer"`
}

// MonitoringConfig enables metrics exposure.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig toggles the metrics endpoint.
type PrometheusConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// MaintenanceConfig controls the background cleanup jobs.
type MaintenanceConfig struct {
	Schedule           string `mapstructure:"schedule"`
	AuditRetentionDays int    `mapstructure:"audit_retention_days"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("DICRI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindLegacyEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.rate_limit.global", 100)
	v.SetDefault("server.rate_limit.login", 10)
	v.SetDefault("server.rate_limit.refresh", 30)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/dicri.sqlite")

	v.SetDefault("auth.jwt.issuer", "dicri-backend")
	v.SetDefault("auth.jwt.access_expires", "15m")
	v.SetDefault("auth.jwt.refresh_expires", "7d")
	v.SetDefault("auth.lockout.threshold", 3)
	v.SetDefault("auth.lockout.duration", "15m")

	v.SetDefault("mfa.issuer", "DICRI")

	v.SetDefault("monitoring.prometheus.enabled", true)

	v.SetDefault("maintenance.schedule", "@hourly")
	v.SetDefault("maintenance.audit_retention_days", 365)
}

// bindLegacyEnv keeps the variable names of earlier deployments working
// alongside the DICRI_ prefixed ones.
func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("auth.jwt.access_secret", "DICRI_AUTH_JWT_ACCESS_SECRET", "JWT_ACCESS_SECRET")
	_ = v.BindEnv("auth.jwt.refresh_secret", "DICRI_AUTH_JWT_REFRESH_SECRET", "JWT_REFRESH_SECRET")
	_ = v.BindEnv("auth.jwt.access_expires", "DICRI_AUTH_JWT_ACCESS_EXPIRES", "JWT_ACCESS_EXPIRES")
	_ = v.BindEnv("auth.jwt.refresh_expires", "DICRI_AUTH_JWT_REFRESH_EXPIRES", "JWT_REFRESH_EXPIRES")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
