package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dicri-gt/dicri-backend/internal/api"
	"github.com/dicri-gt/dicri-backend/internal/app"
	"github.com/dicri-gt/dicri-backend/internal/app/maintenance"
	iauth "github.com/dicri-gt/dicri-backend/internal/auth"
	"github.com/dicri-gt/dicri-backend/internal/auth/mfa"
	"github.com/dicri-gt/dicri-backend/internal/database"
	"github.com/dicri-gt/dicri-backend/internal/services"
	"github.com/dicri-gt/dicri-backend/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("dicri-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var configPath string
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(configPath)
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithModule("bootstrap")

	if err := ensureSecretsPresent(cfg); err != nil {
		return err
	}

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	tokenCfg, err := cfg.Auth.TokenServiceConfig()
	if err != nil {
		return fmt.Errorf("token configuration: %w", err)
	}
	tokenSvc, err := iauth.NewTokenService(tokenCfg)
	if err != nil {
		return fmt.Errorf("initialise token service: %w", err)
	}

	verifierCfg, err := cfg.Auth.VerifierConfig()
	if err != nil {
		return fmt.Errorf("lockout configuration: %w", err)
	}
	userStore, err := iauth.NewGormUserStore(db, 0)
	if err != nil {
		return fmt.Errorf("initialise user store: %w", err)
	}
	verifier, err := iauth.NewVerifier(userStore, verifierCfg)
	if err != nil {
		return fmt.Errorf("initialise credential verifier: %w", err)
	}

	auditSvc, err := services.NewAuditService(db)
	if err != nil {
		return fmt.Errorf("initialise audit service: %w", err)
	}

	totpSvc, err := initialiseMFA(cfg, db, log)
	if err != nil {
		return err
	}

	cleaner := maintenance.NewCleaner(db, auditSvc,
		maintenance.WithLockoutSchedule(cfg.Maintenance.Schedule),
		maintenance.WithAuditRetentionDays(cfg.Maintenance.AuditRetentionDays),
	)
	if err := cleaner.Start(); err != nil {
		return fmt.Errorf("start maintenance jobs: %w", err)
	}
	defer func() {
		stopCtx := cleaner.Stop()
		if err := cleaner.RunOnce(stopCtx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}()

	router, err := api.NewRouter(api.Deps{
		DB:       db,
		Tokens:   tokenSvc,
		Verifier: verifier,
		TOTP:     totpSvc,
		Audit:    auditSvc,
	}, api.RouterConfig{
		EnableMetrics:    cfg.Monitoring.Prometheus.Enabled,
		SecureCookie:     cfg.Server.IsProduction(),
		MaxBodyBytes:     cfg.Server.MaxBodyBytes,
		GlobalRateLimit:  cfg.Server.RateLimit.Global,
		LoginRateLimit:   cfg.Server.RateLimit.Login,
		RefreshRateLimit: cfg.Server.RateLimit.Refresh,
	})
	if err != nil {
		return fmt.Errorf("build api router: %w", err)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	if err, ok := <-serverErr; ok && err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

func loadApplicationConfig(path string) (*app.Config, error) {
	switch {
	case strings.TrimSpace(path) == "":
		return app.LoadConfig()
	default:
		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				return app.LoadConfig(path)
			}
			return app.LoadConfig(filepath.Dir(path))
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config path %q does not exist", path)
		}
		return nil, fmt.Errorf("stat config path: %w", err)
	}
}

func ensureSecretsPresent(cfg *app.Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Auth.JWT.AccessSecret = strings.TrimSpace(cfg.Auth.JWT.AccessSecret)
	cfg.Auth.JWT.RefreshSecret = strings.TrimSpace(cfg.Auth.JWT.RefreshSecret)

	if cfg.Auth.JWT.AccessSecret == "" {
		return errors.New("auth.jwt.access_secret must be configured")
	}
	if cfg.Auth.JWT.RefreshSecret == "" {
		return errors.New("auth.jwt.refresh_secret must be configured")
	}

	return nil
}

// initialiseMFA returns nil when no encryption key is configured; the MFA
// endpoints stay unmounted and mfa_required users log in with password only.
func initialiseMFA(cfg *app.Config, db *gorm.DB, log *zap.Logger) (*mfa.TOTPService, error) {
	key := strings.TrimSpace(cfg.MFA.EncryptionKey)
	if key == "" {
		log.Warn("mfa.encryption_key not set; TOTP second factor disabled")
		return nil, nil
	}

	svc, err := mfa.NewTOTPService(db, []byte(key), mfa.WithIssuer(cfg.MFA.Issuer))
	if err != nil {
		return nil, fmt.Errorf("initialise mfa service: %w", err)
	}
	return svc, nil
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.StoreConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
