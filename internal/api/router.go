package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	iauth "github.com/dicri-gt/dicri-backend/internal/auth"
	"github.com/dicri-gt/dicri-backend/internal/auth/mfa"
	"github.com/dicri-gt/dicri-backend/internal/handlers"
	"github.com/dicri-gt/dicri-backend/internal/middleware"
	"github.com/dicri-gt/dicri-backend/internal/permissions"
	"github.com/dicri-gt/dicri-backend/internal/services"
)

const defaultMaxBodyBytes = 1 << 20

// RouterConfig carries the switches the HTTP layer needs from configuration.
type RouterConfig struct {
	EnableMetrics bool
	SecureCookie  bool
	MaxBodyBytes  int64

	GlobalRateLimit  int
	LoginRateLimit   int
	RefreshRateLimit int
}

func (c *RouterConfig) applyDefaults() {
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = defaultMaxBodyBytes
	}
	if c.GlobalRateLimit <= 0 {
		c.GlobalRateLimit = 100
	}
	if c.LoginRateLimit <= 0 {
		c.LoginRateLimit = 10
	}
	if c.RefreshRateLimit <= 0 {
		c.RefreshRateLimit = 30
	}
}

// Deps bundles the long-lived collaborators the routes are built from. TOTP
// is optional; the MFA endpoints are only mounted when it is present.
type Deps struct {
	DB       *gorm.DB
	Tokens   *iauth.TokenService
	Verifier *iauth.Verifier
	TOTP     *mfa.TOTPService
	Audit    *services.AuditService
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(deps Deps, cfg RouterConfig) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.Tokens == nil {
		return nil, fmt.Errorf("token service must be provided")
	}
	if deps.Verifier == nil {
		return nil, fmt.Errorf("credential verifier must be provided")
	}
	cfg.applyDefaults()

	checker, err := permissions.NewChecker(deps.DB)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	r.Use(middleware.RateLimit(cfg.GlobalRateLimit, time.Minute))

	// Health endpoint (public)
	r.GET("/health", handlers.Health(deps.DB))

	requireAuth := middleware.Auth(deps.Tokens)

	api := r.Group("/api/v1")

	if err := registerAuthRoutes(api, requireAuth, deps, cfg, checker); err != nil {
		return nil, err
	}
	if err := registerUserRoutes(api, requireAuth, deps, checker); err != nil {
		return nil, err
	}
	if err := registerRBACRoutes(api, requireAuth, deps, checker); err != nil {
		return nil, err
	}
	if err := registerExpedienteRoutes(api, requireAuth, deps, checker); err != nil {
		return nil, err
	}

	if cfg.EnableMetrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
