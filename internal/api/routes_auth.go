package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dicri-gt/dicri-backend/internal/handlers"
	"github.com/dicri-gt/dicri-backend/internal/middleware"
	"github.com/dicri-gt/dicri-backend/internal/permissions"
)

func registerAuthRoutes(api *gin.RouterGroup, requireAuth gin.HandlerFunc, deps Deps, cfg RouterConfig, checker *permissions.Checker) error {
	authHandler, err := handlers.NewAuthHandler(handlers.AuthHandlerConfig{
		DB:           deps.DB,
		Verifier:     deps.Verifier,
		Tokens:       deps.Tokens,
		Checker:      checker,
		TOTP:         deps.TOTP,
		Audit:        deps.Audit,
		SecureCookie: cfg.SecureCookie,
	})
	if err != nil {
		return err
	}

	auth := api.Group("/auth")
	{
		// Credential endpoints get tighter limits than the global one.
		auth.POST("/login", middleware.RateLimit(cfg.LoginRateLimit, time.Minute), authHandler.Login)
		auth.POST("/refresh", middleware.RateLimit(cfg.RefreshRateLimit, time.Minute), authHandler.Refresh)

		// Logout only clears the cookie; it must work even after the access
		// token has expired.
		auth.POST("/logout", authHandler.Logout)
		auth.GET("/me", requireAuth, authHandler.Me)
	}

	if deps.TOTP != nil {
		mfaHandler, err := handlers.NewMFAHandler(deps.DB, deps.TOTP)
		if err != nil {
			return err
		}
		auth.POST("/mfa/enroll", requireAuth, mfaHandler.Enroll)
		auth.POST("/mfa/verify", requireAuth, mfaHandler.Verify)
	}

	return nil
}
