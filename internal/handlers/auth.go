package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	iauth "github.com/dicri-gt/dicri-backend/internal/auth"
	"github.com/dicri-gt/dicri-backend/internal/auth/mfa"
	"github.com/dicri-gt/dicri-backend/internal/middleware"
	"github.com/dicri-gt/dicri-backend/internal/models"
	"github.com/dicri-gt/dicri-backend/internal/permissions"
	"github.com/dicri-gt/dicri-backend/internal/services"
	appErrors "github.com/dicri-gt/dicri-backend/pkg/errors"
	"github.com/dicri-gt/dicri-backend/pkg/metrics"
	"github.com/dicri-gt/dicri-backend/pkg/response"
)

const (
	// RefreshCookieName is the cookie carrying the refresh token. It is scoped
	// to the auth endpoints so it never travels with regular API calls.
	RefreshCookieName = "refresh_token"
	// RefreshCookiePath limits where the browser sends the refresh cookie.
	RefreshCookiePath = "/api/v1/auth"
)

// AuthHandler manages authentication flows (login/refresh/logout/me).
type AuthHandler struct {
	db           *gorm.DB
	verifier     *iauth.Verifier
	tokens       *iauth.TokenService
	checker      *permissions.Checker
	totp         *mfa.TOTPService
	audit        *services.AuditService
	secureCookie bool
}

// AuthHandlerConfig wires the collaborators of the auth endpoints. TOTP and
// audit are optional.
type AuthHandlerConfig struct {
	DB           *gorm.DB
	Verifier     *iauth.Verifier
	Tokens       *iauth.TokenService
	Checker      *permissions.Checker
	TOTP         *mfa.TOTPService
	Audit        *services.AuditService
	SecureCookie bool
}

func NewAuthHandler(cfg AuthHandlerConfig) (*AuthHandler, error) {
	if cfg.DB == nil || cfg.Verifier == nil || cfg.Tokens == nil || cfg.Checker == nil {
		return nil, errors.New("handlers: db, verifier, tokens and checker are required")
	}
	return &AuthHandler{
		db:           cfg.DB,
		verifier:     cfg.Verifier,
		tokens:       cfg.Tokens,
		checker:      cfg.Checker,
		totp:         cfg.TOTP,
		audit:        cfg.Audit,
		secureCookie: cfg.SecureCookie,
	}, nil
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	MFACode  string `json:"mfa_code"`
}

// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.verifier.Verify(requestContext(c), req.Username, req.Password)
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	switch result.Outcome {
	case iauth.OutcomeLocked:
		details := map[string]any{}
		if result.LockedUntil != nil {
			details["locked_until"] = result.LockedUntil.UTC().Format(time.RFC3339)
		}
		h.recordAudit(c, nil, "auth.login", req.Username, "locked")
		response.ErrorWithDetails(c, appErrors.ErrAccountLocked, details)
		return
	case iauth.OutcomeInvalid:
		details := map[string]any{
			"remaining_attempts": result.RemainingAttempts,
		}
		if result.LockedUntil != nil {
			details["locked_until"] = result.LockedUntil.UTC().Format(time.RFC3339)
		}
		h.recordAudit(c, nil, "auth.login", req.Username, "failure")
		response.ErrorWithDetails(c, appErrors.ErrInvalidCredentials, details)
		return
	}

	user := result.User

	if user.MFARequired {
		if ok := h.verifyMFA(c, user, req.MFACode); !ok {
			return
		}
	}

	pair, err := h.issueTokens(user, result.Roles)
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	h.setRefreshCookie(c, pair.refresh)
	h.recordAudit(c, &user.ID, "auth.login", user.Username, "success")

	perms, err := h.checker.UserPermissions(requestContext(c), user.ID)
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"access_token": pair.access,
		"token_type":   "Bearer",
		"expires_in":   int(h.tokens.AccessTTL().Seconds()),
		"user":         userPayload(user, perms),
	})
}

// POST /api/v1/auth/refresh
//
// The refresh token is accepted from the scoped cookie only. Tokens sent in
// the request body or the Authorization header are ignored.
func (h *AuthHandler) Refresh(c *gin.Context) {
	raw, err := c.Cookie(RefreshCookieName)
	if err != nil || raw == "" {
		metrics.TokenRefreshes.WithLabelValues("failure").Inc()
		response.Error(c, appErrors.ErrTokenInvalid)
		return
	}

	claims, err := h.tokens.ValidateRefreshToken(raw)
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("failure").Inc()
		response.Error(c, appErrors.ErrTokenInvalid)
		return
	}

	userID, err := claims.UserID()
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("failure").Inc()
		response.Error(c, appErrors.ErrTokenInvalid)
		return
	}

	// Roles are reloaded from the database so the new pair reflects
	// assignments made after the previous login.
	var user models.User
	err = h.db.WithContext(requestContext(c)).Preload("Roles").First(&user, userID).Error
	if err != nil || !user.IsActive {
		metrics.TokenRefreshes.WithLabelValues("failure").Inc()
		response.Error(c, appErrors.ErrTokenInvalid)
		return
	}

	pair, err := h.issueTokens(&user, user.RoleKeys())
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("failure").Inc()
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	metrics.TokenRefreshes.WithLabelValues("success").Inc()
	h.setRefreshCookie(c, pair.refresh)

	response.Success(c, http.StatusOK, gin.H{
		"access_token": pair.access,
		"token_type":   "Bearer",
		"expires_in":   int(h.tokens.AccessTTL().Seconds()),
	})
}

// POST /api/v1/auth/logout
//
// Mounted without the auth middleware: clearing the cookie must succeed even
// when the access token is missing or expired. The audit entry is recorded
// only when a valid token happens to accompany the request.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.clearRefreshCookie(c)

	if userID, ok := h.callerID(c); ok {
		h.recordAudit(c, &userID, "auth.logout", "", "success")
	}

	c.Status(http.StatusNoContent)
}

// callerID resolves the acting user from the middleware context or, failing
// that, from a bearer token on the raw request.
func (h *AuthHandler) callerID(c *gin.Context) (uint, bool) {
	if userID, ok := middleware.UserIDFromContext(c); ok {
		return userID, true
	}

	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return 0, false
	}

	claims, err := h.tokens.ValidateAccessToken(header[len(prefix):])
	if err != nil {
		return 0, false
	}
	userID, err := claims.UserID()
	if err != nil {
		return 0, false
	}
	return userID, true
}

// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var user models.User
	if err := h.db.WithContext(requestContext(c)).Preload("Roles").First(&user, userID).Error; err != nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}

	perms, err := h.checker.UserPermissions(requestContext(c), user.ID)
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Success(c, http.StatusOK, userPayload(&user, perms))
}

func (h *AuthHandler) verifyMFA(c *gin.Context, user *models.User, code string) bool {
	if h.totp == nil {
		// MFA is not configured on this deployment; the flag stays advisory.
		return true
	}

	enrolled, err := h.totp.Enrolled(user.ID)
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return false
	}
	if !enrolled {
		return true
	}

	if code == "" {
		response.Error(c, appErrors.ErrMFARequired)
		return false
	}

	valid, err := h.totp.VerifyCode(user.ID, code)
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return false
	}
	if !valid {
		h.recordAudit(c, &user.ID, "auth.mfa", user.Username, "failure")
		response.Error(c, appErrors.ErrMFAInvalid)
		return false
	}

	return true
}

type tokenPair struct {
	access  string
	refresh string
}

func (h *AuthHandler) issueTokens(user *models.User, roles []string) (tokenPair, error) {
	input := iauth.TokenInput{
		UserID:   user.ID,
		Username: user.Username,
		Roles:    roles,
	}

	access, err := h.tokens.GenerateAccessToken(input)
	if err != nil {
		return tokenPair{}, err
	}

	refresh, err := h.tokens.GenerateRefreshToken(input)
	if err != nil {
		return tokenPair{}, err
	}

	return tokenPair{access: access, refresh: refresh}, nil
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(RefreshCookieName, token, int(h.tokens.RefreshTTL().Seconds()), RefreshCookiePath, "", h.secureCookie, true)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(RefreshCookieName, "", -1, RefreshCookiePath, "", h.secureCookie, true)
}

func (h *AuthHandler) recordAudit(c *gin.Context, userID *uint, action, resource, result string) {
	if h.audit == nil {
		return
	}
	_ = h.audit.Record(requestContext(c), services.AuditEntry{
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		Result:    result,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
}

func userPayload(user *models.User, perms []string) gin.H {
	return gin.H{
		"id":           user.ID,
		"username":     user.Username,
		"email":        user.Email,
		"is_active":    user.IsActive,
		"mfa_required": user.MFARequired,
		"roles":        user.RoleKeys(),
		"permissions":  perms,
	}
}
