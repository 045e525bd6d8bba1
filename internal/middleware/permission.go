package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/dicri-gt/dicri-backend/internal/permissions"
	"github.com/dicri-gt/dicri-backend/pkg/errors"
	"github.com/dicri-gt/dicri-backend/pkg/metrics"
	"github.com/dicri-gt/dicri-backend/pkg/response"
)

// RequireAnyPermission checks that the authenticated user holds at least one
// of the given permission keys. Permissions are resolved live from the
// database, so a revocation denies access before the access token expires.
func RequireAnyPermission(checker *permissions.Checker, keys ...string) gin.HandlerFunc {
	if len(keys) == 0 {
		return func(c *gin.Context) {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
		}
	}
	label := keys[0]

	return func(c *gin.Context) {
		userID, ok := UserIDFromContext(c)
		if !ok {
			response.Error(c, errors.ErrTokenInvalid)
			c.Abort()
			return
		}

		allowed, err := checker.HasAny(c.Request.Context(), userID, keys...)
		if err != nil {
			metrics.PermissionChecks.WithLabelValues(label, "error").Inc()
			response.Error(c, errors.ErrInternalServer.WithInternal(err))
			c.Abort()
			return
		}
		if !allowed {
			metrics.PermissionChecks.WithLabelValues(label, "denied").Inc()
			response.ErrorWithDetails(c, errors.ErrForbidden, map[string]any{
				"required": keys,
			})
			c.Abort()
			return
		}

		metrics.PermissionChecks.WithLabelValues(label, "allowed").Inc()
		c.Next()
	}
}

// RequireRoles checks that the token carries at least one of the given role
// keys. Unlike RequireAnyPermission this reads the claims only, without a
// database round trip.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFromContext(c)
		if !ok {
			response.Error(c, errors.ErrTokenInvalid)
			c.Abort()
			return
		}

		for _, role := range roles {
			if claims.HasRole(role) {
				c.Next()
				return
			}
		}

		response.ErrorWithDetails(c, errors.ErrForbidden, map[string]any{
			"required_roles": roles,
		})
		c.Abort()
	}
}
