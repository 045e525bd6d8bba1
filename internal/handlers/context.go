package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/dicri-gt/dicri-backend/internal/middleware"
	"github.com/dicri-gt/dicri-backend/pkg/errors"
	"github.com/dicri-gt/dicri-backend/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// currentUserID returns the authenticated user id, writing a 401 when absent.
func currentUserID(c *gin.Context) (uint, bool) {
	id, ok := middleware.UserIDFromContext(c)
	if !ok {
		response.Error(c, errors.ErrTokenInvalid)
		c.Abort()
		return 0, false
	}
	return id, true
}
