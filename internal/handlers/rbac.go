package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dicri-gt/dicri-backend/internal/services"
	"github.com/dicri-gt/dicri-backend/pkg/response"
)

// RBACHandler exposes role and permission management.
type RBACHandler struct {
	rbac *services.RBACService
}

func NewRBACHandler(rbac *services.RBACService) (*RBACHandler, error) {
	if rbac == nil {
		return nil, errors.New("handlers: rbac service is required")
	}
	return &RBACHandler{rbac: rbac}, nil
}

// GET /api/v1/rbac/roles
func (h *RBACHandler) ListRoles(c *gin.Context) {
	roles, err := h.rbac.ListRoles(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	views := make([]gin.H, 0, len(roles))
	for _, role := range roles {
		keys := make([]string, 0, len(role.Permissions))
		for _, perm := range role.Permissions {
			keys = append(keys, perm.Key)
		}
		views = append(views, gin.H{
			"id":          role.ID,
			"key":         role.Key,
			"name":        role.Name,
			"description": role.Description,
			"permissions": keys,
		})
	}

	response.Success(c, http.StatusOK, views)
}

// GET /api/v1/rbac/permissions
func (h *RBACHandler) ListPermissions(c *gin.Context) {
	perms, err := h.rbac.ListPermissions(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	views := make([]gin.H, 0, len(perms))
	for _, perm := range perms {
		views = append(views, gin.H{
			"id":          perm.ID,
			"key":         perm.Key,
			"description": perm.Description,
		})
	}

	response.Success(c, http.StatusOK, views)
}

type grantRequest struct {
	Role       string `json:"role" validate:"required"`
	Permission string `json:"permission" validate:"required"`
}

// POST /api/v1/rbac/grant
func (h *RBACHandler) Grant(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req grantRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.rbac.Grant(requestContext(c), req.Role, req.Permission, actorID); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// POST /api/v1/rbac/revoke
func (h *RBACHandler) Revoke(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req grantRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.rbac.Revoke(requestContext(c), req.Role, req.Permission, actorID); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GET /api/v1/rbac/me/permissions
func (h *RBACHandler) MyPermissions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	perms, err := h.rbac.UserPermissions(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"permissions": perms})
}
