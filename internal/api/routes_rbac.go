package api

import (
	"github.com/gin-gonic/gin"

	"github.com/dicri-gt/dicri-backend/internal/handlers"
	"github.com/dicri-gt/dicri-backend/internal/middleware"
	"github.com/dicri-gt/dicri-backend/internal/permissions"
	"github.com/dicri-gt/dicri-backend/internal/services"
)

func registerRBACRoutes(api *gin.RouterGroup, requireAuth gin.HandlerFunc, deps Deps, checker *permissions.Checker) error {
	rbacService, err := services.NewRBACService(deps.DB, checker, deps.Audit)
	if err != nil {
		return err
	}
	rbacHandler, err := handlers.NewRBACHandler(rbacService)
	if err != nil {
		return err
	}

	rbac := api.Group("/rbac")
	rbac.Use(requireAuth)
	{
		rbac.GET("/roles", middleware.RequireAnyPermission(checker, "roles.read", "roles.write"), rbacHandler.ListRoles)
		rbac.GET("/permissions", middleware.RequireAnyPermission(checker, "perms.read", "perms.write"), rbacHandler.ListPermissions)
		rbac.POST("/grant", middleware.RequireAnyPermission(checker, "perms.write"), rbacHandler.Grant)
		rbac.POST("/revoke", middleware.RequireAnyPermission(checker, "perms.write"), rbacHandler.Revoke)

		// Any authenticated caller may inspect their own effective set.
		rbac.GET("/me/permissions", rbacHandler.MyPermissions)
	}

	return nil
}
