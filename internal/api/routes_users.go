package api

import (
	"github.com/gin-gonic/gin"

	"github.com/dicri-gt/dicri-backend/internal/handlers"
	"github.com/dicri-gt/dicri-backend/internal/middleware"
	"github.com/dicri-gt/dicri-backend/internal/permissions"
	"github.com/dicri-gt/dicri-backend/internal/services"
)

func registerUserRoutes(api *gin.RouterGroup, requireAuth gin.HandlerFunc, deps Deps, checker *permissions.Checker) error {
	userService, err := services.NewUserService(deps.DB, deps.Audit)
	if err != nil {
		return err
	}
	userHandler, err := handlers.NewUserHandler(userService)
	if err != nil {
		return err
	}

	users := api.Group("/users")
	users.Use(requireAuth)
	{
		users.GET("", middleware.RequireAnyPermission(checker, "users.read"), userHandler.List)
		users.GET("/:id", middleware.RequireAnyPermission(checker, "users.read"), userHandler.Get)
		users.POST("", middleware.RequireAnyPermission(checker, "users.write"), userHandler.Create)
		users.PUT("/:id", middleware.RequireAnyPermission(checker, "users.write"), userHandler.Update)
		users.PUT("/:id/password", middleware.RequireAnyPermission(checker, "users.write"), userHandler.SetPassword)
		users.DELETE("/:id", middleware.RequireAnyPermission(checker, "users.write"), userHandler.Disable)
	}

	return nil
}
