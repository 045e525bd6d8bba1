package api

import (
	"github.com/gin-gonic/gin"

	"github.com/dicri-gt/dicri-backend/internal/handlers"
	"github.com/dicri-gt/dicri-backend/internal/middleware"
	"github.com/dicri-gt/dicri-backend/internal/permissions"
	"github.com/dicri-gt/dicri-backend/internal/services"
)

func registerExpedienteRoutes(api *gin.RouterGroup, requireAuth gin.HandlerFunc, deps Deps, checker *permissions.Checker) error {
	expedienteService, err := services.NewExpedienteService(deps.DB, deps.Audit)
	if err != nil {
		return err
	}
	expedienteHandler, err := handlers.NewExpedienteHandler(expedienteService)
	if err != nil {
		return err
	}

	indicioService, err := services.NewIndicioService(deps.DB, deps.Audit)
	if err != nil {
		return err
	}
	indicioHandler, err := handlers.NewIndicioHandler(indicioService)
	if err != nil {
		return err
	}

	expedientes := api.Group("/expedientes")
	expedientes.Use(requireAuth)
	{
		expedientes.POST("", middleware.RequireAnyPermission(checker, "expediente.create"), expedienteHandler.Create)
		expedientes.GET("", middleware.RequireAnyPermission(checker, "expediente.read", "expediente.update", "expediente.review"), expedienteHandler.List)
		expedientes.GET("/:id", middleware.RequireAnyPermission(checker, "expediente.read", "expediente.update", "expediente.review"), expedienteHandler.Get)
		expedientes.PUT("/:id", middleware.RequireAnyPermission(checker, "expediente.update"), expedienteHandler.Update)
		expedientes.DELETE("/:id", middleware.RequireAnyPermission(checker, "expediente.update", "expediente.review"), expedienteHandler.Delete)

		expedientes.POST("/:id/indicios", middleware.RequireAnyPermission(checker, "indicio.create"), indicioHandler.Create)
		expedientes.GET("/:id/indicios", middleware.RequireAnyPermission(checker, "indicio.read", "expediente.read", "expediente.update", "expediente.review"), indicioHandler.ListByExpediente)
	}

	indicios := api.Group("/indicios")
	indicios.Use(requireAuth)
	{
		indicios.PUT("/:id", middleware.RequireAnyPermission(checker, "indicio.update"), indicioHandler.Update)
		indicios.DELETE("/:id", middleware.RequireAnyPermission(checker, "indicio.update"), indicioHandler.Delete)
	}

	return nil
}
