package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/inventra/internal/handlers"
	"github.com/charlesng35/inventra/internal/middleware"
)

func registerAdminRoutes(api *gin.RouterGroup, handler *handlers.AdminHandler) {
	group := api.Group("/admin")
	group.Use(middleware.RequireStaff())
	{
		group.GET("/inventory", handler.Overview)
		group.POST("/inventory", handler.Action)

		group.POST("/cities", handler.CreateCity)
		group.POST("/cities/merge", handler.MergeCities)
		group.DELETE("/cities/:id", handler.DeleteCity)
		group.POST("/cities/:id/buildings", handler.CreateBuilding)
		group.DELETE("/buildings/:id", handler.DeleteBuilding)
	}
}
