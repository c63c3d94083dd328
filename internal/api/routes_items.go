package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/inventra/internal/handlers"
)

func registerItemRoutes(api *gin.RouterGroup, handler *handlers.ItemHandler) {
	group := api.Group("/items")
	{
		group.GET("", handler.List)
		group.POST("", handler.Create)
		group.GET("/export", handler.Export)
		group.GET("/:id", handler.Get)
		group.GET("/:id/history", handler.History)
		group.GET("/:id/qrcode", handler.QRCode)

		// Ownership is not required here; the service restricts these to staff.
		group.PATCH("/:id", handler.Update)
		group.DELETE("/:id", handler.Delete)
		group.POST("/:id/move", handler.Move)
	}

	api.GET("/map", handler.Map)
}

func registerCatalogRoutes(api *gin.RouterGroup, handler *handlers.CatalogHandler) {
	api.GET("/cities", handler.ListCities)
	api.GET("/cities/:id/buildings", handler.ListBuildings)
	api.GET("/buildings/:id/items", handler.BuildingItems)
}
