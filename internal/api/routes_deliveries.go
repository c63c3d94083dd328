package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/inventra/internal/handlers"
)

func registerDeliveryRoutes(api *gin.RouterGroup, handler *handlers.DeliveryHandler, items *handlers.ItemHandler) {
	group := api.Group("/deliveries")
	{
		group.GET("", handler.List)
		group.POST("", handler.Create)
		group.GET("/items", items.Deliverable)
		group.GET("/:id", handler.Get)
		group.PATCH("/:id", handler.Update)
		group.POST("/:id/cancel", handler.Cancel)
	}
}
