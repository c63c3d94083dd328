package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/inventra/internal/handlers"
)

func registerNotificationRoutes(api *gin.RouterGroup, handler *handlers.NotificationHandler) {
	group := api.Group("/notifications")
	{
		group.GET("", handler.List)
		group.GET("/summary", handler.Summary)
		group.POST("/read-all", handler.MarkAllRead)
		group.POST("/clear-read", handler.ClearRead)
		group.GET("/settings", handler.GetSettings)
		group.PUT("/settings", handler.UpdateSettings)
		group.POST("/:id/read", handler.MarkRead)
		group.POST("/:id/unread", handler.MarkUnread)
		group.DELETE("/:id", handler.Delete)
	}
}
