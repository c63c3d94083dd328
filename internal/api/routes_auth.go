package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/inventra/internal/app"
	"github.com/charlesng35/inventra/internal/handlers"
	"github.com/charlesng35/inventra/internal/middleware"
)

func registerAuthRoutes(r *gin.Engine, handler *handlers.AuthHandler, limit app.RateLimitConfig) {
	group := r.Group("/api/auth")
	group.Use(middleware.RateLimit(limit.Requests, limit.Window))
	{
		group.POST("/register", handler.Register)
		group.POST("/login", handler.Login)
	}
}
