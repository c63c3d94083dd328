package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/inventra/internal/middleware"
	"github.com/charlesng35/inventra/internal/services"
	"github.com/charlesng35/inventra/pkg/errors"
	"github.com/charlesng35/inventra/pkg/response"
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

// actorFromContext reads the authenticated identity set by middleware.Auth.
// It writes a 401 and returns false when the request is anonymous.
func actorFromContext(c *gin.Context) (services.Actor, bool) {
	actor := services.Actor{
		UserID:   c.GetString(middleware.CtxUserIDKey),
		Username: c.GetString(middleware.CtxUsernameKey),
		IsStaff:  c.GetBool(middleware.CtxIsStaffKey),
	}
	if actor.UserID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return services.Actor{}, false
	}
	return actor, true
}
