package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/inventra/internal/services"
	"github.com/charlesng35/inventra/pkg/response"
)

// NotificationHandler exposes HTTP endpoints for notifications and their settings.
type NotificationHandler struct {
	service  *services.NotificationService
	settings *services.SettingsService
}

// NewNotificationHandler constructs a notification handler.
func NewNotificationHandler(service *services.NotificationService, settings *services.SettingsService) *NotificationHandler {
	return &NotificationHandler{service: service, settings: settings}
}

// List returns notifications for the current user.
func (h *NotificationHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	page, err := h.service.List(requestContext(c), services.ListNotificationsInput{
		UserID: actor.UserID,
		Status: c.Query("status"),
		Type:   c.Query("type"),
		Limit:  parseIntQuery(c, "limit", services.DefaultNotificationPageSize),
		Offset: parseIntQuery(c, "offset", 0),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, page, response.NewMeta(page.Offset, page.Limit, page.Counts.Total))
}

// Summary returns the unread badge data and low stock items.
func (h *NotificationHandler) Summary(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	summary, err := h.service.Summary(requestContext(c), actor.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, summary)
}

// MarkRead marks a notification read and returns where the client should go next.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	result, err := h.service.MarkRead(requestContext(c), actor.UserID, trimParam(c, "id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// MarkUnread toggles a notification back to unread.
func (h *NotificationHandler) MarkUnread(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	dto, err := h.service.MarkUnread(requestContext(c), actor.UserID, trimParam(c, "id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, dto)
}

// Delete removes a notification.
func (h *NotificationHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	if err := h.service.Delete(requestContext(c), actor.UserID, trimParam(c, "id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// MarkAllRead marks every unread notification of the user read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	count, err := h.service.MarkAllRead(requestContext(c), actor.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"updated": count})
}

// ClearRead deletes the user's read notifications.
func (h *NotificationHandler) ClearRead(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	count, err := h.service.ClearRead(requestContext(c), actor.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": count})
}

// GetSettings returns the user's notification settings.
func (h *NotificationHandler) GetSettings(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	settings, err := h.settings.Get(requestContext(c), actor.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, settings)
}

// UpdateSettings replaces the user's notification settings.
func (h *NotificationHandler) UpdateSettings(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req services.UpdateSettingsInput
	if !bindAndValidate(c, &req) {
		return
	}

	settings, err := h.settings.Update(requestContext(c), actor.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, settings)
}
