package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/inventra/internal/models"
	"github.com/charlesng35/inventra/internal/realtime"
	apperrors "github.com/charlesng35/inventra/pkg/errors"
)

// Notification listing defaults.
const (
	DefaultNotificationPageSize = 20
	MaxNotificationPageSize     = 100
	RecentUnreadLimit           = 5
	LowStockSummaryLimit        = 10
	// LowStockSummaryThreshold is the fixed quantity below which items are
	// surfaced in the summary and drawn red on maps.
	LowStockSummaryThreshold = 10
)

// NotificationDTO represents the API-friendly notification payload.
type NotificationDTO struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	ItemID     *string        `json:"item_id,omitempty"`
	DeliveryID *string        `json:"delivery_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	IsRead     bool           `json:"is_read"`
	CreatedAt  time.Time      `json:"created_at"`
	ReadAt     *time.Time     `json:"read_at,omitempty"`
}

// ListNotificationsInput defines filters for querying user notifications.
type ListNotificationsInput struct {
	UserID string
	Status string // "read", "unread" or empty
	Type   string
	Limit  int
	Offset int
}

// NotificationCounts summarises the filtered set plus the user's global unread count.
type NotificationCounts struct {
	Total        int64 `json:"total"`
	Unread       int64 `json:"unread"`
	Read         int64 `json:"read"`
	GlobalUnread int64 `json:"global_unread"`
}

// NotificationPage is one page of notifications with counters.
type NotificationPage struct {
	Notifications []NotificationDTO  `json:"notifications"`
	Counts        NotificationCounts `json:"counts"`
	Limit         int                `json:"limit"`
	Offset        int                `json:"offset"`
}

// NotificationSummary feeds the unread badge and the low stock sidebar.
type NotificationSummary struct {
	UnreadCount   int64             `json:"unread_count"`
	RecentUnread  []NotificationDTO `json:"recent_unread"`
	LowStockItems []ItemDTO         `json:"low_stock_items"`
}

// ReadResult reports a mark-read outcome and where a client should navigate.
type ReadResult struct {
	Notification NotificationDTO `json:"notification"`
	WasUnread    bool            `json:"was_unread"`
	Redirect     Redirect        `json:"redirect"`
}

// Redirect names the resource related to a notification.
type Redirect struct {
	Kind string `json:"kind"` // item, delivery or notifications
	ID   string `json:"id,omitempty"`
}

// NotificationEventPayload represents data sent to realtime consumers.
type NotificationEventPayload struct {
	Notification   *NotificationDTO `json:"notification,omitempty"`
	NotificationID string           `json:"notification_id,omitempty"`
	Count          int64            `json:"count,omitempty"`
}

// NotificationService manages read state of user notifications. Creating
// notifications is the NotificationEngine's job.
type NotificationService struct {
	db       *gorm.DB
	hub      EventPublisher
	settings *SettingsService
	now      func() time.Time
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(db *gorm.DB, hub EventPublisher, settings *SettingsService) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}
	if settings == nil {
		var err error
		if settings, err = NewSettingsService(db, SettingsDefaults{}); err != nil {
			return nil, err
		}
	}
	return &NotificationService{
		db:       db,
		hub:      hub,
		settings: settings,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// List returns a filtered page ordered newest first. When the user enabled
// auto_mark_read, unread rows on the returned page are marked read after
// they have been read out, so the caller still sees them as new.
func (s *NotificationService) List(ctx context.Context, input ListNotificationsInput) (*NotificationPage, error) {
	ctx = ensureContext(ctx)
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, errors.New("notification service: user id is required")
	}

	status := strings.ToLower(strings.TrimSpace(input.Status))
	if status != "" && status != "read" && status != "unread" {
		return nil, apperrors.NewValidation("status", "Status must be read or unread.")
	}
	kind := strings.TrimSpace(input.Type)
	if kind != "" && !models.ValidNotificationType(kind) {
		return nil, apperrors.NewValidation("type", "Unknown notification type.")
	}

	limit := clampLimit(input.Limit, DefaultNotificationPageSize, MaxNotificationPageSize)
	offset := max(0, input.Offset)

	filtered := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
		switch status {
		case "read":
			q = q.Where("is_read = ?", true)
		case "unread":
			q = q.Where("is_read = ?", false)
		}
		if kind != "" {
			q = q.Where("type = ?", kind)
		}
		return q
	}

	var rows []models.Notification
	if err := filtered().
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("notification service: list notifications: %w", err)
	}

	page := &NotificationPage{
		Notifications: mapNotificationRows(rows),
		Limit:         limit,
		Offset:        offset,
	}
	if err := filtered().Count(&page.Counts.Total).Error; err != nil {
		return nil, fmt.Errorf("notification service: count notifications: %w", err)
	}
	if err := filtered().Where("is_read = ?", false).Count(&page.Counts.Unread).Error; err != nil {
		return nil, fmt.Errorf("notification service: count unread: %w", err)
	}
	page.Counts.Read = page.Counts.Total - page.Counts.Unread
	if err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&page.Counts.GlobalUnread).Error; err != nil {
		return nil, fmt.Errorf("notification service: count global unread: %w", err)
	}

	if err := s.autoMarkRead(ctx, userID, rows); err != nil {
		return nil, err
	}
	return page, nil
}

func (s *NotificationService) autoMarkRead(ctx context.Context, userID string, rows []models.Notification) error {
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if !row.IsRead {
			ids = append(ids, row.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	settings, err := s.settings.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !settings.AutoMarkRead {
		return nil
	}

	if err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND id IN ? AND is_read = ?", userID, ids, false).
		Updates(map[string]any{"is_read": true, "read_at": s.now()}).Error; err != nil {
		return fmt.Errorf("notification service: auto mark read: %w", err)
	}
	return nil
}

// Summary returns the unread count, the most recent unread notifications and
// the user's lowest stocked items.
func (s *NotificationService) Summary(ctx context.Context, userID string) (*NotificationSummary, error) {
	ctx = ensureContext(ctx)

	summary := &NotificationSummary{}
	base := s.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ? AND is_read = ?", userID, false)
	if err := base.Count(&summary.UnreadCount).Error; err != nil {
		return nil, fmt.Errorf("notification service: count unread: %w", err)
	}

	var recent []models.Notification
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_read = ?", userID, false).
		Order("created_at DESC").
		Limit(RecentUnreadLimit).
		Find(&recent).Error; err != nil {
		return nil, fmt.Errorf("notification service: recent unread: %w", err)
	}
	summary.RecentUnread = mapNotificationRows(recent)

	var low []models.Item
	if err := s.db.WithContext(ctx).
		Where("owner_id = ? AND quantity < ?", userID, LowStockSummaryThreshold).
		Order("quantity ASC").
		Limit(LowStockSummaryLimit).
		Find(&low).Error; err != nil {
		return nil, fmt.Errorf("notification service: low stock items: %w", err)
	}
	summary.LowStockItems = mapItems(low)
	return summary, nil
}

// MarkRead sets the notification read flag for a user. Marking an already
// read notification keeps its original read_at.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) (*ReadResult, error) {
	ctx = ensureContext(ctx)
	notification, err := s.load(ctx, userID, notificationID)
	if err != nil {
		return nil, err
	}

	result := &ReadResult{WasUnread: !notification.IsRead}
	if !notification.IsRead {
		now := s.now()
		if err := s.db.WithContext(ctx).Model(notification).
			Updates(map[string]any{"is_read": true, "read_at": now}).Error; err != nil {
			return nil, fmt.Errorf("notification service: mark read: %w", err)
		}
		notification.IsRead = true
		notification.ReadAt = &now
	}

	result.Notification = mapNotification(*notification)
	switch {
	case notification.ItemID != nil:
		result.Redirect = Redirect{Kind: "item", ID: *notification.ItemID}
	case notification.DeliveryID != nil:
		result.Redirect = Redirect{Kind: "delivery", ID: *notification.DeliveryID}
	default:
		result.Redirect = Redirect{Kind: "notifications"}
	}

	if result.WasUnread {
		s.broadcast(userID, "notification.read", &NotificationEventPayload{
			Notification:   &result.Notification,
			NotificationID: notification.ID,
		})
	}
	return result, nil
}

// MarkUnread unsets the notification read flag and clears read_at.
func (s *NotificationService) MarkUnread(ctx context.Context, userID, notificationID string) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)
	notification, err := s.load(ctx, userID, notificationID)
	if err != nil {
		return nil, err
	}

	if notification.IsRead {
		if err := s.db.WithContext(ctx).Model(notification).
			Updates(map[string]any{"is_read": false, "read_at": nil}).Error; err != nil {
			return nil, fmt.Errorf("notification service: mark unread: %w", err)
		}
		notification.IsRead = false
		notification.ReadAt = nil
	}

	dto := mapNotification(*notification)
	s.broadcast(userID, "notification.updated", &NotificationEventPayload{
		Notification:   &dto,
		NotificationID: notification.ID,
	})
	return &dto, nil
}

// Delete removes a notification owned by the supplied user.
func (s *NotificationService) Delete(ctx context.Context, userID, notificationID string) error {
	ctx = ensureContext(ctx)
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return fmt.Errorf("notification service: delete notification: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}

	s.broadcast(userID, "notification.deleted", &NotificationEventPayload{
		NotificationID: notificationID,
	})
	return nil
}

// MarkAllRead marks every unread notification of the user as read and
// returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	ctx = ensureContext(ctx)
	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{
			"is_read": true,
			"read_at": s.now(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("notification service: mark all read: %w", result.Error)
	}

	s.broadcast(userID, "notification.read_all", &NotificationEventPayload{Count: result.RowsAffected})
	return result.RowsAffected, nil
}

// ClearRead deletes every read notification of the user. Unread ones stay.
func (s *NotificationService) ClearRead(ctx context.Context, userID string) (int64, error) {
	ctx = ensureContext(ctx)
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND is_read = ?", userID, true).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("notification service: clear read: %w", result.Error)
	}

	s.broadcast(userID, "notification.cleared", &NotificationEventPayload{Count: result.RowsAffected})
	return result.RowsAffected, nil
}

func (s *NotificationService) load(ctx context.Context, userID, notificationID string) (*models.Notification, error) {
	var notification models.Notification
	if err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		First(&notification).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("notification service: load notification: %w", err)
	}
	return &notification, nil
}

func (s *NotificationService) broadcast(userID, event string, payload *NotificationEventPayload) {
	if s.hub == nil {
		return
	}
	message := realtime.Message{Event: event}
	if payload != nil {
		message.Data = payload
	}
	s.hub.BroadcastToUser(realtime.StreamNotifications, userID, message)
}

func mapNotificationRows(rows []models.Notification) []NotificationDTO {
	items := make([]NotificationDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapNotification(row))
	}
	return items
}

func mapNotification(row models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:         row.ID,
		UserID:     row.UserID,
		Type:       row.Type,
		Title:      row.Title,
		Message:    row.Message,
		ItemID:     row.ItemID,
		DeliveryID: row.DeliveryID,
		Metadata:   decodeJSON(row.Metadata),
		IsRead:     row.IsRead,
		CreatedAt:  row.CreatedAt,
		ReadAt:     row.ReadAt,
	}
}

func decodeJSON(data datatypes.JSON) map[string]any {
	if len(data) == 0 {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
