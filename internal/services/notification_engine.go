package services

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/inventra/internal/models"
	"github.com/charlesng35/inventra/internal/realtime"
	"github.com/charlesng35/inventra/pkg/logger"
	"github.com/charlesng35/inventra/pkg/metrics"
)

// Stock alert levels rendered in low stock titles.
const (
	StockLevelLow      = "LOW"
	StockLevelCritical = "CRITICAL"
)

// EventPublisher pushes user-scoped events to connected clients.
type EventPublisher interface {
	BroadcastToUser(stream, userID string, message realtime.Message)
}

// NotificationEngine holds the rules that turn domain writes into
// notifications. Every rule runs on the caller's transaction so a rolled back
// write leaves no notification behind. Rules return the rows they inserted;
// callers hand them to Publish once the transaction has committed.
type NotificationEngine struct {
	publisher EventPublisher
	defaults  SettingsDefaults
	log       *zap.Logger
}

// NewNotificationEngine constructs the rule set. publisher may be nil.
func NewNotificationEngine(publisher EventPublisher, defaults SettingsDefaults) *NotificationEngine {
	return &NotificationEngine{
		publisher: publisher,
		defaults:  defaults,
		log:       logger.WithModule("notifications"),
	}
}

// ItemUpdated raises a low stock alert when quantity sits in
// (0, low_stock_threshold] and the owner has no unread alert for the item.
// It must not be called for newly created items.
func (e *NotificationEngine) ItemUpdated(tx *gorm.DB, item *models.Item) (*models.Notification, error) {
	settings, err := loadOrCreateSettings(tx, item.OwnerID, e.defaults)
	if err != nil {
		return nil, err
	}
	if !settings.EnableLowStockAlerts {
		return nil, nil
	}
	if item.Quantity <= 0 || item.Quantity > settings.LowStockThreshold {
		return nil, nil
	}

	exists, err := notificationExists(tx, "user_id = ? AND item_id = ? AND type = ? AND is_read = ?",
		item.OwnerID, item.ID, models.NotificationLowStock, false)
	if err != nil || exists {
		return nil, err
	}

	level := StockLevelLow
	if item.Quantity <= settings.CriticalStockThreshold {
		level = StockLevelCritical
	}

	return e.insert(tx, models.Notification{
		UserID:  item.OwnerID,
		Type:    models.NotificationLowStock,
		Title:   fmt.Sprintf("%s Stock Alert: %s", level, item.Name),
		Message: fmt.Sprintf("Item \"%s\" (SKU: %s) has only %d units remaining in stock.", item.Name, item.SKU, item.Quantity),
		ItemID:  stringPtr(item.ID),
	}, map[string]any{
		"level":     level,
		"quantity":  item.Quantity,
		"threshold": settings.LowStockThreshold,
	})
}

// DeliveryCreated notifies the delivery's creator.
func (e *NotificationEngine) DeliveryCreated(tx *gorm.DB, delivery *models.Delivery, item *models.Item) (*models.Notification, error) {
	user, settings, err := e.deliveryRecipient(tx, delivery)
	if err != nil || user == nil || !settings.EnableDeliveryAlerts {
		return nil, err
	}

	return e.insert(tx, models.Notification{
		UserID:     user.ID,
		Type:       models.NotificationDeliveryCreated,
		Title:      fmt.Sprintf("Delivery Created: %s", item.Name),
		Message:    fmt.Sprintf("Delivery #%s created for %d units of \"%s\" from %s.", delivery.ID, delivery.Quantity, item.Name, delivery.FromCity),
		ItemID:     stringPtr(item.ID),
		DeliveryID: stringPtr(delivery.ID),
	}, map[string]any{
		"quantity":  delivery.Quantity,
		"from_city": delivery.FromCity,
		"status":    delivery.Status,
	})
}

// DeliveryStatusChanged notifies once per delivery when it reaches finished
// or cancelled. Any other status is ignored.
func (e *NotificationEngine) DeliveryStatusChanged(tx *gorm.DB, delivery *models.Delivery, item *models.Item) (*models.Notification, error) {
	var kind, title, message string
	switch delivery.Status {
	case models.DeliveryStatusFinished:
		kind = models.NotificationDeliveryFinished
		title = fmt.Sprintf("Delivery Completed: %s", item.Name)
		message = fmt.Sprintf("Delivery #%s of %d units of \"%s\" has been successfully completed.", delivery.ID, delivery.Quantity, item.Name)
	case models.DeliveryStatusCancelled:
		kind = models.NotificationDeliveryCancelled
		title = fmt.Sprintf("Delivery Cancelled: %s", item.Name)
		message = fmt.Sprintf("Delivery #%s of %d units of \"%s\" has been cancelled. Stock has been restored.", delivery.ID, delivery.Quantity, item.Name)
	default:
		return nil, nil
	}

	user, settings, err := e.deliveryRecipient(tx, delivery)
	if err != nil || user == nil || !settings.EnableDeliveryAlerts {
		return nil, err
	}

	exists, err := notificationExists(tx, "user_id = ? AND delivery_id = ? AND type = ?", user.ID, delivery.ID, kind)
	if err != nil || exists {
		return nil, err
	}

	return e.insert(tx, models.Notification{
		UserID:     user.ID,
		Type:       kind,
		Title:      title,
		Message:    message,
		ItemID:     stringPtr(item.ID),
		DeliveryID: stringPtr(delivery.ID),
	}, map[string]any{
		"quantity": delivery.Quantity,
		"status":   delivery.Status,
	})
}

// ItemMoved notifies the item's owner about a recorded move.
func (e *NotificationEngine) ItemMoved(tx *gorm.DB, move *models.MoveRequest, item *models.Item) (*models.Notification, error) {
	settings, err := loadOrCreateSettings(tx, item.OwnerID, e.defaults)
	if err != nil {
		return nil, err
	}
	if !settings.EnableMoveAlerts {
		return nil, nil
	}

	return e.insert(tx, models.Notification{
		UserID: item.OwnerID,
		Type:   models.NotificationItemMoved,
		Title:  fmt.Sprintf("Item Moved: %s", item.Name),
		Message: fmt.Sprintf("Item \"%s\" has been moved from %s/%s to %s/%s.",
			item.Name, move.FromCity, move.FromBuilding, move.ToCity, move.ToBuilding),
		ItemID: stringPtr(item.ID),
	}, map[string]any{
		"move_id":  move.ID,
		"moved_by": move.MovedBy,
		"from":     map[string]string{"city": move.FromCity, "building": move.FromBuilding, "address": move.FromAddress},
		"to":       map[string]string{"city": move.ToCity, "building": move.ToBuilding, "address": move.ToAddress},
	})
}

// Publish broadcasts committed notifications. Nil entries are skipped.
func (e *NotificationEngine) Publish(created ...*models.Notification) {
	for _, n := range created {
		if n == nil {
			continue
		}
		metrics.NotificationsCreated.WithLabelValues(n.Type).Inc()
		if e.publisher == nil {
			continue
		}
		dto := mapNotification(*n)
		e.publisher.BroadcastToUser(realtime.StreamNotifications, n.UserID, realtime.Message{
			Event: "notification.created",
			Data:  &NotificationEventPayload{Notification: &dto},
		})
	}
}

// deliveryRecipient resolves the creator by username. A missing user yields
// (nil, nil, nil): the rule is skipped without failing the surrounding write.
func (e *NotificationEngine) deliveryRecipient(tx *gorm.DB, delivery *models.Delivery) (*models.User, *models.NotificationSettings, error) {
	var user models.User
	err := tx.Where("username = ?", delivery.CreatedBy).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		e.log.Debug("delivery creator not found, skipping notification",
			zap.String("delivery_id", delivery.ID),
			zap.String("created_by", delivery.CreatedBy))
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("notification engine: load delivery creator: %w", err)
	}

	settings, err := loadOrCreateSettings(tx, user.ID, e.defaults)
	if err != nil {
		return nil, nil, err
	}
	return &user, settings, nil
}

func (e *NotificationEngine) insert(tx *gorm.DB, n models.Notification, metadata map[string]any) (*models.Notification, error) {
	if metadata != nil {
		data, err := json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("notification engine: marshal metadata: %w", err)
		}
		n.Metadata = datatypes.JSON(data)
	}
	if err := tx.Create(&n).Error; err != nil {
		return nil, fmt.Errorf("notification engine: create %s notification: %w", n.Type, err)
	}
	e.log.Debug("notification created",
		zap.String("type", n.Type),
		zap.String("user_id", n.UserID))
	return &n, nil
}

func notificationExists(tx *gorm.DB, query string, args ...any) (bool, error) {
	var count int64
	if err := tx.Model(&models.Notification{}).Where(query, args...).Limit(1).Count(&count).Error; err != nil {
		return false, fmt.Errorf("notification engine: check existing notification: %w", err)
	}
	return count > 0, nil
}
