package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification types.
const (
	NotificationLowStock          = "low_stock"
	NotificationDeliveryUpdate    = "delivery_update"
	NotificationItemMoved         = "item_moved"
	NotificationDeliveryCreated   = "delivery_created"
	NotificationDeliveryFinished  = "delivery_finished"
	NotificationDeliveryCancelled = "delivery_cancelled"
)

// NotificationTypes pairs every type with its display label.
var NotificationTypes = []struct {
	Value string `json:"value"`
	Label string `json:"label"`
}{
	{NotificationLowStock, "Low Stock Alert"},
	{NotificationDeliveryUpdate, "Delivery Update"},
	{NotificationItemMoved, "Item Moved"},
	{NotificationDeliveryCreated, "Delivery Created"},
	{NotificationDeliveryFinished, "Delivery Finished"},
	{NotificationDeliveryCancelled, "Delivery Cancelled"},
}

// Notification represents an in-app notification for a user.
type Notification struct {
	BaseModel

	UserID     string         `gorm:"type:uuid;not null;index:idx_notifications_user_read" json:"user_id"`
	User       *User          `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Type       string         `gorm:"type:varchar(30);not null;index" json:"type"`
	Title      string         `gorm:"type:varchar(200);not null" json:"title"`
	Message    string         `gorm:"type:text" json:"message"`
	ItemID     *string        `gorm:"type:uuid;index" json:"item_id"`
	DeliveryID *string        `gorm:"type:uuid;index" json:"delivery_id"`
	Metadata   datatypes.JSON `json:"metadata"`

	IsRead bool       `gorm:"not null;index:idx_notifications_user_read" json:"is_read"`
	ReadAt *time.Time `json:"read_at"`
}

// ValidNotificationType reports whether t is a known notification type.
func ValidNotificationType(t string) bool {
	for _, nt := range NotificationTypes {
		if nt.Value == t {
			return true
		}
	}
	return false
}
