package models

// Default thresholds applied when settings are provisioned.
const (
	DefaultLowStockThreshold      = 10
	DefaultCriticalStockThreshold = 5
)

// NotificationSettings holds one user's alert thresholds and toggles.
// Boolean columns deliberately carry no SQL default so that false survives
// gorm's zero-value handling on insert.
type NotificationSettings struct {
	BaseModel

	UserID string `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`

	LowStockThreshold      int `gorm:"not null" json:"low_stock_threshold"`
	CriticalStockThreshold int `gorm:"not null" json:"critical_stock_threshold"`

	EnableLowStockAlerts bool `gorm:"not null" json:"enable_low_stock_alerts"`
	EnableDeliveryAlerts bool `gorm:"not null" json:"enable_delivery_alerts"`
	EnableMoveAlerts     bool `gorm:"not null" json:"enable_move_alerts"`
	AutoMarkRead         bool `gorm:"not null" json:"auto_mark_read"`
}

// DefaultNotificationSettings returns the settings a new user starts with.
func DefaultNotificationSettings(userID string) NotificationSettings {
	return NotificationSettings{
		UserID:                 userID,
		LowStockThreshold:      DefaultLowStockThreshold,
		CriticalStockThreshold: DefaultCriticalStockThreshold,
		EnableLowStockAlerts:   true,
		EnableDeliveryAlerts:   true,
		EnableMoveAlerts:       true,
	}
}
