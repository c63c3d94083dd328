package models

import "time"

// User is an account that owns items and receives notifications. Staff users
// manage the city/building catalog and may edit, move or delete any item.
type User struct {
	BaseModel

	Username string `gorm:"type:varchar(150);uniqueIndex;not null" json:"username"`
	Email    string `gorm:"type:varchar(254);not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	IsStaff  bool `json:"is_staff"`
	IsActive bool `json:"is_active"`

	LastLoginAt *time.Time `json:"last_login_at"`

	NotificationSettings *NotificationSettings `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
