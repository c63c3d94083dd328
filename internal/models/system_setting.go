package models

import "time"

// SystemSetting persists installation-wide values that should survive
// restarts, such as the generated token signing secret.
type SystemSetting struct {
	Key       string    `gorm:"primaryKey;type:varchar(128)" json:"key"`
	Value     string    `gorm:"not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
