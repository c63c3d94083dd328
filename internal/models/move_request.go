package models

import "time"

// MoveRequest is an append-only record of one item relocation.
type MoveRequest struct {
	BaseModel

	ItemID string `gorm:"type:uuid;not null;index" json:"item_id"`
	Item   *Item  `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE" json:"-"`

	FromCity     string `gorm:"type:varchar(100)" json:"from_city"`
	FromBuilding string `gorm:"type:varchar(100)" json:"from_building"`
	FromAddress  string `gorm:"type:varchar(255)" json:"from_address"`
	ToCity       string `gorm:"type:varchar(100)" json:"to_city"`
	ToBuilding   string `gorm:"type:varchar(100)" json:"to_building"`
	ToAddress    string `gorm:"type:varchar(255)" json:"to_address"`

	MovedBy string    `gorm:"type:varchar(150);not null" json:"moved_by"`
	MovedAt time.Time `gorm:"index" json:"moved_at"`
}
