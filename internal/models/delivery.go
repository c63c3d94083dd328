package models

import "time"

// Delivery statuses. Finished and cancelled are terminal.
const (
	DeliveryStatusInProgress = "in_progress"
	DeliveryStatusFinished   = "finished"
	DeliveryStatusCancelled  = "cancelled"
)

// DeliveryStatuses lists every valid status in display order.
var DeliveryStatuses = []string{DeliveryStatusInProgress, DeliveryStatusFinished, DeliveryStatusCancelled}

// Delivery splits Quantity units off an item. The origin is snapshotted from
// the item at creation; the destination may be filled in later.
type Delivery struct {
	BaseModel

	ItemID   string `gorm:"type:uuid;not null;index" json:"item_id"`
	Item     *Item  `gorm:"foreignKey:ItemID;constraint:OnDelete:RESTRICT" json:"item,omitempty"`
	Quantity int    `gorm:"not null" json:"quantity"`
	Status   string `gorm:"type:varchar(20);not null;index" json:"status"`

	FromCity     string `gorm:"type:varchar(100)" json:"from_city"`
	FromBuilding string `gorm:"type:varchar(100)" json:"from_building"`
	FromAddress  string `gorm:"type:varchar(255)" json:"from_address"`
	ToCity       string `gorm:"type:varchar(100)" json:"to_city"`
	ToBuilding   string `gorm:"type:varchar(100)" json:"to_building"`
	ToAddress    string `gorm:"type:varchar(255)" json:"to_address"`

	// CreatedBy holds the creator's username.
	CreatedBy  string     `gorm:"type:varchar(150);not null;index" json:"created_by"`
	FinishedAt *time.Time `json:"finished_at"`
}

// IsTerminal reports whether no further transition is allowed.
func (d Delivery) IsTerminal() bool {
	return d.Status == DeliveryStatusFinished || d.Status == DeliveryStatusCancelled
}

// ValidDeliveryStatus reports whether status is a known delivery status.
func ValidDeliveryStatus(status string) bool {
	for _, s := range DeliveryStatuses {
		if s == status {
			return true
		}
	}
	return false
}
