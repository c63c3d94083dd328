package models

// City is a canonical location. Name always holds the normalised form so the
// unique index doubles as a diacritic and case insensitive lookup key.
type City struct {
	BaseModel

	Name string `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`

	Buildings []Building `gorm:"foreignKey:CityID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"buildings,omitempty"`
}
