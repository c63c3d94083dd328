package models

// Building belongs to exactly one city and is unique by (city, name).
type Building struct {
	BaseModel

	CityID  string   `gorm:"type:uuid;not null;uniqueIndex:idx_buildings_city_name" json:"city_id"`
	City    *City    `gorm:"foreignKey:CityID" json:"city,omitempty"`
	Name    string   `gorm:"type:varchar(100);not null;uniqueIndex:idx_buildings_city_name" json:"name"`
	Address string   `gorm:"type:varchar(255)" json:"address"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
}

// HasCoordinates reports whether both latitude and longitude are set.
func (b Building) HasCoordinates() bool {
	return b.Lat != nil && b.Lng != nil
}
