package models

import "strings"

// DefaultCountry closes every rendered address.
const DefaultCountry = "Romania"

// Item is a stock record owned by one user. BuildingRefID is the authoritative
// location; City, Building, Address, Lat and Lng are a snapshot of that
// building taken whenever the reference is written. Items created before the
// catalog existed carry only the text fields.
type Item struct {
	BaseModel

	OwnerID  string `gorm:"type:uuid;not null;uniqueIndex:idx_items_owner_sku" json:"owner_id"`
	Owner    *User  `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
	Name     string `gorm:"type:varchar(100);not null" json:"name"`
	SKU      string `gorm:"column:sku;type:varchar(100);not null;uniqueIndex:idx_items_owner_sku" json:"sku"`
	Quantity int    `gorm:"not null" json:"quantity"`

	City     string   `gorm:"type:varchar(100);index" json:"city"`
	Building string   `gorm:"type:varchar(100)" json:"building"`
	Address  string   `gorm:"type:varchar(255)" json:"address"`
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`

	BuildingRefID *string   `gorm:"type:uuid;index" json:"building_ref_id"`
	BuildingRef   *Building `gorm:"foreignKey:BuildingRefID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

// MirrorBuilding points the item at b and refreshes the location snapshot.
// b.City must be loaded.
func (i *Item) MirrorBuilding(b *Building) {
	id := b.ID
	i.BuildingRefID = &id
	i.BuildingRef = b
	if b.City != nil {
		i.City = b.City.Name
	}
	i.Building = b.Name
	i.Address = b.Address
	i.Lat = copyFloat(b.Lat)
	i.Lng = copyFloat(b.Lng)
}

// CityDisplay prefers the referenced building's city over the snapshot.
func (i Item) CityDisplay() string {
	if i.BuildingRef != nil && i.BuildingRef.City != nil {
		return i.BuildingRef.City.Name
	}
	return i.City
}

// BuildingDisplay prefers the referenced building's name over the snapshot.
func (i Item) BuildingDisplay() string {
	if i.BuildingRef != nil {
		return i.BuildingRef.Name
	}
	return i.Building
}

// FullAddress renders "address, building, city, Romania" skipping blanks.
func (i Item) FullAddress() string {
	var parts []string
	if b := i.BuildingRef; b != nil {
		parts = []string{b.Address, b.Name}
		if b.City != nil {
			parts = append(parts, b.City.Name)
		}
	} else {
		parts = []string{i.Address, i.Building, i.City}
	}
	parts = append(parts, DefaultCountry)

	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}

// HasCoordinates reports whether the snapshot carries a map position.
func (i Item) HasCoordinates() bool {
	return i.Lat != nil && i.Lng != nil
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
