package database

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/charlesng35/inventra/internal/models"
	"github.com/charlesng35/inventra/pkg/crypto"
)

// DefaultStaffUsername names the account seeded on first start.
const DefaultStaffUsername = "admin"

// SeedResult reports credentials generated while seeding. StaffPassword is
// only set when a staff account was created by this call.
type SeedResult struct {
	StaffUsername string
	StaffPassword string
}

// Created reports whether seeding created the staff account.
func (r SeedResult) Created() bool {
	return r.StaffPassword != ""
}

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.NotificationSettings{},
		&models.City{},
		&models.Building{},
		&models.Item{},
		&models.MoveRequest{},
		&models.Delivery{},
		&models.Notification{},
		&models.SystemSetting{},
	)
}

// SeedData provisions a staff account when none exists so the catalog can be
// managed on a fresh install.
func SeedData(db *gorm.DB) (SeedResult, error) {
	var staffCount int64
	if err := db.Model(&models.User{}).Where("is_staff = ?", true).Count(&staffCount).Error; err != nil {
		return SeedResult{}, err
	}
	if staffCount > 0 {
		return SeedResult{}, nil
	}

	var existing models.User
	err := db.Where("username = ?", DefaultStaffUsername).Take(&existing).Error
	switch {
	case err == nil:
		return SeedResult{}, fmt.Errorf("user %q exists but is not staff", DefaultStaffUsername)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return SeedResult{}, err
	}

	password, err := crypto.GeneratePassword(16)
	if err != nil {
		return SeedResult{}, err
	}
	hash, err := crypto.HashPassword(password)
	if err != nil {
		return SeedResult{}, err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		user := models.User{
			Username: DefaultStaffUsername,
			Password: hash,
			IsStaff:  true,
			IsActive: true,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		settings := models.DefaultNotificationSettings(user.ID)
		return tx.Create(&settings).Error
	})
	if err != nil {
		return SeedResult{}, err
	}

	return SeedResult{StaffUsername: DefaultStaffUsername, StaffPassword: password}, nil
}
