package database

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/inventra/internal/models"
	"github.com/charlesng35/inventra/pkg/crypto"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.Exec("SELECT 1").Error)
	require.NoError(t, Ping(db))
}

func TestAutoMigrateAndSeedCreatesStaffOnce(t *testing.T) {
	db := openTestDB(t)

	result, err := AutoMigrateAndSeed(db)
	require.NoError(t, err)
	require.True(t, result.Created())
	require.Equal(t, DefaultStaffUsername, result.StaffUsername)

	var staff models.User
	require.NoError(t, db.Where("username = ?", DefaultStaffUsername).Take(&staff).Error)
	require.True(t, staff.IsStaff)
	require.True(t, crypto.VerifyPassword(staff.Password, result.StaffPassword))

	var settings models.NotificationSettings
	require.NoError(t, db.Where("user_id = ?", staff.ID).Take(&settings).Error)
	require.Equal(t, models.DefaultLowStockThreshold, settings.LowStockThreshold)

	again, err := AutoMigrateAndSeed(db)
	require.NoError(t, err)
	require.False(t, again.Created())
}

func TestForeignKeysAreEnforced(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	building := models.Building{CityID: uuid.NewString(), Name: "Orphan"}
	require.Error(t, db.Create(&building).Error)
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(Config{Driver: "sqlite", DSN: MemoryDSN(uuid.NewString())})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = Close(db)
	})

	return db
}
