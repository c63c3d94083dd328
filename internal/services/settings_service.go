package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/inventra/internal/models"
	apperrors "github.com/charlesng35/inventra/pkg/errors"
)

// UpdateSettingsInput carries the editable notification preferences.
type UpdateSettingsInput struct {
	LowStockThreshold      int  `json:"low_stock_threshold" form:"low_stock_threshold" validate:"gte=0"`
	CriticalStockThreshold int  `json:"critical_stock_threshold" form:"critical_stock_threshold" validate:"gte=0"`
	EnableLowStockAlerts   bool `json:"enable_low_stock_alerts" form:"enable_low_stock_alerts"`
	EnableDeliveryAlerts   bool `json:"enable_delivery_alerts" form:"enable_delivery_alerts"`
	EnableMoveAlerts       bool `json:"enable_move_alerts" form:"enable_move_alerts"`
	AutoMarkRead           bool `json:"auto_mark_read" form:"auto_mark_read"`
}

// SettingsService manages per-user notification preferences.
type SettingsService struct {
	db       *gorm.DB
	defaults SettingsDefaults
}

// SettingsDefaults overrides the thresholds applied to newly provisioned settings.
type SettingsDefaults struct {
	LowStockThreshold      int
	CriticalStockThreshold int
}

// NewSettingsService constructs a SettingsService.
func NewSettingsService(db *gorm.DB, defaults SettingsDefaults) (*SettingsService, error) {
	if db == nil {
		return nil, errors.New("settings service: db is required")
	}
	if defaults.LowStockThreshold <= 0 {
		defaults.LowStockThreshold = models.DefaultLowStockThreshold
	}
	if defaults.CriticalStockThreshold <= 0 || defaults.CriticalStockThreshold > defaults.LowStockThreshold {
		defaults.CriticalStockThreshold = min(models.DefaultCriticalStockThreshold, defaults.LowStockThreshold)
	}
	return &SettingsService{db: db, defaults: defaults}, nil
}

// Get returns the user's settings, provisioning defaults on first access.
func (s *SettingsService) Get(ctx context.Context, userID string) (*models.NotificationSettings, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.NewBadRequest("user id is required")
	}

	settings, err := s.loadOrCreate(s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	return settings, nil
}

// Update replaces the user's preferences. The critical threshold may not
// exceed the low threshold.
func (s *SettingsService) Update(ctx context.Context, userID string, input UpdateSettingsInput) (*models.NotificationSettings, error) {
	ctx = ensureContext(ctx)

	fields := map[string]string{}
	if input.LowStockThreshold < 0 {
		fields["low_stock_threshold"] = "Ensure this value is greater than or equal to 0."
	}
	if input.CriticalStockThreshold < 0 {
		fields["critical_stock_threshold"] = "Ensure this value is greater than or equal to 0."
	}
	if len(fields) == 0 && input.CriticalStockThreshold > input.LowStockThreshold {
		fields["critical_stock_threshold"] = "Critical threshold cannot be higher than the low stock threshold."
	}
	if len(fields) > 0 {
		return nil, apperrors.NewValidationFields(fields)
	}

	var out *models.NotificationSettings
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		settings, err := s.loadOrCreate(tx, userID)
		if err != nil {
			return err
		}

		settings.LowStockThreshold = input.LowStockThreshold
		settings.CriticalStockThreshold = input.CriticalStockThreshold
		settings.EnableLowStockAlerts = input.EnableLowStockAlerts
		settings.EnableDeliveryAlerts = input.EnableDeliveryAlerts
		settings.EnableMoveAlerts = input.EnableMoveAlerts
		settings.AutoMarkRead = input.AutoMarkRead

		if err := tx.Save(settings).Error; err != nil {
			return fmt.Errorf("settings service: save settings: %w", err)
		}
		out = settings
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Provision creates default settings for a freshly registered user.
func (s *SettingsService) Provision(tx *gorm.DB, userID string) (*models.NotificationSettings, error) {
	return s.loadOrCreate(tx, userID)
}

func (s *SettingsService) loadOrCreate(tx *gorm.DB, userID string) (*models.NotificationSettings, error) {
	return loadOrCreateSettings(tx, userID, s.defaults)
}

// loadOrCreateSettings fetches settings for userID inside tx, inserting the
// defaults when none exist. An insert that loses a race to a concurrent one
// is skipped on conflict and the winner's row is read back.
func loadOrCreateSettings(tx *gorm.DB, userID string, defaults SettingsDefaults) (*models.NotificationSettings, error) {
	var settings models.NotificationSettings
	err := tx.Where("user_id = ?", userID).Take(&settings).Error
	if err == nil {
		return &settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("settings service: load settings: %w", err)
	}

	settings = models.DefaultNotificationSettings(userID)
	if defaults.LowStockThreshold > 0 {
		settings.LowStockThreshold = defaults.LowStockThreshold
	}
	if defaults.CriticalStockThreshold > 0 {
		settings.CriticalStockThreshold = defaults.CriticalStockThreshold
	}

	return insertSettingsIfAbsent(tx, &settings)
}

// insertSettingsIfAbsent inserts settings unless the user already has a row,
// in which case the stored row is returned. The transaction stays usable
// after a conflict.
func insertSettingsIfAbsent(tx *gorm.DB, settings *models.NotificationSettings) (*models.NotificationSettings, error) {
	result := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(settings)
	if result.Error != nil {
		return nil, fmt.Errorf("settings service: create settings: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return settings, nil
	}

	var existing models.NotificationSettings
	if err := tx.Where("user_id = ?", settings.UserID).Take(&existing).Error; err != nil {
		return nil, fmt.Errorf("settings service: reload settings: %w", err)
	}
	return &existing, nil
}
