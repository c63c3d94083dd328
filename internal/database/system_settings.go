package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/inventra/internal/models"
)

// JWTSecretSetting stores the generated token signing secret.
const JWTSecretSetting = "auth.jwt_secret"

// GetSystemSetting retrieves a system setting by key. Returns an empty string when not found.
func GetSystemSetting(ctx context.Context, db *gorm.DB, key string) (string, error) {
	if db == nil {
		return "", fmt.Errorf("system settings: db is nil")
	}

	var setting models.SystemSetting
	err := db.WithContext(ctx).Take(&setting, "key = ?", key).Error
	if err == nil {
		return setting.Value, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	return "", fmt.Errorf("system settings: get %q: %w", key, err)
}

// UpsertSystemSetting stores or updates a system setting value.
func UpsertSystemSetting(ctx context.Context, db *gorm.DB, key, value string) error {
	if db == nil {
		return fmt.Errorf("system settings: db is nil")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("system settings: key is required")
	}

	record := models.SystemSetting{
		Key:   key,
		Value: value,
	}

	if err := db.WithContext(ctx).
		Where("key = ?", key).
		Assign(map[string]any{"value": value}).
		FirstOrCreate(&record).Error; err != nil {
		return fmt.Errorf("system settings: upsert %q: %w", key, err)
	}

	return nil
}

// ResolveJWTSecret returns the secret tokens should be signed with. An
// explicitly configured secret always wins. A generated one is only used when
// nothing was stored before, so tokens stay valid across restarts.
func ResolveJWTSecret(ctx context.Context, db *gorm.DB, configured string, generated bool) (string, error) {
	configured = strings.TrimSpace(configured)
	if !generated && configured != "" {
		return configured, nil
	}

	stored, err := GetSystemSetting(ctx, db, JWTSecretSetting)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(stored) != "" {
		return stored, nil
	}

	if configured == "" {
		return "", fmt.Errorf("system settings: no jwt secret available")
	}
	if err := UpsertSystemSetting(ctx, db, JWTSecretSetting, configured); err != nil {
		return "", err
	}
	return configured, nil
}
