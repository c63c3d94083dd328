package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/inventra/internal/models"
	"github.com/charlesng35/inventra/pkg/crypto"
	apperrors "github.com/charlesng35/inventra/pkg/errors"
	"github.com/charlesng35/inventra/pkg/logger"
	"github.com/charlesng35/inventra/pkg/metrics"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// RegisterInput describes a self-service sign up.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
}

// UserService manages accounts and password sign-in.
type UserService struct {
	db       *gorm.DB
	settings *SettingsService
	log      *zap.Logger
	now      func() time.Time
}

// NewUserService constructs a UserService.
func NewUserService(db *gorm.DB, settings *SettingsService) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	if settings == nil {
		var err error
		if settings, err = NewSettingsService(db, SettingsDefaults{}); err != nil {
			return nil, err
		}
	}
	return &UserService{
		db:       db,
		settings: settings,
		log:      logger.WithModule("users"),
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Register creates a regular (never staff) user together with default
// notification settings.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	fields := map[string]string{}
	if username == "" {
		fields["username"] = "This field is required."
	}
	if email == "" {
		fields["email"] = "This field is required."
	}
	switch {
	case input.Password == "":
		fields["password"] = "This field is required."
	case len(input.Password) < MinPasswordLength:
		fields["password"] = fmt.Sprintf("This password is too short. It must contain at least %d characters.", MinPasswordLength)
	case input.Password != input.PasswordConfirm:
		fields["password_confirm"] = "The two password fields didn't match."
	}
	if len(fields) > 0 {
		return nil, apperrors.NewValidationFields(fields)
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Password: hashed,
		IsActive: true,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
			return fmt.Errorf("user service: check username: %w", err)
		}
		if count > 0 {
			return ErrUsernameTaken
		}
		if err := tx.Omit("NotificationSettings").Create(user).Error; err != nil {
			if isUniqueConstraintError(err) {
				return ErrUsernameTaken
			}
			return fmt.Errorf("user service: create user: %w", err)
		}
		_, err := s.settings.Provision(tx, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user registered", zap.String("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

// Authenticate verifies a username/password pair and stamps the login time.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	ctx = ensureContext(ctx)

	user, err := s.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			metrics.AuthAttempts.WithLabelValues("failure").Inc()
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if !crypto.VerifyPassword(user.Password, password) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, ErrInactiveUser
	}

	now := s.now()
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("last_login_at", now).Error; err != nil {
		return nil, fmt.Errorf("user service: record login: %w", err)
	}
	user.LastLoginAt = &now

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	return user, nil
}

// GetByID loads a user by identifier.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ensureContext(ctx)).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get user: %w", err)
	}
	return &user, nil
}

// FindByUsername loads a user by exact username.
func (s *UserService) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ensureContext(ctx)).
		Where("username = ?", strings.TrimSpace(username)).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: find user: %w", err)
	}
	return &user, nil
}

// ChangePassword hashes and updates the user's password.
func (s *UserService) ChangePassword(ctx context.Context, id, newPassword string) error {
	ctx = ensureContext(ctx)

	if len(newPassword) < MinPasswordLength {
		return apperrors.NewValidation("password", fmt.Sprintf("This password is too short. It must contain at least %d characters.", MinPasswordLength))
	}

	hashed, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("user service: hash new password: %w", err)
	}

	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("password", hashed)
	if result.Error != nil {
		return fmt.Errorf("user service: change password: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	s.log.Info("password changed", zap.String("user_id", id))
	return nil
}
