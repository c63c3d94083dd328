package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/charlesng35/inventra/pkg/errors"
)

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	// ErrUsernameTaken rejects a registration for an existing username.
	ErrUsernameTaken = fieldError("USERNAME_TAKEN", "username", "A user with that username already exists.")
	// ErrInactiveUser blocks sign-in for deactivated accounts.
	ErrInactiveUser = apperrors.New("USER_INACTIVE", "This account is inactive.", http.StatusForbidden)

	ErrCityNotFound     = apperrors.New("CITY_NOT_FOUND", "City not found.", http.StatusNotFound)
	ErrBuildingNotFound = apperrors.New("BUILDING_NOT_FOUND", "Building not found.", http.StatusNotFound)
	ErrItemNotFound     = apperrors.New("ITEM_NOT_FOUND", "Item not found.", http.StatusNotFound)
	ErrDeliveryNotFound = apperrors.New("DELIVERY_NOT_FOUND", "Delivery not found.", http.StatusNotFound)

	// ErrBuildingNotInCity rejects a building chosen outside the chosen city.
	ErrBuildingNotInCity = fieldError("BUILDING_NOT_IN_CITY", "building_id", "Selected building doesn't belong to the chosen city.")
	// ErrInsufficientStock is the sentinel for over-committed deliveries; see insufficientStock.
	ErrInsufficientStock = apperrors.New("INSUFFICIENT_STOCK", "Not enough stock.", http.StatusUnprocessableEntity)
	// ErrDuplicateSKU rejects a second item with the same SKU for one owner.
	ErrDuplicateSKU = fieldError("DUPLICATE_SKU", "sku", "You already have an item with this SKU.")

	ErrDeliveryNotCancellable = apperrors.New("DELIVERY_NOT_CANCELLABLE", "Only in-progress deliveries can be cancelled.", http.StatusConflict)
	ErrDeliveryTerminal       = apperrors.New("DELIVERY_TERMINAL", "Finished or cancelled deliveries cannot be changed.", http.StatusConflict)

	ErrCityHasBuildings  = apperrors.New("CITY_HAS_BUILDINGS", "Cannot delete a city that has buildings.", http.StatusConflict)
	ErrBuildingHasItems  = apperrors.New("BUILDING_HAS_ITEMS", "Cannot delete a building that has items.", http.StatusConflict)
	ErrItemHasDeliveries = apperrors.New("ITEM_HAS_DELIVERIES", "Cannot delete an item that has deliveries.", http.StatusConflict)

	// ErrUnknownAdminAction is returned for unsupported admin inventory actions.
	ErrUnknownAdminAction = apperrors.New("UNKNOWN_ACTION", "Unknown action.", http.StatusBadRequest)
)

func fieldError(code, field, message string) *apperrors.AppError {
	err := apperrors.NewValidation(field, message)
	err.Code = code
	return err
}

func insufficientStock(requested, available int) *apperrors.AppError {
	return fieldError(
		ErrInsufficientStock.Code,
		"quantity",
		fmt.Sprintf("Cannot deliver %d items. Only %d available in stock.", requested, available),
	)
}

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique constraint") ||
		strings.Contains(lower, "duplicate")
}

// isForeignKeyError detects referential-integrity refusals across vendors.
func isForeignKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23503" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && (myErr.Number == 1451 || myErr.Number == 1452) {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint")
}
