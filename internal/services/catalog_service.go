package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/inventra/internal/models"
	apperrors "github.com/charlesng35/inventra/pkg/errors"
	"github.com/charlesng35/inventra/pkg/logger"
)

// CreateBuildingInput describes a building to add to a city.
type CreateBuildingInput struct {
	CityID  string
	Name    string
	Address string
	Lat     *float64
	Lng     *float64
}

// BuildingItems lists the items stored in one building with totals.
type BuildingItems struct {
	Building      *models.Building `json:"building"`
	Items         []ItemDTO        `json:"items"`
	TotalItems    int64            `json:"total_items"`
	TotalQuantity int64            `json:"total_quantity"`
}

// CatalogService owns the city/building hierarchy. City names are always
// stored in normalised form.
type CatalogService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(db *gorm.DB) (*CatalogService, error) {
	if db == nil {
		return nil, errors.New("catalog service: db is required")
	}
	return &CatalogService{db: db, log: logger.WithModule("catalog")}, nil
}

// GetOrCreateCity returns the city whose canonical name matches name,
// creating it when missing. created reports whether a row was inserted.
func (s *CatalogService) GetOrCreateCity(ctx context.Context, name string) (*models.City, bool, error) {
	ctx = ensureContext(ctx)
	canonical := NormalizeCityName(name)
	if canonical == "" {
		return nil, false, apperrors.NewValidation("city_name", "City name is required.")
	}

	city, err := s.findCity(s.db.WithContext(ctx), canonical)
	if err == nil {
		return city, false, nil
	}
	if !errors.Is(err, ErrCityNotFound) {
		return nil, false, err
	}

	city = &models.City{Name: canonical}
	if err := s.db.WithContext(ctx).Create(city).Error; err != nil {
		if isUniqueConstraintError(err) {
			existing, findErr := s.findCity(s.db.WithContext(ctx), canonical)
			return existing, false, findErr
		}
		return nil, false, fmt.Errorf("catalog service: create city: %w", err)
	}
	s.log.Info("city created", zap.String("city", canonical))
	return city, true, nil
}

// FindCityByName looks a city up by any spelling of its name.
func (s *CatalogService) FindCityByName(ctx context.Context, name string) (*models.City, error) {
	return s.findCity(s.db.WithContext(ensureContext(ctx)), NormalizeCityName(name))
}

func (s *CatalogService) findCity(db *gorm.DB, canonical string) (*models.City, error) {
	var city models.City
	if err := db.Where("name = ?", canonical).Take(&city).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCityNotFound
		}
		return nil, fmt.Errorf("catalog service: find city: %w", err)
	}
	return &city, nil
}

// GetCity loads a city by id.
func (s *CatalogService) GetCity(ctx context.Context, id string) (*models.City, error) {
	var city models.City
	if err := s.db.WithContext(ensureContext(ctx)).Take(&city, "id = ?", strings.TrimSpace(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCityNotFound
		}
		return nil, fmt.Errorf("catalog service: get city: %w", err)
	}
	return &city, nil
}

// ListCities returns all cities ordered by name.
func (s *CatalogService) ListCities(ctx context.Context) ([]models.City, error) {
	var cities []models.City
	if err := s.db.WithContext(ensureContext(ctx)).Order("name ASC").Find(&cities).Error; err != nil {
		return nil, fmt.Errorf("catalog service: list cities: %w", err)
	}
	return cities, nil
}

// DeleteCity removes a city that owns no buildings.
func (s *CatalogService) DeleteCity(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)
	city, err := s.GetCity(ctx, id)
	if err != nil {
		return err
	}

	var buildings int64
	if err := s.db.WithContext(ctx).Model(&models.Building{}).Where("city_id = ?", city.ID).Count(&buildings).Error; err != nil {
		return fmt.Errorf("catalog service: count buildings: %w", err)
	}
	if buildings > 0 {
		return ErrCityHasBuildings
	}

	if err := s.db.WithContext(ctx).Delete(city).Error; err != nil {
		if isForeignKeyError(err) {
			return ErrCityHasBuildings
		}
		return fmt.Errorf("catalog service: delete city: %w", err)
	}
	s.log.Info("city deleted", zap.String("city", city.Name))
	return nil
}

// ListBuildings returns the buildings of a city ordered by name.
func (s *CatalogService) ListBuildings(ctx context.Context, cityID string) ([]models.Building, error) {
	var buildings []models.Building
	if err := s.db.WithContext(ensureContext(ctx)).
		Preload("City").
		Where("city_id = ?", cityID).
		Order("name ASC").
		Find(&buildings).Error; err != nil {
		return nil, fmt.Errorf("catalog service: list buildings: %w", err)
	}
	return buildings, nil
}

// GetBuilding loads a building with its city.
func (s *CatalogService) GetBuilding(ctx context.Context, id string) (*models.Building, error) {
	return loadBuilding(s.db.WithContext(ensureContext(ctx)), id)
}

func loadBuilding(db *gorm.DB, id string) (*models.Building, error) {
	var building models.Building
	if err := db.Preload("City").Take(&building, "id = ?", strings.TrimSpace(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBuildingNotFound
		}
		return nil, fmt.Errorf("catalog service: get building: %w", err)
	}
	return &building, nil
}

// CreateBuilding adds a building to a city. When (city, name) already exists
// the existing building is returned with created=false and nothing changes.
func (s *CatalogService) CreateBuilding(ctx context.Context, input CreateBuildingInput) (*models.Building, bool, error) {
	ctx = ensureContext(ctx)
	city, err := s.GetCity(ctx, input.CityID)
	if err != nil {
		return nil, false, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, false, apperrors.NewValidation("name", "Building name is required.")
	}

	var existing models.Building
	err = s.db.WithContext(ctx).Preload("City").Where("city_id = ? AND name = ?", city.ID, name).Take(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("catalog service: find building: %w", err)
	}

	building := &models.Building{
		CityID:  city.ID,
		Name:    name,
		Address: strings.TrimSpace(input.Address),
		Lat:     input.Lat,
		Lng:     input.Lng,
	}
	if err := s.db.WithContext(ctx).Create(building).Error; err != nil {
		if isUniqueConstraintError(err) {
			b, findErr := s.findBuilding(ctx, city.ID, name)
			return b, false, findErr
		}
		return nil, false, fmt.Errorf("catalog service: create building: %w", err)
	}
	building.City = city
	s.log.Info("building created", zap.String("city", city.Name), zap.String("building", name))
	return building, true, nil
}

func (s *CatalogService) findBuilding(ctx context.Context, cityID, name string) (*models.Building, error) {
	var building models.Building
	if err := s.db.WithContext(ctx).Preload("City").Where("city_id = ? AND name = ?", cityID, name).Take(&building).Error; err != nil {
		return nil, fmt.Errorf("catalog service: find building: %w", err)
	}
	return &building, nil
}

// DeleteBuilding removes a building no item references.
func (s *CatalogService) DeleteBuilding(ctx context.Context, id string) (*models.Building, error) {
	ctx = ensureContext(ctx)
	building, err := s.GetBuilding(ctx, id)
	if err != nil {
		return nil, err
	}

	var items int64
	if err := s.db.WithContext(ctx).Model(&models.Item{}).Where("building_ref_id = ?", building.ID).Count(&items).Error; err != nil {
		return nil, fmt.Errorf("catalog service: count items: %w", err)
	}
	if items > 0 {
		return nil, ErrBuildingHasItems
	}

	if err := s.db.WithContext(ctx).Delete(&models.Building{}, "id = ?", building.ID).Error; err != nil {
		if isForeignKeyError(err) {
			return nil, ErrBuildingHasItems
		}
		return nil, fmt.Errorf("catalog service: delete building: %w", err)
	}
	s.log.Info("building deleted", zap.String("building", building.Name))
	return building, nil
}

// BuildingItems lists every item referencing the building, newest first.
func (s *CatalogService) BuildingItems(ctx context.Context, buildingID string) (*BuildingItems, error) {
	ctx = ensureContext(ctx)
	building, err := s.GetBuilding(ctx, buildingID)
	if err != nil {
		return nil, err
	}

	var items []models.Item
	if err := s.db.WithContext(ctx).
		Where("building_ref_id = ?", building.ID).
		Order("created_at DESC").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("catalog service: building items: %w", err)
	}

	out := &BuildingItems{
		Building:   building,
		Items:      mapItems(items),
		TotalItems: int64(len(items)),
	}
	for _, item := range items {
		out.TotalQuantity += int64(item.Quantity)
	}
	return out, nil
}
