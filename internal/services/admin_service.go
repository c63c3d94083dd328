package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/charlesng35/inventra/internal/models"
	apperrors "github.com/charlesng35/inventra/pkg/errors"
	"github.com/charlesng35/inventra/pkg/logger"
)

// Admin inventory actions.
const (
	AdminActionAddCity        = "add_city"
	AdminActionDeleteCity     = "delete_city"
	AdminActionAddBuilding    = "add_building"
	AdminActionDeleteBuilding = "delete_building"
)

// Admin action message levels.
const (
	LevelSuccess = "success"
	LevelInfo    = "info"
)

var (
	errSelectCity       = apperrors.New("CITY_REQUIRED", "Select a city first.", http.StatusUnprocessableEntity)
	errBuildingFields   = apperrors.New("BUILDING_FIELDS_REQUIRED", "Name, address, latitude and longitude are required.", http.StatusUnprocessableEntity)
	errCoordinatesValue = apperrors.New("COORDINATES_INVALID", "Latitude/Longitude must be numeric.", http.StatusUnprocessableEntity)
	errCityNameRequired = apperrors.New("CITY_NAME_REQUIRED", "City name is required.", http.StatusUnprocessableEntity)
)

// AdminActionInput is the raw form of an admin inventory action.
type AdminActionInput struct {
	Action     string `json:"action" form:"action"`
	CityName   string `json:"city_name" form:"city_name"`
	CityID     string `json:"city_id" form:"city_id"`
	BuildingID string `json:"building_id" form:"building_id"`
	Name       string `json:"name" form:"name"`
	Address    string `json:"address" form:"address"`
	Lat        string `json:"lat" form:"lat"`
	Lng        string `json:"lng" form:"lng"`
}

// AdminActionResult reports a completed action. CityID is the city the
// admin view should show next, empty for the unfiltered view.
type AdminActionResult struct {
	Level    string           `json:"level"`
	Message  string           `json:"message"`
	CityID   string           `json:"city_id,omitempty"`
	City     *models.City     `json:"city,omitempty"`
	Building *models.Building `json:"building,omitempty"`
}

// AdminOverview is the admin inventory page.
type AdminOverview struct {
	Cities       []models.City     `json:"cities"`
	SelectedCity *models.City      `json:"selected_city"`
	Buildings    []models.Building `json:"buildings"`
	MapURL       string            `json:"map_url"`
	HasKey       bool              `json:"has_key"`
}

// AdminService backs the staff catalog management screen.
type AdminService struct {
	catalog *CatalogService
	maps    *MapService
	log     *zap.Logger
}

// NewAdminService constructs an AdminService.
func NewAdminService(catalog *CatalogService, maps *MapService) (*AdminService, error) {
	if catalog == nil {
		return nil, errors.New("admin service: catalog service is required")
	}
	if maps == nil {
		return nil, errors.New("admin service: map service is required")
	}
	return &AdminService{catalog: catalog, maps: maps, log: logger.WithModule("admin")}, nil
}

// Overview lists every city and, when cityID names one, its buildings and
// their map. An unknown cityID selects nothing.
func (s *AdminService) Overview(ctx context.Context, cityID string) (*AdminOverview, error) {
	cities, err := s.catalog.ListCities(ctx)
	if err != nil {
		return nil, err
	}
	out := &AdminOverview{
		Cities:    cities,
		Buildings: []models.Building{},
		HasKey:    s.maps.HasKey(),
	}

	if strings.TrimSpace(cityID) == "" {
		return out, nil
	}
	city, err := s.catalog.GetCity(ctx, cityID)
	if errors.Is(err, ErrCityNotFound) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	buildings, err := s.catalog.ListBuildings(ctx, city.ID)
	if err != nil {
		return nil, err
	}
	out.SelectedCity = city
	out.Buildings = buildings
	out.MapURL = s.maps.BuildingMapURL(buildings)
	return out, nil
}

// Dispatch runs one admin action. Refusals come back as errors carrying the
// user-facing message; an existing building is reported at info level.
func (s *AdminService) Dispatch(ctx context.Context, input AdminActionInput) (*AdminActionResult, error) {
	ctx = ensureContext(ctx)
	action := strings.TrimSpace(input.Action)

	var (
		result *AdminActionResult
		err    error
	)
	switch action {
	case AdminActionAddCity:
		result, err = s.addCity(ctx, input)
	case AdminActionDeleteCity:
		result, err = s.deleteCity(ctx, input)
	case AdminActionAddBuilding:
		result, err = s.addBuilding(ctx, input)
	case AdminActionDeleteBuilding:
		result, err = s.deleteBuilding(ctx, input)
	default:
		err = ErrUnknownAdminAction
	}

	if err != nil {
		s.log.Info("admin action refused", zap.String("action", action), zap.Error(err))
		return nil, err
	}
	s.log.Info("admin action applied", zap.String("action", action), zap.String("message", result.Message))
	return result, nil
}

func (s *AdminService) addCity(ctx context.Context, input AdminActionInput) (*AdminActionResult, error) {
	if strings.TrimSpace(input.CityName) == "" {
		return nil, errCityNameRequired
	}
	city, _, err := s.catalog.GetOrCreateCity(ctx, input.CityName)
	if err != nil {
		return nil, err
	}
	return &AdminActionResult{
		Level:   LevelSuccess,
		Message: fmt.Sprintf("City \"%s\" added.", city.Name),
		CityID:  city.ID,
		City:    city,
	}, nil
}

func (s *AdminService) deleteCity(ctx context.Context, input AdminActionInput) (*AdminActionResult, error) {
	if err := s.catalog.DeleteCity(ctx, input.CityID); err != nil {
		return nil, err
	}
	return &AdminActionResult{Level: LevelSuccess, Message: "City deleted."}, nil
}

func (s *AdminService) addBuilding(ctx context.Context, input AdminActionInput) (*AdminActionResult, error) {
	city, err := s.catalog.GetCity(ctx, input.CityID)
	if err != nil {
		if errors.Is(err, ErrCityNotFound) {
			return nil, errSelectCity
		}
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	address := strings.TrimSpace(input.Address)
	latRaw := strings.TrimSpace(input.Lat)
	lngRaw := strings.TrimSpace(input.Lng)
	if name == "" || address == "" || latRaw == "" || lngRaw == "" {
		return nil, errBuildingFields
	}
	lat, latErr := strconv.ParseFloat(latRaw, 64)
	lng, lngErr := strconv.ParseFloat(lngRaw, 64)
	if latErr != nil || lngErr != nil {
		return nil, errCoordinatesValue
	}

	building, created, err := s.catalog.CreateBuilding(ctx, CreateBuildingInput{
		CityID:  city.ID,
		Name:    name,
		Address: address,
		Lat:     &lat,
		Lng:     &lng,
	})
	if err != nil {
		return nil, err
	}

	result := &AdminActionResult{CityID: city.ID, City: city, Building: building}
	if !created {
		result.Level = LevelInfo
		result.Message = "Building already exists in this city."
		return result, nil
	}
	result.Level = LevelSuccess
	result.Message = fmt.Sprintf("Building \"%s\" added to %s.", name, city.Name)
	return result, nil
}

func (s *AdminService) deleteBuilding(ctx context.Context, input AdminActionInput) (*AdminActionResult, error) {
	building, err := s.catalog.GetBuilding(ctx, input.BuildingID)
	if err != nil {
		return nil, err
	}
	if _, err := s.catalog.DeleteBuilding(ctx, building.ID); err != nil {
		return nil, err
	}
	return &AdminActionResult{
		Level:   LevelSuccess,
		Message: "Building deleted.",
		CityID:  building.CityID,
	}, nil
}
