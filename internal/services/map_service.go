package services

import (
	"context"
	"errors"

	"github.com/charlesng35/inventra/internal/models"
	"github.com/charlesng35/inventra/internal/staticmap"
)

// MapBounds is the box enclosing every marker on a map.
type MapBounds struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// ItemMap is the map view of a user's items.
type ItemMap struct {
	HasKey            bool       `json:"has_key"`
	URLs              []string   `json:"urls"`
	MarkerCount       int        `json:"marker_count"`
	Bounds            *MapBounds `json:"bounds,omitempty"`
	Cities            []string   `json:"cities"`
	Buildings         []string   `json:"buildings"`
	LowStockThreshold int        `json:"low_stock_threshold"`
}

// MapService renders items and buildings onto static map images.
type MapService struct {
	items *ItemService
	maps  *staticmap.Builder
}

// NewMapService constructs a MapService. A builder without an API key yields
// maps with no URLs.
func NewMapService(items *ItemService, maps *staticmap.Builder) (*MapService, error) {
	if items == nil {
		return nil, errors.New("map service: item service is required")
	}
	if maps == nil {
		maps = staticmap.New(staticmap.Config{})
	}
	return &MapService{items: items, maps: maps}, nil
}

// HasKey reports whether map images can be rendered.
func (s *MapService) HasKey() bool {
	return s.maps.Enabled()
}

// ItemMap plots the owner's located items matching filter.
func (s *MapService) ItemMap(ctx context.Context, ownerID string, filter ItemFilter) (*ItemMap, error) {
	items, err := s.items.ListModels(ctx, ownerID, filter)
	if err != nil {
		return nil, err
	}
	cities, buildings, err := s.items.Locations(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	markers := ItemMarkers(items)
	out := &ItemMap{
		HasKey:            s.maps.Enabled(),
		URLs:              s.maps.URLs(markers),
		MarkerCount:       len(markers),
		Cities:            nonNil(cities),
		Buildings:         nonNil(buildings),
		LowStockThreshold: LowStockSummaryThreshold,
	}
	if out.URLs == nil {
		out.URLs = []string{}
	}
	if bound, ok := staticmap.Bounds(markers); ok {
		out.Bounds = &MapBounds{
			MinLat: bound.Min.Lat(),
			MinLng: bound.Min.Lon(),
			MaxLat: bound.Max.Lat(),
			MaxLng: bound.Max.Lon(),
		}
	}
	return out, nil
}

// BuildingMapURL plots located buildings on one image. It returns "" when
// there is no key or no building has coordinates.
func (s *MapService) BuildingMapURL(buildings []models.Building) string {
	markers := make([]staticmap.Marker, 0, len(buildings))
	for _, b := range buildings {
		if !b.HasCoordinates() {
			continue
		}
		markers = append(markers, staticmap.BuildingMarker(b.Name, *b.Lat, *b.Lng))
	}
	return s.maps.URL(markers)
}

// ItemMarkers converts located items into markers; items without
// coordinates are skipped.
func ItemMarkers(items []models.Item) []staticmap.Marker {
	markers := make([]staticmap.Marker, 0, len(items))
	for _, item := range items {
		if !item.HasCoordinates() {
			continue
		}
		markers = append(markers, staticmap.ItemMarker(item.Name, item.Quantity, LowStockSummaryThreshold, *item.Lat, *item.Lng))
	}
	return markers
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
