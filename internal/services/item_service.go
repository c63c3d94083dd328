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
	"github.com/charlesng35/inventra/internal/realtime"
	apperrors "github.com/charlesng35/inventra/pkg/errors"
	"github.com/charlesng35/inventra/pkg/logger"
	"github.com/charlesng35/inventra/pkg/metrics"
)

// Item field limits.
const (
	MinItemNameLength = 3
	MinItemSKULength  = 4
)

// ItemDTO is the API representation of an item.
type ItemDTO struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"owner_id"`
	Name          string    `json:"name"`
	SKU           string    `json:"sku"`
	Quantity      int       `json:"quantity"`
	City          string    `json:"city"`
	Building      string    `json:"building"`
	Address       string    `json:"address"`
	Lat           *float64  `json:"lat"`
	Lng           *float64  `json:"lng"`
	BuildingRefID *string   `json:"building_ref_id"`
	FullAddress   string    `json:"full_address"`
	LowStock      bool      `json:"low_stock"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ItemFilter narrows item listings. Empty fields are ignored.
type ItemFilter struct {
	Query    string
	City     string
	Building string
}

// CreateItemInput describes a new item.
type CreateItemInput struct {
	Name       string
	SKU        string
	Quantity   int
	CityID     string
	BuildingID string
}

// UpdateItemInput carries the editable item fields. Nil fields are left untouched.
type UpdateItemInput struct {
	Name     *string
	SKU      *string
	Quantity *int
}

// MoveItemInput names the destination of a move.
type MoveItemInput struct {
	CityID     string
	BuildingID string
}

// ItemEventPayload is pushed on the inventory stream.
type ItemEventPayload struct {
	Item   *ItemDTO `json:"item,omitempty"`
	ItemID string   `json:"item_id,omitempty"`
}

// ItemService manages the item ledger and the move workflow.
type ItemService struct {
	db     *gorm.DB
	engine *NotificationEngine
	hub    EventPublisher
	log    *zap.Logger
	now    func() time.Time
}

// NewItemService constructs an ItemService. hub may be nil.
func NewItemService(db *gorm.DB, engine *NotificationEngine, hub EventPublisher) (*ItemService, error) {
	if db == nil {
		return nil, errors.New("item service: db is required")
	}
	if engine == nil {
		return nil, errors.New("item service: notification engine is required")
	}
	return &ItemService{
		db:     db,
		engine: engine,
		hub:    hub,
		log:    logger.WithModule("items"),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// List returns the owner's items matching filter, newest first.
func (s *ItemService) List(ctx context.Context, ownerID string, filter ItemFilter) ([]ItemDTO, error) {
	items, err := s.ListModels(ctx, ownerID, filter)
	if err != nil {
		return nil, err
	}
	return mapItems(items), nil
}

// ListModels is List without the DTO mapping, for exporters and map rendering.
func (s *ItemService) ListModels(ctx context.Context, ownerID string, filter ItemFilter) ([]models.Item, error) {
	query := s.db.WithContext(ensureContext(ctx)).
		Preload("BuildingRef.City").
		Where("owner_id = ?", ownerID)

	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := likePattern(q)
		query = query.Where(likeCondition("name")+" OR "+likeCondition("sku"), pattern, pattern)
	}
	if city := strings.TrimSpace(filter.City); city != "" {
		query = query.Where("city = ?", city)
	}
	if building := strings.TrimSpace(filter.Building); building != "" {
		query = query.Where("building = ?", building)
	}

	var items []models.Item
	if err := query.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("item service: list items: %w", err)
	}
	return items, nil
}

// Get loads one of the owner's items.
func (s *ItemService) Get(ctx context.Context, ownerID, itemID string) (*models.Item, error) {
	var item models.Item
	err := s.db.WithContext(ensureContext(ctx)).
		Preload("BuildingRef.City").
		Where("id = ? AND owner_id = ?", strings.TrimSpace(itemID), ownerID).
		Take(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("item service: get item: %w", err)
	}
	return &item, nil
}

// History returns the item's move records, newest first.
func (s *ItemService) History(ctx context.Context, ownerID, itemID string) ([]models.MoveRequest, error) {
	ctx = ensureContext(ctx)
	item, err := s.Get(ctx, ownerID, itemID)
	if err != nil {
		return nil, err
	}

	var moves []models.MoveRequest
	if err := s.db.WithContext(ctx).
		Where("item_id = ?", item.ID).
		Order("moved_at DESC").
		Find(&moves).Error; err != nil {
		return nil, fmt.Errorf("item service: move history: %w", err)
	}
	return moves, nil
}

// Create adds an item for the actor at the chosen building. Creation never
// raises a low stock alert.
func (s *ItemService) Create(ctx context.Context, actor Actor, input CreateItemInput) (*models.Item, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	sku := strings.TrimSpace(input.SKU)
	fields := validateItemFields(name, sku, input.Quantity)
	if strings.TrimSpace(input.CityID) == "" {
		fields["city_id"] = "This field is required."
	}
	if strings.TrimSpace(input.BuildingID) == "" {
		fields["building_id"] = "This field is required."
	}
	if len(fields) > 0 {
		return nil, apperrors.NewValidationFields(fields)
	}

	var item *models.Item
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		building, err := resolveBuilding(tx, input.CityID, input.BuildingID)
		if err != nil {
			return err
		}
		if err := ensureUniqueSKU(tx, actor.UserID, sku, ""); err != nil {
			return err
		}

		item = &models.Item{
			OwnerID:  actor.UserID,
			Name:     name,
			SKU:      sku,
			Quantity: input.Quantity,
		}
		item.MirrorBuilding(building)
		if err := tx.Omit("BuildingRef", "Owner").Create(item).Error; err != nil {
			if isUniqueConstraintError(err) {
				return ErrDuplicateSKU
			}
			return fmt.Errorf("item service: create item: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("item created",
		zap.String("item_id", item.ID),
		zap.String("owner_id", item.OwnerID),
		zap.String("sku", item.SKU))
	s.broadcast(item.OwnerID, "item.created", item)
	return item, nil
}

// Update edits name, SKU and quantity. Staff only.
func (s *ItemService) Update(ctx context.Context, actor Actor, itemID string, input UpdateItemInput) (*models.Item, error) {
	if !actor.IsStaff {
		return nil, apperrors.ErrForbidden
	}
	ctx = ensureContext(ctx)

	var (
		item    *models.Item
		created *models.Notification
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if item, err = loadItem(tx, itemID); err != nil {
			return err
		}

		if input.Name != nil {
			item.Name = strings.TrimSpace(*input.Name)
		}
		if input.SKU != nil {
			item.SKU = strings.TrimSpace(*input.SKU)
		}
		if input.Quantity != nil {
			item.Quantity = *input.Quantity
		}
		if fields := validateItemFields(item.Name, item.SKU, item.Quantity); len(fields) > 0 {
			return apperrors.NewValidationFields(fields)
		}
		if err := ensureUniqueSKU(tx, item.OwnerID, item.SKU, item.ID); err != nil {
			return err
		}

		if err := saveItem(tx, item); err != nil {
			return err
		}
		created, err = s.engine.ItemUpdated(tx, item)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.engine.Publish(created)
	s.log.Info("item updated",
		zap.String("item_id", item.ID),
		zap.String("actor", actor.Username),
		zap.Int("quantity", item.Quantity))
	s.broadcast(item.OwnerID, "item.updated", item)
	return item, nil
}

// Delete removes an item with its notifications and move history. Items
// that have deliveries are kept. Staff only.
func (s *ItemService) Delete(ctx context.Context, actor Actor, itemID string) error {
	if !actor.IsStaff {
		return apperrors.ErrForbidden
	}
	ctx = ensureContext(ctx)

	var item *models.Item
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if item, err = loadItem(tx, itemID); err != nil {
			return err
		}

		var deliveries int64
		if err := tx.Model(&models.Delivery{}).Where("item_id = ?", item.ID).Count(&deliveries).Error; err != nil {
			return fmt.Errorf("item service: count deliveries: %w", err)
		}
		if deliveries > 0 {
			return ErrItemHasDeliveries
		}

		if err := tx.Where("item_id = ?", item.ID).Delete(&models.Notification{}).Error; err != nil {
			return fmt.Errorf("item service: delete item notifications: %w", err)
		}
		if err := tx.Where("item_id = ?", item.ID).Delete(&models.MoveRequest{}).Error; err != nil {
			return fmt.Errorf("item service: delete move history: %w", err)
		}
		if err := tx.Delete(&models.Item{}, "id = ?", item.ID).Error; err != nil {
			if isForeignKeyError(err) {
				return ErrItemHasDeliveries
			}
			return fmt.Errorf("item service: delete item: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("item deleted", zap.String("item_id", item.ID), zap.String("actor", actor.Username))
	if s.hub != nil {
		s.hub.BroadcastToUser(realtime.StreamInventory, item.OwnerID, realtime.Message{
			Event: "item.deleted",
			Data:  &ItemEventPayload{ItemID: item.ID},
		})
	}
	return nil
}

// Move relocates an item to a building of the chosen city and appends a move
// record. The item save, the move record and both notification rules share
// one transaction. Staff only.
func (s *ItemService) Move(ctx context.Context, actor Actor, itemID string, input MoveItemInput) (*models.Item, *models.MoveRequest, error) {
	if !actor.IsStaff {
		return nil, nil, apperrors.ErrForbidden
	}
	ctx = ensureContext(ctx)

	fields := map[string]string{}
	if strings.TrimSpace(input.CityID) == "" {
		fields["city_id"] = "This field is required."
	}
	if strings.TrimSpace(input.BuildingID) == "" {
		fields["building_id"] = "This field is required."
	}
	if len(fields) > 0 {
		return nil, nil, apperrors.NewValidationFields(fields)
	}

	var (
		item    *models.Item
		move    *models.MoveRequest
		created []*models.Notification
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if item, err = loadItem(tx, itemID); err != nil {
			return err
		}
		building, err := resolveBuilding(tx, input.CityID, input.BuildingID)
		if err != nil {
			return err
		}

		move = &models.MoveRequest{
			ItemID:       item.ID,
			FromCity:     item.CityDisplay(),
			FromBuilding: item.BuildingDisplay(),
			FromAddress:  item.Address,
			MovedBy:      actor.Username,
			MovedAt:      s.now(),
		}

		item.MirrorBuilding(building)
		if err := saveItem(tx, item); err != nil {
			return err
		}
		lowStock, err := s.engine.ItemUpdated(tx, item)
		if err != nil {
			return err
		}

		move.ToCity = item.City
		move.ToBuilding = item.Building
		move.ToAddress = item.Address
		if err := tx.Omit("Item").Create(move).Error; err != nil {
			return fmt.Errorf("item service: record move: %w", err)
		}
		moved, err := s.engine.ItemMoved(tx, move, item)
		if err != nil {
			return err
		}
		created = []*models.Notification{lowStock, moved}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	metrics.ItemMoves.Inc()
	s.engine.Publish(created...)
	s.log.Info("item moved",
		zap.String("item_id", item.ID),
		zap.String("actor", actor.Username),
		zap.String("from", move.FromCity+"/"+move.FromBuilding),
		zap.String("to", move.ToCity+"/"+move.ToBuilding))
	s.broadcast(item.OwnerID, "item.moved", item)
	return item, move, nil
}

// DeliverableItems lists the owner's items that still have stock, by name.
func (s *ItemService) DeliverableItems(ctx context.Context, ownerID string) ([]ItemDTO, error) {
	var items []models.Item
	if err := s.db.WithContext(ensureContext(ctx)).
		Where("owner_id = ? AND quantity > ?", ownerID, 0).
		Order("name ASC").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("item service: deliverable items: %w", err)
	}
	return mapItems(items), nil
}

// Locations returns the owner's distinct non-empty city and building names.
func (s *ItemService) Locations(ctx context.Context, ownerID string) (cities, buildings []string, err error) {
	db := s.db.WithContext(ensureContext(ctx))
	if err = db.Model(&models.Item{}).
		Where("owner_id = ? AND city <> ''", ownerID).
		Distinct().Order("city ASC").
		Pluck("city", &cities).Error; err != nil {
		return nil, nil, fmt.Errorf("item service: distinct cities: %w", err)
	}
	if err = db.Model(&models.Item{}).
		Where("owner_id = ? AND building <> ''", ownerID).
		Distinct().Order("building ASC").
		Pluck("building", &buildings).Error; err != nil {
		return nil, nil, fmt.Errorf("item service: distinct buildings: %w", err)
	}
	return cities, buildings, nil
}

func (s *ItemService) broadcast(userID, event string, item *models.Item) {
	if s.hub == nil {
		return
	}
	dto := ToItemDTO(*item)
	s.hub.BroadcastToUser(realtime.StreamInventory, userID, realtime.Message{
		Event: event,
		Data:  &ItemEventPayload{Item: &dto, ItemID: item.ID},
	})
}

func validateItemFields(name, sku string, quantity int) map[string]string {
	fields := map[string]string{}
	if trimmedLen(name) < MinItemNameLength {
		fields["name"] = fmt.Sprintf("Name must be at least %d characters.", MinItemNameLength)
	}
	if trimmedLen(sku) < MinItemSKULength {
		fields["sku"] = fmt.Sprintf("SKU must be at least %d characters.", MinItemSKULength)
	}
	if quantity < 0 {
		fields["quantity"] = "Ensure this value is greater than or equal to 0."
	}
	return fields
}

func ensureUniqueSKU(tx *gorm.DB, ownerID, sku, exceptID string) error {
	query := tx.Model(&models.Item{}).Where("owner_id = ? AND sku = ?", ownerID, sku)
	if exceptID != "" {
		query = query.Where("id <> ?", exceptID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("item service: check sku: %w", err)
	}
	if count > 0 {
		return ErrDuplicateSKU
	}
	return nil
}

// resolveBuilding loads the building and checks it belongs to cityID.
func resolveBuilding(tx *gorm.DB, cityID, buildingID string) (*models.Building, error) {
	var city models.City
	if err := tx.Take(&city, "id = ?", strings.TrimSpace(cityID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fieldError(ErrCityNotFound.Code, "city_id", "Select a valid city.")
		}
		return nil, fmt.Errorf("item service: load city: %w", err)
	}

	building, err := loadBuilding(tx, buildingID)
	if err != nil {
		if errors.Is(err, ErrBuildingNotFound) {
			return nil, fieldError(ErrBuildingNotFound.Code, "building_id", "Select a valid building.")
		}
		return nil, err
	}
	if building.CityID != city.ID {
		return nil, ErrBuildingNotInCity
	}
	return building, nil
}

func loadItem(tx *gorm.DB, itemID string) (*models.Item, error) {
	var item models.Item
	if err := tx.Preload("BuildingRef.City").Take(&item, "id = ?", strings.TrimSpace(itemID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("item service: load item: %w", err)
	}
	return &item, nil
}

// saveItem writes the item's own columns, leaving associations alone.
func saveItem(tx *gorm.DB, item *models.Item) error {
	if err := tx.Omit("BuildingRef", "Owner").Save(item).Error; err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateSKU
		}
		return fmt.Errorf("item service: save item: %w", err)
	}
	return nil
}

func mapItems(items []models.Item) []ItemDTO {
	out := make([]ItemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, ToItemDTO(item))
	}
	return out
}

// ToItemDTO maps an item, with its building relation preloaded when available.
func ToItemDTO(item models.Item) ItemDTO {
	return ItemDTO{
		ID:            item.ID,
		OwnerID:       item.OwnerID,
		Name:          item.Name,
		SKU:           item.SKU,
		Quantity:      item.Quantity,
		City:          item.CityDisplay(),
		Building:      item.BuildingDisplay(),
		Address:       item.Address,
		Lat:           item.Lat,
		Lng:           item.Lng,
		BuildingRefID: item.BuildingRefID,
		FullAddress:   item.FullAddress(),
		LowStock:      item.Quantity < LowStockSummaryThreshold,
		CreatedAt:     item.CreatedAt,
		UpdatedAt:     item.UpdatedAt,
	}
}
