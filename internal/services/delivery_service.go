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

// CreateDeliveryInput describes a delivery split off one item.
type CreateDeliveryInput struct {
	ItemID     string
	Quantity   int
	ToCity     string
	ToBuilding string
	ToAddress  string
}

// UpdateDeliveryInput edits the destination and optionally the status.
// Nil fields are left untouched.
type UpdateDeliveryInput struct {
	ToCity     *string
	ToBuilding *string
	ToAddress  *string
	Status     *string
}

// DeliveryFilter narrows delivery listings. Empty fields are ignored.
type DeliveryFilter struct {
	Status string
	Query  string
}

// DeliveryEventPayload is pushed on the deliveries stream.
type DeliveryEventPayload struct {
	Delivery *models.Delivery `json:"delivery"`
}

// DeliveryService runs the delivery state machine. Every transition commits
// together with its stock adjustment and notifications.
type DeliveryService struct {
	db     *gorm.DB
	engine *NotificationEngine
	hub    EventPublisher
	log    *zap.Logger
	now    func() time.Time
}

// NewDeliveryService constructs a DeliveryService. hub may be nil.
func NewDeliveryService(db *gorm.DB, engine *NotificationEngine, hub EventPublisher) (*DeliveryService, error) {
	if db == nil {
		return nil, errors.New("delivery service: db is required")
	}
	if engine == nil {
		return nil, errors.New("delivery service: notification engine is required")
	}
	return &DeliveryService{
		db:     db,
		engine: engine,
		hub:    hub,
		log:    logger.WithModule("deliveries"),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// List returns the deliveries the actor created, newest first.
func (s *DeliveryService) List(ctx context.Context, actor Actor, filter DeliveryFilter) ([]models.Delivery, error) {
	query := s.db.WithContext(ensureContext(ctx)).
		Preload("Item").
		Where("deliveries.created_by = ?", actor.Username)

	if status := strings.TrimSpace(filter.Status); status != "" {
		if !models.ValidDeliveryStatus(status) {
			return nil, apperrors.NewValidation("status", fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", status))
		}
		query = query.Where("deliveries.status = ?", status)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		query = query.
			Joins("JOIN items ON items.id = deliveries.item_id").
			Where(likeCondition("items.name"), likePattern(q))
	}

	var deliveries []models.Delivery
	if err := query.Order("deliveries.created_at DESC").Find(&deliveries).Error; err != nil {
		return nil, fmt.Errorf("delivery service: list deliveries: %w", err)
	}
	return deliveries, nil
}

// Get loads a delivery created by the actor.
func (s *DeliveryService) Get(ctx context.Context, actor Actor, deliveryID string) (*models.Delivery, error) {
	return loadDelivery(s.db.WithContext(ensureContext(ctx)), actor, deliveryID)
}

// Create splits input.Quantity units off one of the actor's stocked items.
// The item's location becomes the delivery origin.
func (s *DeliveryService) Create(ctx context.Context, actor Actor, input CreateDeliveryInput) (*models.Delivery, error) {
	ctx = ensureContext(ctx)
	if input.Quantity < 1 {
		return nil, apperrors.NewValidation("quantity", "Ensure this value is greater than or equal to 1.")
	}

	var (
		delivery *models.Delivery
		created  []*models.Notification
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.Item
		err := tx.Preload("BuildingRef.City").
			Where("id = ? AND owner_id = ? AND quantity > ?", strings.TrimSpace(input.ItemID), actor.UserID, 0).
			Take(&item).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fieldError(ErrItemNotFound.Code, "item_id", "Select a valid item.")
			}
			return fmt.Errorf("delivery service: load item: %w", err)
		}
		if input.Quantity > item.Quantity {
			return insufficientStock(input.Quantity, item.Quantity)
		}

		item.Quantity -= input.Quantity
		if err := saveItem(tx, &item); err != nil {
			return err
		}
		lowStock, err := s.engine.ItemUpdated(tx, &item)
		if err != nil {
			return err
		}

		delivery = &models.Delivery{
			ItemID:       item.ID,
			Quantity:     input.Quantity,
			Status:       models.DeliveryStatusInProgress,
			FromCity:     item.CityDisplay(),
			FromBuilding: item.BuildingDisplay(),
			FromAddress:  item.Address,
			ToCity:       strings.TrimSpace(input.ToCity),
			ToBuilding:   strings.TrimSpace(input.ToBuilding),
			ToAddress:    strings.TrimSpace(input.ToAddress),
			CreatedBy:    actor.Username,
		}
		if err := tx.Omit("Item").Create(delivery).Error; err != nil {
			return fmt.Errorf("delivery service: create delivery: %w", err)
		}
		delivery.Item = &item

		notice, err := s.engine.DeliveryCreated(tx, delivery, &item)
		if err != nil {
			return err
		}
		created = []*models.Notification{lowStock, notice}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.committed(actor, "delivery.created", delivery, true, created)
	return delivery, nil
}

// Update edits the destination of a delivery and optionally moves an
// in-progress one to finished or cancelled. Cancelling restores stock exactly
// as Cancel does. Finished and cancelled deliveries keep their status but
// still accept destination edits.
func (s *DeliveryService) Update(ctx context.Context, actor Actor, deliveryID string, input UpdateDeliveryInput) (*models.Delivery, error) {
	ctx = ensureContext(ctx)

	status := ""
	if input.Status != nil {
		status = strings.TrimSpace(*input.Status)
		if !models.ValidDeliveryStatus(status) {
			return nil, apperrors.NewValidation("status", fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", status))
		}
	}

	var (
		delivery     *models.Delivery
		created      []*models.Notification
		transitioned bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if delivery, err = loadDelivery(tx, actor, deliveryID); err != nil {
			return err
		}
		if delivery.IsTerminal() {
			if status != "" && status != delivery.Status {
				return ErrDeliveryTerminal
			}
			status = ""
		}

		if input.ToCity != nil {
			delivery.ToCity = strings.TrimSpace(*input.ToCity)
		}
		if input.ToBuilding != nil {
			delivery.ToBuilding = strings.TrimSpace(*input.ToBuilding)
		}
		if input.ToAddress != nil {
			delivery.ToAddress = strings.TrimSpace(*input.ToAddress)
		}

		switch status {
		case models.DeliveryStatusCancelled:
			transitioned = true
			created, err = s.cancel(tx, delivery)
			return err
		case models.DeliveryStatusFinished:
			delivery.Status = models.DeliveryStatusFinished
			finishedAt := s.now()
			delivery.FinishedAt = &finishedAt
			transitioned = true
		}

		if err := tx.Omit("Item").Save(delivery).Error; err != nil {
			return fmt.Errorf("delivery service: save delivery: %w", err)
		}
		if !transitioned {
			return nil
		}
		notice, err := s.engine.DeliveryStatusChanged(tx, delivery, delivery.Item)
		if err != nil {
			return err
		}
		created = []*models.Notification{notice}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.committed(actor, "delivery.updated", delivery, transitioned, created)
	return delivery, nil
}

// Cancel returns an in-progress delivery's units to its item. Any other
// status is refused with no change.
func (s *DeliveryService) Cancel(ctx context.Context, actor Actor, deliveryID string) (*models.Delivery, error) {
	ctx = ensureContext(ctx)

	var (
		delivery *models.Delivery
		created  []*models.Notification
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if delivery, err = loadDelivery(tx, actor, deliveryID); err != nil {
			return err
		}
		created, err = s.cancel(tx, delivery)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.committed(actor, "delivery.cancelled", delivery, true, created)
	return delivery, nil
}

func (s *DeliveryService) cancel(tx *gorm.DB, delivery *models.Delivery) ([]*models.Notification, error) {
	if delivery.Status != models.DeliveryStatusInProgress {
		return nil, ErrDeliveryNotCancellable
	}

	item := delivery.Item
	item.Quantity += delivery.Quantity
	if err := saveItem(tx, item); err != nil {
		return nil, err
	}
	lowStock, err := s.engine.ItemUpdated(tx, item)
	if err != nil {
		return nil, err
	}

	delivery.Status = models.DeliveryStatusCancelled
	if err := tx.Omit("Item").Save(delivery).Error; err != nil {
		return nil, fmt.Errorf("delivery service: save delivery: %w", err)
	}
	notice, err := s.engine.DeliveryStatusChanged(tx, delivery, item)
	if err != nil {
		return nil, err
	}
	return []*models.Notification{lowStock, notice}, nil
}

func (s *DeliveryService) committed(actor Actor, event string, delivery *models.Delivery, transitioned bool, created []*models.Notification) {
	if transitioned {
		metrics.DeliveryTransitions.WithLabelValues(delivery.Status).Inc()
	}
	s.engine.Publish(created...)
	s.log.Info(strings.ReplaceAll(event, ".", " "),
		zap.String("delivery_id", delivery.ID),
		zap.String("item_id", delivery.ItemID),
		zap.String("status", delivery.Status),
		zap.Int("quantity", delivery.Quantity),
		zap.String("actor", actor.Username))
	if s.hub != nil {
		s.hub.BroadcastToUser(realtime.StreamDeliveries, actor.UserID, realtime.Message{
			Event: event,
			Data:  &DeliveryEventPayload{Delivery: delivery},
		})
	}
}

func loadDelivery(db *gorm.DB, actor Actor, deliveryID string) (*models.Delivery, error) {
	var delivery models.Delivery
	err := db.Preload("Item.BuildingRef.City").
		Where("id = ? AND created_by = ?", strings.TrimSpace(deliveryID), actor.Username).
		Take(&delivery).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDeliveryNotFound
		}
		return nil, fmt.Errorf("delivery service: load delivery: %w", err)
	}
	return &delivery, nil
}
