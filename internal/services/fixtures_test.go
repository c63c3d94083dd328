package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/inventra/internal/database/testutil"
	"github.com/charlesng35/inventra/internal/models"
	"github.com/charlesng35/inventra/internal/realtime"
	"github.com/charlesng35/inventra/internal/staticmap"
)

type publishedEvent struct {
	Stream  string
	UserID  string
	Message realtime.Message
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) BroadcastToUser(stream, userID string, message realtime.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Stream: stream, UserID: userID, Message: message})
}

func (p *recordingPublisher) Events(stream string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.Stream == stream {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	ctx           context.Context
	db            *gorm.DB
	hub           *recordingPublisher
	engine        *NotificationEngine
	settings      *SettingsService
	catalog       *CatalogService
	items         *ItemService
	deliveries    *DeliveryService
	notifications *NotificationService
	users         *UserService
	maps          *MapService
	admin         *AdminService
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithMaps(t, staticmap.Config{})
}

func newFixtureWithMaps(t *testing.T, mapCfg staticmap.Config) *fixture {
	t.Helper()

	f := &fixture{
		ctx: context.Background(),
		db:  testutil.MustOpenTestDB(t, testutil.WithAutoMigrate()),
		hub: &recordingPublisher{},
	}

	var err error
	f.settings, err = NewSettingsService(f.db, SettingsDefaults{})
	require.NoError(t, err)
	f.engine = NewNotificationEngine(f.hub, SettingsDefaults{})
	f.catalog, err = NewCatalogService(f.db)
	require.NoError(t, err)
	f.items, err = NewItemService(f.db, f.engine, f.hub)
	require.NoError(t, err)
	f.deliveries, err = NewDeliveryService(f.db, f.engine, f.hub)
	require.NoError(t, err)
	f.notifications, err = NewNotificationService(f.db, f.hub, f.settings)
	require.NoError(t, err)
	f.users, err = NewUserService(f.db, f.settings)
	require.NoError(t, err)
	f.maps, err = NewMapService(f.items, staticmap.New(mapCfg))
	require.NoError(t, err)
	f.admin, err = NewAdminService(f.catalog, f.maps)
	require.NoError(t, err)
	return f
}

func (f *fixture) user(t *testing.T, username string, staff bool) Actor {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "x",
		IsStaff:  staff,
		IsActive: true,
	}
	require.NoError(t, f.db.Create(user).Error)
	return Actor{UserID: user.ID, Username: user.Username, IsStaff: staff}
}

func (f *fixture) building(t *testing.T, cityName, name string) *models.Building {
	t.Helper()
	city, _, err := f.catalog.GetOrCreateCity(f.ctx, cityName)
	require.NoError(t, err)
	lat, lng := 45.7489, 21.2087
	building, _, err := f.catalog.CreateBuilding(f.ctx, CreateBuildingInput{
		CityID:  city.ID,
		Name:    name,
		Address: name + " street 1",
		Lat:     &lat,
		Lng:     &lng,
	})
	require.NoError(t, err)
	return building
}

func (f *fixture) item(t *testing.T, owner Actor, b *models.Building, name, sku string, quantity int) *models.Item {
	t.Helper()
	item, err := f.items.Create(f.ctx, owner, CreateItemInput{
		Name:       name,
		SKU:        sku,
		Quantity:   quantity,
		CityID:     b.CityID,
		BuildingID: b.ID,
	})
	require.NoError(t, err)
	return item
}

func (f *fixture) setQuantity(t *testing.T, staff Actor, itemID string, quantity int) *models.Item {
	t.Helper()
	item, err := f.items.Update(f.ctx, staff, itemID, UpdateItemInput{Quantity: &quantity})
	require.NoError(t, err)
	return item
}

func (f *fixture) notificationsOf(t *testing.T, userID, kind string) []models.Notification {
	t.Helper()
	var rows []models.Notification
	require.NoError(t, f.db.Where("user_id = ? AND type = ?", userID, kind).Order("created_at ASC").Find(&rows).Error)
	return rows
}

func (f *fixture) quantity(t *testing.T, itemID string) int {
	t.Helper()
	var item models.Item
	require.NoError(t, f.db.Take(&item, "id = ?", itemID).Error)
	return item.Quantity
}
