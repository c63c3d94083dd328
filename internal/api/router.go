package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/charlesng35/inventra/internal/app"
	iauth "github.com/charlesng35/inventra/internal/auth"
	"github.com/charlesng35/inventra/internal/handlers"
	"github.com/charlesng35/inventra/internal/middleware"
	"github.com/charlesng35/inventra/internal/monitoring"
	"github.com/charlesng35/inventra/internal/monitoring/checks"
	"github.com/charlesng35/inventra/internal/realtime"
	"github.com/charlesng35/inventra/internal/services"
	"github.com/charlesng35/inventra/internal/staticmap"
)

// Options carries optional collaborators. Nil fields get fresh defaults.
type Options struct {
	Hub    *realtime.Hub
	Health *monitoring.HealthManager
}

// NewRouter builds the Gin engine, wires middleware, services and routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, opts Options) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if opts.Hub == nil {
		opts.Hub = realtime.NewHub()
	}
	if opts.Health == nil {
		opts.Health = monitoring.NewHealthManager(checks.Database(db, 0))
	}

	svc, err := newServiceSet(db, cfg, opts.Hub)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())

	registerHealthRoutes(r, opts.Health)

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	authHandler := handlers.NewAuthHandler(svc.users, jwt)
	registerAuthRoutes(r, authHandler, cfg.Server.AuthRateLimit)

	// The websocket handshake authenticates itself from the query string.
	realtimeHandler := handlers.NewRealtimeHandler(opts.Hub, jwt)
	r.GET("/api/notifications/stream", realtimeHandler.Stream)
	r.GET("/api/realtime", realtimeHandler.Stream)

	api := r.Group("/api")
	api.Use(middleware.Auth(jwt))

	api.GET("/auth/me", authHandler.Me)

	itemHandler := handlers.NewItemHandler(svc.items, svc.maps)
	registerItemRoutes(api, itemHandler)
	registerCatalogRoutes(api, handlers.NewCatalogHandler(svc.catalog))
	registerDeliveryRoutes(api, handlers.NewDeliveryHandler(svc.deliveries), itemHandler)
	registerNotificationRoutes(api, handlers.NewNotificationHandler(svc.notifications, svc.settings))
	registerAdminRoutes(api, handlers.NewAdminHandler(svc.admin, svc.catalog))

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

type serviceSet struct {
	users         *services.UserService
	settings      *services.SettingsService
	catalog       *services.CatalogService
	items         *services.ItemService
	deliveries    *services.DeliveryService
	notifications *services.NotificationService
	maps          *services.MapService
	admin         *services.AdminService
}

func newServiceSet(db *gorm.DB, cfg *app.Config, hub *realtime.Hub) (*serviceSet, error) {
	defaults := cfg.Notifications.SettingsDefaults()

	settings, err := services.NewSettingsService(db, defaults)
	if err != nil {
		return nil, err
	}
	users, err := services.NewUserService(db, settings)
	if err != nil {
		return nil, err
	}
	catalog, err := services.NewCatalogService(db)
	if err != nil {
		return nil, err
	}

	engine := services.NewNotificationEngine(hub, defaults)
	items, err := services.NewItemService(db, engine, hub)
	if err != nil {
		return nil, err
	}
	deliveries, err := services.NewDeliveryService(db, engine, hub)
	if err != nil {
		return nil, err
	}
	notifications, err := services.NewNotificationService(db, hub, settings)
	if err != nil {
		return nil, err
	}
	maps, err := services.NewMapService(items, staticmap.New(cfg.Maps.StaticMapConfig()))
	if err != nil {
		return nil, err
	}
	admin, err := services.NewAdminService(catalog, maps)
	if err != nil {
		return nil, err
	}

	return &serviceSet{
		users:         users,
		settings:      settings,
		catalog:       catalog,
		items:         items,
		deliveries:    deliveries,
		notifications: notifications,
		maps:          maps,
		admin:         admin,
	}, nil
}
