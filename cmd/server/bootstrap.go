package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/inventra/internal/api"
	"github.com/charlesng35/inventra/internal/app"
	"github.com/charlesng35/inventra/internal/app/maintenance"
	iauth "github.com/charlesng35/inventra/internal/auth"
	"github.com/charlesng35/inventra/internal/database"
	"github.com/charlesng35/inventra/internal/monitoring"
	"github.com/charlesng35/inventra/internal/monitoring/checks"
	"github.com/charlesng35/inventra/internal/realtime"
	"github.com/charlesng35/inventra/pkg/logger"
)

const databaseProbeTimeout = 3 * time.Second

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB      *gorm.DB
	Hub     *realtime.Hub
	Jobs    *monitoring.JobTracker
	Health  *monitoring.HealthManager
	Cleaner *maintenance.Cleaner
	Router  *gin.Engine
}

// bootstrapRuntime opens the database, resolves the signing secret, starts
// maintenance jobs and builds the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, generated map[string]bool, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	secret, err := database.ResolveJWTSecret(ctx, stack.DB, cfg.Auth.JWT.Secret, generated["auth.jwt.secret"])
	if err != nil {
		return nil, fmt.Errorf("resolve jwt secret: %w", err)
	}
	cfg.Auth.JWT.Secret = secret

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	stack.Jobs = monitoring.NewJobTracker()
	stack.Cleaner = newCleaner(stack.DB, cfg, stack.Jobs)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	stack.Health = monitoring.NewHealthManager(
		checks.Database(stack.DB, databaseProbeTimeout),
		checks.Maintenance(stack.Jobs, 0),
	)
	stack.Hub = realtime.NewHub()

	stack.Router, err = api.NewRouter(stack.DB, jwtSvc, cfg, api.Options{
		Hub:    stack.Hub,
		Health: stack.Health,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

func newCleaner(db *gorm.DB, cfg *app.Config, tracker *monitoring.JobTracker) *maintenance.Cleaner {
	retention := cfg.Notifications.Retention
	defaults := cfg.Notifications.Defaults
	return maintenance.NewCleaner(db,
		maintenance.WithRetention(retention.Enabled),
		maintenance.WithReadRetentionDays(retention.ReadDays),
		maintenance.WithRetentionSchedule(retention.Schedule),
		maintenance.WithSettingsThresholds(defaults.LowStockThreshold, defaults.CriticalStockThreshold),
		maintenance.WithTracker(tracker),
	)
}

// Shutdown stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		<-s.Cleaner.Stop().Done()
	}

	if s.DB != nil {
		if err := database.Close(s.DB); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.DatabaseOptions()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	seed, err := database.AutoMigrateAndSeed(db)
	if err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", dbCfg.Driver))
	if seed.Created() {
		log.Warn("staff account created; change this password after first sign-in",
			zap.String("username", seed.StaffUsername),
			zap.String("password", seed.StaffPassword))
	}

	return db, nil
}
