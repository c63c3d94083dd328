package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/inventra/internal/models"
	"github.com/charlesng35/inventra/internal/monitoring"
	"github.com/charlesng35/inventra/pkg/logger"
)

// Job names reported to the job tracker.
const (
	JobNotificationRetention = "notification_retention"
	JobSettingsBackfill      = "settings_backfill"
)

const (
	defaultReadRetentionDays = 30
	defaultRetentionSpec     = "@daily"
	defaultBackfillSpec      = "@hourly"
)

// Cleaner runs the scheduled housekeeping jobs: purging old read
// notifications and provisioning settings for users that have none.
type Cleaner struct {
	db       *gorm.DB
	cron     *cron.Cron
	tracker  *monitoring.JobTracker
	now      func() time.Time
	log      *zap.Logger
	readDays int
	defaults models.NotificationSettings

	// retention gates the purge job; the settings backfill always runs.
	retention bool

	retentionSchedule string
	backfillSchedule  string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for retention comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithReadRetentionDays sets how long read notifications are kept.
func WithReadRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.readDays = days
		}
	}
}

// WithRetentionSchedule overrides the cron specification for the retention job.
func WithRetentionSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.retentionSchedule = spec
		}
	}
}

// WithRetention enables or disables purging of read notifications.
func WithRetention(enabled bool) Option {
	return func(cleaner *Cleaner) {
		cleaner.retention = enabled
	}
}

// WithTracker reports job outcomes to tracker.
func WithTracker(tracker *monitoring.JobTracker) Option {
	return func(cleaner *Cleaner) {
		cleaner.tracker = tracker
	}
}

// WithSettingsThresholds overrides the thresholds used when backfilling settings.
func WithSettingsThresholds(low, critical int) Option {
	return func(cleaner *Cleaner) {
		if low > 0 {
			cleaner.defaults.LowStockThreshold = low
		}
		if critical > 0 && critical <= cleaner.defaults.LowStockThreshold {
			cleaner.defaults.CriticalStockThreshold = critical
		}
	}
}

// NewCleaner constructs a Cleaner with daily retention of 30 day old read
// notifications and an hourly settings backfill.
func NewCleaner(db *gorm.DB, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:                db,
		now:               func() time.Time { return time.Now().UTC() },
		readDays:          defaultReadRetentionDays,
		retention:         true,
		defaults:          models.DefaultNotificationSettings(""),
		retentionSchedule: defaultRetentionSpec,
		backfillSchedule:  defaultBackfillSpec,
		log:               logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return cleaner
}

// Start registers the jobs with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if c.db == nil {
		return nil
	}

	type scheduledJob struct {
		name string
		spec string
		run  func(context.Context) (int64, error)
	}
	var jobs []scheduledJob
	if c.retention {
		jobs = append(jobs, scheduledJob{JobNotificationRetention, c.retentionSchedule, c.purgeReadNotifications})
	}
	jobs = append(jobs, scheduledJob{JobSettingsBackfill, c.backfillSchedule, c.backfillSettings})

	for _, job := range jobs {
		c.tracker.Register(job.name)
		if _, err := c.cron.AddFunc(job.spec, func() {
			if _, err := c.run(context.Background(), job.name, job.run); err != nil {
				c.log.Warn("maintenance job failed", zap.String("job", job.name), zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("maintenance: schedule %s: %w", job.name, err)
		}
	}

	c.cron.Start()
	c.log.Info("maintenance scheduled",
		zap.Bool("retention", c.retention),
		zap.String("retention_schedule", c.retentionSchedule),
		zap.Int("read_days", c.readDays))
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes every job sequentially and aggregates their failures.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.db == nil {
		return errors.New("maintenance: db is required")
	}

	var errs error
	if c.retention {
		if _, err := c.run(ctx, JobNotificationRetention, c.purgeReadNotifications); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if _, err := c.run(ctx, JobSettingsBackfill, c.backfillSettings); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}

func (c *Cleaner) run(ctx context.Context, name string, job func(context.Context) (int64, error)) (int64, error) {
	start := time.Now()
	affected, err := job(ctx)
	c.tracker.Record(name, c.now(), time.Since(start), err)
	if err == nil && affected > 0 {
		c.log.Info("maintenance job completed", zap.String("job", name), zap.Int64("affected", affected))
	}
	return affected, err
}

func (c *Cleaner) purgeReadNotifications(ctx context.Context) (int64, error) {
	return PurgeReadNotifications(ctx, c.db, c.now().AddDate(0, 0, -c.readDays))
}

func (c *Cleaner) backfillSettings(ctx context.Context) (int64, error) {
	return BackfillSettings(ctx, c.db, c.defaults)
}

// PurgeReadNotifications deletes read notifications read before cutoff.
// Unread notifications are never removed.
func PurgeReadNotifications(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	if db == nil {
		return 0, errors.New("purge notifications: db is required")
	}

	result := db.WithContext(ctx).
		Where("is_read = ? AND COALESCE(read_at, created_at) < ?", true, cutoff).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("purge notifications: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// BackfillSettings provisions notification settings, copying template's
// thresholds and toggles, for every user that has none.
func BackfillSettings(ctx context.Context, db *gorm.DB, template models.NotificationSettings) (int64, error) {
	if db == nil {
		return 0, errors.New("backfill settings: db is required")
	}

	var userIDs []string
	err := db.WithContext(ctx).Model(&models.User{}).
		Where("NOT EXISTS (SELECT 1 FROM notification_settings ns WHERE ns.user_id = users.id)").
		Pluck("id", &userIDs).Error
	if err != nil {
		return 0, fmt.Errorf("backfill settings: list users: %w", err)
	}

	var (
		created int64
		errs    error
	)
	for _, userID := range userIDs {
		settings := template
		settings.BaseModel = models.BaseModel{}
		settings.UserID = userID
		if err := db.WithContext(ctx).Create(&settings).Error; err != nil {
			errs = multierr.Append(errs, fmt.Errorf("backfill settings: user %s: %w", userID, err))
			continue
		}
		created++
	}
	return created, errs
}
