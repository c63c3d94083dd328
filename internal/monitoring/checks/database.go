package checks

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/inventra/internal/monitoring"
)

const defaultDatabaseTimeout = 2 * time.Second

// Database pings the gorm connection pool within timeout and reports the
// dialect in the probe details.
func Database(db *gorm.DB, timeout time.Duration) monitoring.Check {
	if timeout <= 0 {
		timeout = defaultDatabaseTimeout
	}

	return monitoring.NewCheck("database", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if db == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "database not configured"}
		}

		sqlDB, err := db.DB()
		if err != nil {
			return monitoring.ResultFromError("database", err, time.Since(start))
		}

		probeCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := sqlDB.PingContext(probeCtx); err != nil {
			return monitoring.ResultFromError("database", err, time.Since(start))
		}

		stats := sqlDB.Stats()
		result := monitoring.ProbeResult{Status: monitoring.StatusUp, Duration: time.Since(start)}
		if db.Dialector != nil {
			result.Details = db.Dialector.Name()
		}
		if stats.MaxOpenConnections > 0 && stats.InUse >= stats.MaxOpenConnections && stats.WaitCount > 0 {
			result.Status = monitoring.StatusDegraded
			result.Details = "connection pool exhausted"
		}
		return result
	})
}
