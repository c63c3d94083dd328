package monitoring_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	testutil "github.com/charlesng35/inventra/internal/database/testutil"
	"github.com/charlesng35/inventra/internal/monitoring"
	"github.com/charlesng35/inventra/internal/monitoring/checks"
)

func TestHealthManagerAggregatesStatus(t *testing.T) {
	up := monitoring.NewCheck("up", func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	})
	degraded := monitoring.NewCheck("slow", func(context.Context) monitoring.ProbeResult {
		return monitoring.ResultFromError("slow", context.DeadlineExceeded, time.Millisecond)
	})
	down := monitoring.NewCheck("broken", func(context.Context) monitoring.ProbeResult {
		return monitoring.ResultFromError("broken", errors.New("boom"), time.Millisecond)
	})

	report := monitoring.NewHealthManager(up).Evaluate(context.Background())
	require.True(t, report.Success)
	require.Equal(t, monitoring.StatusUp, report.Status)

	report = monitoring.NewHealthManager(up, degraded).Evaluate(context.Background())
	require.False(t, report.Success)
	require.Equal(t, monitoring.StatusDegraded, report.Status)

	report = monitoring.NewHealthManager(down, degraded).Evaluate(context.Background())
	require.False(t, report.Success)
	require.Equal(t, monitoring.StatusDown, report.Status)
	require.Equal(t, "broken", report.Checks[0].Component)
	require.Equal(t, "boom", report.Checks[0].Details)
}

func TestHealthManagerRecoversPanickingProbe(t *testing.T) {
	manager := monitoring.NewHealthManager(monitoring.NewCheck("panics", func(context.Context) monitoring.ProbeResult {
		panic("probe exploded")
	}))

	report := manager.Evaluate(context.Background())
	require.False(t, report.Success)
	require.Len(t, report.Checks, 1)
	require.Equal(t, "panics", report.Checks[0].Component)
	require.Equal(t, "probe exploded", report.Checks[0].Details)
}

func TestDatabaseCheck(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	result := monitoring.NewHealthManager(checks.Database(db, time.Second)).Evaluate(context.Background())
	require.True(t, result.Success)
	require.Equal(t, "database", result.Checks[0].Component)

	result = monitoring.NewHealthManager(checks.Database(nil, time.Second)).Evaluate(context.Background())
	require.False(t, result.Success)
	require.Equal(t, "database not configured", result.Checks[0].Details)
}

func TestMaintenanceCheck(t *testing.T) {
	tracker := monitoring.NewJobTracker()
	check := checks.Maintenance(tracker, time.Hour)

	report := monitoring.NewHealthManager(check).Evaluate(context.Background())
	require.True(t, report.Success)
	require.Equal(t, "no maintenance jobs registered", report.Checks[0].Details)

	tracker.Register("notification_retention")
	report = monitoring.NewHealthManager(check).Evaluate(context.Background())
	require.True(t, report.Success)
	require.Contains(t, report.Checks[0].Details, "pending first run")

	tracker.Record("notification_retention", time.Now(), time.Millisecond, errors.New("db locked"))
	report = monitoring.NewHealthManager(check).Evaluate(context.Background())
	require.Equal(t, monitoring.StatusDown, report.Status)
	require.Contains(t, report.Checks[0].Details, "db locked")

	tracker.Record("notification_retention", time.Now().Add(-2*time.Hour), time.Millisecond, nil)
	report = monitoring.NewHealthManager(check).Evaluate(context.Background())
	require.Equal(t, monitoring.StatusDegraded, report.Status)

	tracker.Record("notification_retention", time.Now(), time.Millisecond, nil)
	report = monitoring.NewHealthManager(check).Evaluate(context.Background())
	require.True(t, report.Success)

	jobs := tracker.Snapshot()
	require.Len(t, jobs, 1)
	require.Equal(t, uint64(3), jobs[0].TotalRuns)
	require.Zero(t, jobs[0].ConsecutiveFailures)
}
