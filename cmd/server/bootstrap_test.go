package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/charlesng35/inventra/internal/app"
	"github.com/charlesng35/inventra/internal/database/testutil"
	"github.com/charlesng35/inventra/internal/models"
	"github.com/charlesng35/inventra/internal/monitoring"
)

func newTestConfig(t *testing.T, dbPath string) (*app.Config, map[string]bool) {
	t.Helper()

	cfg, err := app.LoadConfig(t.TempDir())
	require.NoError(t, err)
	cfg.Database.Driver = "sqlite"
	cfg.Database.Path = dbPath
	cfg.Auth.JWT.Secret = ""

	generated, err := app.ApplyRuntimeDefaults(cfg)
	require.NoError(t, err)
	return cfg, generated
}

func TestBootstrapRuntimePersistsGeneratedSecret(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "inventra.sqlite")
	log := zap.NewNop()

	cfg, generated := newTestConfig(t, dbPath)
	require.True(t, generated["auth.jwt.secret"])

	stack, err := bootstrapRuntime(context.Background(), cfg, generated, log)
	require.NoError(t, err)
	firstSecret := cfg.Auth.JWT.Secret

	w := httptest.NewRecorder()
	stack.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, stack.Jobs.Snapshot(), 1)

	var staff int64
	require.NoError(t, stack.DB.Model(&models.User{}).Where("is_staff = ?", true).Count(&staff).Error)
	require.EqualValues(t, 1, staff)
	stack.Shutdown(log)

	cfg, generated = newTestConfig(t, dbPath)
	require.NotEqual(t, firstSecret, cfg.Auth.JWT.Secret)

	stack, err = bootstrapRuntime(context.Background(), cfg, generated, log)
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(log) })
	require.Equal(t, firstSecret, cfg.Auth.JWT.Secret)
}

func TestNewCleanerHonoursRetentionConfig(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	cfg, _ := newTestConfig(t, "")

	cfg.Notifications.Retention.Enabled = true
	cfg.Notifications.Retention.ReadDays = 7

	tracker := monitoring.NewJobTracker()
	cleaner := newCleaner(db, cfg, tracker)
	require.NoError(t, cleaner.RunOnce(context.Background()))
	require.Len(t, tracker.Snapshot(), 2)
}

func TestMergeCitiesCommand(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	canonical := models.City{Name: "Timisoara"}
	duplicate := models.City{Name: "timișoara"}
	require.NoError(t, db.Create(&canonical).Error)
	require.NoError(t, db.Create(&duplicate).Error)
	require.NoError(t, db.Create(&models.Building{CityID: duplicate.ID, Name: "Bega Center", Address: "Splaiul Tudor Vladimirescu 2"}).Error)

	var out bytes.Buffer
	require.NoError(t, mergeCities(context.Background(), db, true, &out))
	require.Contains(t, out.String(), `keeping "Timisoara"`)
	require.Contains(t, out.String(), `would merge "timișoara": 1 buildings moved`)
	require.Contains(t, out.String(), "Dry run: 1 duplicate groups found")

	var count int64
	require.NoError(t, db.Model(&models.City{}).Count(&count).Error)
	require.EqualValues(t, 2, count)

	out.Reset()
	require.NoError(t, mergeCities(context.Background(), db, false, &out))
	require.Contains(t, out.String(), "Merged 1 cities.")

	require.NoError(t, db.Model(&models.City{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	out.Reset()
	require.NoError(t, mergeCities(context.Background(), db, false, &out))
	require.Equal(t, "No duplicate cities found.\n", out.String())
}

func TestInitialiseDatabaseRejectsUnknownDriver(t *testing.T) {
	cfg := &app.Config{}
	cfg.Database.Driver = "oracle"

	_, err := initialiseDatabase(cfg)
	require.Error(t, err)
}
