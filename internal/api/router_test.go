package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/inventra/internal/app"
	iauth "github.com/charlesng35/inventra/internal/auth"
	"github.com/charlesng35/inventra/internal/database/testutil"
)

func newTestJWT(t *testing.T) *iauth.JWTService {
	t.Helper()
	jwt, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "router-test-secret-with-enough-bytes!!",
		Issuer:         "router-test",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)
	return jwt
}

func TestNewRouterRequiresDependencies(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	jwt := newTestJWT(t)

	_, err := NewRouter(nil, jwt, &app.Config{}, Options{})
	require.Error(t, err)

	_, err = NewRouter(db, nil, &app.Config{}, Options{})
	require.Error(t, err)

	_, err = NewRouter(db, jwt, nil, Options{})
	require.Error(t, err)
}

func TestNewRouterRegistersRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	cfg := &app.Config{}
	cfg.Monitoring.Prometheus.Enabled = true
	cfg.Monitoring.Prometheus.Endpoint = "/internal/metrics"

	router, err := NewRouter(db, newTestJWT(t), cfg, Options{})
	require.NoError(t, err)

	registered := make(map[string]bool)
	for _, route := range router.Routes() {
		registered[route.Method+" "+route.Path] = true
	}
	for _, want := range []string{
		"GET /health",
		"GET /internal/metrics",
		"POST /api/auth/login",
		"GET /api/auth/me",
		"GET /api/items/export",
		"POST /api/items/:id/move",
		"POST /api/deliveries/:id/cancel",
		"PUT /api/notifications/settings",
		"POST /api/admin/cities/merge",
		"GET /api/realtime",
	} {
		require.True(t, registered[want], "missing route %s", want)
	}
	require.False(t, registered["GET /metrics"])
}

func TestAuthRoutesAreRateLimited(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	cfg := &app.Config{}
	cfg.Server.AuthRateLimit = app.RateLimitConfig{Requests: 1, Window: time.Minute}

	router, err := NewRouter(db, newTestJWT(t), cfg, Options{})
	require.NoError(t, err)

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "192.0.2.10:4000"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	require.NotEqual(t, http.StatusTooManyRequests, send())
	require.Equal(t, http.StatusTooManyRequests, send())
}
